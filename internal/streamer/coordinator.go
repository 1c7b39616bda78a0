package streamer

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Coordinator owns the two streaming loops and their shared stop flag.
// Start launches both concurrently; RequestStop sets the flag and joins
// each loop up to a bounded grace period. A loop that fails to exit within
// the grace period is abandoned and logged, never fatal.
type Coordinator struct {
	tx    *TxStreamer
	rx    *RxStreamer
	grace time.Duration

	stop    atomic.Bool
	started bool
	txDone  chan struct{}
	rxDone  chan struct{}
}

// NewCoordinator wires the two streamers with the given join grace period.
func NewCoordinator(tx *TxStreamer, rx *RxStreamer, grace time.Duration) *Coordinator {
	return &Coordinator{
		tx:     tx,
		rx:     rx,
		grace:  grace,
		txDone: make(chan struct{}),
		rxDone: make(chan struct{}),
	}
}

// Start launches both streaming loops. It does not block.
func (c *Coordinator) Start() {
	c.started = true
	go func() {
		defer close(c.txDone)
		c.tx.Run(&c.stop)
	}()
	go func() {
		defer close(c.rxDone)
		c.rx.Run(&c.stop)
	}()
}

// RequestStop signals both loops to stop and waits for each to exit, up to
// the grace period per loop.
func (c *Coordinator) RequestStop() {
	c.stop.Store(true)
	if !c.started {
		return
	}
	c.join("TX", c.txDone)
	c.join("RX", c.rxDone)
}

func (c *Coordinator) join(name string, done chan struct{}) {
	select {
	case <-done:
	case <-time.After(c.grace):
		fmt.Printf("Warning: %s loop did not exit within %v, abandoning\n", name, c.grace)
	}
}
