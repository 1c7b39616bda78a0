package streamer

import (
	"testing"
	"time"

	"sdr-loopback/internal/radio"
)

func TestCoordinatorStartStop(t *testing.T) {
	txStream := &fakeTxStream{}
	tx := NewTxStreamer(NewBufferSource(rampBuffer(64), true), txStream, 16, 0)
	rx := NewRxStreamer(&fakeRxStream{}, &memSink{}, 16, 10*time.Millisecond, false)

	c := NewCoordinator(tx, rx, 2*time.Second)
	c.Start()

	for tx.ChunksSent() < 5 {
		time.Sleep(time.Millisecond)
	}

	start := time.Now()
	c.RequestStop()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("stop took %v, expected a prompt join", elapsed)
	}

	// Both loops have exited: counters no longer advance.
	sent := tx.ChunksSent()
	stored := rx.SamplesStored()
	time.Sleep(20 * time.Millisecond)
	if tx.ChunksSent() != sent || rx.SamplesStored() != stored {
		t.Error("streamers still running after RequestStop returned")
	}
}

// stuckRxStream blocks well past any reasonable grace period.
type stuckRxStream struct{}

func (stuckRxStream) Recv(buf []complex64, timeout time.Duration) (int, radio.RXMetadata, error) {
	time.Sleep(10 * time.Second)
	return 0, radio.RXMetadata{ErrorCode: radio.RxErrorTimeout}, nil
}

func TestCoordinatorAbandonsStuckLoop(t *testing.T) {
	txStream := &fakeTxStream{}
	tx := NewTxStreamer(NewBufferSource(rampBuffer(16), true), txStream, 16, 0)
	rx := NewRxStreamer(stuckRxStream{}, &memSink{}, 16, time.Second, false)

	c := NewCoordinator(tx, rx, 50*time.Millisecond)
	c.Start()
	time.Sleep(10 * time.Millisecond)

	start := time.Now()
	c.RequestStop()
	elapsed := time.Since(start)
	if elapsed > time.Second {
		t.Fatalf("expected stop to give up after the grace period, took %v", elapsed)
	}
}

func TestCoordinatorStopBeforeStart(t *testing.T) {
	tx := NewTxStreamer(NewBufferSource(nil, false), &fakeTxStream{}, 16, 0)
	rx := NewRxStreamer(&fakeRxStream{}, &memSink{}, 16, time.Millisecond, false)

	c := NewCoordinator(tx, rx, time.Second)
	c.RequestStop() // must not block on never-started loops
}
