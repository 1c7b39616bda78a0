// Package streamer implements the concurrent transmit and receive loops
// and the coordinator that ties their lifecycles together. The two loops
// share nothing but a single stop flag: the transmit side reads from its
// sample source, the receive side appends to its sink, and either loop
// tolerates the other stalling.
package streamer

import (
	"fmt"
	"sync/atomic"
	"time"

	"sdr-loopback/internal/radio"
)

// Source yields successive transmit chunks. Next returns at most max
// samples and reports false once the source is exhausted (a looping source
// never is).
type Source interface {
	Next(max int) ([]complex64, bool)
}

// BufferSource serves chunks from an in-memory sample buffer through a
// read cursor. With looping enabled the cursor wraps precisely at the
// buffer boundary, so no sample is skipped or duplicated across the wrap;
// otherwise the final chunk may be shorter than requested.
type BufferSource struct {
	buf    []complex64
	cursor int
	loop   bool
}

// NewBufferSource wraps buf, which the source reads but never modifies.
func NewBufferSource(buf []complex64, loop bool) *BufferSource {
	return &BufferSource{buf: buf, loop: loop}
}

// Next implements Source.
func (s *BufferSource) Next(max int) ([]complex64, bool) {
	remaining := len(s.buf) - s.cursor
	if remaining <= 0 {
		if !s.loop || len(s.buf) == 0 {
			return nil, false
		}
		s.cursor = 0
		remaining = len(s.buf)
	}
	size := max
	if size > remaining {
		size = remaining
	}
	chunk := s.buf[s.cursor : s.cursor+size]
	s.cursor += size
	return chunk, true
}

// TxStreamer feeds a sample source to a transmit stream in fixed-size
// chunks. The first emitted chunk carries start-of-burst; on shutdown a
// single zero-length end-of-burst chunk flushes the path.
type TxStreamer struct {
	source    Source
	stream    radio.TxStream
	chunkSize int
	throttle  time.Duration

	chunksSent int64 // accessed atomically
}

// NewTxStreamer builds a transmit streamer. throttle is a small optional
// yield between chunks, tuned against device underflow.
func NewTxStreamer(source Source, stream radio.TxStream, chunkSize int, throttle time.Duration) *TxStreamer {
	return &TxStreamer{
		source:    source,
		stream:    stream,
		chunkSize: chunkSize,
		throttle:  throttle,
	}
}

// ChunksSent reports the number of chunks accepted by the transmit path.
func (t *TxStreamer) ChunksSent() int64 {
	return atomic.LoadInt64(&t.chunksSent)
}

// Run streams until the stop flag is set or the source is exhausted. The
// flag is checked once per chunk boundary; a chunk in flight completes
// before a stop is observed. Transfer failures are logged and the loop
// continues. Start-of-burst is carried forward across failed sends, so
// the marker always lands on the first chunk the device accepts; exactly
// one accepted chunk per session carries it.
func (t *TxStreamer) Run(stop *atomic.Bool) {
	defer t.drain()

	first := true
	for !stop.Load() {
		chunk, ok := t.source.Next(t.chunkSize)
		if !ok {
			return
		}

		md := radio.TXMetadata{StartOfBurst: first}
		if _, err := t.stream.Send(chunk, md); err != nil {
			fmt.Printf("[TX] send error: %v\n", err)
			continue
		}
		first = false

		sent := atomic.AddInt64(&t.chunksSent, 1)
		if sent%200 == 0 {
			fmt.Printf("[TX] sent %d chunks\n", sent)
		}

		if t.throttle > 0 {
			time.Sleep(t.throttle)
		}
	}
}

// drain emits the zero-length end-of-burst flush. It is best-effort; a
// failure here is swallowed.
func (t *TxStreamer) drain() {
	t.stream.Send(nil, radio.TXMetadata{EndOfBurst: true})
}
