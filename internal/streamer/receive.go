package streamer

import (
	"fmt"
	"sync/atomic"
	"time"

	"sdr-loopback/internal/radio"
	"sdr-loopback/internal/xcorr"
)

// Sink receives captured sample chunks, append-only.
type Sink interface {
	WriteChunk(samples []complex64) error
}

// RxStreamer drains a receive stream into an append-only sink, computing a
// running RMS magnitude per chunk as a health signal. Receive-side errors
// (overflow, timeout) are logged and never stop the loop.
type RxStreamer struct {
	stream  radio.RxStream
	sink    Sink
	buf     []complex64
	timeout time.Duration
	verbose bool

	samplesStored int64 // accessed atomically
}

// NewRxStreamer builds a receive streamer reading chunkSize samples per
// call with the given per-call timeout. verbose enables the per-chunk RMS
// log line.
func NewRxStreamer(stream radio.RxStream, sink Sink, chunkSize int, timeout time.Duration, verbose bool) *RxStreamer {
	return &RxStreamer{
		stream:  stream,
		sink:    sink,
		buf:     make([]complex64, chunkSize),
		timeout: timeout,
		verbose: verbose,
	}
}

// SamplesStored reports the number of samples appended to the sink.
func (r *RxStreamer) SamplesStored() int64 {
	return atomic.LoadInt64(&r.samplesStored)
}

// Run drains the receive stream until the stop flag is set. The flag is
// checked once per iteration; the recv timeout bounds how long a stop can
// go unobserved.
func (r *RxStreamer) Run(stop *atomic.Bool) {
	for !stop.Load() {
		n, md, err := r.stream.Recv(r.buf, r.timeout)
		if err != nil {
			fmt.Printf("[RX] recv error: %v\n", err)
			continue
		}
		if md.ErrorCode != radio.RxErrorNone {
			fmt.Printf("[RX] metadata error: %v\n", md.ErrorCode)
			continue
		}
		if n == 0 {
			continue
		}

		chunk := r.buf[:n]
		if err := r.sink.WriteChunk(chunk); err != nil {
			fmt.Printf("[RX] sink write error: %v\n", err)
			continue
		}
		atomic.AddInt64(&r.samplesStored, int64(n))

		if r.verbose {
			fmt.Printf("[RX] %d samples, rms=%.6f\n", n, xcorr.RMS(chunk))
		}
	}
}
