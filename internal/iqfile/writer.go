package iqfile

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Writer appends complex64 samples to a headerless fc32 capture file.
// It is append-only: samples are written incrementally as they arrive and
// the file is never rewound or truncated mid-session.
type Writer struct {
	f       *os.File
	scratch []byte
	written int64
}

// NewWriter creates (truncating any previous run) the capture file at path.
func NewWriter(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create capture file: %w", err)
	}
	return &Writer{f: f}, nil
}

// WriteChunk appends the given samples to the capture file.
func (w *Writer) WriteChunk(samples []complex64) error {
	need := len(samples) * bytesPerFC32
	if cap(w.scratch) < need {
		w.scratch = make([]byte, need)
	}
	buf := w.scratch[:need]
	for i, s := range samples {
		off := i * bytesPerFC32
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], math.Float32bits(imag(s)))
	}
	n, err := w.f.Write(buf)
	w.written += int64(n)
	if err != nil {
		return fmt.Errorf("failed to append samples: %w", err)
	}
	return nil
}

// SamplesWritten returns the number of complete samples appended so far.
func (w *Writer) SamplesWritten() int64 {
	return w.written / bytesPerFC32
}

// Close flushes and closes the capture file.
func (w *Writer) Close() error {
	return w.f.Close()
}
