package iqfile

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// Int8Stream reads an interleaved signed 8-bit IQ file as a continuous,
// repeating sample stream. The file is not loaded wholesale; the reader
// wraps to the start whenever it reaches end-of-file, so the stream never
// runs dry. Samples are scaled by 1/128 into the same numeric range as
// fc32 data.
type Int8Stream struct {
	f       *os.File
	r       *bufio.Reader
	samples int64
}

// OpenInt8Stream opens path as a circular int8 IQ stream.
// A file holding fewer than one complete sample is rejected.
func OpenInt8Stream(path string) (*Int8Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sc8 file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat sc8 file: %w", err)
	}
	if info.Size() < 2 {
		f.Close()
		return nil, fmt.Errorf("sc8 file %s holds no complete sample", path)
	}
	return &Int8Stream{
		f:       f,
		r:       bufio.NewReader(f),
		samples: info.Size() / 2,
	}, nil
}

// Samples returns the number of complete samples in one pass of the file.
func (s *Int8Stream) Samples() int64 {
	return s.samples
}

// Next fills out with up to len(out) samples, wrapping at end-of-file.
// It returns the number of samples produced; short counts only occur on
// read errors.
func (s *Int8Stream) Next(out []complex64) (int, error) {
	for i := range out {
		iv, qv, err := s.readPair()
		if err != nil {
			return i, err
		}
		out[i] = complex(float32(iv)*sc8Scale, float32(qv)*sc8Scale)
	}
	return len(out), nil
}

func (s *Int8Stream) readPair() (int8, int8, error) {
	var pair [2]byte
	if _, err := io.ReadFull(s.r, pair[:]); err != nil {
		if err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, 0, fmt.Errorf("sc8 read failed: %w", err)
		}
		// Wrap to the start of the file. An odd trailing byte is dropped.
		if _, err := s.f.Seek(0, io.SeekStart); err != nil {
			return 0, 0, fmt.Errorf("sc8 rewind failed: %w", err)
		}
		s.r.Reset(s.f)
		if _, err := io.ReadFull(s.r, pair[:]); err != nil {
			return 0, 0, fmt.Errorf("sc8 read failed after rewind: %w", err)
		}
	}
	return int8(pair[0]), int8(pair[1]), nil
}

// Close closes the underlying file.
func (s *Int8Stream) Close() error {
	return s.f.Close()
}

// LoadInt8Prefix reads at most n samples from the start of an sc8 file,
// without consuming it as a stream. The correlation analyzer uses this to
// obtain a reference segment for files transmitted via Int8Stream.
func LoadInt8Prefix(path string, n int) ([]complex64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read sc8 file: %w", err)
	}
	count := len(raw) / 2
	if n < count {
		count = n
	}
	samples := make([]complex64, count)
	for i := 0; i < count; i++ {
		samples[i] = complex(float32(int8(raw[2*i]))*sc8Scale, float32(int8(raw[2*i+1]))*sc8Scale)
	}
	return samples, nil
}
