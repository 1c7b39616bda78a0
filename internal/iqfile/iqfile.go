// Package iqfile reads and writes raw headerless IQ sample files.
// Three input layouts are supported: native complex64 pairs ("fc32"),
// interleaved little-endian int16 pairs ("sc16"), and interleaved int8
// pairs ("sc8"). Captures are always written as fc32.
package iqfile

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
)

// Format identifies the on-disk sample layout of an input file.
type Format string

const (
	FormatFC32 Format = "fc32" // native complex pairs of 32-bit floats
	FormatSC16 Format = "sc16" // interleaved little-endian signed 16-bit pairs
	FormatSC8  Format = "sc8"  // interleaved signed 8-bit pairs
)

const (
	sc16Scale = 1.0 / 32768.0 // maps int16 full scale into [-1, 1)
	sc8Scale  = 1.0 / 128.0   // maps int8 full scale into [-1, 1)

	bytesPerFC32 = 8 // two float32 components per sample
	bytesPerSC16 = 4 // two int16 components per sample
)

var (
	// ErrOddLength reports an sc16 file whose int16 count is odd, so the
	// trailing value has no quadrature partner.
	ErrOddLength = errors.New("sc16 file length not even")

	// ErrUnknownFormat reports an unsupported format tag.
	ErrUnknownFormat = errors.New("unsupported file format")
)

// ParseFormat validates a format tag from configuration.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatFC32, FormatSC16, FormatSC8:
		return Format(s), nil
	default:
		return "", fmt.Errorf("%w: %q (use fc32, sc16 or sc8)", ErrUnknownFormat, s)
	}
}

// Load reads an entire IQ file into memory as complex64 samples.
// Only fc32 and sc16 are loaded wholesale; sc8 files are consumed
// incrementally via Int8Stream instead.
func Load(path string, format Format) ([]complex64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read IQ file: %w", err)
	}

	switch format {
	case FormatFC32:
		return decodeFC32(raw), nil
	case FormatSC16:
		return decodeSC16(raw)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func decodeFC32(raw []byte) []complex64 {
	n := len(raw) / bytesPerFC32
	samples := make([]complex64, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerFC32
		re := math.Float32frombits(binary.LittleEndian.Uint32(raw[off : off+4]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(raw[off+4 : off+8]))
		samples[i] = complex(re, im)
	}
	return samples
}

func decodeSC16(raw []byte) ([]complex64, error) {
	if (len(raw)/2)%2 != 0 {
		return nil, ErrOddLength
	}
	n := len(raw) / bytesPerSC16
	samples := make([]complex64, n)
	for i := 0; i < n; i++ {
		off := i * bytesPerSC16
		iv := int16(binary.LittleEndian.Uint16(raw[off : off+2]))
		qv := int16(binary.LittleEndian.Uint16(raw[off+2 : off+4]))
		samples[i] = complex(float32(iv)*sc16Scale, float32(qv)*sc16Scale)
	}
	return samples, nil
}

// ReadCapture loads a capture file written by Writer (headerless fc32).
// Length is implicit from file size; a trailing partial sample is ignored.
func ReadCapture(path string) ([]complex64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture file: %w", err)
	}
	return decodeFC32(raw), nil
}
