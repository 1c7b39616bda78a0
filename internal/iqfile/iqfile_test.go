package iqfile

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

func encodeFC32(samples []complex64) []byte {
	buf := make([]byte, len(samples)*8)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*8:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(buf[i*8+4:], math.Float32bits(imag(s)))
	}
	return buf
}

func TestLoadFC32(t *testing.T) {
	want := []complex64{complex(0.5, -0.25), complex(-1, 0.125), complex(0, 0)}
	path := writeTempFile(t, "tx.bin", encodeFC32(want))

	got, err := Load(path, FormatFC32)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestLoadSC16(t *testing.T) {
	// Two samples: (16384, -16384) and (32767, 0)
	buf := make([]byte, 8)
	for i, v := range []int16{16384, -16384, 32767, 0} {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	path := writeTempFile(t, "tx.bin", buf)

	got, err := Load(path, FormatSC16)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(got))
	}
	if real(got[0]) != 0.5 || imag(got[0]) != -0.5 {
		t.Errorf("sample 0: expected (0.5,-0.5), got %v", got[0])
	}
	if math.Abs(float64(real(got[1]))-32767.0/32768.0) > 1e-9 {
		t.Errorf("sample 1: expected near full scale, got %v", got[1])
	}
}

func TestLoadSC16OddLength(t *testing.T) {
	// Three int16 values: odd count, no quadrature partner for the last.
	path := writeTempFile(t, "odd.bin", make([]byte, 6))

	_, err := Load(path, FormatSC16)
	if !errors.Is(err, ErrOddLength) {
		t.Fatalf("expected ErrOddLength, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.bin"), FormatFC32)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	for _, tag := range []string{"fc32", "sc16", "sc8"} {
		if _, err := ParseFormat(tag); err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tag, err)
		}
	}
	if _, err := ParseFormat("cf64"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestWriterAppendGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rx.bin")
	w, err := NewWriter(path)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}

	chunks := [][]complex64{
		{complex(1, 2), complex(3, 4)},
		{},
		{complex(5, 6)},
	}
	total := 0
	for _, chunk := range chunks {
		if err := w.WriteChunk(chunk); err != nil {
			t.Fatalf("WriteChunk failed: %v", err)
		}
		total += len(chunk)
		if got := w.SamplesWritten(); got != int64(total) {
			t.Errorf("expected %d samples written, got %d", total, got)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != int64(total*8) {
		t.Errorf("expected file size %d, got %d", total*8, info.Size())
	}

	back, err := ReadCapture(path)
	if err != nil {
		t.Fatalf("ReadCapture failed: %v", err)
	}
	if len(back) != total {
		t.Fatalf("expected %d samples back, got %d", total, len(back))
	}
	if back[0] != complex(1, 2) || back[2] != complex(5, 6) {
		t.Errorf("unexpected capture contents: %v", back)
	}
}

func TestInt8StreamWraps(t *testing.T) {
	// Three samples: (1,2) (3,4) (5,6)
	raw := []byte{1, 2, 3, 4, 5, 6}
	path := writeTempFile(t, "tx.sc8", raw)

	s, err := OpenInt8Stream(path)
	if err != nil {
		t.Fatalf("OpenInt8Stream failed: %v", err)
	}
	defer s.Close()

	if s.Samples() != 3 {
		t.Fatalf("expected 3 samples per pass, got %d", s.Samples())
	}

	// Read two full passes plus one sample: the stream must wrap with no
	// gap or duplication.
	out := make([]complex64, 7)
	n, err := s.Next(out)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if n != 7 {
		t.Fatalf("expected 7 samples, got %d", n)
	}
	for i := 0; i < 7; i++ {
		j := i % 3
		want := complex(float32(raw[2*j])/128.0, float32(raw[2*j+1])/128.0)
		if out[i] != want {
			t.Errorf("sample %d: expected %v, got %v", i, want, out[i])
		}
	}
}

func TestInt8StreamDropsTrailingByte(t *testing.T) {
	// Two complete samples plus one dangling byte.
	raw := []byte{1, 2, 3, 4, 5}
	path := writeTempFile(t, "tx.sc8", raw)

	s, err := OpenInt8Stream(path)
	if err != nil {
		t.Fatalf("OpenInt8Stream failed: %v", err)
	}
	defer s.Close()

	out := make([]complex64, 4)
	if _, err := s.Next(out); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	// Second pass must restart at sample 0, not at the dangling byte.
	if out[2] != out[0] || out[3] != out[1] {
		t.Errorf("wrap misaligned: %v", out)
	}
}

func TestLoadInt8Prefix(t *testing.T) {
	raw := []byte{10, 20, 30, 40, 50, 60}
	path := writeTempFile(t, "tx.sc8", raw)

	prefix, err := LoadInt8Prefix(path, 2)
	if err != nil {
		t.Fatalf("LoadInt8Prefix failed: %v", err)
	}
	if len(prefix) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(prefix))
	}
	if prefix[1] != complex(float32(30)/128.0, float32(40)/128.0) {
		t.Errorf("unexpected prefix sample: %v", prefix[1])
	}

	all, err := LoadInt8Prefix(path, 100)
	if err != nil {
		t.Fatalf("LoadInt8Prefix failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected prefix clipped to 3 samples, got %d", len(all))
	}
}
