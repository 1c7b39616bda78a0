package radio

import (
	"math"
	"strings"
	"testing"
	"time"
)

func recvAll(t *testing.T, rx RxStream, want int) []complex64 {
	t.Helper()
	out := make([]complex64, 0, want)
	buf := make([]complex64, 256)
	for len(out) < want {
		n, md, err := rx.Recv(buf, 100*time.Millisecond)
		if err != nil {
			t.Fatalf("Recv failed: %v", err)
		}
		if md.ErrorCode == RxErrorTimeout {
			t.Fatalf("timed out after %d of %d samples", len(out), want)
		}
		out = append(out, buf[:n]...)
	}
	return out
}

func TestOpenUnknownScheme(t *testing.T) {
	_, err := Open("addr=192.168.10.2")
	if err == nil {
		t.Fatal("expected error for unregistered scheme")
	}
	if !strings.Contains(err.Error(), "sim") {
		t.Errorf("error should list registered schemes, got: %v", err)
	}
}

func TestSimLoopbackDelayAndAttenuation(t *testing.T) {
	// 20 dB attenuation is a factor of 10 in amplitude.
	dev, err := Open("sim:delay=100,atten=20,noise=0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	tx, err := dev.GetTxStream(0)
	if err != nil {
		t.Fatalf("GetTxStream failed: %v", err)
	}
	rx, err := dev.GetRxStream(0)
	if err != nil {
		t.Fatalf("GetRxStream failed: %v", err)
	}

	chunk := make([]complex64, 50)
	for i := range chunk {
		chunk[i] = complex(1, -1)
	}
	if n, err := tx.Send(chunk, TXMetadata{StartOfBurst: true}); err != nil || n != 50 {
		t.Fatalf("Send returned (%d, %v)", n, err)
	}

	got := recvAll(t, rx, 150)
	for i := 0; i < 100; i++ {
		if got[i] != 0 {
			t.Fatalf("expected zero delay sample at %d, got %v", i, got[i])
		}
	}
	want := 1.0 / 10.0
	if math.Abs(float64(real(got[100]))-want) > 1e-6 {
		t.Errorf("expected attenuated sample %f, got %v", want, got[100])
	}
}

func TestSimZeroLengthFlush(t *testing.T) {
	dev, err := Open("sim:noise=0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	tx, _ := dev.GetTxStream(0)
	n, err := tx.Send(nil, TXMetadata{EndOfBurst: true})
	if err != nil || n != 0 {
		t.Errorf("flush returned (%d, %v), expected (0, nil)", n, err)
	}
}

func TestSimOverflowReportedOnce(t *testing.T) {
	dev, err := Open("sim:noise=0,cap=1")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	tx, _ := dev.GetTxStream(0)
	rx, _ := dev.GetRxStream(0)

	// Second chunk overflows the single-slot link.
	tx.Send([]complex64{1}, TXMetadata{StartOfBurst: true})
	tx.Send([]complex64{2}, TXMetadata{})

	buf := make([]complex64, 4)
	n, md, err := rx.Recv(buf, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if md.ErrorCode != RxErrorOverflow || n != 0 {
		t.Fatalf("expected overflow with no samples, got code=%v n=%d", md.ErrorCode, n)
	}

	// Delivery resumes with the surviving chunk.
	n, md, err = rx.Recv(buf, 100*time.Millisecond)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if md.ErrorCode != RxErrorNone || n != 1 {
		t.Fatalf("expected one surviving sample, got code=%v n=%d", md.ErrorCode, n)
	}
}

func TestSimRecvTimeout(t *testing.T) {
	dev, err := Open("sim:noise=0")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	rx, _ := dev.GetRxStream(0)
	buf := make([]complex64, 4)
	n, md, err := rx.Recv(buf, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Recv failed: %v", err)
	}
	if md.ErrorCode != RxErrorTimeout || n != 0 {
		t.Errorf("expected timeout with no samples, got code=%v n=%d", md.ErrorCode, n)
	}
}

func TestSimAntennaSelection(t *testing.T) {
	dev, err := Open("sim")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer dev.Close()

	if err := dev.SetRxAntenna("RX2", 0); err != nil {
		t.Errorf("SetRxAntenna(RX2) failed: %v", err)
	}
	if err := dev.SetRxAntenna("J1", 0); err == nil {
		t.Error("expected error for unknown antenna name")
	}
	if err := dev.SetTxAntenna("TX/RX", 1); err != nil {
		t.Errorf("SetTxAntenna on channel 1 failed: %v", err)
	}
	if err := dev.SetTxAntenna("TX/RX", 2); err == nil {
		t.Error("expected error for out-of-range channel")
	}

	antennas := dev.RxAntennas(0)
	if len(antennas) != 3 {
		t.Errorf("expected 3 RX antennas, got %v", antennas)
	}
}

func TestSimBadOptions(t *testing.T) {
	for _, addr := range []string{"sim:delay=x", "sim:bogus=1", "sim:delay"} {
		if _, err := Open(addr); err == nil {
			t.Errorf("expected error opening %q", addr)
		}
	}
}
