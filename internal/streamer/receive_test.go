package streamer

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"sdr-loopback/internal/radio"
)

// rxEvent scripts one Recv outcome.
type rxEvent struct {
	samples []complex64
	code    radio.RxErrorCode
	err     error
}

// fakeRxStream replays a scripted sequence of receive outcomes, then times
// out forever.
type fakeRxStream struct {
	events []rxEvent
	next   int
}

func (f *fakeRxStream) Recv(buf []complex64, timeout time.Duration) (int, radio.RXMetadata, error) {
	if f.next >= len(f.events) {
		time.Sleep(time.Millisecond)
		return 0, radio.RXMetadata{ErrorCode: radio.RxErrorTimeout}, nil
	}
	ev := f.events[f.next]
	f.next++
	if ev.err != nil {
		return 0, radio.RXMetadata{}, ev.err
	}
	n := copy(buf, ev.samples)
	return n, radio.RXMetadata{ErrorCode: ev.code}, nil
}

// memSink accumulates chunks in memory.
type memSink struct {
	samples []complex64
	writes  int
	failOn  int // 1-based write index to fail, 0 for never
}

func (m *memSink) WriteChunk(samples []complex64) error {
	m.writes++
	if m.failOn != 0 && m.writes == m.failOn {
		return errors.New("disk full")
	}
	m.samples = append(m.samples, samples...)
	return nil
}

func runRx(t *testing.T, rx *RxStreamer, until func() bool) {
	t.Helper()
	var stop atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		rx.Run(&stop)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !until() {
		if time.Now().After(deadline) {
			stop.Store(true)
			<-done
			t.Fatal("receive loop did not reach expected state")
		}
		time.Sleep(time.Millisecond)
	}
	stop.Store(true)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("receive loop did not stop")
	}
}

func TestRxStreamerAppendsOnlyValidSamples(t *testing.T) {
	stream := &fakeRxStream{events: []rxEvent{
		{samples: rampBuffer(5)},
		{code: radio.RxErrorOverflow},              // non-fatal, contributes nothing
		{samples: rampBuffer(7)},
		{code: radio.RxErrorTimeout},               // idle device, loop continues
		{err: errors.New("transient recv failure")}, // non-fatal as well
		{samples: rampBuffer(2)},
	}}
	sink := &memSink{}
	rx := NewRxStreamer(stream, sink, 16, 10*time.Millisecond, false)

	runRx(t, rx, func() bool { return rx.SamplesStored() == 14 })

	if len(sink.samples) != 14 {
		t.Fatalf("expected 14 samples in sink, got %d", len(sink.samples))
	}
	// First five samples come from the first event.
	want := rampBuffer(5)
	for i := range want {
		if sink.samples[i] != want[i] {
			t.Fatalf("sink sample %d mismatch", i)
		}
	}
}

func TestRxStreamerSinkErrorNonFatal(t *testing.T) {
	stream := &fakeRxStream{events: []rxEvent{
		{samples: rampBuffer(4)},
		{samples: rampBuffer(4)},
	}}
	sink := &memSink{failOn: 1}
	rx := NewRxStreamer(stream, sink, 16, 10*time.Millisecond, false)

	runRx(t, rx, func() bool { return rx.SamplesStored() == 4 })

	if len(sink.samples) != 4 {
		t.Errorf("expected the surviving chunk only, got %d samples", len(sink.samples))
	}
}
