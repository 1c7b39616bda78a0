// Package loopback wires the radio device, the transmit and receive
// streamers and the correlation analyzer into one verification session.
package loopback

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"sdr-loopback/internal/config"
	"sdr-loopback/internal/iqfile"
	"sdr-loopback/internal/radio"
	"sdr-loopback/internal/streamer"
	"sdr-loopback/internal/xcorr"
)

// Session owns one full transmit/capture/verify cycle.
type Session struct {
	config *config.Config

	device radio.Device
	writer *iqfile.Writer
	coord  *streamer.Coordinator
	tx     *streamer.TxStreamer
	rx     *streamer.RxStreamer

	reference  []complex64      // loaded TX buffer (fc32/sc16)
	int8Stream *iqfile.Int8Stream

	writerClosed bool
}

// NewSession builds an unstarted session from the configuration.
func NewSession(cfg *config.Config) *Session {
	return &Session{config: cfg}
}

// Initialize loads the transmit source, opens and configures the device,
// obtains both stream handles and opens the capture sink. Every failure
// here is fatal to the run; antenna rejection alone is downgraded to a
// warning and streaming proceeds on the device's current port.
func (s *Session) Initialize() error {
	format, err := iqfile.ParseFormat(s.config.Transmit.Format)
	if err != nil {
		return err
	}

	var source streamer.Source
	switch format {
	case iqfile.FormatSC8:
		// sc8 files stream circularly straight from disk.
		s.int8Stream, err = iqfile.OpenInt8Stream(s.config.Transmit.File)
		if err != nil {
			return fmt.Errorf("failed to open TX file: %w", err)
		}
		fmt.Printf("Streaming TX file %s (sc8, %d samples per pass)\n",
			s.config.Transmit.File, s.int8Stream.Samples())
		source = &int8Source{stream: s.int8Stream}
	default:
		s.reference, err = iqfile.Load(s.config.Transmit.File, format)
		if err != nil {
			return fmt.Errorf("failed to load TX file: %w", err)
		}
		fmt.Printf("Loaded TX file %s (%s, %d samples)\n",
			s.config.Transmit.File, format, len(s.reference))
		source = streamer.NewBufferSource(s.reference, s.config.Transmit.Loop)
	}

	s.device, err = radio.Open(s.config.Device.Address)
	if err != nil {
		return fmt.Errorf("failed to open device %s: %w", s.config.Device.Address, err)
	}

	if err := s.configureDevice(); err != nil {
		return err
	}

	chan0 := s.config.Device.Channel
	txStream, err := s.device.GetTxStream(chan0)
	if err != nil {
		return fmt.Errorf("failed to get TX stream: %w", err)
	}
	rxStream, err := s.device.GetRxStream(chan0)
	if err != nil {
		return fmt.Errorf("failed to get RX stream: %w", err)
	}

	if dir := filepath.Dir(s.config.Capture.Output); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	s.writer, err = iqfile.NewWriter(s.config.Capture.Output)
	if err != nil {
		return err
	}

	s.tx = streamer.NewTxStreamer(source, txStream, s.config.Stream.ChunkSize, s.config.Stream.Throttle)
	s.rx = streamer.NewRxStreamer(rxStream, s.writer, s.config.Stream.ChunkSize,
		s.config.Stream.RecvTimeout, s.config.Verbose)
	s.coord = streamer.NewCoordinator(s.tx, s.rx, s.config.Stream.StopGrace)

	return nil
}

func (s *Session) configureDevice() error {
	cfg := s.config.Device

	if err := s.device.SetTxRate(cfg.SampleRate); err != nil {
		return fmt.Errorf("failed to set TX rate: %w", err)
	}
	if err := s.device.SetRxRate(cfg.SampleRate); err != nil {
		return fmt.Errorf("failed to set RX rate: %w", err)
	}
	if err := s.device.SetTxFreq(cfg.Frequency, cfg.Channel); err != nil {
		return fmt.Errorf("failed to set TX frequency: %w", err)
	}
	if err := s.device.SetRxFreq(cfg.Frequency, cfg.Channel); err != nil {
		return fmt.Errorf("failed to set RX frequency: %w", err)
	}
	if err := s.device.SetTxGain(cfg.TxGain, cfg.Channel); err != nil {
		return fmt.Errorf("failed to set TX gain: %w", err)
	}
	if err := s.device.SetRxGain(cfg.RxGain, cfg.Channel); err != nil {
		return fmt.Errorf("failed to set RX gain: %w", err)
	}

	fmt.Printf("TX antennas (chan %d): %v\n", cfg.Channel, s.device.TxAntennas(cfg.Channel))
	fmt.Printf("RX antennas (chan %d): %v\n", cfg.Channel, s.device.RxAntennas(cfg.Channel))

	// Antenna rejection is a warning, not an error: the device keeps its
	// current port and the run proceeds.
	if err := s.device.SetTxAntenna(cfg.TxAntenna, cfg.Channel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not set TX antenna: %v\n", err)
	}
	if err := s.device.SetRxAntenna(cfg.RxAntenna, cfg.Channel); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not set RX antenna: %v\n", err)
	}

	return nil
}

// Run streams until ctx is cancelled or the configured duration elapses,
// then stops both loops and closes the capture sink.
func (s *Session) Run(ctx context.Context) error {
	fmt.Printf("Starting TX & RX streams (chunk %d samples, capture -> %s)\n",
		s.config.Stream.ChunkSize, s.config.Capture.Output)
	s.coord.Start()

	if d := s.config.Stream.Duration; d > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(d):
		}
	} else {
		<-ctx.Done()
	}

	fmt.Printf("Stopping streams...\n")
	s.coord.RequestStop()

	s.writerClosed = true
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("failed to close capture file: %w", err)
	}
	fmt.Printf("Captured %d samples to %s\n", s.rx.SamplesStored(), s.config.Capture.Output)
	return nil
}

// Analyze correlates the transmitted reference against the capture file
// and returns the result along with the number of captured samples.
func (s *Session) Analyze() (xcorr.Result, int, error) {
	reference := s.reference
	if reference == nil {
		// sc8 source: read back just the reference prefix.
		var err error
		reference, err = iqfile.LoadInt8Prefix(s.config.Transmit.File, s.config.Analysis.RefSamples)
		if err != nil {
			return xcorr.Result{}, 0, err
		}
	}

	captured, err := iqfile.ReadCapture(s.config.Capture.Output)
	if err != nil {
		return xcorr.Result{}, 0, err
	}
	if len(captured) == 0 {
		return xcorr.Result{}, 0, nil
	}

	fmt.Printf("Computing cross-correlation (%d reference vs %d captured samples, caps %d/%d)...\n",
		len(reference), len(captured), s.config.Analysis.RefSamples, s.config.Analysis.SearchSamples)
	res := xcorr.Analyze(reference, captured, s.config.Analysis.RefSamples, s.config.Analysis.SearchSamples)
	return res, len(captured), nil
}

// Close releases the device and any open files.
func (s *Session) Close() error {
	var errs []error

	if s.writer != nil && !s.writerClosed {
		if err := s.writer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("capture file close error: %w", err))
		}
	}
	if s.int8Stream != nil {
		if err := s.int8Stream.Close(); err != nil {
			errs = append(errs, fmt.Errorf("TX stream file close error: %w", err))
		}
	}
	if s.device != nil {
		if err := s.device.Close(); err != nil {
			errs = append(errs, fmt.Errorf("device close error: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// int8Source adapts the circular sc8 file stream to the transmit source
// interface. It always loops; the loop flag does not apply.
type int8Source struct {
	stream *iqfile.Int8Stream
	buf    []complex64
}

func (s *int8Source) Next(max int) ([]complex64, bool) {
	if cap(s.buf) < max {
		s.buf = make([]complex64, max)
	}
	n, err := s.stream.Next(s.buf[:max])
	if err != nil {
		fmt.Printf("[TX] sc8 source error: %v\n", err)
		return nil, false
	}
	return s.buf[:n], true
}
