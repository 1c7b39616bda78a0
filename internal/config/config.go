// Package config provides configuration structures and defaults for the
// loopback verification harness.
package config

import (
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Device   DeviceConfig   `mapstructure:"device" yaml:"device"`     // Radio device settings
	Transmit TransmitConfig `mapstructure:"transmit" yaml:"transmit"` // Transmit file settings
	Capture  CaptureConfig  `mapstructure:"capture" yaml:"capture"`   // Capture output settings
	Stream   StreamConfig   `mapstructure:"stream" yaml:"stream"`     // Streaming loop settings
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"` // Correlation analysis settings
	Verbose  bool           `mapstructure:"verbose" yaml:"verbose"`   // Enable per-chunk logging
}

// DeviceConfig contains radio device configuration parameters
type DeviceConfig struct {
	Address    string  `mapstructure:"address" yaml:"address"`         // Device address string (scheme selects the driver)
	Channel    int     `mapstructure:"channel" yaml:"channel"`         // Logical channel used for both TX and RX
	SampleRate float64 `mapstructure:"sample_rate" yaml:"sample_rate"` // Sample rate in Hz (shared by TX and RX)
	Frequency  float64 `mapstructure:"frequency" yaml:"frequency"`     // Center frequency in Hz
	TxGain     float64 `mapstructure:"tx_gain" yaml:"tx_gain"`         // TX gain in dB
	RxGain     float64 `mapstructure:"rx_gain" yaml:"rx_gain"`         // RX gain in dB
	TxAntenna  string  `mapstructure:"tx_antenna" yaml:"tx_antenna"`   // TX antenna port name
	RxAntenna  string  `mapstructure:"rx_antenna" yaml:"rx_antenna"`   // RX antenna port name
}

// TransmitConfig contains transmit source configuration parameters
type TransmitConfig struct {
	File   string `mapstructure:"file" yaml:"file"`     // Input IQ file to transmit
	Format string `mapstructure:"format" yaml:"format"` // Input format: "fc32", "sc16" or "sc8"
	Loop   bool   `mapstructure:"loop" yaml:"loop"`     // Loop the file while streaming
}

// CaptureConfig contains capture sink configuration parameters
type CaptureConfig struct {
	Output string `mapstructure:"output" yaml:"output"` // Captured RX output file (headerless fc32)
}

// StreamConfig contains streaming loop configuration parameters
type StreamConfig struct {
	ChunkSize   int           `mapstructure:"chunk_size" yaml:"chunk_size"`     // Samples per send/recv chunk
	Throttle    time.Duration `mapstructure:"throttle" yaml:"throttle"`         // Yield between TX chunks (0 disables)
	RecvTimeout time.Duration `mapstructure:"recv_timeout" yaml:"recv_timeout"` // Per-recv timeout
	StopGrace   time.Duration `mapstructure:"stop_grace" yaml:"stop_grace"`     // Join grace per streamer on stop
	Duration    time.Duration `mapstructure:"duration" yaml:"duration"`         // Run duration (0 = until interrupt)
}

// AnalysisConfig contains correlation analysis configuration parameters
type AnalysisConfig struct {
	RefSamples    int `mapstructure:"ref_samples" yaml:"ref_samples"`       // Cap on transmit reference samples
	SearchSamples int `mapstructure:"search_samples" yaml:"search_samples"` // Cap on captured samples searched
}

// DefaultConfig returns a configuration with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			Address:    "sim:delay=500,atten=20,noise=0.0005", // Simulated loopback by default
			Channel:    0,                                     // First channel
			SampleRate: 2.5e6,                                 // 2.5 MSps
			Frequency:  1.57542e9,                             // GPS L1
			TxGain:     0.0,                                   // Start low when debugging
			RxGain:     10.0,                                  // Start low
			TxAntenna:  "TX/RX",                               // TX port
			RxAntenna:  "RX2",                                 // RX port
		},
		Transmit: TransmitConfig{
			File:   "gpssim.bin", // Input IQ file
			Format: "fc32",       // Native complex float pairs
			Loop:   true,         // Loop while running
		},
		Capture: CaptureConfig{
			Output: "rx_iq.bin", // Captured output (fc32)
		},
		Stream: StreamConfig{
			ChunkSize:   8192,                   // Samples per chunk
			Throttle:    500 * time.Microsecond, // Small yield, tune if underflow occurs
			RecvTimeout: 2 * time.Second,        // Bounded recv wait
			StopGrace:   2 * time.Second,        // Join grace per streamer
			Duration:    0,                      // Run until interrupt
		},
		Analysis: AnalysisConfig{
			RefSamples:    100000,  // TX reference cap
			SearchSamples: 1000000, // RX search cap
		},
		Verbose: false,
	}
}
