// SDR Loopback - hardware-in-the-loop TX/RX verification harness
// This program transmits a recorded IQ file while capturing the receive
// side of a cabled loopback, then cross-correlates the two to estimate
// lag and signal fidelity.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sdr-loopback/internal/config"
	"sdr-loopback/internal/loopback"
	"sdr-loopback/internal/version"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Command line flag variables
var (
	cfgFile     string  // Configuration file path
	address     string  // Device address string
	channel     int     // Logical channel for TX and RX
	sampleRate  float64 // Sample rate in Hz
	frequency   float64 // Center frequency in Hz
	txGain      float64 // TX gain in dB
	rxGain      float64 // RX gain in dB
	txAntenna   string  // TX antenna port
	rxAntenna   string  // RX antenna port
	txFile      string  // IQ file to transmit
	txFormat    string  // TX file format
	loopFile    bool    // Loop the TX file
	output      string  // Capture output file
	chunkSize   int     // Samples per send/recv chunk
	duration    string  // Run duration ("0" = until interrupt)
	refSamples  int     // Correlation reference cap
	srchSamples int     // Correlation search cap
	verbose     bool    // Enable per-chunk logging
	showVersion bool    // Show version information
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sdr-loopback",
	Short: "SDR TX/RX loopback verification harness",
	Long: `sdr-loopback transmits a recorded IQ file on one channel of an SDR
transceiver while capturing the receive side of a cabled loopback
(attenuator required, never radiate). When streaming stops it estimates
the TX-to-RX lag, normalized correlation peak and SNR from the capture.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("SDR Loopback"))
			return
		}
		if err := runLoopback(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// init initializes the CLI flags and configuration
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "./config.yaml", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&address, "address", "a", "sim:delay=500,atten=20,noise=0.0005", "device address (scheme selects the driver)")
	rootCmd.Flags().IntVar(&channel, "channel", 0, "logical channel for TX and RX")
	rootCmd.Flags().Float64VarP(&sampleRate, "rate", "r", 2.5e6, "sample rate (Hz)")
	rootCmd.Flags().Float64VarP(&frequency, "frequency", "f", 1.57542e9, "center frequency (Hz)")
	rootCmd.Flags().Float64Var(&txGain, "tx-gain", 0.0, "TX gain (dB)")
	rootCmd.Flags().Float64Var(&rxGain, "rx-gain", 10.0, "RX gain (dB)")
	rootCmd.Flags().StringVar(&txAntenna, "tx-antenna", "TX/RX", "TX antenna port")
	rootCmd.Flags().StringVar(&rxAntenna, "rx-antenna", "RX2", "RX antenna port")
	rootCmd.Flags().StringVarP(&txFile, "tx-file", "t", "gpssim.bin", "IQ file to transmit")
	rootCmd.Flags().StringVar(&txFormat, "format", "fc32", "TX file format (fc32, sc16 or sc8)")
	rootCmd.Flags().BoolVar(&loopFile, "loop", true, "loop the TX file while running")
	rootCmd.Flags().StringVarP(&output, "output", "o", "rx_iq.bin", "capture output file (fc32)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk", 8192, "samples per send/recv chunk")
	rootCmd.Flags().StringVarP(&duration, "duration", "d", "0", "run duration (0 = until interrupt)")
	rootCmd.Flags().IntVar(&refSamples, "ref-samples", 100000, "TX samples used as the correlation reference")
	rootCmd.Flags().IntVar(&srchSamples, "search-samples", 1000000, "RX samples searched for the correlation peak")

	// Bind command line flags to viper configuration keys
	viper.BindPFlag("device.address", rootCmd.Flags().Lookup("address"))
	viper.BindPFlag("device.channel", rootCmd.Flags().Lookup("channel"))
	viper.BindPFlag("device.sample_rate", rootCmd.Flags().Lookup("rate"))
	viper.BindPFlag("device.frequency", rootCmd.Flags().Lookup("frequency"))
	viper.BindPFlag("device.tx_gain", rootCmd.Flags().Lookup("tx-gain"))
	viper.BindPFlag("device.rx_gain", rootCmd.Flags().Lookup("rx-gain"))
	viper.BindPFlag("device.tx_antenna", rootCmd.Flags().Lookup("tx-antenna"))
	viper.BindPFlag("device.rx_antenna", rootCmd.Flags().Lookup("rx-antenna"))
	viper.BindPFlag("transmit.file", rootCmd.Flags().Lookup("tx-file"))
	viper.BindPFlag("transmit.format", rootCmd.Flags().Lookup("format"))
	viper.BindPFlag("transmit.loop", rootCmd.Flags().Lookup("loop"))
	viper.BindPFlag("capture.output", rootCmd.Flags().Lookup("output"))
	viper.BindPFlag("stream.chunk_size", rootCmd.Flags().Lookup("chunk"))
	viper.BindPFlag("analysis.ref_samples", rootCmd.Flags().Lookup("ref-samples"))
	viper.BindPFlag("analysis.search_samples", rootCmd.Flags().Lookup("search-samples"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// runLoopback is the main application logic
func runLoopback() error {
	cfg := config.DefaultConfig()

	// Override with values from config file and command line flags
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Parse duration string into time.Duration ("0" runs until interrupt)
	if duration != "" && duration != "0" {
		d, err := time.ParseDuration(duration)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		cfg.Stream.Duration = d
	}

	if cfg.Stream.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunk size: %d", cfg.Stream.ChunkSize)
	}
	if cfg.Analysis.RefSamples <= 0 || cfg.Analysis.SearchSamples <= 0 {
		return fmt.Errorf("analysis caps must be positive (ref=%d, search=%d)",
			cfg.Analysis.RefSamples, cfg.Analysis.SearchSamples)
	}

	// Display startup information
	fmt.Printf("SDR Loopback starting...\n")
	fmt.Printf("Device: %s (chan %d)\n", cfg.Device.Address, cfg.Device.Channel)
	fmt.Printf("Rate: %.0f Sps, Frequency: %.4f MHz\n", cfg.Device.SampleRate, cfg.Device.Frequency/1e6)
	fmt.Printf("TX file: %s (%s, loop=%v)\n", cfg.Transmit.File, cfg.Transmit.Format, cfg.Transmit.Loop)
	fmt.Printf("Capture: %s\n", cfg.Capture.Output)
	fmt.Printf("Ensure TX -> attenuator -> RX cabling before driving real hardware.\n")

	session := loopback.NewSession(cfg)
	if err := session.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize session: %w", err)
	}
	defer session.Close()

	// An interrupt is the normal termination path: stop, drain, analyze.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Printf("\nReceived interrupt signal, stopping streams...\n")
		cancel()
	}()

	if err := session.Run(ctx); err != nil {
		return fmt.Errorf("streaming failed: %w", err)
	}

	result, captured, err := session.Analyze()
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}
	loopback.PrintReport(os.Stdout, result, captured)

	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
