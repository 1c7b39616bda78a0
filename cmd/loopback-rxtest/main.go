// Loopback RX Test - receive-only smoke test
// Opens a device, tunes one RX channel and prints per-chunk sample counts
// and RMS levels for a bounded duration. Useful for checking antenna
// selection and gain settings before running the full loopback harness.
package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"sdr-loopback/internal/radio"
	"sdr-loopback/internal/version"
	"sdr-loopback/internal/xcorr"

	"github.com/spf13/cobra"
)

var (
	address     string
	channel     int
	sampleRate  float64
	frequency   float64
	rxGain      float64
	rxAntenna   string
	chunkSize   int
	duration    string
	showVersion bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "loopback-rxtest",
	Short: "Receive-only smoke test for a loopback device",
	Long: `Loopback RX Test opens a device, configures one RX channel and streams
samples for a bounded duration, printing the count and RMS level of each
received chunk.`,
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Loopback RX Test"))
			return
		}
		if err := runRxTest(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVarP(&address, "address", "a", "sim:", "device address (scheme:options)")
	rootCmd.Flags().IntVar(&channel, "channel", 0, "RX channel index")
	rootCmd.Flags().Float64VarP(&sampleRate, "rate", "r", 2.5e6, "sample rate (Hz)")
	rootCmd.Flags().Float64VarP(&frequency, "freq", "f", 1.57542e9, "center frequency (Hz)")
	rootCmd.Flags().Float64VarP(&rxGain, "gain", "g", 30.0, "RX gain (dB)")
	rootCmd.Flags().StringVar(&rxAntenna, "antenna", "", "RX antenna name (empty keeps the device default)")
	rootCmd.Flags().IntVar(&chunkSize, "chunk-size", 8192, "samples per Recv call")
	rootCmd.Flags().StringVarP(&duration, "duration", "d", "5s", "how long to receive")
}

func runRxTest() error {
	runFor, err := time.ParseDuration(duration)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", duration, err)
	}
	if chunkSize <= 0 {
		return fmt.Errorf("chunk-size must be positive, got %d", chunkSize)
	}

	dev, err := radio.Open(address)
	if err != nil {
		return fmt.Errorf("failed to open device: %w", err)
	}
	defer dev.Close()

	if err := dev.SetRxRate(sampleRate); err != nil {
		return fmt.Errorf("failed to set RX rate: %w", err)
	}
	if err := dev.SetRxFreq(frequency, channel); err != nil {
		return fmt.Errorf("failed to set RX frequency: %w", err)
	}
	if err := dev.SetRxGain(rxGain, channel); err != nil {
		return fmt.Errorf("failed to set RX gain: %w", err)
	}

	fmt.Printf("RX antennas on channel %d: %s\n", channel, strings.Join(dev.RxAntennas(channel), ", "))
	if rxAntenna != "" {
		if err := dev.SetRxAntenna(rxAntenna, channel); err != nil {
			return fmt.Errorf("failed to select antenna %q: %w", rxAntenna, err)
		}
		fmt.Printf("Selected RX antenna: %s\n", rxAntenna)
	}

	stream, err := dev.GetRxStream(channel)
	if err != nil {
		return fmt.Errorf("failed to open RX stream: %w", err)
	}

	fmt.Printf("Receiving for %v at %.3f MHz, rate %.3f Msps...\n",
		runFor, frequency/1e6, sampleRate/1e6)

	buf := make([]complex64, chunkSize)
	deadline := time.Now().Add(runFor)
	chunks, total := 0, int64(0)
	for time.Now().Before(deadline) {
		n, md, err := stream.Recv(buf, time.Second)
		if err != nil {
			fmt.Printf("[RX] recv error: %v\n", err)
			continue
		}
		if md.ErrorCode != radio.RxErrorNone {
			fmt.Printf("[RX] metadata error: %s\n", md.ErrorCode)
			continue
		}
		if n == 0 {
			continue
		}
		chunks++
		total += int64(n)
		fmt.Printf("[RX] chunk %d: %d samples, rms=%.6f\n", chunks, n, xcorr.RMS(buf[:n]))
	}

	fmt.Printf("Received %d samples in %d chunks.\n", total, chunks)
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
