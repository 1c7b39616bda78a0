// Loopback Report - offline correlation of a transmit file against a capture
// This program re-runs the lag/SNR analysis on files recorded earlier,
// without touching any radio hardware.
package main

import (
	"fmt"
	"os"

	"sdr-loopback/internal/iqfile"
	"sdr-loopback/internal/loopback"
	"sdr-loopback/internal/version"
	"sdr-loopback/internal/xcorr"

	"github.com/spf13/cobra"
)

var (
	txFormat    string
	refSamples  int
	srchSamples int
	showVersion bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "loopback-report [tx-file] [rx-capture]",
	Short: "Correlate a transmit file against a captured loopback recording",
	Long: `Loopback Report loads a transmitted IQ file (fc32, sc16 or sc8) and a
capture file (fc32, as written by sdr-loopback) and reports the estimated
lag, normalized correlation peak and SNR between them.`,
	Args: cobra.MaximumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		if showVersion {
			fmt.Println(version.GetVersionInfo("Loopback Report"))
			return
		}
		if len(args) != 2 {
			fmt.Fprintf(os.Stderr, "Error: tx-file and rx-capture required\n")
			cmd.Usage()
			os.Exit(1)
		}
		if err := runReport(args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.Flags().BoolVar(&showVersion, "version", false, "show version information")
	rootCmd.Flags().StringVar(&txFormat, "format", "fc32", "transmit file format (fc32, sc16 or sc8)")
	rootCmd.Flags().IntVar(&refSamples, "ref-samples", 100000, "TX samples used as the correlation reference")
	rootCmd.Flags().IntVar(&srchSamples, "search-samples", 1000000, "RX samples searched for the correlation peak")
}

func runReport(txPath, rxPath string) error {
	format, err := iqfile.ParseFormat(txFormat)
	if err != nil {
		return err
	}

	var reference []complex64
	if format == iqfile.FormatSC8 {
		reference, err = iqfile.LoadInt8Prefix(txPath, refSamples)
	} else {
		reference, err = iqfile.Load(txPath, format)
	}
	if err != nil {
		return fmt.Errorf("failed to load TX file: %w", err)
	}

	captured, err := iqfile.ReadCapture(rxPath)
	if err != nil {
		return fmt.Errorf("failed to load capture: %w", err)
	}

	fmt.Printf("Reference: %d samples (%s), capture: %d samples\n", len(reference), format, len(captured))
	if len(captured) == 0 {
		loopback.PrintReport(os.Stdout, xcorr.Result{}, 0)
		return nil
	}

	res := xcorr.Analyze(reference, captured, refSamples, srchSamples)
	loopback.PrintReport(os.Stdout, res, len(captured))
	return nil
}

// main is the entry point of the application
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
