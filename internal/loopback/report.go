package loopback

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"sdr-loopback/internal/xcorr"
)

// PrintReport renders the correlation summary. A run that captured nothing
// reports that instead of a table of zeros.
func PrintReport(w io.Writer, res xcorr.Result, captured int) {
	if captured == 0 {
		fmt.Fprintln(w, "RX capture empty - no signal captured.")
		return
	}

	fmt.Fprintln(w, "=== CORRELATION SUMMARY ===")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Peak index", strconv.Itoa(res.PeakIndex)})
	table.Append([]string{"Lag (samples, RX behind TX)", strconv.Itoa(res.LagSamples)})
	table.Append([]string{"Peak magnitude", fmt.Sprintf("%.6g", res.PeakValue)})
	table.Append([]string{"Normalized peak (1 = strong match)", fmt.Sprintf("%.6f", res.NormPeak)})
	table.Append([]string{"Estimated SNR (dB)", fmt.Sprintf("%.2f", res.SNRdB)})
	table.Append([]string{"Reference energy", fmt.Sprintf("%.6g", res.RefEnergy)})
	table.Append([]string{"Reference samples used", strconv.Itoa(res.RefUsed)})
	table.Append([]string{"Captured samples searched", strconv.Itoa(res.CapUsed)})
	table.Append([]string{"Captured samples total", strconv.Itoa(captured)})
	table.Render()
}
