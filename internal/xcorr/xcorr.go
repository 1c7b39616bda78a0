// Package xcorr estimates the alignment and fidelity of a captured signal
// against the transmitted reference using FFT-based cross-correlation.
package xcorr

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

const (
	energyEps = 1e-12 // floor for segment energy and noise power
	denomEps  = 1e-24 // floor for the normalization denominator
	logFloor  = 1e-12 // smallest argument passed to log10
)

// Result holds the outcome of one correlation analysis. It is immutable
// once produced.
type Result struct {
	PeakIndex  int     // index of the correlation peak
	LagSamples int     // capture delay relative to the reference, in samples
	PeakValue  float64 // raw correlation peak magnitude
	NormPeak   float64 // peak normalized by signal energies (~1 for a clean match)
	SNRdB      float64 // SNR estimated from the lag-aligned residual
	RefEnergy  float64 // energy of the truncated reference
	RefUsed    int     // reference samples actually correlated
	CapUsed    int     // captured samples actually searched
}

// Analyze cross-correlates reference against captured and locates the best
// alignment. Both inputs are truncated to at most refCap and searchCap
// samples to bound compute cost. Degenerate inputs (either truncated buffer
// empty) yield a zero Result rather than an error.
func Analyze(reference, captured []complex64, refCap, searchCap int) Result {
	ref := truncate(reference, refCap)
	capt := truncate(captured, searchCap)
	if len(ref) == 0 || len(capt) == 0 {
		return Result{}
	}

	corr := crossCorrelate(ref, capt)

	peakIdx := 0
	peakVal := 0.0
	for i, v := range corr {
		if mag := cmplx.Abs(v); mag > peakVal {
			peakVal = mag
			peakIdx = i
		}
	}
	// corr index i corresponds to lag i-(len(ref)-1); positive lag means the
	// capture arrived after the reference.
	lag := peakIdx - (len(ref) - 1)

	refEnergy := energy(ref)

	// Captured window aligned at the estimated lag, clipped to the capture.
	start := lag
	if start < 0 {
		start = 0
	}
	end := start + len(ref)
	if end > len(capt) {
		end = len(capt)
	}
	segment := capt[start:end]
	segEnergy := energy(segment)

	normPeak := peakVal / (math.Sqrt(refEnergy*(segEnergy+energyEps)) + denomEps)

	// Residual against the length-matched reference window. The reference is
	// first fitted with a least-squares complex amplitude so that channel
	// attenuation and phase rotation do not count as noise.
	signalPower := segEnergy / math.Max(1, float64(len(segment)))
	var dot complex128
	refMatchedEnergy := 0.0
	for i, s := range segment {
		r := complex128(ref[i])
		dot += complex128(s) * cmplx.Conj(r)
		refMatchedEnergy += real(r)*real(r) + imag(r)*imag(r)
	}
	alpha := dot / complex(refMatchedEnergy+energyEps, 0)
	noisePower := 0.0
	for i, s := range segment {
		d := complex128(s) - alpha*complex128(ref[i])
		noisePower += real(d)*real(d) + imag(d)*imag(d)
	}
	noisePower /= math.Max(1, float64(len(segment)))
	snr := 10 * math.Log10(math.Max(logFloor, signalPower/(noisePower+energyEps)))

	return Result{
		PeakIndex:  peakIdx,
		LagSamples: lag,
		PeakValue:  peakVal,
		NormPeak:   normPeak,
		SNRdB:      snr,
		RefEnergy:  refEnergy,
		RefUsed:    len(ref),
		CapUsed:    len(capt),
	}
}

// crossCorrelate returns the full linear cross-correlation of the capture
// against ref, length len(ref)+len(capt)-1, computed by transform-domain conjugate
// multiplication. Index i corresponds to lag i-(len(ref)-1).
func crossCorrelate(ref, capt []complex64) []complex128 {
	na := len(ref)
	nb := len(capt)
	full := na + nb - 1
	n := nextPow2(full)

	a := make([]complex128, n)
	for i, v := range ref {
		a[i] = complex128(v)
	}
	b := make([]complex128, n)
	for i, v := range capt {
		b[i] = complex128(v)
	}

	fft := fourier.NewCmplxFFT(n)
	A := fft.Coefficients(nil, a)
	B := fft.Coefficients(nil, b)
	for i := range B {
		B[i] *= cmplx.Conj(A[i])
	}
	c := fft.Sequence(nil, B)
	// gonum's inverse is unnormalized.
	scale := complex(1/float64(n), 0)
	for i := range c {
		c[i] *= scale
	}

	// The circular result places negative lags at the tail; rotate so that
	// index i maps to lag i-(na-1).
	corr := make([]complex128, full)
	for i := 0; i < full; i++ {
		lag := i - (na - 1)
		corr[i] = c[((lag % n) + n) % n]
	}
	return corr
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func truncate(s []complex64, max int) []complex64 {
	if max > 0 && len(s) > max {
		return s[:max]
	}
	return s
}

func energy(s []complex64) float64 {
	e := 0.0
	for _, v := range s {
		e += float64(real(v))*float64(real(v)) + float64(imag(v))*float64(imag(v))
	}
	return e
}

// RMS returns the root-mean-square magnitude of the samples, the per-chunk
// health metric logged by the receive loop.
func RMS(s []complex64) float64 {
	if len(s) == 0 {
		return 0
	}
	return math.Sqrt(energy(s) / float64(len(s)))
}
