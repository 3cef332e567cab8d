package analysis

import (
	"math"
	"math/cmplx"
)

// FFT is a radix-2 transform. Input is zero padded to the next power of
// two.
func FFT(data []float64) []complex128 {
	n := nextPow2(len(data))
	if n != len(data) {
		padded := make([]float64, n)
		copy(padded, data)
		data = padded
	}
	return fft(data)
}

func fft(data []float64) []complex128 {
	n := len(data)
	if n <= 1 {
		result := make([]complex128, n)
		for i := range data {
			result[i] = complex(data[i], 0)
		}
		return result
	}

	even := make([]float64, n/2)
	odd := make([]float64, n/2)

	for i := 0; i < n/2; i++ {
		even[i] = data[2*i]
		odd[i] = data[2*i+1]
	}

	feven := fft(even)
	fodd := fft(odd)

	result := make([]complex128, n)
	for k := 0; k < n/2; k++ {
		w := cmplx.Exp(complex(0, -2*math.Pi*float64(k)/float64(n)))
		result[k] = feven[k] + w*fodd[k]
		result[k+n/2] = feven[k] - w*fodd[k]
	}

	return result
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// PowerSpectrum returns |X_k| for the non-negative frequency bins.
func PowerSpectrum(data []float64) []float64 {
	fft := FFT(data)
	ps := make([]float64, len(fft)/2)

	for i := range ps {
		ps[i] = cmplx.Abs(fft[i])
	}

	return ps
}

// Oscillation is the strongest periodic component of a signal.
type Oscillation struct {
	Frequency float64 // Hz
	Amplitude float64
	Spectrum  []float64
	BinWidth  float64 // Hz
}

// DominantOscillation removes the mean from signal, sampled at rate Hz,
// and reports its largest spectral peak above DC.
func DominantOscillation(signal []float64, rate float64) Oscillation {
	if len(signal) < 4 {
		return Oscillation{}
	}

	mean := 0.0
	for _, v := range signal {
		mean += v
	}
	mean /= float64(len(signal))

	centered := make([]float64, len(signal))
	for i, v := range signal {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	n := nextPow2(len(signal))

	peak := 1
	for k := 2; k < len(ps); k++ {
		if ps[k] > ps[peak] {
			peak = k
		}
	}

	return Oscillation{
		Frequency: float64(peak) * rate / float64(n),
		Amplitude: 2 * ps[peak] / float64(len(signal)),
		Spectrum:  ps,
		BinWidth:  rate / float64(n),
	}
}
