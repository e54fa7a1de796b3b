package analysis

import (
	"math"
	"math/cmplx"
)

const (
	numMelFilters = 20
	numCepstra    = 13

	// logFloor keeps the log of an empty mel band finite.
	logFloor = 1e-10
)

func hzToMel(f float64) float64 { return 2595 * math.Log10(1+f/700) }
func melToHz(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

// melFilterbank builds nFilters triangular filters over [0, sampleRate/2],
// evaluated at the nBins frequencies of an n-point real FFT.
func melFilterbank(nFilters, nBins, n int, sampleRate float64) [][]float64 {
	melMax := hzToMel(sampleRate / 2)
	// nFilters+2 equally spaced mel points: edges plus filter centres.
	points := make([]float64, nFilters+2)
	for i := range points {
		points[i] = melToHz(melMax * float64(i) / float64(nFilters+1))
	}
	filters := make([][]float64, nFilters)
	for f := 0; f < nFilters; f++ {
		lo, mid, hi := points[f], points[f+1], points[f+2]
		row := make([]float64, nBins)
		for b := 0; b < nBins; b++ {
			freq := float64(b) * sampleRate / float64(n)
			switch {
			case freq <= lo || freq >= hi:
				// outside the triangle
			case freq <= mid:
				row[b] = (freq - lo) / (mid - lo)
			default:
				row[b] = (hi - freq) / (hi - mid)
			}
		}
		filters[f] = row
	}
	return filters
}

// cepstra maps one window to its 13 magnitude-only cepstral coefficients:
// power spectrum -> mel filter energies -> log -> orthonormal DCT-II -> |c|.
// The explicit DCT loop is 13×20 multiplies, so no transform plan is needed.
func (x *Extractor) cepstra(w []float64, filters [][]float64) []float64 {
	coeffs := x.fft.Coefficients(make([]complex128, SpectrumBins), w)
	power := make([]float64, SpectrumBins)
	for i, c := range coeffs {
		a := cmplx.Abs(c)
		power[i] = a * a
	}

	logEnergy := make([]float64, len(filters))
	for f, row := range filters {
		var e float64
		for b, weight := range row {
			e += weight * power[b]
		}
		if e < logFloor {
			e = logFloor
		}
		logEnergy[f] = math.Log(e)
	}

	n := float64(len(logEnergy))
	out := make([]float64, numCepstra)
	for k := 0; k < numCepstra; k++ {
		var sum float64
		for i, e := range logEnergy {
			sum += e * math.Cos(math.Pi*float64(k)*(2*float64(i)+1)/(2*n))
		}
		c := sum * math.Sqrt(2/n)
		if k == 0 {
			c /= math.Sqrt2
		}
		out[k] = math.Abs(c)
	}
	return out
}
