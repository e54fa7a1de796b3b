package analysis

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// SpectrumBins is the length of a magnitude spectrum for a 32-sample real
// input: N/2+1 bins, DC included.
const SpectrumBins = CorrelationWindow/2 + 1

// Extractor computes windowed spectral features across the whole store: one
// feature vector per eligible channel with at least 32 real samples,
// collected in performer, position, channel order.
type Extractor struct {
	store  *series.Store
	window int
	fft    *fourier.FFT
}

// NewExtractor builds a spectral extractor over the store.
func NewExtractor(store *series.Store) *Extractor {
	return &Extractor{
		store:  store,
		window: CorrelationWindow,
		fft:    fourier.NewFFT(CorrelationWindow),
	}
}

// transformed returns the trailing window for a channel with the
// periodicity transform applied, or nil when the channel is ineligible or
// short of real samples. Orientation channels map v -> cos(2v) and
// magnetometer channels v -> cos(2π(1+v)) so the angle wrap does not leak a
// discontinuity into the transform.
func (x *Extractor) transformed(performer, position int, ch series.Channel) []float64 {
	if !ch.FeatureEligible() {
		return nil
	}
	if x.store.RealSamples(performer, position, ch) < x.window {
		return nil
	}
	w, err := x.store.Window(performer, position, ch, x.window)
	if err != nil {
		return nil
	}
	switch {
	case ch.Orientation():
		for i, v := range w {
			w[i] = math.Cos(2 * v)
		}
	case ch.Magnetometer():
		for i, v := range w {
			w[i] = math.Cos(2 * math.Pi * (1 + v))
		}
	}
	return w
}

// Magnitudes returns the FFT magnitude spectrum (SpectrumBins values per
// vector) for every eligible channel across all performers and positions.
func (x *Extractor) Magnitudes() [][]float64 {
	var out [][]float64
	x.eachWindow(func(w []float64) {
		coeffs := x.fft.Coefficients(make([]complex128, SpectrumBins), w)
		mags := make([]float64, SpectrumBins)
		for i, c := range coeffs {
			mags[i] = cmplx.Abs(c)
		}
		metrics.RecordFeatureVector()
		out = append(out, mags)
	})
	tracef("fft pass produced %d spectra", len(out))
	return out
}

// Cepstra returns 13 magnitude-only mel-cepstral coefficients per eligible
// channel at the supplied sample rate.
func (x *Extractor) Cepstra(sampleRate float64) [][]float64 {
	if sampleRate <= 0 {
		return nil
	}
	filters := melFilterbank(numMelFilters, SpectrumBins, x.window, sampleRate)
	var out [][]float64
	x.eachWindow(func(w []float64) {
		metrics.RecordFeatureVector()
		out = append(out, x.cepstra(w, filters))
	})
	tracef("cepstral pass produced %d vectors", len(out))
	return out
}

// eachWindow visits the transformed 32-sample window of every eligible,
// sufficiently-filled channel in performer, position, channel order.
func (x *Extractor) eachWindow(fn func(w []float64)) {
	for p := 1; p <= x.store.Performers(); p++ {
		for s := 1; s <= x.store.Positions(); s++ {
			for ch := series.Channel(0); ch < series.NumChannels; ch++ {
				if w := x.transformed(p, s, ch); w != nil {
					fn(w)
				}
			}
		}
	}
}
