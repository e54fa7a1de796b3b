package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

func TestMagnitudesEmptyOnFreshStore(t *testing.T) {
	st := series.NewStore(3, 3, 500)
	x := NewExtractor(st)
	assert.Empty(t, x.Magnitudes(), "zero-filled startup windows must not pass as real data")
}

func TestMagnitudesSingleChannel(t *testing.T) {
	st := series.NewStore(3, 3, 500)
	// 40 real samples on one channel; the most recent 32 feed the FFT.
	for i := 0; i < 40; i++ {
		require.NoError(t, st.Append(1, 1, series.AccX, float64(i)/10))
	}
	out := NewExtractor(st).Magnitudes()
	require.Len(t, out, 1)
	require.Len(t, out[0], SpectrumBins)
	assert.Equal(t, 17, SpectrumBins)
	for i, v := range out[0] {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "bin %d non-finite", i)
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestMagnitudesExactlyThirtyTwoSamples(t *testing.T) {
	st := series.NewStore(1, 1, 500)
	for i := 0; i < 31; i++ {
		require.NoError(t, st.Append(1, 1, series.GyrX, float64(i)))
	}
	x := NewExtractor(st)
	assert.Empty(t, x.Magnitudes(), "31 real samples is below the window")

	require.NoError(t, st.Append(1, 1, series.GyrX, 31))
	out := x.Magnitudes()
	require.Len(t, out, 1)
	assert.Len(t, out[0], 17)
}

func TestMagnitudesConstantSignalConcentratesAtDC(t *testing.T) {
	st := series.NewStore(1, 1, 500)
	for i := 0; i < 32; i++ {
		require.NoError(t, st.Append(1, 1, series.AccY, 2.0))
	}
	out := NewExtractor(st).Magnitudes()
	require.Len(t, out, 1)
	assert.InDelta(t, 64.0, out[0][0], 1e-9) // DC bin = sum of samples
	for i := 1; i < len(out[0]); i++ {
		assert.InDelta(t, 0.0, out[0][i], 1e-9, "bin %d", i)
	}
}

func TestPeriodicTransformBoundsWindow(t *testing.T) {
	st := series.NewStore(1, 1, 500)
	for i := 0; i < 32; i++ {
		require.NoError(t, st.Append(1, 1, series.OriYaw, float64(i)))
		require.NoError(t, st.Append(1, 1, series.MagX, float64(i)*0.3))
	}
	x := NewExtractor(st)
	for _, ch := range []series.Channel{series.OriYaw, series.MagX} {
		w := x.transformed(1, 1, ch)
		require.NotNil(t, w)
		for i, v := range w {
			assert.GreaterOrEqual(t, v, -1.0, "%s[%d]", ch, i)
			assert.LessOrEqual(t, v, 1.0, "%s[%d]", ch, i)
		}
	}
}

func TestCepstraShapeAndFiniteness(t *testing.T) {
	st := series.NewStore(1, 1, 500)
	for i := 0; i < 40; i++ {
		require.NoError(t, st.Append(1, 1, series.AccZ, math.Sin(float64(i)/3)))
	}
	out := NewExtractor(st).Cepstra(60)
	require.Len(t, out, 1)
	require.Len(t, out[0], numCepstra)
	for i, v := range out[0] {
		assert.False(t, math.IsNaN(v) || math.IsInf(v, 0), "coefficient %d non-finite", i)
		assert.GreaterOrEqual(t, v, 0.0, "coefficients are magnitude-only")
	}
}

func TestCepstraInvalidSampleRate(t *testing.T) {
	st := series.NewStore(1, 1, 500)
	assert.Nil(t, NewExtractor(st).Cepstra(0))
	assert.Nil(t, NewExtractor(st).Cepstra(-60))
}

func TestMelFilterbankShape(t *testing.T) {
	filters := melFilterbank(numMelFilters, SpectrumBins, CorrelationWindow, 100)
	require.Len(t, filters, numMelFilters)
	for f, row := range filters {
		require.Len(t, row, SpectrumBins)
		sum := 0.0
		for b, w := range row {
			assert.GreaterOrEqual(t, w, 0.0, "filter %d bin %d", f, b)
			assert.LessOrEqual(t, w, 1.0, "filter %d bin %d", f, b)
			sum += w
		}
	}
}

func TestExtractorVisitsAllEligibleChannels(t *testing.T) {
	st := series.NewStore(2, 2, 500)
	// Fill every channel (eligible or not) of every slot.
	for p := 1; p <= 2; p++ {
		for s := 1; s <= 2; s++ {
			for ch := series.Channel(0); ch < series.NumChannels; ch++ {
				for i := 0; i < 32; i++ {
					require.NoError(t, st.Append(p, s, ch, float64(i)))
				}
			}
		}
	}
	out := NewExtractor(st).Magnitudes()
	// 2 performers × 2 positions × 12 eligible channels.
	assert.Len(t, out, 48)
}
