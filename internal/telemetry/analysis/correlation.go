// Package analysis derives correlation and spectral features from the
// telemetry store's bounded windows. All computations read fixed 32-sample
// trailing windows and are designed to finish well inside the packet-arrival
// interval; a channel without enough real samples is silently skipped for
// the cycle rather than failing the caller.
package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// CorrelationWindow is the trailing window length for Pearson correlation
// and spectral extraction.
const CorrelationWindow = 32

// Correlation is one computed coefficient, tagged with the base channel it
// was derived from. Results are emitted in channel-label order.
type Correlation struct {
	Channel series.Channel
	Value   float64
}

// Engine computes intra- and cross-performer Pearson correlations over the
// store and writes each coefficient back into the matching correlation
// series.
type Engine struct {
	store  *series.Store
	pairs  [][2]int // configured (source, target) composite id pairs
	window int
}

// NewEngine builds a correlation engine. pairs holds composite-id
// (performer*10+position) source/target pairs for cross-performer
// correlation; a nil slice disables the cross pass.
func NewEngine(store *series.Store, pairs [][2]int) *Engine {
	return &Engine{store: store, pairs: pairs, window: CorrelationWindow}
}

// pearson returns the Pearson coefficient of two equal-length windows,
// substituting 0.0 when the coefficient is undefined (zero-variance input)
// and clamping the result so float error can never push it outside [-1, 1].
func pearson(x, y []float64) float64 {
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

// Self computes the correlation between every unordered pair of sensor
// positions (i < j) of each performer, per eligible channel. Each
// coefficient is appended to the series keyed by (channel, j) under
// position i's slot and collected for transport.
func (e *Engine) Self() []Correlation {
	var out []Correlation
	for p := 1; p <= e.store.Performers(); p++ {
		for i := 1; i < e.store.Positions(); i++ {
			for j := i + 1; j <= e.store.Positions(); j++ {
				for ch := series.Channel(0); ch < series.NumChannels; ch++ {
					if !ch.FeatureEligible() {
						continue
					}
					if e.store.RealSamples(p, i, ch) < e.window || e.store.RealSamples(p, j, ch) < e.window {
						continue
					}
					wi, err := e.store.Window(p, i, ch, e.window)
					if err != nil {
						continue
					}
					wj, err := e.store.Window(p, j, ch, e.window)
					if err != nil {
						continue
					}
					r := pearson(wi, wj)
					if err := e.store.AppendIntra(p, i, ch, j, r); err != nil {
						diagf("store intra correlation %d/%d-%d %s: %v", p, i, j, ch, err)
					}
					metrics.RecordCorrelation()
					out = append(out, Correlation{Channel: ch, Value: r})
				}
			}
		}
	}
	tracef("self correlation pass produced %d coefficients", len(out))
	return out
}

// Cross computes the correlation between the configured composite-id pairs,
// per eligible channel. Each coefficient is appended to the source slot's
// series keyed by (channel, target performer) and collected for transport.
// Malformed pairs are skipped and logged once per pass.
func (e *Engine) Cross() []Correlation {
	var out []Correlation
	for _, pair := range e.pairs {
		src, tgt := pair[0], pair[1]
		if src == tgt {
			continue
		}
		sp, si := series.SplitComposite(src)
		tp, ti := series.SplitComposite(tgt)
		if !e.validSlot(sp, si) || !e.validSlot(tp, ti) {
			diagf("skipping cross pair %d->%d: outside topology", src, tgt)
			continue
		}
		for ch := series.Channel(0); ch < series.NumChannels; ch++ {
			if !ch.FeatureEligible() {
				continue
			}
			if e.store.RealSamples(sp, si, ch) < e.window || e.store.RealSamples(tp, ti, ch) < e.window {
				continue
			}
			ws, err := e.store.Window(sp, si, ch, e.window)
			if err != nil {
				continue
			}
			wt, err := e.store.Window(tp, ti, ch, e.window)
			if err != nil {
				continue
			}
			r := pearson(ws, wt)
			if err := e.store.AppendInter(sp, si, ch, tp, r); err != nil {
				diagf("store cross correlation %d->%d %s: %v", src, tgt, ch, err)
			}
			metrics.RecordCorrelation()
			out = append(out, Correlation{Channel: ch, Value: r})
		}
	}
	tracef("cross correlation pass produced %d coefficients", len(out))
	return out
}

func (e *Engine) validSlot(performer, position int) bool {
	return performer >= 1 && performer <= e.store.Performers() &&
		position >= 1 && position <= e.store.Positions()
}
