// Package pipeline turns decoded sensor packets into stored series, derived
// analytics and outbound messages. A single goroutine owns ProcessPacket; the
// observer queue and the transport are the only asynchronous boundaries.
package pipeline

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/telemetry/analysis"
	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/scaling"
)

const (
	// DefaultHitThreshold is the total-acceleration magnitude (m/s²) above
	// which a hit is flagged.
	DefaultHitThreshold = 30.0

	// DefaultHitDebounce is the minimum interval between two flagged hits
	// on the same sensor.
	DefaultHitDebounce = 200 * time.Millisecond
)

// Transport delivers one outbound message. Implementations must be safe to
// call from the ingestion goroutine; send errors are logged and counted, never
// propagated to the caller.
type Transport interface {
	Send(address string, payload []interface{}) error
}

// Recorder persists one emitted packet row for later replay.
type Recorder interface {
	RecordRow(payload []interface{}) error
}

// Config holds the pipeline's collaborators and tuning. Dispatcher and
// Scaling are required; everything else may be nil/zero, in which case the
// corresponding step is skipped or defaulted.
type Config struct {
	Dispatcher *dispatch.Dispatcher
	Scaling    *scaling.State

	// Correlator drives the cross-performer pass on reference packets and
	// the optional self pass. Nil disables both.
	Correlator *analysis.Engine

	// Spectral drives the optional FFT and cepstral emission. Nil disables.
	Spectral *analysis.Extractor

	Transport Transport // nil: no outbound messages
	Recorder  Recorder  // nil: no session recording

	// ReferencePerformer/Position designate the sensor whose packets pace
	// the analytics passes. Zero values default to (1, 1).
	ReferencePerformer int
	ReferencePosition  int

	HitThreshold float64       // 0 defaults to DefaultHitThreshold
	HitDebounce  time.Duration // 0 defaults to DefaultHitDebounce

	// EmitSelfCorrelation and EmitSpectral enable the additional feature
	// messages on reference packets. Both default off.
	EmitSelfCorrelation bool
	EmitSpectral        bool

	// Now is a clock hook for tests. Nil defaults to time.Now.
	Now func() time.Time
}

// Pipeline processes packets per the configured collaborators.
type Pipeline struct {
	cfg     Config
	lastHit map[string]time.Time // per sensor, debounces the hit flag
	lastRef time.Time            // arrival of the previous reference packet
}

// New validates required collaborators and applies defaults.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("pipeline: Dispatcher is required")
	}
	if cfg.Scaling == nil {
		return nil, fmt.Errorf("pipeline: Scaling is required")
	}
	if cfg.ReferencePerformer == 0 {
		cfg.ReferencePerformer = 1
	}
	if cfg.ReferencePosition == 0 {
		cfg.ReferencePosition = 1
	}
	if cfg.HitThreshold == 0 {
		cfg.HitThreshold = DefaultHitThreshold
	}
	if cfg.HitDebounce == 0 {
		cfg.HitDebounce = DefaultHitDebounce
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pipeline{cfg: cfg, lastHit: make(map[string]time.Time)}, nil
}

// round5 matches the wire precision of the recording format.
func round5(v float64) float64 { return math.Round(v*1e5) / 1e5 }

// ProcessPacket ingests one decoded packet: stores its samples, emits the
// per-packet message, records the row, and on reference packets runs the
// analytics passes. Only an unresolvable sensor id is returned as an error;
// the caller logs it and keeps the loop running.
func (p *Pipeline) ProcessPacket(pkt Packet) error {
	loc, err := p.cfg.Dispatcher.Locations().Resolve(pkt.SensorID)
	if err != nil {
		metrics.RecordUnknownSensor()
		opsf("dropping packet: %v", err)
		return err
	}

	payload := make([]interface{}, 0, 20)
	payload = append(payload, int32(loc.Composite()))

	if pkt.HasCalibrated {
		acc := make([]float64, 3)
		for i, v := range pkt.FreeAcc {
			acc[i] = round5(v / 100)
		}
		tot := floats.Norm(acc, 2)
		hit := 0.0
		now := p.cfg.Now()
		if tot > p.cfg.HitThreshold && now.Sub(p.lastHit[pkt.SensorID]) > p.cfg.HitDebounce {
			hit = 1
			p.lastHit[pkt.SensorID] = now
		}
		payload = append(payload, acc[0], acc[1], acc[2], round5(tot), hit)
		p.dispatch(loc, scaling.Acceleration, acc)
		p.dispatch(loc, scaling.TotalAcceleration, []float64{tot, hit})

		rot := p.cfg.Scaling.Scale(pkt.SensorID, scaling.RateOfTurn,
			[]float64{floats.Norm(pkt.Gyr[:], 2)})
		gyr := make([]float64, 3)
		for i, v := range pkt.Gyr {
			gyr[i] = round5(v)
		}
		payload = append(payload, gyr[0], gyr[1], gyr[2], round5(rot[0]))
		p.dispatch(loc, scaling.Gyroscope, gyr)
		p.dispatch(loc, scaling.RateOfTurn, rot)

		payload = append(payload,
			round5(pkt.Mag[0]), round5(pkt.Mag[1]), round5(pkt.Mag[2]))
		p.dispatch(loc, scaling.Magnetometer, pkt.Mag[:])
	}

	if pkt.HasOrientation {
		// Stored orientation is radians with a per-axis offset; the wire
		// adds a further +pi so consumers see strictly positive angles.
		euler := []float64{
			math.Pi*pkt.Euler[0]/180 + 1,
			math.Pi * pkt.Euler[1] / 180,
			math.Pi*pkt.Euler[2]/180 + 1,
		}
		payload = append(payload,
			euler[0]+math.Pi, euler[1]+math.Pi, euler[2]+math.Pi)
		// Quaternion repacked into the stage reference frame, wire only.
		payload = append(payload,
			pkt.Quat[0], -pkt.Quat[1], pkt.Quat[3], pkt.Quat[2])
		p.dispatch(loc, scaling.Orientation, euler)
	}

	p.send(fmt.Sprintf("/xsens%d%d", loc.Performer, loc.Position), payload)
	if p.cfg.Recorder != nil {
		if err := p.cfg.Recorder.RecordRow(payload); err != nil {
			opsf("recording row: %v", err)
		}
	}
	metrics.RecordPacketIngested()
	tracef("packet %s -> %d/%d (%d fields)", pkt.SensorID, loc.Performer, loc.Position, len(payload))

	if loc.Performer == p.cfg.ReferencePerformer && loc.Position == p.cfg.ReferencePosition {
		p.referencePass(loc)
	}
	return nil
}

// referencePass runs the analytics passes paced by the reference sensor.
func (p *Pipeline) referencePass(loc dispatch.Location) {
	now := p.cfg.Now()
	var dt time.Duration
	if !p.lastRef.IsZero() {
		dt = now.Sub(p.lastRef)
	}
	p.lastRef = now

	if p.cfg.Correlator == nil {
		return
	}
	addr := fmt.Sprintf("/xsens%d%d", loc.Performer, loc.Position)
	p.send(addr+"-correlation-others", coefficientPayload(p.cfg.Correlator.Cross()))
	if p.cfg.EmitSelfCorrelation {
		p.send(addr+"-correlation-self", coefficientPayload(p.cfg.Correlator.Self()))
	}
	if p.cfg.EmitSpectral && p.cfg.Spectral != nil {
		p.send("/xsens-fft", vectorPayload(p.cfg.Spectral.Magnitudes()))
		if dt > 0 {
			p.send("/xsens-mfcc", vectorPayload(p.cfg.Spectral.Cepstra(1/dt.Seconds())))
		}
	}
}

func coefficientPayload(cs []analysis.Correlation) []interface{} {
	out := make([]interface{}, len(cs))
	for i, c := range cs {
		out[i] = round5(c.Value)
	}
	return out
}

func vectorPayload(vs [][]float64) []interface{} {
	var out []interface{}
	for _, v := range vs {
		for _, x := range v {
			out = append(out, round5(x))
		}
	}
	return out
}

func (p *Pipeline) dispatch(loc dispatch.Location, kind scaling.Kind, values []float64) {
	if err := p.cfg.Dispatcher.DispatchTo(loc, kind, values); err != nil {
		diagf("dispatch %s for %d/%d: %v", kind, loc.Performer, loc.Position, err)
	}
}

func (p *Pipeline) send(address string, payload []interface{}) {
	if p.cfg.Transport == nil {
		return
	}
	if err := p.cfg.Transport.Send(address, payload); err != nil {
		metrics.RecordTransportError()
		opsf("send %s: %v", address, err)
	}
}
