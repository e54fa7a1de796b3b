// Package dispatch routes decoded sensor samples into the telemetry store.
// It owns the sensor-to-performer location map and the observer queue that
// keeps the presentation collaborator off the hot ingestion path.
package dispatch

import (
	"fmt"

	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/telemetry/scaling"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// vectorChannels maps each vector kind to its per-axis series.
var vectorChannels = map[scaling.Kind][3]series.Channel{
	scaling.Acceleration: {series.AccX, series.AccY, series.AccZ},
	scaling.Gyroscope:    {series.GyrX, series.GyrY, series.GyrZ},
	scaling.Magnetometer: {series.MagX, series.MagY, series.MagZ},
	scaling.Orientation:  {series.OriPitch, series.OriRoll, series.OriYaw},
}

// Dispatcher routes one decoded sample group into the correct series.
type Dispatcher struct {
	store     *series.Store
	locations LocationMap
	notifier  *Notifier
}

// NewDispatcher builds a dispatcher over the store with an immutable
// location map. notifier may be nil when no presenter is attached.
func NewDispatcher(store *series.Store, locations LocationMap, notifier *Notifier) *Dispatcher {
	return &Dispatcher{store: store, locations: locations, notifier: notifier}
}

// Locations exposes the immutable location map for collaborators (replay,
// pipeline addressing).
func (d *Dispatcher) Locations() LocationMap { return d.locations }

// Dispatch resolves the sensor and appends values to the channel series for
// its kind: one series per axis for vector kinds, scalar plus hit-flag
// companion for total acceleration. Every append enqueues a window snapshot
// for the presenter.
func (d *Dispatcher) Dispatch(sensorID string, kind scaling.Kind, values []float64) error {
	loc, err := d.locations.Resolve(sensorID)
	if err != nil {
		metrics.RecordUnknownSensor()
		return err
	}
	return d.DispatchTo(loc, kind, values)
}

// DispatchTo appends values for an already-resolved location. Used by the
// replay reader, which works from composite ids rather than hardware ids.
func (d *Dispatcher) DispatchTo(loc Location, kind scaling.Kind, values []float64) error {
	switch kind {
	case scaling.Acceleration, scaling.Gyroscope, scaling.Magnetometer, scaling.Orientation:
		chans := vectorChannels[kind]
		if len(values) < 3 {
			return fmt.Errorf("dispatch: %s needs 3 components, got %d", kind, len(values))
		}
		for i := 0; i < 3; i++ {
			d.append(loc, chans[i], values[i])
		}
	case scaling.RateOfTurn:
		if len(values) < 1 {
			return fmt.Errorf("dispatch: %s needs 1 component, got 0", kind)
		}
		d.append(loc, series.RateOfTurn, values[0])
	case scaling.TotalAcceleration:
		if len(values) < 2 {
			return fmt.Errorf("dispatch: %s needs magnitude and hit flag, got %d components", kind, len(values))
		}
		d.append(loc, series.TotalAcc, values[0])
		d.append(loc, series.TotalAccHit, values[1])
	default:
		return fmt.Errorf("dispatch: unsupported kind %d", kind)
	}
	return nil
}

func (d *Dispatcher) append(loc Location, ch series.Channel, v float64) {
	if err := d.store.Append(loc.Performer, loc.Position, ch, v); err != nil {
		// Location map and store topology disagree; configuration bug.
		opsf("append %s for %d/%d failed: %v", ch, loc.Performer, loc.Position, err)
		return
	}
	metrics.RecordSampleAppended()
	if d.notifier != nil {
		window, err := d.store.Window(loc.Performer, loc.Position, ch, d.store.Capacity())
		if err != nil {
			return
		}
		d.notifier.Enqueue(WindowUpdate{
			Performer: loc.Performer,
			Position:  loc.Position,
			Channel:   ch,
			Window:    window,
		})
	}
}
