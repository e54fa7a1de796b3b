package dispatch

import (
	"errors"
	"fmt"

	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// ErrUnknownSensor is returned when a packet carries a hardware identifier
// that is not present in the location map. Without a location the sample
// cannot be routed to any performer, so it is dropped.
var ErrUnknownSensor = errors.New("dispatch: unknown sensor")

// Location places a physical sensor on a performer's body.
type Location struct {
	Performer int    // 1-based performer index
	Position  int    // 1-based position code (1 left, 2 right, 3 torso)
	Name      string // human label, e.g. "left"
}

// Composite returns the performer*10+position encoding for the location.
func (l Location) Composite() int { return series.CompositeID(l.Performer, l.Position) }

// LocationMap is the immutable mapping from sensor hardware identifier to
// body location. It is built once at configuration time and never mutated.
type LocationMap struct {
	byID        map[string]Location
	byComposite map[int]string
}

// NewLocationMap copies the supplied table into an immutable map.
func NewLocationMap(table map[string]Location) (LocationMap, error) {
	lm := LocationMap{
		byID:        make(map[string]Location, len(table)),
		byComposite: make(map[int]string, len(table)),
	}
	for id, loc := range table {
		if loc.Performer < 1 || loc.Position < 1 {
			return LocationMap{}, fmt.Errorf("dispatch: location for %q has non-positive indices", id)
		}
		comp := loc.Composite()
		if prev, dup := lm.byComposite[comp]; dup {
			return LocationMap{}, fmt.Errorf("dispatch: sensors %q and %q share composite id %d", prev, id, comp)
		}
		lm.byID[id] = loc
		lm.byComposite[comp] = id
	}
	return lm, nil
}

// Resolve maps a hardware identifier to its location.
func (lm LocationMap) Resolve(sensorID string) (Location, error) {
	loc, ok := lm.byID[sensorID]
	if !ok {
		return Location{}, fmt.Errorf("%w: %q", ErrUnknownSensor, sensorID)
	}
	return loc, nil
}

// SensorID is the reverse lookup from composite id to hardware identifier,
// used by the replay reader.
func (lm LocationMap) SensorID(composite int) (string, bool) {
	id, ok := lm.byComposite[composite]
	return id, ok
}

// Len returns the number of mapped sensors.
func (lm LocationMap) Len() int { return len(lm.byID) }
