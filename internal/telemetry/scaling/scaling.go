// Package scaling maintains per-sensor running min/max bounds and maps raw
// channel vectors onto the unit interval. Bounds only ever widen: a value
// below the current minimum becomes the new minimum and scales to exactly
// 0.0, a value above the maximum becomes the new maximum and scales to
// exactly 1.0.
package scaling

// Kind names a scalable channel group. Only rate-of-turn is exercised on the
// live path; the remaining kinds are reserved slots with the same bounds
// lifecycle.
type Kind int

const (
	Acceleration Kind = iota
	Gyroscope
	Magnetometer
	Orientation
	TotalAcceleration
	RateOfTurn

	numKinds = 6
)

// kindWidths gives the vector width of each kind.
var kindWidths = [numKinds]int{3, 3, 3, 3, 1, 1}

func (k Kind) String() string {
	switch k {
	case Acceleration:
		return "acc"
	case Gyroscope:
		return "gyr"
	case Magnetometer:
		return "mag"
	case Orientation:
		return "ori"
	case TotalAcceleration:
		return "tot_a"
	case RateOfTurn:
		return "rot"
	}
	return "unknown"
}

// Width returns the vector width of the kind.
func (k Kind) Width() int {
	if k < 0 || k >= numKinds {
		return 0
	}
	return kindWidths[k]
}

type bounds struct {
	min [numKinds][]float64
	max [numKinds][]float64
}

func newBounds() *bounds {
	b := &bounds{}
	for k := 0; k < numKinds; k++ {
		b.min[k] = make([]float64, kindWidths[k])
		b.max[k] = make([]float64, kindWidths[k])
		for i := range b.max[k] {
			b.max[k][i] = 1 // initial bounds [0, 1] per component
		}
	}
	return b
}

// State holds the min/max bounds for every known sensor. Bounds mutate in
// place on the ingestion goroutine; State is otherwise read-mostly.
type State struct {
	sensors map[string]*bounds
}

// NewState returns an empty scaling state. Sensor entries are created on
// first use with initial bounds [0, 1] per component.
func NewState() *State {
	return &State{sensors: make(map[string]*bounds)}
}

// Scale maps raw onto the unit interval component-wise, widening the stored
// bounds first so the incoming value itself lands on 0.0 or 1.0 when it sets
// a new bound. A zero span (max == min) yields 0.0 for that component; with
// the distinct initial bounds this cannot arise from widening alone, so the
// guard is a numeric backstop rather than a reachable state.
func (st *State) Scale(sensorID string, k Kind, raw []float64) []float64 {
	b, ok := st.sensors[sensorID]
	if !ok {
		b = newBounds()
		st.sensors[sensorID] = b
	}
	width := k.Width()
	n := len(raw)
	if n > width {
		n = width
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := raw[i]
		if v < b.min[k][i] {
			b.min[k][i] = v
		} else if v > b.max[k][i] {
			b.max[k][i] = v
		}
		span := b.max[k][i] - b.min[k][i]
		if span == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - b.min[k][i]) / span
	}
	return out
}

// Bounds returns copies of the current min/max vectors for a sensor and
// kind, or zeroed slices when the sensor has never been scaled.
func (st *State) Bounds(sensorID string, k Kind) (min, max []float64) {
	width := k.Width()
	min = make([]float64, width)
	max = make([]float64, width)
	b, ok := st.sensors[sensorID]
	if !ok {
		return min, max
	}
	copy(min, b.min[k])
	copy(max, b.max[k])
	return min, max
}
