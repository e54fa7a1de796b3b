// Package replay feeds a recorded session back through the dispatcher. The
// input is the recorder's plain-text format: one packet per line, fields
// separated by ": ", leading field the composite sensor id. Values were
// processed before recording, so they are dispatched as-is rather than run
// through the pipeline again; only the orientation wire offset is undone.
package replay

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/scaling"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// Field counts after the composite id, per recorded block combination.
const (
	calibratedFields  = 12 // acc×3, tot_a, hit, gyr×3, rot, mag×3
	orientationFields = 7  // euler×3, quat×4
)

// Reader replays recorded rows into a dispatcher at a fixed pace.
type Reader struct {
	dispatcher *dispatch.Dispatcher
	interval   time.Duration // 0 replays without pacing
}

// New builds a replay reader. interval spaces consecutive rows to mimic the
// original packet cadence; zero replays as fast as the store accepts.
func New(d *dispatch.Dispatcher, interval time.Duration) *Reader {
	return &Reader{dispatcher: d, interval: interval}
}

// Replay applies every row of src until EOF or context cancellation and
// returns the number of rows applied. Malformed rows and rows for unmapped
// sensors are counted, logged and skipped; they do not stop the replay.
func (r *Reader) Replay(ctx context.Context, src io.Reader) (int, error) {
	scanner := bufio.NewScanner(src)
	applied, skipped := 0, 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return applied, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := r.applyRow(line); err != nil {
			skipped++
			diagf("skipping row: %v", err)
			continue
		}
		applied++
		if r.interval > 0 {
			select {
			case <-ctx.Done():
				return applied, ctx.Err()
			case <-time.After(r.interval):
			}
		}
	}
	if skipped > 0 {
		opsf("replay finished: %d rows applied, %d skipped", applied, skipped)
	} else {
		diagf("replay finished: %d rows applied", applied)
	}
	return applied, scanner.Err()
}

func (r *Reader) applyRow(line string) error {
	composite, values, err := parseRow(line)
	if err != nil {
		return err
	}
	if _, ok := r.dispatcher.Locations().SensorID(composite); !ok {
		return fmt.Errorf("replay: composite id %d not in location map", composite)
	}
	performer, position := series.SplitComposite(composite)
	loc := dispatch.Location{Performer: performer, Position: position}

	var calibrated, orientation []float64
	switch len(values) {
	case 0:
		return nil // id-only row, nothing to store
	case calibratedFields:
		calibrated = values
	case orientationFields:
		orientation = values
	case calibratedFields + orientationFields:
		calibrated = values[:calibratedFields]
		orientation = values[calibratedFields:]
	default:
		return fmt.Errorf("replay: row for %d has %d fields", composite, len(values))
	}

	if calibrated != nil {
		r.dispatch(loc, scaling.Acceleration, calibrated[0:3])
		r.dispatch(loc, scaling.TotalAcceleration, calibrated[3:5])
		r.dispatch(loc, scaling.Gyroscope, calibrated[5:8])
		r.dispatch(loc, scaling.RateOfTurn, calibrated[8:9])
		r.dispatch(loc, scaling.Magnetometer, calibrated[9:12])
	}
	if orientation != nil {
		// Recorded euler angles carry the +pi wire offset; the stored
		// series do not. The trailing quaternion is wire-only.
		euler := []float64{
			orientation[0] - math.Pi,
			orientation[1] - math.Pi,
			orientation[2] - math.Pi,
		}
		r.dispatch(loc, scaling.Orientation, euler)
	}
	return nil
}

func (r *Reader) dispatch(loc dispatch.Location, kind scaling.Kind, values []float64) {
	if err := r.dispatcher.DispatchTo(loc, kind, values); err != nil {
		diagf("dispatch %s for %d/%d: %v", kind, loc.Performer, loc.Position, err)
	}
}

// parseRow splits one recorded line into the composite id and its values.
func parseRow(line string) (int, []float64, error) {
	fields := strings.Split(strings.TrimSuffix(line, ":"), ":")
	var parts []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		return 0, nil, fmt.Errorf("replay: empty row")
	}
	composite, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, fmt.Errorf("replay: composite id %q: %w", parts[0], err)
	}
	values := make([]float64, 0, len(parts)-1)
	for _, p := range parts[1:] {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("replay: field %q: %w", p, err)
		}
		values = append(values, v)
	}
	return composite, values, nil
}
