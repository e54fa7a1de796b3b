package xsens

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/pipeline"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

type statusRecorder struct {
	changes []struct {
		index  int
		status dispatch.Status
	}
}

func (s *statusRecorder) OnWindowUpdated(int, int, series.Channel, []float64) error { return nil }

func (s *statusRecorder) OnStatusChanged(index int, status dispatch.Status) {
	s.changes = append(s.changes, struct {
		index  int
		status dispatch.Status
	}{index, status})
}

type listenerFixture struct {
	listener *Listener
	handled  []pipeline.Packet
	statuses *statusRecorder
	clock    time.Time
}

func newListenerFixture(t *testing.T) *listenerFixture {
	t.Helper()
	lm, err := dispatch.NewLocationMap(map[string]dispatch.Location{
		"A1": {Performer: 1, Position: 1, Name: "left"},
	})
	require.NoError(t, err)

	f := &listenerFixture{
		statuses: &statusRecorder{},
		clock:    time.Unix(2000, 0),
	}
	f.listener = NewListener(ListenerConfig{
		Address:   "127.0.0.1:0",
		Presenter: f.statuses,
		Locations: lm,
		Handler: func(pkt pipeline.Packet) error {
			f.handled = append(f.handled, pkt)
			return nil
		},
		Now: func() time.Time { return f.clock },
	})
	return f
}

func datagram(t *testing.T, pkt pipeline.Packet) []byte {
	t.Helper()
	data, err := json.Marshal(pkt)
	require.NoError(t, err)
	return data
}

func TestHandleDatagramDecodesAndForwards(t *testing.T) {
	f := newListenerFixture(t)
	pkt := pipeline.Packet{
		SensorID:      "A1",
		HasCalibrated: true,
		FreeAcc:       [3]float64{10, 20, 30},
	}
	f.listener.handleDatagram(datagram(t, pkt))

	require.Len(t, f.handled, 1)
	assert.Equal(t, pkt, f.handled[0])
}

func TestHandleDatagramRejectsGarbage(t *testing.T) {
	f := newListenerFixture(t)
	f.listener.handleDatagram([]byte("{not json"))
	f.listener.handleDatagram(datagram(t, pipeline.Packet{})) // missing sensor id
	assert.Empty(t, f.handled)
	assert.Empty(t, f.statuses.changes)
}

func TestStatusMeasuringReportedOncePerStreak(t *testing.T) {
	f := newListenerFixture(t)
	pkt := datagram(t, pipeline.Packet{SensorID: "A1"})
	f.listener.handleDatagram(pkt)
	f.listener.handleDatagram(pkt)

	require.Len(t, f.statuses.changes, 1)
	assert.Equal(t, 11, f.statuses.changes[0].index)
	assert.Equal(t, dispatch.StatusMeasuring, f.statuses.changes[0].status)
}

func TestStaleSensorReportsError(t *testing.T) {
	f := newListenerFixture(t)
	f.listener.handleDatagram(datagram(t, pipeline.Packet{SensorID: "A1"}))

	f.clock = f.clock.Add(3 * time.Second)
	f.listener.markStale()

	require.Len(t, f.statuses.changes, 2)
	assert.Equal(t, dispatch.StatusError, f.statuses.changes[1].status)

	// A stale sensor is only reported once.
	f.listener.markStale()
	assert.Len(t, f.statuses.changes, 2)

	// Recovery flips it back to measuring.
	f.listener.handleDatagram(datagram(t, pipeline.Packet{SensorID: "A1"}))
	require.Len(t, f.statuses.changes, 3)
	assert.Equal(t, dispatch.StatusMeasuring, f.statuses.changes[2].status)
}

func TestFinishAllReportsEveryKnownSensor(t *testing.T) {
	f := newListenerFixture(t)
	f.listener.handleDatagram(datagram(t, pipeline.Packet{SensorID: "A1"}))
	f.listener.finishAll()

	require.Len(t, f.statuses.changes, 2)
	assert.Equal(t, dispatch.StatusFinished, f.statuses.changes[1].status)
}

func TestUnmappedSensorHandledButNotReported(t *testing.T) {
	f := newListenerFixture(t)
	f.listener.handleDatagram(datagram(t, pipeline.Packet{SensorID: "mystery"}))
	// The handler still sees the packet; the pipeline decides to drop it.
	assert.Len(t, f.handled, 1)
	assert.Empty(t, f.statuses.changes)
}
