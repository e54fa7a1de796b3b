package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/biodata-sonata/motion.report/internal/telemetry/scaling"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

func testLocations(t *testing.T) LocationMap {
	t.Helper()
	lm, err := NewLocationMap(map[string]Location{
		"00B4F11A": {Performer: 1, Position: 1, Name: "left"},
		"00B4F114": {Performer: 1, Position: 2, Name: "right"},
		"00B4F11B": {Performer: 2, Position: 1, Name: "left"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return lm
}

func TestDispatchUnknownSensor(t *testing.T) {
	st := series.NewStore(2, 3, 32)
	d := NewDispatcher(st, testLocations(t), nil)
	err := d.Dispatch("DEADBEEF", scaling.Acceleration, []float64{1, 2, 3})
	if !errors.Is(err, ErrUnknownSensor) {
		t.Fatalf("err = %v, want ErrUnknownSensor", err)
	}
	// Nothing was routed anywhere.
	for p := 1; p <= 2; p++ {
		for s := 1; s <= 3; s++ {
			if n := st.RealSamples(p, s, series.AccX); n != 0 {
				t.Errorf("store %d/%d has %d samples after dropped packet", p, s, n)
			}
		}
	}
}

func TestDispatchVectorFanout(t *testing.T) {
	st := series.NewStore(2, 3, 32)
	d := NewDispatcher(st, testLocations(t), nil)
	if err := d.Dispatch("00B4F114", scaling.Gyroscope, []float64{0.1, 0.2, 0.3}); err != nil {
		t.Fatal(err)
	}
	for i, ch := range []series.Channel{series.GyrX, series.GyrY, series.GyrZ} {
		w, err := st.Window(1, 2, ch, 1)
		if err != nil {
			t.Fatal(err)
		}
		want := float64(i+1) / 10
		if w[0] != want {
			t.Errorf("%s = %v, want %v", ch, w[0], want)
		}
	}
}

func TestDispatchTotalAccWithHitFlag(t *testing.T) {
	st := series.NewStore(2, 3, 32)
	d := NewDispatcher(st, testLocations(t), nil)
	if err := d.Dispatch("00B4F11B", scaling.TotalAcceleration, []float64{31.5, 1}); err != nil {
		t.Fatal(err)
	}
	mag, _ := st.Window(2, 1, series.TotalAcc, 1)
	hit, _ := st.Window(2, 1, series.TotalAccHit, 1)
	if mag[0] != 31.5 || hit[0] != 1 {
		t.Errorf("tot_a/b_tot_a = %v/%v, want 31.5/1", mag[0], hit[0])
	}
}

func TestDispatchShortVectorRejected(t *testing.T) {
	st := series.NewStore(2, 3, 32)
	d := NewDispatcher(st, testLocations(t), nil)
	if err := d.Dispatch("00B4F11A", scaling.Magnetometer, []float64{1, 2}); err == nil {
		t.Error("short magnetometer vector accepted")
	}
	if err := d.Dispatch("00B4F11A", scaling.TotalAcceleration, []float64{30}); err == nil {
		t.Error("total acceleration without hit flag accepted")
	}
}

func TestLocationMapRejectsDuplicates(t *testing.T) {
	_, err := NewLocationMap(map[string]Location{
		"A": {Performer: 1, Position: 1},
		"B": {Performer: 1, Position: 1},
	})
	if err == nil {
		t.Fatal("duplicate composite id accepted")
	}
}

type recordingPresenter struct {
	updates chan WindowUpdate
}

func (p *recordingPresenter) OnWindowUpdated(performer, position int, ch series.Channel, window []float64) error {
	p.updates <- WindowUpdate{Performer: performer, Position: position, Channel: ch, Window: window}
	return nil
}

func (p *recordingPresenter) OnStatusChanged(int, Status) {}

func TestNotifierDeliversWindowSnapshots(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pres := &recordingPresenter{updates: make(chan WindowUpdate, 16)}
	n := NewNotifier(pres, 16)
	go n.Run(ctx)

	st := series.NewStore(1, 1, 8)
	lm, err := NewLocationMap(map[string]Location{"S": {Performer: 1, Position: 1}})
	if err != nil {
		t.Fatal(err)
	}
	d := NewDispatcher(st, lm, n)
	if err := d.Dispatch("S", scaling.RateOfTurn, []float64{0.7}); err != nil {
		t.Fatal(err)
	}

	select {
	case u := <-pres.updates:
		if u.Channel != series.RateOfTurn || u.Performer != 1 || u.Position != 1 {
			t.Errorf("unexpected update %+v", u)
		}
		if len(u.Window) != 8 || u.Window[7] != 0.7 {
			t.Errorf("window snapshot = %v, want tail 0.7", u.Window)
		}
	case <-time.After(time.Second):
		t.Fatal("no presenter update delivered")
	}
}

type blockingPresenter struct{ block chan struct{} }

func (p *blockingPresenter) OnWindowUpdated(int, int, series.Channel, []float64) error {
	<-p.block
	return nil
}

func (p *blockingPresenter) OnStatusChanged(int, Status) {}

func TestNotifierNeverBlocksIngestion(t *testing.T) {
	// A stalled presenter must only cost dropped updates, not latency.
	pres := &blockingPresenter{block: make(chan struct{})}
	n := NewNotifier(pres, 2)
	// No Run goroutine: queue fills after 2 enqueues.
	for i := 0; i < 10; i++ {
		n.Enqueue(WindowUpdate{Performer: 1, Position: 1, Channel: series.AccX})
	}
	if n.Dropped() != 8 {
		t.Errorf("Dropped = %d, want 8", n.Dropped())
	}
	close(pres.block)
}
