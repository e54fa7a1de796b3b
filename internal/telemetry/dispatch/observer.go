package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/biodata-sonata/motion.report/internal/metrics"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// Status reports the measurement state of a physical sensor. It is set by the
// external status poll, not by the ingestion core.
type Status int

const (
	StatusMeasuring Status = iota
	StatusError
	StatusFinished
)

func (s Status) String() string {
	switch s {
	case StatusMeasuring:
		return "Measuring"
	case StatusError:
		return "Error"
	case StatusFinished:
		return "Finished"
	}
	return "unknown"
}

// Presenter is the presentation collaborator. OnWindowUpdated receives a
// snapshot of the full window after every append; OnStatusChanged is driven
// by the source's status poll. Implementations must tolerate being called
// from a goroutine other than the ingestion loop.
type Presenter interface {
	OnWindowUpdated(performer, position int, ch series.Channel, window []float64) error
	OnStatusChanged(sensorIndex int, status Status)
}

// WindowUpdate is one queued presentation notification.
type WindowUpdate struct {
	Performer int
	Position  int
	Channel   series.Channel
	Window    []float64
}

// Notifier decouples the presentation collaborator from the ingestion path.
// Updates are enqueued fire-and-continue: when the queue is full the update
// is dropped and counted, so a stalled presenter can never block ingestion.
type Notifier struct {
	presenter Presenter
	queue     chan WindowUpdate
	dropped   atomic.Uint64
}

// NewNotifier returns a notifier with the given queue depth. A nil presenter
// turns every enqueue into a no-op.
func NewNotifier(presenter Presenter, depth int) *Notifier {
	if depth <= 0 {
		depth = 1024
	}
	return &Notifier{presenter: presenter, queue: make(chan WindowUpdate, depth)}
}

// Enqueue queues one window update without blocking.
func (n *Notifier) Enqueue(u WindowUpdate) {
	if n == nil || n.presenter == nil {
		return
	}
	select {
	case n.queue <- u:
	default:
		count := n.dropped.Add(1)
		metrics.RecordObserverDrop()
		if count%1000 == 1 {
			opsf("presenter queue full, %d updates dropped", count)
		}
	}
}

// Dropped returns how many updates have been discarded so far.
func (n *Notifier) Dropped() uint64 { return n.dropped.Load() }

// Run drains the queue until ctx is cancelled. Presenter errors are logged,
// never propagated.
func (n *Notifier) Run(ctx context.Context) {
	if n == nil || n.presenter == nil {
		return
	}
	for {
		select {
		case u := <-n.queue:
			if err := n.presenter.OnWindowUpdated(u.Performer, u.Position, u.Channel, u.Window); err != nil {
				opsf("presenter update failed for %d/%d %s: %v", u.Performer, u.Position, u.Channel, err)
			}
		case <-ctx.Done():
			return
		}
	}
}
