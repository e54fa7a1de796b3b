// Package xsens receives decoded sensor packets as JSON datagrams over UDP
// from the device bridge process. The SDK bring-up lives in the bridge; this
// side only decodes, hands packets to the ingestion loop, and tracks
// per-sensor measurement status for the presenter.
package xsens

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/pipeline"
)

// ListenerConfig contains configuration options for the UDP listener.
type ListenerConfig struct {
	Address   string
	RcvBuf    int
	Handler   func(pipeline.Packet) error
	Presenter dispatch.Presenter   // status changes only, may be nil
	Locations dispatch.LocationMap // maps sensor ids to status indices

	// StaleAfter marks a sensor as errored when no packet has arrived for
	// this long. Zero defaults to 2 seconds.
	StaleAfter time.Duration

	// Now is a clock hook for tests.
	Now func() time.Time
}

// Listener receives and decodes sensor datagrams.
type Listener struct {
	cfg  ListenerConfig
	conn *net.UDPConn

	mu       sync.Mutex
	lastSeen map[string]time.Time
	status   map[string]dispatch.Status
}

// NewListener creates a listener with the provided configuration.
func NewListener(cfg ListenerConfig) *Listener {
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = 2 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Listener{
		cfg:      cfg,
		lastSeen: make(map[string]time.Time),
		status:   make(map[string]dispatch.Status),
	}
}

// Start listens for datagrams until ctx is cancelled. On shutdown every
// known sensor is reported Finished.
func (l *Listener) Start(ctx context.Context) error {
	addr, err := net.ResolveUDPAddr("udp", l.cfg.Address)
	if err != nil {
		return fmt.Errorf("resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("listen on UDP address: %w", err)
	}
	l.conn = conn
	defer conn.Close()

	if l.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(l.cfg.RcvBuf); err != nil {
			opsf("set UDP receive buffer to %d: %v", l.cfg.RcvBuf, err)
		}
	}
	diagf("sensor listener started on %s", conn.LocalAddr())

	go l.watchStale(ctx)

	buffer := make([]byte, 8192)
	for {
		select {
		case <-ctx.Done():
			l.finishAll()
			return ctx.Err()
		default:
			// Short deadline so context cancellation is noticed promptly.
			conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
			n, _, err := conn.ReadFromUDP(buffer)
			if err != nil {
				if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
					continue
				}
				if ctx.Err() != nil {
					l.finishAll()
					return ctx.Err()
				}
				opsf("UDP read: %v", err)
				continue
			}
			l.handleDatagram(buffer[:n])
		}
	}
}

// handleDatagram decodes one datagram and hands it to the ingestion handler.
// Decode and handler failures are logged and dropped; a bad datagram must not
// stop the listener.
func (l *Listener) handleDatagram(data []byte) {
	var pkt pipeline.Packet
	if err := json.Unmarshal(data, &pkt); err != nil {
		opsf("decoding datagram (%d bytes): %v", len(data), err)
		return
	}
	if pkt.SensorID == "" {
		opsf("dropping datagram without sensor id")
		return
	}
	l.markSeen(pkt.SensorID)
	if l.cfg.Handler != nil {
		if err := l.cfg.Handler(pkt); err != nil {
			diagf("handler rejected packet from %s: %v", pkt.SensorID, err)
		}
	}
}

func (l *Listener) markSeen(sensorID string) {
	l.mu.Lock()
	l.lastSeen[sensorID] = l.cfg.Now()
	prev, seen := l.status[sensorID]
	l.status[sensorID] = dispatch.StatusMeasuring
	l.mu.Unlock()
	if !seen || prev != dispatch.StatusMeasuring {
		l.notify(sensorID, dispatch.StatusMeasuring)
	}
}

// watchStale flips sensors to Error when their packets stop arriving.
func (l *Listener) watchStale(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.StaleAfter / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.markStale()
		}
	}
}

func (l *Listener) markStale() {
	now := l.cfg.Now()
	var stale []string
	l.mu.Lock()
	for id, seen := range l.lastSeen {
		if l.status[id] == dispatch.StatusMeasuring && now.Sub(seen) > l.cfg.StaleAfter {
			l.status[id] = dispatch.StatusError
			stale = append(stale, id)
		}
	}
	l.mu.Unlock()
	for _, id := range stale {
		opsf("sensor %s stale, marking errored", id)
		l.notify(id, dispatch.StatusError)
	}
}

func (l *Listener) finishAll() {
	var ids []string
	l.mu.Lock()
	for id := range l.status {
		l.status[id] = dispatch.StatusFinished
		ids = append(ids, id)
	}
	l.mu.Unlock()
	for _, id := range ids {
		l.notify(id, dispatch.StatusFinished)
	}
}

// notify forwards a status change to the presenter, indexed by the sensor's
// composite id. Sensors outside the location map are not reported.
func (l *Listener) notify(sensorID string, status dispatch.Status) {
	if l.cfg.Presenter == nil {
		return
	}
	loc, err := l.cfg.Locations.Resolve(sensorID)
	if err != nil {
		return
	}
	l.cfg.Presenter.OnStatusChanged(loc.Composite(), status)
}
