// Package config defines the process configuration and its loading order:
// defaults, then an optional YAML file, then SONATA_-prefixed environment
// variables.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/biodata-sonata/motion.report/internal/monitoring"
	"github.com/biodata-sonata/motion.report/internal/telemetry/dispatch"
	"github.com/biodata-sonata/motion.report/internal/telemetry/series"
)

// Config contains process configuration.
type Config struct {
	// Performers and Positions fix the store topology.
	Performers int `koanf:"performers"`
	Positions  int `koanf:"positions"`

	// WindowCapacity is the ring buffer length of every series.
	WindowCapacity int `koanf:"window_capacity"`

	// HitThreshold is the total-acceleration magnitude (m/s²) that flags a
	// hit; HitDebounceMS is the minimum interval between flagged hits.
	HitThreshold  float64 `koanf:"hit_threshold"`
	HitDebounceMS int     `koanf:"hit_debounce_ms"`

	// ReferenceID is the composite id (performer*10+position) of the sensor
	// whose packets pace the analytics passes.
	ReferenceID int `koanf:"reference_id"`

	// CorrelationPairs lists cross-performer pairs as "source:target"
	// composite ids.
	CorrelationPairs []string `koanf:"correlation_pairs"`

	EmitSelfCorrelation bool `koanf:"emit_self_correlation"`
	EmitSpectral        bool `koanf:"emit_spectral"`

	// Locations maps sensor hardware ids to "performer:position:name".
	Locations map[string]string `koanf:"locations"`

	// OSCHost/OSCPort target the sonification patch.
	OSCHost string `koanf:"osc_host"`
	OSCPort int    `koanf:"osc_port"`

	// ListenAddr receives sensor datagrams; MetricsAddr serves /metrics.
	ListenAddr  string `koanf:"listen_addr"`
	MetricsAddr string `koanf:"metrics_addr"`

	// RecordingDir holds plain-text session recordings; empty disables
	// recording. ArchivePath is the sqlite session archive; empty disables.
	RecordingDir string `koanf:"recording_dir"`
	ArchivePath  string `koanf:"archive_path"`

	ObserverQueueDepth int `koanf:"observer_queue_depth"`

	// LogVerbosity is one of quiet, ops, diag, trace.
	LogVerbosity string `koanf:"log_verbosity"`
}

// New returns the default configuration: the standard three-dancer,
// three-sensor rig.
func New() *Config {
	return &Config{
		Performers:     3,
		Positions:      3,
		WindowCapacity: 500,
		HitThreshold:   30,
		HitDebounceMS:  200,
		ReferenceID:    11,
		CorrelationPairs: []string{
			"12:22",
		},
		Locations: map[string]string{
			"00B4F11A": "1:1:left",
			"00B4F114": "1:2:right",
			"00B4F115": "1:3:torso",
			"00B4F11B": "2:1:left",
			"00B4F116": "2:2:right",
			"00B4F119": "2:3:torso",
			"00B4F11C": "3:1:left",
			"00B4F107": "3:2:right",
			"00B4F11D": "3:3:torso",
		},
		OSCHost:            "127.0.0.1",
		OSCPort:            57120,
		ListenAddr:         ":9763",
		MetricsAddr:        ":9091",
		ObserverQueueDepth: 1024,
		LogVerbosity:       "diag",
	}
}

// Validate checks internal consistency. Structural errors here are
// configuration bugs and abort startup.
func (c *Config) Validate() error {
	if c.Performers < 1 {
		return fmt.Errorf("config: performers must be at least 1, got %d", c.Performers)
	}
	if c.Positions < 1 || c.Positions > 9 {
		return fmt.Errorf("config: positions must be 1..9 (composite id encoding), got %d", c.Positions)
	}
	if c.WindowCapacity < 1 {
		return fmt.Errorf("config: window_capacity must be positive, got %d", c.WindowCapacity)
	}
	if c.HitThreshold <= 0 {
		return fmt.Errorf("config: hit_threshold must be positive, got %v", c.HitThreshold)
	}
	if c.HitDebounceMS < 0 {
		return fmt.Errorf("config: hit_debounce_ms must not be negative, got %d", c.HitDebounceMS)
	}
	rp, rs := series.SplitComposite(c.ReferenceID)
	if rp < 1 || rp > c.Performers || rs < 1 || rs > c.Positions {
		return fmt.Errorf("config: reference_id %d outside the %dx%d topology", c.ReferenceID, c.Performers, c.Positions)
	}
	if c.OSCPort < 0 || c.OSCPort > 65535 {
		return fmt.Errorf("config: osc_port %d out of range", c.OSCPort)
	}
	if _, err := monitoring.ParseVerbosity(c.LogVerbosity); err != nil {
		return err
	}
	if _, err := c.ParseLocations(); err != nil {
		return err
	}
	if _, err := c.ParsePairs(); err != nil {
		return err
	}
	return nil
}

// HitDebounce returns the debounce interval as a duration.
func (c *Config) HitDebounce() time.Duration {
	return time.Duration(c.HitDebounceMS) * time.Millisecond
}

// Reference returns the reference performer and position.
func (c *Config) Reference() (performer, position int) {
	return series.SplitComposite(c.ReferenceID)
}

// ParseLocations converts the "performer:position:name" table into dispatch
// locations, checking every entry against the configured topology.
func (c *Config) ParseLocations() (map[string]dispatch.Location, error) {
	out := make(map[string]dispatch.Location, len(c.Locations))
	for id, spec := range c.Locations {
		parts := strings.Split(spec, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("config: location %q=%q is not performer:position:name", id, spec)
		}
		performer, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("config: location %q performer: %w", id, err)
		}
		position, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("config: location %q position: %w", id, err)
		}
		if performer < 1 || performer > c.Performers || position < 1 || position > c.Positions {
			return nil, fmt.Errorf("config: location %q=%q outside the %dx%d topology",
				id, spec, c.Performers, c.Positions)
		}
		out[id] = dispatch.Location{Performer: performer, Position: position, Name: parts[2]}
	}
	return out, nil
}

// ParsePairs converts the "source:target" pair list into composite id pairs.
func (c *Config) ParsePairs() ([][2]int, error) {
	out := make([][2]int, 0, len(c.CorrelationPairs))
	for _, spec := range c.CorrelationPairs {
		parts := strings.Split(spec, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("config: correlation pair %q is not source:target", spec)
		}
		src, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("config: correlation pair %q source: %w", spec, err)
		}
		tgt, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("config: correlation pair %q target: %w", spec, err)
		}
		out = append(out, [2]int{src, tgt})
	}
	return out, nil
}
