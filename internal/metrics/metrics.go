// Package metrics provides Prometheus instrumentation for the telemetry
// engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Custom registry to avoid the default Go collectors.
var registry = prometheus.NewRegistry()

var (
	packetsIngested = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "packets_ingested_total",
		Help:      "Total number of decoded sensor packets ingested",
	})
	samplesAppended = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "samples_appended_total",
		Help:      "Total number of samples appended across all series",
	})
	unknownSensorDrops = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "unknown_sensor_drops_total",
		Help:      "Total number of packets dropped because the sensor id is unmapped",
	})
	correlationsComputed = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "correlations_computed_total",
		Help:      "Total number of Pearson coefficients computed",
	})
	featureVectors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "feature_vectors_total",
		Help:      "Total number of spectral feature vectors extracted",
	})
	observerDrops = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "observer_queue_drops_total",
		Help:      "Total number of presenter window updates dropped because the queue was full",
	})
	transportErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: "sonata",
		Subsystem: "telemetry",
		Name:      "transport_errors_total",
		Help:      "Total number of outbound message send failures",
	})
)

// RecordPacketIngested increments the ingested packet counter.
func RecordPacketIngested() { packetsIngested.Inc() }

// RecordSampleAppended increments the appended sample counter.
func RecordSampleAppended() { samplesAppended.Inc() }

// RecordUnknownSensor increments the unknown-sensor drop counter.
func RecordUnknownSensor() { unknownSensorDrops.Inc() }

// RecordCorrelation increments the correlation counter.
func RecordCorrelation() { correlationsComputed.Inc() }

// RecordFeatureVector increments the feature vector counter.
func RecordFeatureVector() { featureVectors.Inc() }

// RecordObserverDrop increments the observer queue drop counter.
func RecordObserverDrop() { observerDrops.Inc() }

// RecordTransportError increments the transport failure counter.
func RecordTransportError() { transportErrors.Inc() }

// Handler serves the custom registry for scraping.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
