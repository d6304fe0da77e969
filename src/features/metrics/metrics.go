// Package metrics exposes pipeline counters in the Prometheus format.
package metrics

import (
	"errors"
	"log/slog"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/watching"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "posx"

// Collector turns watcher events into Prometheus metrics.
type Collector struct {
	detected  *prometheus.CounterVec
	processed *prometheus.CounterVec
	errored   *prometheus.CounterVec
	polls     *prometheus.CounterVec
	found     *prometheus.CounterVec
	records   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	running   prometheus.Gauge
}

// NewCollector creates the metric vectors. They are not registered yet.
func NewCollector() *Collector {
	return &Collector{
		detected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_detected_total",
			Help:      "Files picked up by a store watcher.",
		}, []string{"store"}),
		processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_processed_total",
			Help:      "Documents that went through the pipeline, by outcome.",
		}, []string{"store", "status", "document_type", "source"}),
		errored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_errored_total",
			Help:      "Documents whose processing raised an unexpected error.",
		}, []string{"store"}),
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed polls of a watch directory.",
		}, []string{"store"}),
		found: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_files_found_total",
			Help:      "Matching files seen across polls.",
		}, []string{"store"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_imported_total",
			Help:      "Records imported from successful documents.",
		}, []string{"store", "document_type"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Pipeline duration per document.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"store"}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watchers_running",
			Help:      "Store watchers currently running.",
		}),
	}
}

// Register adds every metric to reg. Already registered collectors are tolerated.
func (c *Collector) Register(reg prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.detected, c.processed, c.errored, c.polls, c.found, c.records, c.duration, c.running} {
		if err := reg.Register(m); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}

// Subscribe feeds c from every event published on bus.
func (c *Collector) Subscribe(bus *watching.EventBus) {
	bus.SubscribeAll(c.Observe)
}

// Observe updates the metrics for one event.
func (c *Collector) Observe(e watching.Event) {
	switch e.Type {
	case watching.EventWatcherStarted:
		c.running.Inc()
	case watching.EventWatcherStopped:
		c.running.Dec()
	case watching.EventPollCompleted:
		c.polls.WithLabelValues(e.StoreID).Inc()
		c.found.WithLabelValues(e.StoreID).Add(float64(e.FilesFound))
	case watching.EventFileDetected:
		c.detected.WithLabelValues(e.StoreID).Inc()
	case watching.EventFileError:
		c.errored.WithLabelValues(e.StoreID).Inc()
	case watching.EventFileProcessed:
		if e.Result == nil {
			slog.Debug("Collector.Observe: processed event without result", "store_id", e.StoreID)
			return
		}
		c.observeResult(e.StoreID, e.Manual, e.Result)
	}
}

func (c *Collector) observeResult(storeID string, manual bool, r *exchange.ProcessingResult) {
	source := "watcher"
	if manual {
		source = "manual"
	}
	docType := string(r.DocumentType)
	if docType == "" {
		docType = string(exchange.DocumentUnknown)
	}
	c.processed.WithLabelValues(storeID, string(r.Status), docType, source).Inc()
	c.duration.WithLabelValues(storeID).Observe(float64(r.ProcessingTimeMs) / 1000)
	if r.Status == exchange.StatusSuccess {
		c.records.WithLabelValues(storeID, docType).Add(float64(r.RecordCount))
	}
}
