// Package metrics exposes Prometheus instruments for the sync orchestrator.
//
// All recording methods are nil-safe so components can run without metrics
// wiring in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reelsync"

// Metrics holds every instrument registered for one daemon.
type Metrics struct {
	registry *prometheus.Registry

	items          *prometheus.CounterVec
	itemDuration   *prometheus.HistogramVec
	readiness      *prometheus.CounterVec
	readinessTries prometheus.Counter
	runs           *prometheus.CounterVec
	phases         *prometheus.CounterVec
	supervisor     prometheus.Gauge
	scrapes        *prometheus.CounterVec
	scrapedItems   prometheus.Counter
}

// New registers instruments on a fresh registry that also carries the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		items: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Catalog items processed by the sync pipeline by phase and outcome",
			},
			[]string{"phase", "outcome"}, // outcome: succeeded, failed, skipped
		),
		itemDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Time spent on one admitted item by phase",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"phase"},
		),
		readiness: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readiness_checks_total",
				Help:      "Readiness gate results",
			},
			[]string{"result"}, // ready, failed, cancelled
		),
		readinessTries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "readiness_attempts_total",
				Help:      "Individual health probes issued by readiness gates",
			},
		),
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sync_runs_total",
				Help:      "Sync pipeline runs by lifecycle event",
			},
			[]string{"event"}, // started, completed, cancelled
		),
		phases: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "phases_total",
				Help:      "Pipeline phases by name and result",
			},
			[]string{"phase", "result"}, // completed, skipped
		),
		supervisor: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "supervisor_state",
				Help:      "Scraper supervisor state (0 not started, 1 starting, 2 running, 3 stopped)",
			},
		),
		scrapes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_scrapes_total",
				Help:      "Bulk scrape requests by result",
			},
			[]string{"result"},
		),
		scrapedItems: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bulk_scraped_items_total",
				Help:      "Catalog items inserted by bulk scrapes",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordItem counts one item outcome. Admitted items also observe duration.
func (m *Metrics) RecordItem(phase, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(phase, outcome).Inc()
	if outcome != "skipped" {
		m.itemDuration.WithLabelValues(phase).Observe(elapsed.Seconds())
	}
}

// RecordReadiness counts one gate result and the probes it issued.
func (m *Metrics) RecordReadiness(result string, attempts int) {
	if m == nil {
		return
	}
	m.readiness.WithLabelValues(result).Inc()
	m.readinessTries.Add(float64(attempts))
}

// RecordRun counts a lifecycle event for a sync run.
func (m *Metrics) RecordRun(event string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(event).Inc()
}

// RecordPhase counts one phase result.
func (m *Metrics) RecordPhase(phase, result string) {
	if m == nil {
		return
	}
	m.phases.WithLabelValues(phase, result).Inc()
}

// SetSupervisorState records the supervisor's current state ordinal.
func (m *Metrics) SetSupervisorState(state int) {
	if m == nil {
		return
	}
	m.supervisor.Set(float64(state))
}

// RecordScrape counts a bulk scrape and the items it inserted.
func (m *Metrics) RecordScrape(result string, inserted int) {
	if m == nil {
		return
	}
	m.scrapes.WithLabelValues(result).Inc()
	if inserted > 0 {
		m.scrapedItems.Add(float64(inserted))
	}
}
