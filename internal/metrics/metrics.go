// Package metrics exposes Prometheus collectors for lead acquisition and
// enrichment. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prospect"

// Metrics holds the application's collectors.
type Metrics struct {
	registry *prometheus.Registry

	searchQueries  *prometheus.CounterVec
	leadsScraped   prometheus.Counter
	emailsFound    prometheus.Counter
	leadsProcessed *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	activeRuns     prometheus.Gauge
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		searchQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_queries_total",
			Help:      "Search queries issued, by outcome (ok, error, blocked).",
		}, []string{"outcome"}),
		leadsScraped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_scraped_total",
			Help:      "Lead candidates accepted by the acquisition coordinator.",
		}),
		emailsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "contact_emails_found_total",
			Help:      "Candidates for which a contact email was extracted.",
		}),
		leadsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_processed_total",
			Help:      "Leads that reached a terminal pipeline status.",
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Enrichment stage latency.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"stage", "outcome"}),
		activeRuns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_campaigns",
			Help:      "Campaign pipelines currently running.",
		}),
	}
	m.registry.MustRegister(
		m.searchQueries,
		m.leadsScraped,
		m.emailsFound,
		m.leadsProcessed,
		m.stageDuration,
		m.activeRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SearchQuery(outcome string) {
	if m == nil {
		return
	}
	m.searchQueries.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LeadScraped(hasEmail bool) {
	if m == nil {
		return
	}
	m.leadsScraped.Inc()
	if hasEmail {
		m.emailsFound.Inc()
	}
}

func (m *Metrics) LeadProcessed(status string) {
	if m == nil {
		return
	}
	m.leadsProcessed.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveStage(stage, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage, outcome).Observe(d.Seconds())
}

// CampaignStarted and CampaignFinished track the active-campaign gauge.
func (m *Metrics) CampaignStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

func (m *Metrics) CampaignFinished() {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
}
