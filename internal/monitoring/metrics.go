// internal/monitoring/metrics.go
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the scrape pipeline and
// the API. A nil *Metrics is valid and records nothing, which keeps
// tests free of registry bookkeeping.
type Metrics struct {
	registry *prometheus.Registry

	pagesScanned    *prometheus.CounterVec
	productsScraped *prometheus.CounterVec
	recordsStored   *prometheus.CounterVec
	runDuration     *prometheus.HistogramVec
	runsActive      prometheus.Gauge
	httpRequests    *prometheus.CounterVec
}

// NewMetrics creates a metrics set backed by its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		pagesScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullionwatch",
			Name:      "listing_pages_scanned_total",
			Help:      "Listing pages scanned, by vendor.",
		}, []string{"vendor"}),
		productsScraped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullionwatch",
			Name:      "products_scraped_total",
			Help:      "Product pages scraped, by vendor and outcome.",
		}, []string{"vendor", "status"}),
		recordsStored: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullionwatch",
			Name:      "records_stored_total",
			Help:      "Records written to the store, by vendor.",
		}, []string{"vendor"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bullionwatch",
			Name:      "scrape_run_duration_seconds",
			Help:      "Duration of full vendor scrape runs.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"vendor"}),
		runsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "bullionwatch",
			Name:      "scrape_runs_active",
			Help:      "Number of vendor scrape runs currently executing.",
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bullionwatch",
			Name:      "http_requests_total",
			Help:      "API requests, by route and status code.",
		}, []string{"route", "code"}),
	}
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordPageScanned(vendor string) {
	if m == nil {
		return
	}
	m.pagesScanned.WithLabelValues(vendor).Inc()
}

func (m *Metrics) RecordProductScraped(vendor string, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.productsScraped.WithLabelValues(vendor, status).Inc()
}

func (m *Metrics) RecordStored(vendor string, count int) {
	if m == nil {
		return
	}
	m.recordsStored.WithLabelValues(vendor).Add(float64(count))
}

func (m *Metrics) ObserveRunDuration(vendor string, seconds float64) {
	if m == nil {
		return
	}
	m.runDuration.WithLabelValues(vendor).Observe(seconds)
}

func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsActive.Inc()
}

func (m *Metrics) RunFinished() {
	if m == nil {
		return
	}
	m.runsActive.Dec()
}

func (m *Metrics) RecordHTTPRequest(route string, code string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, code).Inc()
}
