package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the crawler's Prometheus counters. A nil *Metrics is a no-op.
type Metrics struct {
	PagesScanned  *prometheus.CounterVec
	ListingsAdded *prometheus.CounterVec
	CrawlHalts    *prometheus.CounterVec
	DetailErrors  *prometheus.CounterVec
	ProbeFailures *prometheus.CounterVec
	MarkedSold    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PagesScanned: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_index_pages_scanned_total",
			Help: "Index pages or scroll batches fetched by crawl walks",
		}, []string{"site"}),
		ListingsAdded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_listings_added_total",
			Help: "Listings added to a site store by a crawl",
		}, []string{"site"}),
		CrawlHalts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_crawl_halts_total",
			Help: "Crawl walks ended, by reason",
		}, []string{"site", "reason"}),
		DetailErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_detail_fetch_errors_total",
			Help: "Detail pages skipped after exhausting retries",
		}, []string{"site"}),
		ProbeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_probe_failures_total",
			Help: "Liveness probes that failed on every retry",
		}, []string{"site"}),
		MarkedSold: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "car_resale_listings_marked_sold_total",
			Help: "Listings flipped to sold by reconciliation",
		}, []string{"site"}),
	}
}

func (m *Metrics) IncPages(site string) {
	if m == nil {
		return
	}
	m.PagesScanned.WithLabelValues(site).Inc()
}

func (m *Metrics) AddListings(site string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ListingsAdded.WithLabelValues(site).Add(float64(n))
}

func (m *Metrics) IncHalt(site, reason string) {
	if m == nil {
		return
	}
	m.CrawlHalts.WithLabelValues(site, reason).Inc()
}

func (m *Metrics) IncDetailErrors(site string) {
	if m == nil {
		return
	}
	m.DetailErrors.WithLabelValues(site).Inc()
}

func (m *Metrics) IncProbeFailures(site string) {
	if m == nil {
		return
	}
	m.ProbeFailures.WithLabelValues(site).Inc()
}

func (m *Metrics) IncSold(site string) {
	if m == nil {
		return
	}
	m.MarkedSold.WithLabelValues(site).Inc()
}
