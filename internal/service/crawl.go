package service

import (
	"log/slog"
	"time"

	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

// crawlRun carries the mutable state of one site crawl.
type crawlRun struct {
	site    domain.Site
	prev    *domain.Store
	store   *domain.Store
	stats   *domain.CrawlStats
	today   domain.Date
	started time.Time
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func newCrawlRun(site domain.Site, prev *domain.Store, now time.Time, logger *slog.Logger, m *metrics.Metrics) *crawlRun {
	if prev == nil {
		prev = domain.NewStore()
	}
	return &crawlRun{
		site:    site,
		prev:    prev,
		store:   prev.Clone(),
		stats:   &domain.CrawlStats{Site: site},
		today:   domain.DateOf(now),
		started: time.Now(),
		logger:  logger,
		metrics: m,
	}
}

// known looks up a listing of the previous store by id or url.
func (r *crawlRun) known(id, url string) (domain.Listing, bool) {
	if l, ok := r.prev.Get(id); ok {
		return l, true
	}
	if key, ok := r.prev.KeyForURL(url); ok {
		return r.prev.Get(key)
	}
	return domain.Listing{}, false
}

// detail completes an extracted listing with what the index told us.
func (r *crawlRun) detail(l *domain.Listing, item domain.IndexItem, id string) {
	r.stats.Fetched++
	l.ID = id
	if l.URL == "" {
		l.URL = item.URL
	}
	if item.Promoted {
		l.Spotlight = true
	}
	if !l.PostedDate.Known() {
		l.PostedDate = item.PostedDate
	}
	if l.Status == "" {
		l.Status = domain.StatusAvailable
	}
}

func (r *crawlRun) include(l *domain.Listing) {
	l.ScrapeDate = r.today
	if r.store.Put(*l) {
		r.stats.Added++
	}
}

func (r *crawlRun) skip() {
	r.stats.Skipped++
}

func (r *crawlRun) detailFailed(url string, err error) {
	r.stats.FetchErrors++
	r.metrics.IncDetailErrors(string(r.site))
	r.logger.Warn("detail fetch failed, skipping listing",
		"url", url,
		"error", err,
	)
}

func (r *crawlRun) finish(reason domain.HaltReason) (*domain.Store, *domain.CrawlStats, error) {
	r.store.FillScrapeDate(r.today)

	r.stats.HaltReason = reason
	r.stats.Duration = time.Since(r.started)
	r.metrics.AddListings(string(r.site), r.stats.Added)
	if reason != "" {
		r.metrics.IncHalt(string(r.site), string(reason))
	}

	r.logger.Info("crawl completed",
		"mode", r.stats.Mode,
		"frontier", r.stats.Frontier.String(),
		"pages", r.stats.Pages,
		"fetched", r.stats.Fetched,
		"added", r.stats.Added,
		"skipped", r.stats.Skipped,
		"fetch_errors", r.stats.FetchErrors,
		"halt_reason", reason,
		"store_size", r.store.Len(),
		"duration", r.stats.Duration,
	)

	return r.store, r.stats, nil
}
