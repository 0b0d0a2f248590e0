package service

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

// RetryPolicy sleeps BaseSleep*attempt plus up to Jitter between probe attempts.
type RetryPolicy struct {
	Tries     int
	BaseSleep time.Duration
	Jitter    time.Duration
}

// SiteProber is the liveness checker of one site and its pool size.
type SiteProber struct {
	Prober  Prober
	Workers int
}

// ReconcileService re-checks unsold listings and flips the ones confirmed sold.
type ReconcileService struct {
	probers map[domain.Site]SiteProber
	retry   RetryPolicy
	metrics *metrics.Metrics
	logger  *slog.Logger
	jitter  func() float64
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewReconcileService(probers map[domain.Site]SiteProber, retry RetryPolicy, m *metrics.Metrics, logger *slog.Logger) *ReconcileService {
	if retry.Tries < 1 {
		retry.Tries = 1
	}
	return &ReconcileService{
		probers: probers,
		retry:   retry,
		metrics: m,
		logger:  logger.With("component", "reconcile"),
		jitter:  rand.Float64,
		sleep:   sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Reconcile probes every unsold row of merged, grouped by site, and marks
// confirmed sales in merged and in the matching site store. A probe that fails
// on every try leaves the row untouched.
func (s *ReconcileService) Reconcile(ctx context.Context, merged *domain.MergedDataset, stores map[domain.Site]*domain.Store) *domain.ReconcileStats {
	start := time.Now()
	pending, unrouted := merged.PendingBySite()

	stats := &domain.ReconcileStats{
		Sites:    make(map[domain.Site]*domain.SiteReconcileStats),
		Unrouted: unrouted,
		SoldURLs: make(map[domain.Site][]string),
	}
	if unrouted > 0 {
		s.logger.Warn("rows with unknown website skipped", "count", unrouted)
	}

	// mu serializes every write to merged, stores and stats.
	var mu sync.Mutex

	for _, site := range domain.Sites {
		urls := pending[site]
		if len(urls) == 0 {
			continue
		}
		sp, ok := s.probers[site]
		if !ok {
			s.logger.Warn("no prober configured, skipping site", "site", site, "pending", len(urls))
			continue
		}

		siteStats := &domain.SiteReconcileStats{}
		stats.Sites[site] = siteStats
		store := stores[site]

		s.logger.Info("checking listings", "site", site, "pending", len(urls), "workers", sp.Workers)

		var g errgroup.Group
		g.SetLimit(max(sp.Workers, 1))
		for _, url := range urls {
			g.Go(func() error {
				sold, ok := s.probe(ctx, site, sp.Prober, url)

				mu.Lock()
				defer mu.Unlock()

				siteStats.Checked++
				if !ok {
					siteStats.Failed++
					return nil
				}
				if !sold {
					return nil
				}

				changed := merged.MarkSoldByURL(url) > 0
				if store != nil && store.MarkSoldByURL(url) {
					changed = true
				}
				if changed {
					siteStats.Sold++
					stats.Sold++
					stats.SoldURLs[site] = append(stats.SoldURLs[site], url)
					s.metrics.IncSold(string(site))
				}
				return nil
			})
		}
		_ = g.Wait()

		s.logger.Info("site checked",
			"site", site,
			"checked", siteStats.Checked,
			"sold", siteStats.Sold,
			"failed", siteStats.Failed,
		)
	}

	stats.Duration = time.Since(start)
	s.logger.Info("reconciliation completed",
		"sold", stats.Sold,
		"duration", stats.Duration,
	)
	return stats
}

// probe returns the verdict and whether any attempt succeeded.
func (s *ReconcileService) probe(ctx context.Context, site domain.Site, p Prober, url string) (bool, bool) {
	var lastErr error

	for attempt := 1; attempt <= s.retry.Tries; attempt++ {
		sold, err := p.Probe(ctx, url)
		if err == nil {
			return sold, true
		}
		lastErr = err
		if attempt == s.retry.Tries {
			break
		}

		wait := s.retry.BaseSleep*time.Duration(attempt) + time.Duration(s.jitter()*float64(s.retry.Jitter))
		s.logger.Debug("probe failed, retrying",
			"site", site,
			"url", url,
			"attempt", attempt,
			"sleep", wait,
			"error", err,
		)

		if err := s.sleep(ctx, wait); err != nil {
			return false, false
		}
	}

	s.metrics.IncProbeFailures(string(site))
	s.logger.Warn("probe failed on every attempt, status unchanged",
		"site", site,
		"url", url,
		"error", lastErr,
	)
	return false, false
}
