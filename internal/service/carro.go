package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"car_resale/internal/config"
	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

// CarroCrawler scrolls the Carro feed until it meets a listing the previous
// store already has, then scrapes the collected detail pages with a pool of
// independent sessions.
type CarroCrawler struct {
	index      ScrollExtractor
	newSession NewSessionFunc
	cfg        config.CarroConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time
}

func NewCarroCrawler(index ScrollExtractor, newSession NewSessionFunc, cfg config.CarroConfig, m *metrics.Metrics, logger *slog.Logger) *CarroCrawler {
	return &CarroCrawler{
		index:      index,
		newSession: newSession,
		cfg:        cfg,
		metrics:    m,
		logger:     logger.With("site", domain.SiteCarro),
		now:        time.Now,
	}
}

func (c *CarroCrawler) Site() domain.Site {
	return domain.SiteCarro
}

func (c *CarroCrawler) Crawl(ctx context.Context, prev *domain.Store) (*domain.Store, *domain.CrawlStats, error) {
	run := newCrawlRun(domain.SiteCarro, prev, c.now(), c.logger, c.metrics)
	run.stats.Mode = ModeIncremental
	if run.prev.Empty() {
		run.stats.Mode = ModeAll
	}

	pending, pages, reason := c.collect(ctx, run)
	run.stats.Pages = pages

	c.logger.Info("collected new links",
		"links", len(pending),
		"batches", pages,
		"halt_reason", reason,
	)

	for i, listing := range c.scrape(ctx, run, pending) {
		if listing == nil {
			continue
		}
		run.detail(listing, pending[i].item, pending[i].id)
		run.include(listing)
	}

	return run.finish(reason)
}

// collect walks the scroll feed in order and stops at the first known url.
func (c *CarroCrawler) collect(ctx context.Context, run *crawlRun) ([]indexedItem, int, domain.HaltReason) {
	defer func() {
		if err := c.index.Close(); err != nil {
			c.logger.Warn("failed to close index feed", "error", err)
		}
	}()

	var pending []indexedItem
	w := &walker{
		site:      domain.SiteCarro,
		guard:     c.cfg.Guardrails,
		firstPage: 0,
		listingID: c.index.ListingID,
		logger:    c.logger,
		metrics:   c.metrics,
	}
	pages, reason := w.run(ctx, c.index.FetchIndex, func(ctx context.Context, item domain.IndexItem, id string) domain.HaltReason {
		if _, ok := run.known(id, item.URL); ok {
			c.logger.Info("reached known listing", "url", item.URL)
			return domain.HaltKnownListing
		}
		pending = append(pending, indexedItem{item: item, id: id})
		return ""
	})
	return pending, pages, reason
}

// scrape fetches details in contiguous chunks, one session per chunk. The
// result slice is aligned with pending; failed items are nil.
func (c *CarroCrawler) scrape(ctx context.Context, run *crawlRun, pending []indexedItem) []*domain.Listing {
	results := make([]*domain.Listing, len(pending))
	errs := make([]error, len(pending))

	var wg sync.WaitGroup
	for _, bounds := range chunkBounds(len(pending), c.cfg.Workers) {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			retrier := newSessionRetrier(c.newSession, c.cfg.DetailAttempts, c.cfg.ResetBackoff, c.logger)
			defer retrier.Close()

			for i := start; i < end; i++ {
				if ctx.Err() != nil {
					errs[i] = ctx.Err()
					continue
				}
				results[i], errs[i] = retrier.Fetch(ctx, pending[i].item.URL)
			}
		}(bounds[0], bounds[1])
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			run.detailFailed(pending[i].item.URL, err)
			results[i] = nil
		}
	}
	return results
}

// chunkBounds splits n items into at most parts contiguous ranges whose sizes
// differ by at most one.
func chunkBounds(n, parts int) [][2]int {
	if n == 0 {
		return nil
	}
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	size, extra := n/parts, n%parts
	bounds := make([][2]int, 0, parts)
	start := 0
	for i := 0; i < parts; i++ {
		end := start + size
		if i < extra {
			end++
		}
		bounds = append(bounds, [2]int{start, end})
		start = end
	}
	return bounds
}
