package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"car_resale/internal/config"
	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

// SGCarMartCrawler walks each brand's index. The index carries posted dates, so
// the frontier is checked before any detail page is fetched.
type SGCarMartCrawler struct {
	extractor BrandExtractor
	cfg       config.SGCarMartConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewSGCarMartCrawler(extractor BrandExtractor, cfg config.SGCarMartConfig, m *metrics.Metrics, logger *slog.Logger) *SGCarMartCrawler {
	return &SGCarMartCrawler{
		extractor: extractor,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With("site", domain.SiteSGCarMart),
		now:       time.Now,
	}
}

func (c *SGCarMartCrawler) Site() domain.Site {
	return domain.SiteSGCarMart
}

// cutoff is the day before the last scrape; stores without scrape dates fall
// back to the newest posted date.
func (c *SGCarMartCrawler) cutoff(prev *domain.Store) Frontier {
	if prev.Empty() {
		return Frontier{}
	}
	latest := prev.LatestScrapeDate()
	if !latest.Known() {
		return Frontier{Latest: prev.LatestPostedDate()}
	}
	return Frontier{Latest: latest.AddDays(-c.cfg.FrontierLagDays)}
}

func (c *SGCarMartCrawler) Crawl(ctx context.Context, prev *domain.Store) (*domain.Store, *domain.CrawlStats, error) {
	run := newCrawlRun(domain.SiteSGCarMart, prev, c.now(), c.logger, c.metrics)
	frontier := c.cutoff(run.prev)
	run.stats.Frontier = frontier.Latest
	run.stats.Mode = ModeIncremental
	if frontier.FirstRun() {
		run.stats.Mode = ModeAll
	}

	brands, err := c.extractor.Brands(ctx)
	if err != nil {
		c.logger.Error("failed to fetch brand list", "error", err)
		return run.finish(domain.HaltEndOfIndex)
	}

	c.logger.Info("starting crawl",
		"mode", run.stats.Mode,
		"known", run.prev.Len(),
		"cutoff", frontier.Latest.String(),
		"brands", len(brands),
	)

	visited := make(map[string]struct{})
	run.stats.WalkHalts = make(map[string]domain.HaltReason)
	for _, brand := range brands {
		if c.skipBrand(brand) {
			continue
		}

		w := &walker{
			site:      domain.SiteSGCarMart,
			guard:     c.cfg.Guardrails,
			firstPage: 1,
			listingID: c.extractor.ListingID,
			logger:    c.logger.With("brand", brand),
			metrics:   c.metrics,
		}
		fetch := func(ctx context.Context, page int) ([]domain.IndexItem, error) {
			return c.extractor.FetchBrandIndex(ctx, brand, page)
		}

		pages, reason := w.run(ctx, fetch, c.visit(run, frontier, visited))
		run.stats.Pages += pages
		run.stats.WalkHalts[brand] = reason

		c.logger.Debug("brand walk finished",
			"brand", brand,
			"pages", pages,
			"halt_reason", reason,
		)
		if reason == domain.HaltCanceled {
			break
		}
	}

	return run.finish(combineHalts(run.stats.WalkHalts))
}

// combineHalts reports the reason shared by every brand walk, HaltCanceled if
// any walk was canceled, or HaltMixed otherwise.
func combineHalts(halts map[string]domain.HaltReason) domain.HaltReason {
	var out domain.HaltReason
	for _, r := range halts {
		switch {
		case r == domain.HaltCanceled:
			return domain.HaltCanceled
		case out == "":
			out = r
		case out != r:
			out = domain.HaltMixed
		}
	}
	return out
}

func (c *SGCarMartCrawler) skipBrand(brand string) bool {
	for _, s := range c.cfg.SkipBrands {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(brand)) {
			return true
		}
	}
	return false
}

func (c *SGCarMartCrawler) visit(run *crawlRun, frontier Frontier, visited map[string]struct{}) itemFunc {
	return func(ctx context.Context, item domain.IndexItem, id string) domain.HaltReason {
		if _, dup := visited[id]; dup {
			return ""
		}
		visited[id] = struct{}{}

		if known, ok := run.known(id, item.URL); ok {
			posted := item.PostedDate
			if !posted.Known() {
				posted = known.PostedDate
			}
			if frontier.ForKnown(posted, item.Promoted) == Halt {
				return domain.HaltFrontier
			}
			run.skip()
			return ""
		}

		switch frontier.ForNew(item.PostedDate, item.Promoted) {
		case Skip:
			run.skip()
			return ""
		case Halt:
			c.logger.Debug("reached listing older than cutoff",
				"listing_id", id,
				"posted_date", item.PostedDate.String(),
			)
			return domain.HaltFrontier
		}

		listing, err := c.extractor.FetchDetail(ctx, item.URL)
		if err != nil {
			run.detailFailed(item.URL, err)
			return ""
		}
		run.detail(listing, item, id)
		run.include(listing)
		return ""
	}
}
