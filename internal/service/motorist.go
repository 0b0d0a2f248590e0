package service

import (
	"context"
	"log/slog"
	"time"

	"car_resale/internal/config"
	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

const (
	ModeIncremental   = "incremental"
	ModeAvailableOnly = config.FirstRunAvailableOnly
	ModeAll           = config.FirstRunAll
	ModePages         = config.FirstRunPages
)

// MotoristCrawler walks the Motorist index newest first, using spotlight badges
// to keep promoted cards from ending the walk.
type MotoristCrawler struct {
	extractor Extractor
	cfg       config.MotoristConfig
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewMotoristCrawler(extractor Extractor, cfg config.MotoristConfig, m *metrics.Metrics, logger *slog.Logger) *MotoristCrawler {
	return &MotoristCrawler{
		extractor: extractor,
		cfg:       cfg,
		metrics:   m,
		logger:    logger.With("site", domain.SiteMotorist),
		now:       time.Now,
	}
}

func (c *MotoristCrawler) Site() domain.Site {
	return domain.SiteMotorist
}

func (c *MotoristCrawler) Crawl(ctx context.Context, prev *domain.Store) (*domain.Store, *domain.CrawlStats, error) {
	run := newCrawlRun(domain.SiteMotorist, prev, c.now(), c.logger, c.metrics)
	frontier := NewFrontier(run.prev, c.cfg.Defensive)
	run.stats.Frontier = frontier.Latest

	mode, guard := c.plan(run.prev)
	run.stats.Mode = mode

	c.logger.Info("starting crawl",
		"mode", mode,
		"known", run.prev.Len(),
		"frontier", frontier.Latest.String(),
		"defensive", c.cfg.Defensive,
	)

	w := &walker{
		site:      domain.SiteMotorist,
		guard:     guard,
		firstPage: 1,
		listingID: c.extractor.ListingID,
		logger:    c.logger,
		metrics:   c.metrics,
	}
	pages, reason := w.run(ctx, c.extractor.FetchIndex, c.visit(run, frontier, mode == ModeAvailableOnly))
	run.stats.Pages = pages

	return run.finish(reason)
}

// plan picks the walk mode: incremental when a store exists, otherwise the
// configured first-run mode with its guardrails.
func (c *MotoristCrawler) plan(prev *domain.Store) (string, config.Guardrails) {
	if !prev.Empty() {
		return ModeIncremental, c.cfg.Incremental
	}
	switch c.cfg.FirstRun.Mode {
	case ModeAll:
		return ModeAll, c.cfg.FirstRun.All
	case ModePages:
		return ModePages, config.Guardrails{MaxPages: c.cfg.FirstRun.Pages}
	default:
		return ModeAvailableOnly, c.cfg.FirstRun.AvailableOnly
	}
}

func (c *MotoristCrawler) visit(run *crawlRun, frontier Frontier, stopAtSold bool) itemFunc {
	return func(ctx context.Context, item domain.IndexItem, id string) domain.HaltReason {
		if known, ok := run.known(id, item.URL); ok {
			if frontier.ForKnown(known.PostedDate, item.Promoted) == Halt {
				c.logger.Info("reached known listing older than frontier",
					"listing_id", id,
					"posted_date", known.PostedDate.String(),
				)
				return domain.HaltFrontier
			}
			run.skip()
			return ""
		}

		listing, err := c.extractor.FetchDetail(ctx, item.URL)
		if err != nil {
			run.detailFailed(item.URL, err)
			return ""
		}
		run.detail(listing, item, id)

		if stopAtSold && listing.Sold() {
			c.logger.Info("reached sold listing, stopping available-only walk", "listing_id", id)
			return domain.HaltSoldEncountered
		}

		switch frontier.ForNew(listing.PostedDate, item.Promoted) {
		case Include:
			run.include(listing)
		case Skip:
			c.logger.Debug("skipping older spotlight listing", "listing_id", id)
			run.skip()
		case Halt:
			c.logger.Info("reached listing older than frontier",
				"listing_id", id,
				"posted_date", listing.PostedDate.String(),
			)
			return domain.HaltFrontier
		}
		return ""
	}
}
