package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"car_resale/internal/config"
	"car_resale/internal/dataset"
	"car_resale/internal/domain"
)

// Pipeline runs one daily pass: every site crawl in turn, then reconciliation.
type Pipeline struct {
	crawlers   []Crawler
	schemas    map[domain.Site]dataset.Schema
	blobs      BlobStore
	runState   RunStateStore
	txManager  TransactionManager
	reconciler *ReconcileService
	publisher  Publisher
	datasets   config.DatasetsConfig
	logger     *slog.Logger
	now        func() time.Time
}

// NewPipeline wires a pipeline. A nil reconciler disables reconciliation.
func NewPipeline(
	crawlers []Crawler,
	schemas map[domain.Site]dataset.Schema,
	blobs BlobStore,
	runState RunStateStore,
	txManager TransactionManager,
	reconciler *ReconcileService,
	publisher Publisher,
	datasets config.DatasetsConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		crawlers:   crawlers,
		schemas:    schemas,
		blobs:      blobs,
		runState:   runState,
		txManager:  txManager,
		reconciler: reconciler,
		publisher:  publisher,
		datasets:   datasets,
		logger:     logger,
		now:        time.Now,
	}
}

// Run never stops at a failing site; the joined error reports every failure.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunSummary, error) {
	start := time.Now()
	summary := &domain.RunSummary{}
	var errs []error

	for _, c := range p.crawlers {
		stats, err := p.crawlSite(ctx, c)
		if err != nil {
			p.logger.Error("site crawl failed", "site", c.Site(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.Site(), err))
			continue
		}
		summary.Crawls = append(summary.Crawls, stats)
	}

	if p.reconciler != nil {
		stats, err := p.reconcile(ctx)
		if err != nil {
			p.logger.Error("reconciliation failed", "error", err)
			errs = append(errs, fmt.Errorf("reconcile: %w", err))
		}
		summary.Reconcile = stats
	}

	summary.Duration = time.Since(start)
	p.logger.Info("run completed",
		"sites", len(summary.Crawls),
		"errors", len(errs),
		"duration", summary.Duration,
	)

	return summary, errors.Join(errs...)
}

func (p *Pipeline) schema(site domain.Site) (dataset.Schema, error) {
	schema, ok := p.schemas[site]
	if !ok {
		return dataset.Schema{}, fmt.Errorf("no schema for site %s", site)
	}
	return schema, nil
}

func (p *Pipeline) loadStore(ctx context.Context, site domain.Site) (*domain.Store, error) {
	schema, err := p.schema(site)
	if err != nil {
		return nil, err
	}
	name := p.datasets.Name(string(site))
	t, err := p.blobs.Download(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", name, err)
	}
	return schema.Decode(t), nil
}

func (p *Pipeline) saveStore(ctx context.Context, site domain.Site, store *domain.Store) error {
	schema, err := p.schema(site)
	if err != nil {
		return err
	}
	name := p.datasets.Name(string(site))
	if err := p.blobs.Upload(ctx, schema.Encode(store), name); err != nil {
		return fmt.Errorf("upload %s: %w", name, err)
	}
	return nil
}

func (p *Pipeline) crawlSite(ctx context.Context, c Crawler) (*domain.CrawlStats, error) {
	site := c.Site()

	prev, err := p.loadStore(ctx, site)
	if err != nil {
		return nil, err
	}
	if prev.Empty() {
		p.logger.Info("no previous store, running first crawl", "site", site)
	}

	next, stats, err := c.Crawl(ctx, prev)
	if err != nil {
		return nil, fmt.Errorf("crawl: %w", err)
	}

	if err := p.saveStore(ctx, site, next); err != nil {
		return nil, err
	}

	if err := p.updateRunState(ctx, site, stats, next.Len()); err != nil {
		p.logger.Warn("failed to update run state", "site", site, "error", err)
	}

	p.publishAdded(ctx, site, prev, next)

	return stats, nil
}

func (p *Pipeline) updateRunState(ctx context.Context, site domain.Site, stats *domain.CrawlStats, size int) error {
	state, err := p.runState.Get(ctx, string(site))
	if err != nil {
		return fmt.Errorf("get run state: %w", err)
	}

	state.LastRunAt = p.now()
	state.LastHaltReason = string(stats.HaltReason)
	state.LastAdded = stats.Added
	state.TotalAdded += int64(stats.Added)
	state.StoreSize = size

	return p.runState.Update(ctx, state)
}

func (p *Pipeline) publishAdded(ctx context.Context, site domain.Site, prev, next *domain.Store) {
	published := 0
	for _, l := range next.Listings() {
		if prev.Has(l.Key()) {
			continue
		}
		event := domain.ListingEvent{Action: domain.EventAdded, Site: site, Listing: l}
		if err := p.publisher.Publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish listing",
				"site", site,
				"listing_id", l.ID,
				"error", err,
			)
			continue
		}
		published++
	}
	if published > 0 {
		p.logger.Debug("published new listings", "site", site, "count", published)
	}
}

func (p *Pipeline) reconcile(ctx context.Context) (*domain.ReconcileStats, error) {
	mt, err := p.blobs.Download(ctx, p.datasets.Merged)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", p.datasets.Merged, err)
	}
	merged := dataset.DecodeMerged(mt)
	if len(merged.Rows) == 0 {
		p.logger.Info("merged dataset is empty, skipping reconciliation")
		return &domain.ReconcileStats{}, nil
	}

	stores := make(map[domain.Site]*domain.Store)
	for _, site := range domain.Sites {
		if _, ok := p.schemas[site]; !ok {
			continue
		}
		store, err := p.loadStore(ctx, site)
		if err != nil {
			return nil, err
		}
		stores[site] = store
	}

	stats := p.reconciler.Reconcile(ctx, merged, stores)
	if stats.Sold == 0 {
		return stats, nil
	}

	err = p.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := p.blobs.Upload(ctx, dataset.EncodeMerged(merged), p.datasets.Merged); err != nil {
			return fmt.Errorf("upload %s: %w", p.datasets.Merged, err)
		}
		for _, site := range domain.Sites {
			store, ok := stores[site]
			if !ok || len(stats.SoldURLs[site]) == 0 {
				continue
			}
			if err := p.saveStore(ctx, site, store); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return stats, err
	}

	p.publishSold(ctx, stats, stores)
	return stats, nil
}

func (p *Pipeline) publishSold(ctx context.Context, stats *domain.ReconcileStats, stores map[domain.Site]*domain.Store) {
	for _, site := range domain.Sites {
		for _, url := range stats.SoldURLs[site] {
			listing := domain.Listing{URL: url, Status: domain.StatusSold}
			if store, ok := stores[site]; ok {
				if key, found := store.KeyForURL(url); found {
					listing, _ = store.Get(key)
				}
			}
			event := domain.ListingEvent{Action: domain.EventSold, Site: site, Listing: listing}
			if err := p.publisher.Publish(ctx, event); err != nil {
				p.logger.Warn("failed to publish sold listing", "site", site, "url", url, "error", err)
			}
		}
	}
}
