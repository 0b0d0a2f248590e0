package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"car_resale/internal/domain"
	"car_resale/internal/table"
)

// Extractor reads a paginated index and detail pages. FetchIndex must return
// cards newest first; the frontier rules depend on it.
type Extractor interface {
	ListingID(url string) string
	FetchIndex(ctx context.Context, page int) ([]domain.IndexItem, error)
	FetchDetail(ctx context.Context, url string) (*domain.Listing, error)
}

// BrandExtractor reads an index that is split per brand, newest first within a brand.
type BrandExtractor interface {
	ListingID(url string) string
	Brands(ctx context.Context) ([]string, error)
	FetchBrandIndex(ctx context.Context, brand string, page int) ([]domain.IndexItem, error)
	FetchDetail(ctx context.Context, url string) (*domain.Listing, error)
}

// ScrollExtractor reads an infinite-scroll index. FetchIndex(batch) returns the
// cards rendered after batch loads; repeated cards are expected.
type ScrollExtractor interface {
	ListingID(url string) string
	FetchIndex(ctx context.Context, batch int) ([]domain.IndexItem, error)
	Close() error
}

// Session owns connection state for one worker. A session that failed is discarded.
type Session interface {
	FetchDetail(ctx context.Context, url string) (*domain.Listing, error)
	Close() error
}

// Prober checks whether a listing page is still live. An error means the
// probe could not decide.
type Prober interface {
	Probe(ctx context.Context, url string) (sold bool, err error)
}

// Crawler produces a site's new store from its previous one.
type Crawler interface {
	Site() domain.Site
	Crawl(ctx context.Context, prev *domain.Store) (*domain.Store, *domain.CrawlStats, error)
}

// BlobStore persists tables by dataset name. Download of a missing name yields an empty table.
type BlobStore interface {
	Download(ctx context.Context, name string) (table.Table, error)
	Upload(ctx context.Context, t table.Table, name string) error
}

type RunStateStore interface {
	Get(ctx context.Context, site string) (*domain.RunState, error)
	Update(ctx context.Context, state *domain.RunState) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event domain.ListingEvent) error
	Close() error
}
