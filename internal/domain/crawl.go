package domain

import "time"

// HaltReason records why a crawl walk ended.
type HaltReason string

const (
	HaltFrontier        HaltReason = "frontier"
	HaltEndOfIndex      HaltReason = "end_of_index"
	HaltPageCap         HaltReason = "page_cap"
	HaltNoNewPages      HaltReason = "no_new_pages"
	HaltRepeatedPage    HaltReason = "repeated_page"
	HaltSoldEncountered HaltReason = "sold_encountered"
	HaltKnownListing    HaltReason = "known_listing"
	HaltCanceled        HaltReason = "canceled"
	// HaltMixed summarizes several walks that ended for different reasons.
	HaltMixed           HaltReason = "mixed"
)

type CrawlStats struct {
	Site        Site
	Mode        string
	Frontier    Date
	Pages       int
	Fetched     int
	Added       int
	Skipped     int
	FetchErrors int
	HaltReason  HaltReason
	// WalkHalts holds the halt reason of each walk when a crawl runs several,
	// keyed by walk name.
	WalkHalts   map[string]HaltReason
	Duration    time.Duration
}

type SiteReconcileStats struct {
	Checked int
	Sold    int
	Failed  int
}

type ReconcileStats struct {
	Sites    map[Site]*SiteReconcileStats
	Sold     int
	Unrouted int
	// SoldURLs lists the urls newly confirmed sold, per site.
	SoldURLs map[Site][]string
	Duration time.Duration
}

// RunState is the per-site bookkeeping kept between runs.
type RunState struct {
	ID             int64     `db:"id"`
	Site           string    `db:"site"`
	LastRunAt      time.Time `db:"last_run_at"`
	LastHaltReason string    `db:"last_halt_reason"`
	LastAdded      int       `db:"last_added"`
	TotalAdded     int64     `db:"total_added"`
	StoreSize      int       `db:"store_size"`
}

type RunSummary struct {
	Crawls    []*CrawlStats
	Reconcile *ReconcileStats
	Duration  time.Duration
}

type EventAction string

const (
	EventAdded EventAction = "listing.added"
	EventSold  EventAction = "listing.sold"
)

type ListingEvent struct {
	Action  EventAction
	Site    Site
	Listing Listing
}
