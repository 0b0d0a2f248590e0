package service

import (
	"context"
	"log/slog"
	"strings"

	"car_resale/internal/config"
	"car_resale/internal/domain"
	"car_resale/internal/metrics"
)

type pageFunc func(ctx context.Context, page int) ([]domain.IndexItem, error)

// itemFunc handles one card not seen earlier in the walk. A non-empty reason halts the walk.
type itemFunc func(ctx context.Context, item domain.IndexItem, id string) domain.HaltReason

type indexedItem struct {
	item domain.IndexItem
	id   string
}

// walkState is the cursor of a single walk; it is never shared between walks.
type walkState struct {
	pages            int
	seen             map[string]struct{}
	consecutiveNoNew int
	repeated         int
	lastFingerprint  string
}

func newWalkState() *walkState {
	return &walkState{seen: make(map[string]struct{})}
}

// observe records a fetched page and returns its cards not seen before, in page order.
func (s *walkState) observe(items []indexedItem) []indexedItem {
	s.pages++

	ids := make([]string, 0, len(items))
	fresh := make([]indexedItem, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.id)
		if _, ok := s.seen[it.id]; ok {
			continue
		}
		s.seen[it.id] = struct{}{}
		fresh = append(fresh, it)
	}

	fp := strings.Join(ids, "\n")
	if s.pages > 1 && fp == s.lastFingerprint {
		s.repeated++
	} else {
		s.repeated = 0
	}
	s.lastFingerprint = fp

	if len(fresh) == 0 {
		s.consecutiveNoNew++
	} else {
		s.consecutiveNoNew = 0
	}
	return fresh
}

// guard reports the guardrail tripped by the last observed page, if any.
func (s *walkState) guard(g config.Guardrails) domain.HaltReason {
	if g.MaxConsecutiveNoNew > 0 && s.consecutiveNoNew >= g.MaxConsecutiveNoNew {
		return domain.HaltNoNewPages
	}
	if g.MaxRepeatedPages > 0 && s.repeated >= g.MaxRepeatedPages {
		return domain.HaltRepeatedPage
	}
	return ""
}

// walker drives one walk over an index from its first page.
type walker struct {
	site      domain.Site
	guard     config.Guardrails
	firstPage int
	listingID func(url string) string
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// run walks pages until onItem halts, a guardrail trips or the index ends.
// A failed index fetch ends the walk like an exhausted index.
func (w *walker) run(ctx context.Context, fetch pageFunc, onItem itemFunc) (int, domain.HaltReason) {
	state := newWalkState()

	for page := w.firstPage; ; page++ {
		if ctx.Err() != nil {
			return state.pages, domain.HaltCanceled
		}
		if w.guard.MaxPages > 0 && state.pages >= w.guard.MaxPages {
			return state.pages, domain.HaltPageCap
		}

		items, err := fetch(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return state.pages, domain.HaltCanceled
			}
			w.logger.Warn("index fetch failed, treating as end of index",
				"page", page,
				"error", err,
			)
			return state.pages, domain.HaltEndOfIndex
		}
		if len(items) == 0 {
			w.logger.Debug("index page empty", "page", page)
			return state.pages, domain.HaltEndOfIndex
		}

		fresh := state.observe(w.identify(items))
		w.metrics.IncPages(string(w.site))

		w.logger.Debug("index page scanned",
			"page", page,
			"cards", len(items),
			"unseen", len(fresh),
		)

		if reason := state.guard(w.guard); reason != "" {
			return state.pages, reason
		}

		for _, it := range fresh {
			if reason := onItem(ctx, it.item, it.id); reason != "" {
				return state.pages, reason
			}
		}
	}
}

func (w *walker) identify(items []domain.IndexItem) []indexedItem {
	out := make([]indexedItem, 0, len(items))
	for _, it := range items {
		id := ""
		if w.listingID != nil {
			id = w.listingID(it.URL)
		}
		if id == "" {
			id = strings.TrimSpace(it.URL)
		}
		if id == "" {
			continue
		}
		out = append(out, indexedItem{item: it, id: id})
	}
	return out
}
