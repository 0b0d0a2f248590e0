package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"car_resale/internal/domain"
)

type CrawlStateStore struct {
	db *sqlx.DB
}

func NewCrawlStateStore(db *sqlx.DB) *CrawlStateStore {
	return &CrawlStateStore{db: db}
}

func (s *CrawlStateStore) Get(ctx context.Context, site string) (*domain.RunState, error) {
	var state domain.RunState
	query := `
		SELECT id, site, last_run_at, last_halt_reason, last_added, total_added, store_size
		FROM crawl_state
		WHERE site = $1`

	err := s.db.GetContext(ctx, &state, query, site)
	if errors.Is(err, sql.ErrNoRows) {
		// A site that never ran starts from zero.
		return &domain.RunState{Site: site}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *CrawlStateStore) Update(ctx context.Context, state *domain.RunState) error {
	query := `
		INSERT INTO crawl_state (site, last_run_at, last_halt_reason, last_added, total_added, store_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (site) DO UPDATE SET
			last_run_at = EXCLUDED.last_run_at,
			last_halt_reason = EXCLUDED.last_halt_reason,
			last_added = EXCLUDED.last_added,
			total_added = EXCLUDED.total_added,
			store_size = EXCLUDED.store_size`

	_, err := GetExecutor(ctx, s.db).ExecContext(ctx, query,
		state.Site,
		state.LastRunAt,
		state.LastHaltReason,
		state.LastAdded,
		state.TotalAdded,
		state.StoreSize,
	)
	return err
}
