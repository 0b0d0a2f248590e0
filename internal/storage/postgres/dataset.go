package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"car_resale/internal/table"
)

// DatasetStore keeps each named table as one CSV payload.
type DatasetStore struct {
	db *sqlx.DB
}

func NewDatasetStore(db *sqlx.DB) *DatasetStore {
	return &DatasetStore{db: db}
}

// Download returns an empty table for a name that was never uploaded.
func (s *DatasetStore) Download(ctx context.Context, name string) (table.Table, error) {
	var payload []byte
	query := `SELECT payload FROM datasets WHERE name = $1`

	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &payload, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return table.Table{}, nil
	}
	if err != nil {
		return table.Table{}, fmt.Errorf("select dataset %s: %w", name, err)
	}

	t, err := table.Decode(payload)
	if err != nil {
		return table.Table{}, fmt.Errorf("decode dataset %s: %w", name, err)
	}
	return t, nil
}

// Upload replaces the named table.
func (s *DatasetStore) Upload(ctx context.Context, t table.Table, name string) error {
	payload, err := table.Encode(t)
	if err != nil {
		return fmt.Errorf("encode dataset %s: %w", name, err)
	}

	query := `
		INSERT INTO datasets (name, payload, row_count, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET
			payload = EXCLUDED.payload,
			row_count = EXCLUDED.row_count,
			updated_at = EXCLUDED.updated_at`

	if _, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, name, payload, len(t.Rows)); err != nil {
		return fmt.Errorf("upsert dataset %s: %w", name, err)
	}
	return nil
}
