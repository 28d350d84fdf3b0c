package corpus

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const selectTexts = `SELECT body FROM texts ORDER BY id`

// LoadPostgres reads the texts table into a Store.
func LoadPostgres(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	rows, err := pool.Query(ctx, selectTexts)
	if err != nil {
		return nil, fmt.Errorf("failed to query texts: %w", err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to read texts: %w", err)
	}

	store, err := NewStore(bodies)
	if err != nil {
		return nil, err
	}
	log.Info().Int("texts", store.Count()).Msg("loaded text corpus from postgres")
	return store, nil
}
