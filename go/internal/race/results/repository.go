package results

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/mcdev12/typerace/go/internal/models"
	"github.com/mcdev12/typerace/go/internal/sqlutil"
	"github.com/rs/zerolog/log"
	"github.com/sqlc-dev/pqtype"
)

// Repository persists race results to Postgres.
type Repository struct {
	db      *sql.DB
	queries *Queries
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		queries: New(db),
	}
}

// Migrate creates the results tables if they are missing.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.queries.CreateSchema(ctx); err != nil {
		return fmt.Errorf("failed to create results schema: %w", err)
	}
	return nil
}

func (r *Repository) Name() string { return "postgres" }

// Save writes the race and its standings in one transaction. Saving the same
// race twice is a no-op.
func (r *Repository) Save(ctx context.Context, result models.RaceResult) error {
	standings, err := json.Marshal(result.Standings)
	if err != nil {
		return fmt.Errorf("failed to marshal standings: %w", err)
	}

	err = sqlutil.Run(ctx, r.db, r.queries.WithTx, func(q *Queries) error {
		inserted, err := q.InsertRaceResult(ctx, InsertRaceResultParams{
			ID:         result.ID,
			Room:       result.Room,
			TextID:     int32(result.TextID),
			Reason:     string(result.Reason),
			StartedAt:  result.StartedAt,
			FinishedAt: result.FinishedAt,
			Standings:  pqtype.NullRawMessage{RawMessage: standings, Valid: len(result.Standings) > 0},
		})
		if err != nil {
			return fmt.Errorf("failed to insert race result: %w", err)
		}
		if inserted == 0 {
			log.Debug().Str("race_id", result.ID.String()).Msg("race result already stored")
			return nil
		}

		for _, s := range result.Standings {
			err := q.InsertStanding(ctx, InsertStandingParams{
				RaceID:     result.ID,
				Place:      int32(s.Place),
				Username:   s.Username,
				Progress:   int32(s.Progress),
				FinishedAt: sqlutil.ToNullTime(s.FinishedAt),
			})
			if err != nil {
				return fmt.Errorf("failed to insert standing for %s: %w", s.Username, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Str("race_id", result.ID.String()).
		Str("room", result.Room).
		Int("standings", len(result.Standings)).
		Msg("stored race result")
	return nil
}
