package results

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const schema = `
CREATE TABLE IF NOT EXISTS race_results (
    id          UUID PRIMARY KEY,
    room        TEXT NOT NULL,
    text_id     INTEGER NOT NULL,
    reason      TEXT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    finished_at TIMESTAMPTZ NOT NULL,
    standings   JSONB
);

CREATE TABLE IF NOT EXISTS race_standings (
    race_id     UUID NOT NULL REFERENCES race_results (id) ON DELETE CASCADE,
    place       INTEGER NOT NULL,
    username    TEXT NOT NULL,
    progress    INTEGER NOT NULL,
    finished_at TIMESTAMPTZ,
    PRIMARY KEY (race_id, place)
);

CREATE INDEX IF NOT EXISTS race_standings_username_idx ON race_standings (username);
`

func (q *Queries) CreateSchema(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, schema)
	return err
}

const insertRaceResult = `
INSERT INTO race_results (id, room, text_id, reason, started_at, finished_at, standings)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING
`

type InsertRaceResultParams struct {
	ID         uuid.UUID
	Room       string
	TextID     int32
	Reason     string
	StartedAt  time.Time
	FinishedAt time.Time
	Standings  pqtype.NullRawMessage
}

func (q *Queries) InsertRaceResult(ctx context.Context, arg InsertRaceResultParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, insertRaceResult,
		arg.ID,
		arg.Room,
		arg.TextID,
		arg.Reason,
		arg.StartedAt,
		arg.FinishedAt,
		arg.Standings,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const insertStanding = `
INSERT INTO race_standings (race_id, place, username, progress, finished_at)
VALUES ($1, $2, $3, $4, $5)
`

type InsertStandingParams struct {
	RaceID     uuid.UUID
	Place      int32
	Username   string
	Progress   int32
	FinishedAt sql.NullTime
}

func (q *Queries) InsertStanding(ctx context.Context, arg InsertStandingParams) error {
	_, err := q.db.ExecContext(ctx, insertStanding,
		arg.RaceID,
		arg.Place,
		arg.Username,
		arg.Progress,
		arg.FinishedAt,
	)
	return err
}
