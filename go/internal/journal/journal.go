// Package journal keeps an append-only audit trail of accepted buff commands.
// The trail is never read back into the controller; buffs do not survive a
// restart.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/buffring/go/internal/command"
	"github.com/mcdev12/buffring/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

const schema = `
CREATE TABLE IF NOT EXISTS buff_command_journal (
    id          UUID PRIMARY KEY,
    source      TEXT        NOT NULL,
    action      TEXT        NOT NULL,
    buff        TEXT        NOT NULL,
    duration    INTEGER     NOT NULL DEFAULT 0,
    received_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS buff_command_journal_received_at_idx
    ON buff_command_journal (received_at DESC);
`

const insertEntry = `
INSERT INTO buff_command_journal (id, source, action, buff, duration, received_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

const selectRecent = `
SELECT id, source, action, buff, duration, received_at
FROM buff_command_journal
ORDER BY received_at DESC
LIMIT $1
`

// Entry is one journalled command.
type Entry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Source     string    `db:"source" json:"source"`
	Action     string    `db:"action" json:"action"`
	Buff       string    `db:"buff" json:"buff"`
	Duration   int32     `db:"duration" json:"duration"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}

// DB is the subset of *pgxpool.Pool the journal uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresJournal writes commands to buff_command_journal.
type PostgresJournal struct {
	db  DB
	now func() time.Time
}

// NewPostgresJournal wraps an existing connection.
func NewPostgresJournal(db DB) *PostgresJournal {
	return &PostgresJournal{db: db, now: time.Now}
}

// Open connects a pool using cfg and makes sure the table exists. The caller
// closes the returned pool.
func Open(ctx context.Context, cfg dbconfig.Config) (*PostgresJournal, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connect journal database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping journal database: %w", err)
	}

	j := NewPostgresJournal(pool)
	if err := j.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info().
		Str("host", cfg.Host).
		Str("database", cfg.Database).
		Msg("command journal ready")
	return j, pool, nil
}

// EnsureSchema creates the journal table if needed.
func (j *PostgresJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create journal schema: %w", err)
	}
	return nil
}

// Record implements command.Recorder.
func (j *PostgresJournal) Record(ctx context.Context, source string, cmd command.Command) error {
	tag, err := j.db.Exec(ctx, insertEntry,
		uuid.New(),
		source,
		string(cmd.Action),
		cmd.Buff,
		int32(cmd.Duration),
		j.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert %s command for %q: %w", cmd.Action, cmd.Buff, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert %s command for %q: %d rows affected", cmd.Action, cmd.Buff, tag.RowsAffected())
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *PostgresJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[Entry])
	if err != nil {
		return nil, fmt.Errorf("scan journal: %w", err)
	}
	return entries, nil
}

// NoopJournal discards every command. It is used when the journal is disabled.
type NoopJournal struct{}

// Record implements command.Recorder.
func (NoopJournal) Record(context.Context, string, command.Command) error { return nil }
