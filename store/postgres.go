package store

import (
	"context"
	"embed"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate brings the journal schema up to date.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, db.DB, "migrations")
}

// PostgresJournal keeps the latest value of every key in ledger_entries and
// an audit row per batch in ledger_batches.
type PostgresJournal struct {
	db *sqlx.DB
}

func NewPostgresJournal(db *sqlx.DB) *PostgresJournal {
	return &PostgresJournal{db: db}
}

func (j *PostgresJournal) Append(ctx context.Context, b Batch) error {
	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, insertBatchQuery, b.ID, b.Op, int64(b.Seq), len(b.Changes))
	if err != nil {
		return err
	}

	for _, c := range b.Changes {
		if c.Deleted {
			_, err = tx.ExecContext(ctx, deleteEntryQuery, c.Namespace, string(c.Key))
		} else {
			_, err = tx.ExecContext(ctx, upsertEntryQuery, c.Namespace, string(c.Key), string(c.Value), int64(b.Seq))
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", c.Namespace, c.Key, err)
		}
	}

	return tx.Commit()
}

const insertBatchQuery = `
INSERT INTO ledger_batches (id, op, seq, changes, committed_at)
VALUES ($1, $2, $3, $4, now())
`

const deleteEntryQuery = `DELETE FROM ledger_entries WHERE namespace = $1 AND key = $2`

const upsertEntryQuery = `
INSERT INTO ledger_entries (namespace, key, value, updated_seq)
VALUES ($1, $2, $3::jsonb, $4)
ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_seq = EXCLUDED.updated_seq
`

type entry struct {
	Namespace string `db:"namespace"`
	Key       string `db:"key"`
	Value     []byte `db:"value"`
}

func (j *PostgresJournal) Load(ctx context.Context, fn func(Change) error) (uint64, error) {
	var seq int64
	err := j.db.GetContext(ctx, &seq, lastSeqQuery)
	if err != nil {
		return 0, err
	}

	rows, err := j.db.QueryxContext(ctx, loadEntriesQuery)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	for rows.Next() {
		var e entry
		if err := rows.StructScan(&e); err != nil {
			return 0, err
		}
		err = fn(Change{
			Namespace: e.Namespace,
			Key:       []byte(e.Key),
			Value:     e.Value,
		})
		if err != nil {
			return 0, err
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	return uint64(seq), nil
}

const lastSeqQuery = `SELECT COALESCE(MAX(seq), 0) FROM ledger_batches`

const loadEntriesQuery = `SELECT namespace, key, value FROM ledger_entries ORDER BY updated_seq ASC`
