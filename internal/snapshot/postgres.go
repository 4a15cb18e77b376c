package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ShopCatalog/internal/catalog"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

const schema = `
CREATE TABLE IF NOT EXISTS catalog_snapshots (
	id         text PRIMARY KEY,
	created_at timestamptz NOT NULL,
	payload    jsonb NOT NULL
)`

// DBTX is the subset of *pgxpool.Pool the store needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	db  DBTX
	now func() time.Time
}

func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db, now: time.Now}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		return s.db.Ping(ctx)
	})
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, schema)
		return err
	})
}

func (s *PostgresStore) Dump(ctx context.Context, entries []catalog.Entry) (string, error) {
	now := s.now().UTC().Truncate(time.Microsecond)
	data, err := Encode(entries, now)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	id := uuid.NewString()
	err = withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.Exec(ctx, `
			INSERT INTO catalog_snapshots (id, created_at, payload)
			VALUES ($1, $2, $3)
		`, id, now, data)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("insert snapshot: %w", err)
	}
	return id, nil
}

// Restore takes the newest snapshot and deletes it in one transaction.
// A payload that cannot be decoded is left in the table.
func (s *PostgresStore) Restore(ctx context.Context) ([]catalog.Entry, error) {
	var entries []catalog.Entry

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		var (
			id      string
			payload []byte
		)
		err = tx.QueryRow(ctx, `
			SELECT id, payload
			FROM catalog_snapshots
			ORDER BY created_at DESC
			LIMIT 1
			FOR UPDATE
		`).Scan(&id, &payload)
		if errors.Is(err, pgx.ErrNoRows) {
			return catalog.ErrNoSnapshot
		}
		if err != nil {
			return fmt.Errorf("select snapshot: %w", err)
		}

		entries, err = Decode(payload)
		if err != nil {
			return fmt.Errorf("snapshot %s: %w", id, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM catalog_snapshots WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete snapshot %s: %w", id, err)
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
