package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sessionkit/cli/internal/session"
)

// Postgres reads documents from tables shaped (id text primary key, data jsonb).
// The table name is the lower-cased collection name.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctxPing, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, err
	}
	return NewPostgres(pool), nil
}

// Get returns the data column of the row with the given id.
func (p *Postgres) Get(ctx context.Context, collection, id string) (*session.Snapshot, error) {
	table := pgx.Identifier{strings.ToLower(collection)}.Sanitize()

	var data map[string]any
	err := p.pool.QueryRow(ctx, "SELECT data FROM "+table+" WHERE id = $1", id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return session.MissingSnapshot(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: read %s/%s: %w", collection, id, err)
	}
	return session.NewSnapshot(id, data), nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
