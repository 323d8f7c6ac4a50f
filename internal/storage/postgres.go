package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createKVTable = `
	CREATE TABLE IF NOT EXISTS kv_items (
		area       TEXT        NOT NULL,
		key        TEXT        NOT NULL,
		value      JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (area, key)
	)`

// PostgresArea stores one named area as rows of the kv_items table.
// Several devices pointing at the same database share the area.
type PostgresArea struct {
	db           *pgxpool.Pool
	area         string
	MaxItemBytes int
}

// ConnectPostgresArea opens a pool and makes sure the table exists.
func ConnectPostgresArea(ctx context.Context, connString, area string) (*PostgresArea, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// PgBouncer in transaction mode does not support prepared statements.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	if _, err := pool.Exec(ctx, createKVTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create kv_items table: %w", err)
	}

	return &PostgresArea{db: pool, area: area}, nil
}

func (p *PostgresArea) Close() {
	if p.db != nil {
		p.db.Close()
	}
}

func (p *PostgresArea) Get(ctx context.Context, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	rows, err := p.db.Query(ctx, "SELECT key, value FROM kv_items WHERE area = $1 AND key = ANY($2)", p.area, keys)
	if err != nil {
		return nil, fmt.Errorf("failed to get keys: %w", err)
	}
	return collectRows(rows, out)
}

func (p *PostgresArea) GetAll(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := p.db.Query(ctx, "SELECT key, value FROM kv_items WHERE area = $1", p.area)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return collectRows(rows, make(map[string]json.RawMessage))
}

// Set upserts every item in one transaction.
func (p *PostgresArea) Set(ctx context.Context, items map[string]json.RawMessage) error {
	if p.MaxItemBytes > 0 {
		for k, v := range items {
			if size := ItemSize(k, v); size > p.MaxItemBytes {
				return fmt.Errorf("set %s (%d bytes): %w", k, size, ErrQuotaBytesPerItem)
			}
		}
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO kv_items (area, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (area, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	for k, v := range items {
		if _, err := tx.Exec(ctx, query, p.area, k, string(v)); err != nil {
			return fmt.Errorf("failed to set %s: %w", k, err)
		}
	}
	return tx.Commit(ctx)
}

func (p *PostgresArea) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := p.db.Exec(ctx, "DELETE FROM kv_items WHERE area = $1 AND key = ANY($2)", p.area, keys)
	if err != nil {
		return fmt.Errorf("failed to remove keys: %w", err)
	}
	return nil
}

func collectRows(rows pgx.Rows, out map[string]json.RawMessage) (map[string]json.RawMessage, error) {
	defer rows.Close()
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read kv rows: %w", err)
	}
	return out, nil
}
