// Package commerce answers product and order questions from the shop's
// PostgreSQL database.
package commerce

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/zhouzirui/shopdesk/backend/internal/config"
)

// ErrNotFound means a lookup matched no row visible to the caller.
var ErrNotFound = errors.New("record not found")

// Store runs the data-access queries behind the tool catalogue.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig, log zerolog.Logger) (*Store, error) {
	if !cfg.Enabled() {
		return nil, errors.New("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return New(db, log), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{db: db, log: log.With().Str("component", "commerce").Logger()}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func like(term string) string {
	return "%" + term + "%"
}

// scalar runs a single-column query. A missing row or a NULL value yields
// ErrNotFound.
func scalar[T any](ctx context.Context, db *sql.DB, query string, args ...any) (T, error) {
	var (
		zero  T
		value sql.Null[T]
	)
	if err := db.QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	if !value.Valid {
		return zero, ErrNotFound
	}
	return value.V, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
