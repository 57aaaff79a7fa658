// Package store is the relational persistence layer for levels, songs,
// accounts, users and comments. DuckDB is the default embedded engine;
// Postgres is supported through lib/pq.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/gdps-dev/gdps/internal/model"
	"github.com/gdps-dev/gdps/internal/query"
	"github.com/gdps-dev/gdps/internal/store/migrate"
)

// Config selects and tunes the database.
type Config struct {
	Driver string // "duckdb" (default) or "postgres"
	// Path is the DuckDB file. Empty means an in-memory database.
	Path string
	// DSN is the Postgres connection string.
	DSN                  string
	QueryTimeout         time.Duration
	MaxConcurrentQueries int
	Logger               zerolog.Logger
}

// Store manages the database connection and provides query methods.
type Store struct {
	db           *sql.DB
	mu           sync.RWMutex
	dbPath       string
	dialect      query.Dialect
	sem          *semaphore.Weighted
	log          zerolog.Logger
	QueryTimeout time.Duration
}

// NewStore opens the configured database and applies pending migrations.
func NewStore(cfg Config) (*Store, error) {
	dialect, ok := query.ParseDialect(cfg.Driver)
	if !ok {
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Driver)
	}

	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case query.Postgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("store: postgres requires a dsn")
		}
		db, err = sql.Open("postgres", cfg.DSN)
	default:
		if cfg.Path != "" {
			if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
				return nil, err
			}
		}
		db, err = sql.Open("duckdb", cfg.Path)
	}
	if err != nil {
		return nil, err
	}

	runner := migrate.NewRunner(db, migrate.WithRebind(dialect.Rebind), migrate.WithLogger(cfg.Logger))
	if err := runner.Run(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	schema, err := runner.Status(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema status: %w", err)
	}

	qt := model.DefaultQueryTimeout
	if cfg.QueryTimeout > 0 {
		qt = cfg.QueryTimeout
	}

	s := &Store{
		db:           db,
		dbPath:       cfg.Path,
		dialect:      dialect,
		log:          cfg.Logger.With().Str("component", "store").Logger(),
		QueryTimeout: qt,
	}
	if dialect == query.Postgres {
		s.dbPath = ""
	}
	s.SetMaxConcurrentQueries(cfg.MaxConcurrentQueries)
	s.log.Info().Str("driver", dialect.String()).Int("schema_version", schema.Current).Msg("store ready")
	return s, nil
}

// SetMaxConcurrentQueries caps concurrent read queries. n <= 0 removes the cap.
// Call before the store is shared.
func (s *Store) SetMaxConcurrentQueries(n int) {
	if n <= 0 {
		s.sem = nil
		return
	}
	s.sem = semaphore.NewWeighted(int64(n))
}

// Dialect is the placeholder dialect of the open database.
func (s *Store) Dialect() query.Dialect { return s.dialect }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var v int
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("schema version: %w", err)
	}
	return v, nil
}

// queryCtx bounds ctx with the store's query timeout.
func (s *Store) queryCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.QueryTimeout)
}

// acquireRead takes a read slot and the read lock. The returned func releases both.
func (s *Store) acquireRead(ctx context.Context) (func(), error) {
	if s.sem != nil {
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	}
	s.mu.RLock()
	return func() {
		s.mu.RUnlock()
		if s.sem != nil {
			s.sem.Release(1)
		}
	}, nil
}

func (s *Store) rebind(q string) string {
	return s.dialect.Rebind(q)
}
