// Package migrate applies the embedded, versioned schema migrations.
//
// Files are named NNN_description.sql. Every file is written to run
// unchanged on DuckDB and Postgres.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var embedded embed.FS

const bookkeeping = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       VARCHAR NOT NULL,
	applied_at TIMESTAMP DEFAULT current_timestamp
)`

// Runner brings a database up to the latest schema version.
type Runner struct {
	db     *sql.DB
	rebind func(string) string
	log    zerolog.Logger
	files  fs.FS
}

// Option configures a Runner.
type Option func(*Runner)

// WithRebind sets the placeholder rewrite for the runner's own
// bookkeeping statements.
func WithRebind(fn func(string) string) Option {
	return func(r *Runner) {
		if fn != nil {
			r.rebind = fn
		}
	}
}

// WithLogger reports each applied migration.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l.With().Str("component", "migrate").Logger() }
}

// NewRunner creates a migration runner for db.
func NewRunner(db *sql.DB, opts ...Option) *Runner {
	r := &Runner{
		db:     db,
		rebind: func(q string) string { return q },
		log:    zerolog.Nop(),
		files:  embedded,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Status describes the schema state of a database.
type Status struct {
	Current int
	Latest  int
	Pending []string
}

type migration struct {
	version int
	name    string
	sql     string
}

func (r *Runner) load() ([]migration, error) {
	entries, err := fs.ReadDir(r.files, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migs []migration
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		prefix, _, ok := strings.Cut(e.Name(), "_")
		if !ok {
			continue
		}
		ver, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", e.Name(), err)
		}
		data, err := fs.ReadFile(r.files, "migrations/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("migration %s: %w", e.Name(), err)
		}
		migs = append(migs, migration{version: ver, name: e.Name(), sql: string(data)})
	}

	slices.SortFunc(migs, func(a, b migration) int { return a.version - b.version })
	for i := 1; i < len(migs); i++ {
		if migs[i].version == migs[i-1].version {
			return nil, fmt.Errorf("duplicate migration version %d (%s, %s)", migs[i].version, migs[i-1].name, migs[i].name)
		}
	}
	return migs, nil
}

func (r *Runner) current(ctx context.Context) (int, error) {
	if _, err := r.db.ExecContext(ctx, bookkeeping); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

// Run applies every pending migration in version order, one transaction each.
func (r *Runner) Run(ctx context.Context) error {
	migs, err := r.load()
	if err != nil {
		return err
	}
	current, err := r.current(ctx)
	if err != nil {
		return err
	}

	record := r.rebind("INSERT INTO schema_migrations (version, name) VALUES (?, ?)")
	for _, m := range migs {
		if m.version <= current {
			continue
		}
		if err := r.apply(ctx, m, record); err != nil {
			return err
		}
		r.log.Info().Int("version", m.version).Str("name", m.name).Msg("migration applied")
	}
	return nil
}

func (r *Runner) apply(ctx context.Context, m migration, record string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("migration %s: begin: %w", m.name, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sql); err != nil {
		return fmt.Errorf("migration %s: %w", m.name, err)
	}
	if _, err := tx.ExecContext(ctx, record, m.version, m.name); err != nil {
		return fmt.Errorf("migration %s: record: %w", m.name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %s: commit: %w", m.name, err)
	}
	return nil
}

// Status reports the applied version and the migrations still to run.
func (r *Runner) Status(ctx context.Context) (Status, error) {
	migs, err := r.load()
	if err != nil {
		return Status{}, err
	}
	current, err := r.current(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{Current: current}
	for _, m := range migs {
		st.Latest = max(st.Latest, m.version)
		if m.version > current {
			st.Pending = append(st.Pending, m.name)
		}
	}
	return st, nil
}
