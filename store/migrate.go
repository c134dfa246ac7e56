package store

import (
	"context"
	"embed"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rtxbroker/fixcore/logging"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migration is one versioned schema change, loaded from migrations/.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
}

// Migrator applies pending schema migrations against a pgx pool.
// Adapted from the teacher's options-style Migrator for a simulator
// that only ever moves forward: no rollback, no dry-run.
type Migrator struct {
	pool    *pgxpool.Pool
	log     *logging.Logger
	verbose bool
}

// MigratorOption configures a Migrator.
type MigratorOption func(*Migrator)

// WithVerbose enables per-migration log lines.
func WithVerbose(verbose bool) MigratorOption {
	return func(m *Migrator) { m.verbose = verbose }
}

// NewMigrator builds a Migrator backed by pool. log may be nil as long as
// no MigratorOption enables verbose logging.
func NewMigrator(pool *pgxpool.Pool, log *logging.Logger, opts ...MigratorOption) *Migrator {
	m := &Migrator{pool: pool, log: log}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize creates the schema_migrations tracking table.
func (m *Migrator) Initialize(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name    TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("store: initialize schema_migrations: %w", err)
	}
	return nil
}

// Up loads and applies every migration not already recorded in
// schema_migrations, in version order.
func (m *Migrator) Up(ctx context.Context) error {
	migrations, err := m.load()
	if err != nil {
		return err
	}

	applied := make(map[int]bool)
	rows, err := m.pool.Query(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("store: query applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("store: scan applied migration: %w", err)
		}
		applied[v] = true
	}
	rows.Close()

	for _, mig := range migrations {
		if applied[mig.Version] {
			continue
		}
		if m.verbose && m.log != nil {
			m.log.Info("applying migration", logging.Int("version", mig.Version), logging.String("name", mig.Name))
		}
		tx, err := m.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("store: begin migration %d: %w", mig.Version, err)
		}
		if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("store: apply migration %d (%s): %w", mig.Version, mig.Name, err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", mig.Version, mig.Name); err != nil {
			tx.Rollback(ctx)
			return fmt.Errorf("store: record migration %d: %w", mig.Version, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("store: commit migration %d: %w", mig.Version, err)
		}
	}
	return nil
}

func (m *Migrator) load() ([]*Migration, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("store: read migrations dir: %w", err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		mig, err := m.parseFile(entry.Name())
		if err != nil {
			return nil, err
		}
		migrations = append(migrations, mig)
	}
	sort.Slice(migrations, func(i, j int) bool { return migrations[i].Version < migrations[j].Version })
	return migrations, nil
}

func (m *Migrator) parseFile(filename string) (*Migration, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("store: invalid migration filename %q", filename)
	}
	version, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("store: invalid migration version in %q: %w", filename, err)
	}

	content, err := migrationsFS.ReadFile("migrations/" + filename)
	if err != nil {
		return nil, fmt.Errorf("store: read migration %q: %w", filename, err)
	}

	up := string(content)
	if idx := strings.Index(up, "-- DOWN Migration"); idx != -1 {
		up = up[:idx]
	}

	return &Migration{
		Version: version,
		Name:    strings.TrimSuffix(filename, ".sql"),
		UpSQL:   strings.TrimSpace(up),
	}, nil
}
