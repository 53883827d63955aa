package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// migrationLockKey serializes schema changes across processes.
const migrationLockKey int64 = 0x6d696e7574657301

// Migration is one embedded schema change.
type Migration struct {
	Version string
	Name    string
}

// MigrationResult lists what one Init run did.
type MigrationResult struct {
	Applied []string
	Skipped []string
}

// MigrationStatusEntry describes a single migration in a status report.
type MigrationStatusEntry struct {
	Version   string
	Name      string
	AppliedAt *time.Time // nil for pending
}

// MigrationStatus splits known migrations into applied and pending.
type MigrationStatus struct {
	Applied []MigrationStatusEntry
	Pending []MigrationStatusEntry
}

// listMigrations returns the embedded migrations sorted by version.
func listMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, "migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(name), ".sql") {
			continue
		}
		migrations = append(migrations, Migration{
			Version: strings.TrimSuffix(name, path.Ext(name)),
			Name:    name,
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func (s *implStore) Init(ctx context.Context) (*MigrationResult, error) {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("create migrations table: %w", err)
	}

	migrations, err := listMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}

	result := &MigrationResult{}
	for _, m := range migrations {
		applied, err := s.applyMigration(ctx, m)
		if err != nil {
			return result, fmt.Errorf("migration %s failed: %w", m.Version, err)
		}
		if applied {
			s.logger.Info(ctx, "Applied migration %s", m.Version)
			result.Applied = append(result.Applied, m.Version)
		} else {
			result.Skipped = append(result.Skipped, m.Version)
		}
	}

	return result, nil
}

// ensureMigrationsTable runs under the migration lock; concurrent
// CREATE TABLE IF NOT EXISTS can otherwise collide on the catalog.
func (s *implStore) ensureMigrationsTable(ctx context.Context) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			CREATE TABLE IF NOT EXISTS schema_migrations (
				version    TEXT PRIMARY KEY,
				applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)
		`)
		return err
	})
}

// applyMigration runs one migration in its own transaction. The applied
// check happens after the lock is held, so a migration runs at most once.
func (s *implStore) applyMigration(ctx context.Context, m Migration) (bool, error) {
	content, err := migrationFiles.ReadFile(path.Join("migrations", m.Name))
	if err != nil {
		return false, fmt.Errorf("read file: %w", err)
	}
	sql := string(content)
	if strings.TrimSpace(sql) == "" {
		return false, fmt.Errorf("migration file is empty")
	}

	applied := false
	err = pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}

		var exists bool
		if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.Version).Scan(&exists); err != nil {
			return fmt.Errorf("check version: %w", err)
		}
		if exists {
			return nil
		}

		if _, err := tx.Exec(ctx, sql); err != nil {
			return fmt.Errorf("execute SQL: %w", err)
		}
		if _, err := tx.Exec(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.Version); err != nil {
			return fmt.Errorf("record migration: %w", err)
		}
		applied = true
		return nil
	})

	return applied, err
}

func (s *implStore) MigrationStatus(ctx context.Context) (*MigrationStatus, error) {
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return nil, fmt.Errorf("ensure migrations table: %w", err)
	}

	migrations, err := listMigrations(migrationFiles)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, "SELECT version, applied_at FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("query applied migrations: %w", err)
	}
	appliedAt := make(map[string]time.Time)
	for rows.Next() {
		var version string
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			rows.Close()
			return nil, err
		}
		appliedAt[version] = at
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	status := &MigrationStatus{
		Applied: []MigrationStatusEntry{},
		Pending: []MigrationStatusEntry{},
	}
	for _, m := range migrations {
		if at, ok := appliedAt[m.Version]; ok {
			status.Applied = append(status.Applied, MigrationStatusEntry{Version: m.Version, Name: m.Name, AppliedAt: &at})
		} else {
			status.Pending = append(status.Pending, MigrationStatusEntry{Version: m.Version, Name: m.Name})
		}
	}

	return status, nil
}
