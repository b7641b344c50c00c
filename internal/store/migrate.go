package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Migration is one versioned, idempotent schema step. Versions are applied
// in ascending order and recorded in schema_migrations; a step runs at most
// once per database.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

var migrateMu sync.Mutex // Serialize migrations across concurrent openers

// Migrate applies all pending migrations. Already-applied versions (tracked
// in schema_migrations) are skipped, so running it twice executes no DDL the
// second time. Steps are additive only: columns and indexes are created,
// never dropped or renamed.
func (s *Store) Migrate(ctx context.Context, migrations []Migration) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	if err := s.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	migrateMu.Lock()
	defer migrateMu.Unlock()

	for _, m := range migrations {
		applied, err := s.isMigrationApplied(ctx, m.Version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}

		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}
		s.logger.Info("migration applied",
			zap.Int("version", m.Version),
			zap.String("description", m.Description))
	}

	return nil
}

// AppliedVersions returns the set of migration versions recorded in
// schema_migrations, for tests and diagnostics.
func (s *Store) AppliedVersions(ctx context.Context) ([]int, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan migration row: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (s *Store) ensureMigrationsTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT     NOT NULL,
			applied_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return fmt.Errorf("ensure schema_migrations: %w", err)
	}
	return nil
}

func (s *Store) isMigrationApplied(ctx context.Context, version int) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM schema_migrations WHERE version = ?", version,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migration %d: %w", version, err)
	}
	return count > 0, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) error {
	return s.Tx(ctx, func(tx *sql.Tx) error {
		if err := m.Up(tx); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		)
		return err
	})
}
