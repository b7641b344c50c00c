// Package store owns the single SQLite handle behind JudDesk and exposes the
// parameterized mutation primitives every domain repository goes through.
// Each successful mutation publishes a change event; that event stream is the
// only signal the backup scheduler consumes.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver
)

// TopicChanged is published after every successful mutation.
const TopicChanged = "store.changed"

// Mutation operation tags carried by change events.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
	OpImport = "import"
)

// Change is the payload of a TopicChanged event.
type Change struct {
	Op        string
	Timestamp time.Time
}

// ErrStoreClosed is returned by every primitive once the store is closed
// (or was never opened). Callers get this single error instead of a
// confusing downstream driver failure.
var ErrStoreClosed = errors.New("store: database is not open")

// Store wraps the SQLite connection. SQLite performs best with a single
// write connection; WAL mode keeps readers concurrent.
type Store struct {
	db     *sql.DB
	bus    *event.Bus
	logger *zap.Logger
}

// Open opens (or creates) the database at path and applies the recommended
// pragmas. Pragma failures are logged and degrade to engine defaults; they
// never prevent startup. Use ":memory:" for an in-memory database.
func Open(path string, bus *event.Bus, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}

	// modernc.org/sqlite requires SQL statements for pragmas, not DSN params.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA cache_size=-20000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			logger.Warn("pragma not applied, using engine default",
				zap.String("pragma", p), zap.Error(err))
		}
	}

	return &Store{db: db, bus: bus, logger: logger}, nil
}

// DB returns the underlying *sql.DB. Writes through this handle do not emit
// change events; it exists for migrations, the snapshot codec, and scheduler
// bookkeeping that must not re-trigger the scheduler.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Query runs a read-only statement and returns the rows.
func (s *Store) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Insert runs an INSERT statement, returns the new row id, and emits an
// insert change event.
func (s *Store) Insert(ctx context.Context, query string, args ...any) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert id: %w", err)
	}
	s.NotifyChange(OpInsert)
	return id, nil
}

// Update runs an UPDATE statement and returns the affected row count.
// A change event is emitted only when at least one row was touched.
func (s *Store) Update(ctx context.Context, query string, args ...any) (int64, error) {
	return s.exec(ctx, OpUpdate, query, args...)
}

// Delete runs a DELETE statement and returns the affected row count.
// A change event is emitted only when at least one row was touched.
func (s *Store) Delete(ctx context.Context, query string, args ...any) (int64, error) {
	return s.exec(ctx, OpDelete, query, args...)
}

func (s *Store) exec(ctx context.Context, op, query string, args ...any) (int64, error) {
	if s == nil || s.db == nil {
		return 0, ErrStoreClosed
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s affected: %w", op, err)
	}
	if n > 0 {
		s.NotifyChange(op)
	}
	return n, nil
}

// NotifyChange publishes a change event asynchronously so scheduling
// decisions never block the mutating caller's return path.
func (s *Store) NotifyChange(op string) {
	if s.bus == nil {
		return
	}
	now := time.Now().UTC()
	s.bus.PublishAsync(context.Background(), event.Event{
		Topic:     TopicChanged,
		Source:    "store",
		Timestamp: now,
		Payload:   Change{Op: op, Timestamp: now},
	})
}

// Tx executes fn within a database transaction. The transaction is
// committed if fn returns nil, rolled back otherwise.
func (s *Store) Tx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if s == nil || s.db == nil {
		return ErrStoreClosed
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err)
		}
		return err
	}

	return tx.Commit()
}

// Close closes the underlying database connection. Subsequent primitive
// calls return ErrStoreClosed.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
