package store

import (
	"sync"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
)

// Lazy opens the store on first use. Concurrent first callers are safe:
// exactly one open runs and every caller receives its result. A failed open
// is not cached — the next call retries.
type Lazy struct {
	path   string
	bus    *event.Bus
	logger *zap.Logger

	mu    sync.Mutex
	store *Store
}

// NewLazy returns a Lazy opener for the database at path.
func NewLazy(path string, bus *event.Bus, logger *zap.Logger) *Lazy {
	return &Lazy{path: path, bus: bus, logger: logger}
}

// Get returns the shared store, opening it on first call.
func (l *Lazy) Get() (*Store, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store != nil {
		return l.store, nil
	}
	s, err := Open(l.path, l.bus, l.logger)
	if err != nil {
		return nil, err
	}
	l.store = s
	return s, nil
}

// Close closes the store if it was opened and resets the opener.
func (l *Lazy) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.store == nil {
		return nil
	}
	err := l.store.Close()
	l.store = nil
	return err
}
