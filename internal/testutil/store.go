package testutil

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/event"
	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
)

// NewStore creates an in-memory migrated store for testing, publishing
// change events on bus (which may be nil). The store is closed when the
// test completes.
func NewStore(t *testing.T, bus *event.Bus) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", bus, zap.NewNop())
	if err != nil {
		t.Fatalf("testutil.NewStore: %v", err)
	}
	if err := s.Migrate(context.Background(), store.Schema()); err != nil {
		t.Fatalf("testutil.NewStore migrate: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
