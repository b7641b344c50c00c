package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
	"github.com/thiagovelsa/JudDesk-sub000/internal/testutil"
)

// waitForEvents polls the recording bus until want events arrived or the
// deadline passed. Change events are published asynchronously.
func waitForEvents(t *testing.T, bus *testutil.RecordingBus, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(bus.Events()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d events, got %d", want, len(bus.Events()))
}

func TestOpen_AppliesForeignKeys(t *testing.T) {
	s := testutil.NewStore(t, nil)

	var fk int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("read pragma: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d, want 1", fk)
	}
}

func TestInsert_EmitsChangeEvent(t *testing.T) {
	bus := testutil.NewRecordingBus()
	s := testutil.NewStore(t, bus.Bus)

	id, err := s.Insert(context.Background(),
		`INSERT INTO clients (name, created_at) VALUES (?, ?)`,
		"Acme Corp", testutil.Now)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id <= 0 {
		t.Errorf("Insert id = %d, want > 0", id)
	}

	waitForEvents(t, bus, 1)
	e := bus.Events()[0]
	if e.Topic != store.TopicChanged {
		t.Errorf("Topic = %q, want %q", e.Topic, store.TopicChanged)
	}
	change, ok := e.Payload.(store.Change)
	if !ok {
		t.Fatalf("Payload type = %T, want store.Change", e.Payload)
	}
	if change.Op != store.OpInsert {
		t.Errorf("Op = %q, want %q", change.Op, store.OpInsert)
	}
	if change.Timestamp.IsZero() {
		t.Error("Timestamp is zero")
	}
}

func TestUpdateDelete_EmitOnlyWhenRowsAffected(t *testing.T) {
	bus := testutil.NewRecordingBus()
	s := testutil.NewStore(t, bus.Bus)
	ctx := context.Background()

	testutil.SeedClient(t, s, "Acme Corp")
	waitForEvents(t, bus, 1)
	bus.Reset()

	n, err := s.Update(ctx, `UPDATE clients SET name = ? WHERE name = ?`,
		"Acme LLC", "Acme Corp")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 1 {
		t.Errorf("Update affected = %d, want 1", n)
	}
	waitForEvents(t, bus, 1)
	bus.Reset()

	// No matching row: no event.
	n, err = s.Update(ctx, `UPDATE clients SET name = ? WHERE name = ?`,
		"x", "does-not-exist")
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if n != 0 {
		t.Errorf("Update affected = %d, want 0", n)
	}
	time.Sleep(50 * time.Millisecond)
	if got := len(bus.Events()); got != 0 {
		t.Errorf("events after no-op update = %d, want 0", got)
	}

	n, err = s.Delete(ctx, `DELETE FROM clients WHERE name = ?`, "Acme LLC")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if n != 1 {
		t.Errorf("Delete affected = %d, want 1", n)
	}
	waitForEvents(t, bus, 1)
	change := bus.Events()[0].Payload.(store.Change)
	if change.Op != store.OpDelete {
		t.Errorf("Op = %q, want %q", change.Op, store.OpDelete)
	}
}

func TestClosedStore_FailsFast(t *testing.T) {
	s, err := store.Open(":memory:", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()

	ctx := context.Background()
	if _, err := s.Query(ctx, "SELECT 1"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Query error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Insert(ctx, "INSERT INTO clients (name) VALUES ('x')"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Insert error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Update(ctx, "UPDATE clients SET name = 'x'"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Update error = %v, want ErrStoreClosed", err)
	}
	if _, err := s.Delete(ctx, "DELETE FROM clients"); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Delete error = %v, want ErrStoreClosed", err)
	}
	if err := s.Tx(ctx, nil); !errors.Is(err, store.ErrStoreClosed) {
		t.Errorf("Tx error = %v, want ErrStoreClosed", err)
	}
}

func TestLazy_ConcurrentFirstCallersShareOneStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "juddesk.db")
	lazy := store.NewLazy(path, nil, zap.NewNop())
	defer lazy.Close()

	const callers = 8
	stores := make([]*store.Store, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := lazy.Get()
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			stores[i] = s
		}(i)
	}
	wg.Wait()

	for i := 1; i < callers; i++ {
		if stores[i] != stores[0] {
			t.Fatalf("caller %d got a different store instance", i)
		}
	}
}

func TestLazy_FailedOpenRetries(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "missing")
	path := filepath.Join(dir, "juddesk.db")
	lazy := store.NewLazy(path, nil, zap.NewNop())
	defer lazy.Close()

	if _, err := lazy.Get(); err == nil {
		t.Fatal("Get into missing directory succeeded, want error")
	}

	// The failed state is not cached: once the directory exists the next
	// call opens normally.
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if _, err := lazy.Get(); err != nil {
		t.Fatalf("Get after creating directory: %v", err)
	}
}
