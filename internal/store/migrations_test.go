package store_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
	"github.com/thiagovelsa/JudDesk-sub000/internal/testutil"
)

// openAt opens an in-memory store migrated through the first n schema
// versions, so tests can seed historical data before the later sweeps run.
func openAt(t *testing.T, n int) *store.Store {
	t.Helper()
	s, err := store.Open(":memory:", nil, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background(), store.Schema()[:n]); err != nil {
		t.Fatalf("migrate to version %d: %v", n, err)
	}
	return s
}

func seedFolder(t *testing.T, s *store.Store, name string, parentID, clientID any) int64 {
	t.Helper()
	res, err := s.DB().Exec(`
		INSERT INTO document_folders (name, parent_id, client_id, created_at)
		VALUES (?, ?, ?, ?)`, name, parentID, clientID, testutil.Now)
	if err != nil {
		t.Fatalf("seed folder %q: %v", name, err)
	}
	id, _ := res.LastInsertId()
	return id
}

func countRows(t *testing.T, s *store.Store, query string, args ...any) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count query %q: %v", query, err)
	}
	return n
}

func TestMigrate_SecondRunIsNoOp(t *testing.T) {
	s := testutil.NewStore(t, nil)
	ctx := context.Background()

	before, err := s.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions: %v", err)
	}
	if got, want := len(before), len(store.Schema()); got != want {
		t.Fatalf("applied versions = %d, want %d", got, want)
	}

	if err := s.Migrate(ctx, store.Schema()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	after, err := s.AppliedVersions(ctx)
	if err != nil {
		t.Fatalf("AppliedVersions: %v", err)
	}
	if len(after) != len(before) {
		t.Errorf("applied versions after re-run = %d, want %d", len(after), len(before))
	}
}

func TestMigrate_UpdatedAtBackfilled(t *testing.T) {
	s := openAt(t, 5)

	if _, err := s.DB().Exec(
		`INSERT INTO clients (name, created_at) VALUES (?, ?)`,
		"Acme Corp", "2024-03-01T10:00:00Z"); err != nil {
		t.Fatalf("seed client: %v", err)
	}

	if err := s.Migrate(context.Background(), store.Schema()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var updatedAt string
	if err := s.DB().QueryRow(
		`SELECT updated_at FROM clients WHERE name = 'Acme Corp'`).Scan(&updatedAt); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if updatedAt != "2024-03-01T10:00:00Z" {
		t.Errorf("updated_at = %q, want backfill from created_at", updatedAt)
	}
}

func TestMigrate_DedupesClientFolders(t *testing.T) {
	s := openAt(t, 6)
	ctx := context.Background()

	clientID := testutil.SeedClient(t, s, "Acme Corp")

	keep := seedFolder(t, s, "Acme Corp", nil, clientID)
	dup1 := seedFolder(t, s, "Acme Corp (old)", nil, clientID)
	dup2 := seedFolder(t, s, "Acme Corp (older)", nil, clientID)
	child := seedFolder(t, s, "Contracts", dup1, nil)

	docID := testutil.SeedDocument(t, s, nil, "agreement.pdf")
	if _, err := s.DB().Exec(
		`UPDATE documents SET folder_id = ? WHERE id = ?`, dup2, docID); err != nil {
		t.Fatalf("point document at duplicate: %v", err)
	}

	if err := s.Migrate(ctx, store.Schema()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if n := countRows(t, s, `SELECT COUNT(*) FROM document_folders WHERE client_id = ?`, clientID); n != 1 {
		t.Fatalf("folders for client = %d, want 1", n)
	}
	var survivor int64
	if err := s.DB().QueryRow(
		`SELECT id FROM document_folders WHERE client_id = ?`, clientID).Scan(&survivor); err != nil {
		t.Fatalf("read survivor: %v", err)
	}
	if survivor != keep {
		t.Errorf("survivor = %d, want lowest id %d", survivor, keep)
	}

	var childParent int64
	if err := s.DB().QueryRow(
		`SELECT parent_id FROM document_folders WHERE id = ?`, child).Scan(&childParent); err != nil {
		t.Fatalf("read child parent: %v", err)
	}
	if childParent != keep {
		t.Errorf("child parent = %d, want %d", childParent, keep)
	}

	var docFolder int64
	if err := s.DB().QueryRow(
		`SELECT folder_id FROM documents WHERE id = ?`, docID).Scan(&docFolder); err != nil {
		t.Fatalf("read document folder: %v", err)
	}
	if docFolder != keep {
		t.Errorf("document folder = %d, want %d", docFolder, keep)
	}

	// Version 9's unique index now rejects a second folder for the client.
	if _, err := s.DB().Exec(`
		INSERT INTO document_folders (name, client_id, created_at)
		VALUES ('again', ?, ?)`, clientID, testutil.Now); err == nil {
		t.Error("second folder for client accepted, want unique index violation")
	}
}

func TestMigrate_DedupesRootFoldersByName(t *testing.T) {
	s := openAt(t, 6)

	keep := seedFolder(t, s, "Archive", nil, nil)
	dup := seedFolder(t, s, "Archive", nil, nil)
	child := seedFolder(t, s, "2023", dup, nil)
	seedFolder(t, s, "Inbox", nil, nil)

	if err := s.Migrate(context.Background(), store.Schema()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	if n := countRows(t, s,
		`SELECT COUNT(*) FROM document_folders WHERE name = 'Archive' AND parent_id IS NULL`); n != 1 {
		t.Fatalf("root folders named Archive = %d, want 1", n)
	}
	var childParent int64
	if err := s.DB().QueryRow(
		`SELECT parent_id FROM document_folders WHERE id = ?`, child).Scan(&childParent); err != nil {
		t.Fatalf("read child parent: %v", err)
	}
	if childParent != keep {
		t.Errorf("child parent = %d, want %d", childParent, keep)
	}
	if n := countRows(t, s,
		`SELECT COUNT(*) FROM document_folders WHERE name = 'Inbox'`); n != 1 {
		t.Errorf("unrelated root folder count = %d, want 1", n)
	}
}
