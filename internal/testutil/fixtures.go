package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/thiagovelsa/JudDesk-sub000/internal/store"
)

// Now is the fixed timestamp used by fixtures.
var Now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Format(time.RFC3339)

// SeedClient inserts a client row and returns its id.
func SeedClient(t *testing.T, s *store.Store, name string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(),
		`INSERT INTO clients (name, created_at, updated_at) VALUES (?, ?, ?)`,
		name, Now, Now)
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return id
}

// SeedCase inserts a case row for a client and returns its id.
func SeedCase(t *testing.T, s *store.Store, clientID int64, title string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(),
		`INSERT INTO cases (client_id, title, status, created_at, updated_at)
		 VALUES (?, ?, 'open', ?, ?)`,
		clientID, title, Now, Now)
	if err != nil {
		t.Fatalf("seed case: %v", err)
	}
	return id
}

// SeedDocument inserts a document row and returns its id.
func SeedDocument(t *testing.T, s *store.Store, caseID *int64, name string) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(),
		`INSERT INTO documents (case_id, name, created_at, updated_at)
		 VALUES (?, ?, ?, ?)`,
		caseID, name, Now, Now)
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
	return id
}

// SeedFolder inserts a folder row directly through the raw handle so tests
// can build trees (including shapes the primitives would reject).
func SeedFolder(t *testing.T, s *store.Store, name string, parentID, clientID *int64) int64 {
	t.Helper()
	res, err := s.DB().Exec(
		`INSERT INTO document_folders (name, parent_id, client_id, created_at)
		 VALUES (?, ?, ?, ?)`,
		name, parentID, clientID, Now)
	if err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// Count returns the row count of a table.
func Count(t *testing.T, s *store.Store, table string) int {
	t.Helper()
	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}
