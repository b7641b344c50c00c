// Package search maintains the FTS5 pre-filter index over documents. FTS5 is
// optional in SQLite builds, so the index is capability-checked at startup
// and degrades to a no-op that callers treat as "no candidates, scan instead".
package search

import (
	"context"
	"database/sql"
	"strings"

	"go.uber.org/zap"
)

// MinTermLen is the shortest term the index will answer; shorter terms
// return no candidates and the caller falls back to a linear scan.
const MinTermLen = 3

// MaxCandidates caps the id list returned by SearchCandidates.
const MaxCandidates = 50

// Index is the document search accelerator.
type Index interface {
	// Available reports whether full-text search is backed by FTS5.
	Available() bool

	// IndexUpsert replaces the indexed entry for a document.
	IndexUpsert(ctx context.Context, docID int64, name, text string) error

	// SearchCandidates returns up to MaxCandidates document ids matching
	// term, or nil when the term is too short or the index is unavailable.
	SearchCandidates(ctx context.Context, term string) ([]int64, error)
}

// New probes for FTS5 support and returns either the live index or the
// no-op fallback. The probe creates the virtual table, so a successful
// probe leaves the index ready for use.
func New(db *sql.DB, logger *zap.Logger) Index {
	_, err := db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts
		USING fts5(name, text_content)`)
	if err != nil {
		logger.Warn("FTS5 unavailable, document search falls back to table scan",
			zap.Error(err))
		return noopIndex{}
	}
	return &ftsIndex{db: db, logger: logger}
}

type ftsIndex struct {
	db     *sql.DB
	logger *zap.Logger
}

func (f *ftsIndex) Available() bool { return true }

func (f *ftsIndex) IndexUpsert(ctx context.Context, docID int64, name, text string) error {
	if _, err := f.db.ExecContext(ctx,
		`DELETE FROM documents_fts WHERE rowid = ?`, docID); err != nil {
		f.logger.Debug("fts delete skipped", zap.Int64("doc", docID), zap.Error(err))
	}
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO documents_fts(rowid, name, text_content) VALUES (?, ?, ?)`,
		docID, name, text)
	if err != nil {
		// The accelerator must never abort the caller's write path.
		f.logger.Warn("fts upsert failed", zap.Int64("doc", docID), zap.Error(err))
	}
	return nil
}

func (f *ftsIndex) SearchCandidates(ctx context.Context, term string) ([]int64, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinTermLen {
		return nil, nil
	}

	rows, err := f.db.QueryContext(ctx,
		`SELECT rowid FROM documents_fts WHERE documents_fts MATCH ? LIMIT ?`,
		ftsQuote(term), MaxCandidates)
	if err != nil {
		// Malformed MATCH expressions and the like degrade to the scan path.
		f.logger.Debug("fts query failed", zap.String("term", term), zap.Error(err))
		return nil, nil
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, nil
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ftsQuote wraps the term as a quoted prefix query so user input is never
// parsed as FTS5 syntax.
func ftsQuote(term string) string {
	return `"` + strings.ReplaceAll(term, `"`, `""`) + `"*`
}

// noopIndex is selected when FTS5 is not compiled into the engine.
type noopIndex struct{}

func (noopIndex) Available() bool { return false }

func (noopIndex) IndexUpsert(context.Context, int64, string, string) error { return nil }

func (noopIndex) SearchCandidates(context.Context, string) ([]int64, error) {
	return nil, nil
}
