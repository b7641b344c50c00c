// Package snapshot serializes the entire JudDesk database into a single
// versioned JSON document and reconstructs the database from one. Export
// needs only read access; import fully replaces the live data inside one
// transaction, repairing folder references that would otherwise dangle.
package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/thiagovelsa/JudDesk-sub000/pkg/models"
)

// FormatVersion tags snapshots produced by this build.
const FormatVersion = "1"

// Snapshot is the full-database backup document. Table keys absent from an
// imported file decode as nil slices and import as empty tables.
type Snapshot struct {
	Version         string                  `json:"version"`
	CreatedAt       string                  `json:"created_at"`
	Clients         []models.Client         `json:"clients"`
	Cases           []models.Case           `json:"cases"`
	Documents       []models.Document       `json:"documents"`
	Deadlines       []models.Deadline       `json:"deadlines"`
	ChatSessions    []models.ChatSession    `json:"chat_sessions"`
	ChatMessages    []models.ChatMessage    `json:"chat_messages"`
	ChatAttachments []models.ChatAttachment `json:"chat_attachments"`
	Settings        []models.Setting        `json:"settings"`
	DocumentFolders []models.DocumentFolder `json:"document_folders"`
	ActivityLogs    []models.ActivityLog    `json:"activity_logs"`
	AIUsageLogs     []models.AIUsageLog     `json:"ai_usage_logs"`
}

// Exporter reads every table into a Snapshot.
type Exporter struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExporter creates an Exporter over the live database handle.
func NewExporter(db *sql.DB, logger *zap.Logger) *Exporter {
	return &Exporter{db: db, logger: logger}
}

// Export produces a snapshot of every entity table. The per-table reads are
// fanned out concurrently; they are read-only and take no write lock.
func (e *Exporter) Export(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}

	readers := []func(context.Context) error{
		func(ctx context.Context) (err error) { snap.Clients, err = e.readClients(ctx); return },
		func(ctx context.Context) (err error) { snap.Cases, err = e.readCases(ctx); return },
		func(ctx context.Context) (err error) { snap.Documents, err = e.readDocuments(ctx); return },
		func(ctx context.Context) (err error) { snap.Deadlines, err = e.readDeadlines(ctx); return },
		func(ctx context.Context) (err error) { snap.ChatSessions, err = e.readChatSessions(ctx); return },
		func(ctx context.Context) (err error) { snap.ChatMessages, err = e.readChatMessages(ctx); return },
		func(ctx context.Context) (err error) { snap.ChatAttachments, err = e.readChatAttachments(ctx); return },
		func(ctx context.Context) (err error) { snap.Settings, err = e.readSettings(ctx); return },
		func(ctx context.Context) (err error) { snap.DocumentFolders, err = e.readFolders(ctx); return },
		func(ctx context.Context) (err error) { snap.ActivityLogs, err = e.readActivityLogs(ctx); return },
		func(ctx context.Context) (err error) { snap.AIUsageLogs, err = e.readAIUsageLogs(ctx); return },
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	for _, read := range readers {
		wg.Add(1)
		go func(read func(context.Context) error) {
			defer wg.Done()
			if err := read(ctx); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(read)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("export: %w", firstErr)
	}
	return snap, nil
}

func (e *Exporter) readClients(ctx context.Context) ([]models.Client, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, name, email, phone, address, notes, created_at, updated_at
		FROM clients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read clients: %w", err)
	}
	defer rows.Close()

	out := []models.Client{}
	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address,
			&c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (e *Exporter) readCases(ctx context.Context) ([]models.Case, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, client_id, title, number, court, status, notes, created_at, updated_at
		FROM cases ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read cases: %w", err)
	}
	defer rows.Close()

	out := []models.Case{}
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.ClientID, &c.Title, &c.Number, &c.Court,
			&c.Status, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (e *Exporter) readDocuments(ctx context.Context) ([]models.Document, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, client_id, case_id, folder_id, folder, name, file_path,
		       file_type, file_size, text_content, created_at, updated_at
		FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := rows.Scan(&d.ID, &d.ClientID, &d.CaseID, &d.FolderID, &d.Folder,
			&d.Name, &d.FilePath, &d.FileType, &d.FileSize, &d.TextContent,
			&d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (e *Exporter) readDeadlines(ctx context.Context) ([]models.Deadline, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, client_id, case_id, title, due_at, status, notes, created_at
		FROM deadlines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read deadlines: %w", err)
	}
	defer rows.Close()

	out := []models.Deadline{}
	for rows.Next() {
		var d models.Deadline
		if err := rows.Scan(&d.ID, &d.ClientID, &d.CaseID, &d.Title, &d.DueAt,
			&d.Status, &d.Notes, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan deadline: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (e *Exporter) readChatSessions(ctx context.Context) ([]models.ChatSession, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, case_id, title, provider, model, created_at, updated_at
		FROM chat_sessions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read chat sessions: %w", err)
	}
	defer rows.Close()

	out := []models.ChatSession{}
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.ID, &s.CaseID, &s.Title, &s.Provider, &s.Model,
			&s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat session: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (e *Exporter) readChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, session_id, role, content, created_at
		FROM chat_messages ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read chat messages: %w", err)
	}
	defer rows.Close()

	out := []models.ChatMessage{}
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (e *Exporter) readChatAttachments(ctx context.Context) ([]models.ChatAttachment, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, message_id, name, file_type, file_size, created_at
		FROM chat_attachments ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read chat attachments: %w", err)
	}
	defer rows.Close()

	out := []models.ChatAttachment{}
	for rows.Next() {
		var a models.ChatAttachment
		if err := rows.Scan(&a.ID, &a.MessageID, &a.Name, &a.FileType,
			&a.FileSize, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat attachment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (e *Exporter) readSettings(ctx context.Context) ([]models.Setting, error) {
	rows, err := e.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()

	out := []models.Setting{}
	for rows.Next() {
		var s models.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (e *Exporter) readFolders(ctx context.Context) ([]models.DocumentFolder, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, name, parent_id, client_id, case_id, created_at
		FROM document_folders ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read document folders: %w", err)
	}
	defer rows.Close()

	out := []models.DocumentFolder{}
	for rows.Next() {
		var f models.DocumentFolder
		if err := rows.Scan(&f.ID, &f.Name, &f.ParentID, &f.ClientID,
			&f.CaseID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document folder: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (e *Exporter) readActivityLogs(ctx context.Context) ([]models.ActivityLog, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, action, detail, created_at
		FROM activity_logs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read activity logs: %w", err)
	}
	defer rows.Close()

	out := []models.ActivityLog{}
	for rows.Next() {
		var l models.ActivityLog
		if err := rows.Scan(&l.ID, &l.EntityType, &l.EntityID, &l.Action,
			&l.Detail, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (e *Exporter) readAIUsageLogs(ctx context.Context) ([]models.AIUsageLog, error) {
	rows, err := e.db.QueryContext(ctx, `
		SELECT id, session_id, provider, model, prompt_tokens, completion_tokens,
		       cost_usd, created_at
		FROM ai_usage_logs ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("read ai usage logs: %w", err)
	}
	defer rows.Close()

	out := []models.AIUsageLog{}
	for rows.Next() {
		var l models.AIUsageLog
		if err := rows.Scan(&l.ID, &l.SessionID, &l.Provider, &l.Model,
			&l.PromptTokens, &l.CompletionTokens, &l.CostUSD, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ai usage log: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
