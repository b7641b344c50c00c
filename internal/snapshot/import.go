package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

// Notifier receives the single change notification emitted after a
// successful import. The store satisfies it.
type Notifier interface {
	NotifyChange(op string)
}

// Importer replaces the live database with a snapshot's contents.
type Importer struct {
	db       *sql.DB
	notifier Notifier
	logger   *zap.Logger
}

// NewImporter creates an Importer. notifier may be nil.
func NewImporter(db *sql.DB, notifier Notifier, logger *zap.Logger) *Importer {
	return &Importer{db: db, notifier: notifier, logger: logger}
}

// deleteOrder lists tables children-before-parents so cleanup respects any
// constraint enforcement that remains active.
var deleteOrder = []string{
	"chat_attachments",
	"chat_messages",
	"chat_sessions",
	"ai_usage_logs",
	"activity_logs",
	"deadlines",
	"documents",
	"document_folders",
	"cases",
	"clients",
	"settings",
}

// Import atomically replaces every entity table with the snapshot's rows.
// Either the whole snapshot lands or nothing changes: any failure rolls the
// transaction back and the original data stays intact.
func (im *Importer) Import(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("import failed, no changes were made: nil snapshot")
	}

	// Rows are inserted in an order that does not satisfy every dependency,
	// so foreign keys are off for the duration. SQLite ignores this pragma
	// inside a transaction, so it must bracket the transaction.
	if _, err := im.db.ExecContext(ctx, "PRAGMA foreign_keys=OFF"); err != nil {
		return fmt.Errorf("import failed, no changes were made: %w", err)
	}
	defer func() {
		if _, err := im.db.Exec("PRAGMA foreign_keys=ON"); err != nil {
			im.logger.Warn("re-enabling foreign keys failed", zap.Error(err))
		}
	}()

	err := im.run(ctx, snap)
	if err != nil {
		return fmt.Errorf("import failed, no changes were made: %w", err)
	}

	im.logger.Info("snapshot imported",
		zap.String("version", snap.Version),
		zap.Int("clients", len(snap.Clients)),
		zap.Int("cases", len(snap.Cases)),
		zap.Int("documents", len(snap.Documents)))
	if im.notifier != nil {
		im.notifier.NotifyChange("import")
	}
	return nil
}

func (im *Importer) run(ctx context.Context, snap *Snapshot) error {
	tx, err := im.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, table := range deleteOrder {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for _, c := range snap.Clients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO clients (id, name, email, phone, address, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Email, c.Phone, c.Address, c.Notes,
			orNow(c.CreatedAt), c.UpdatedAt); err != nil {
			return fmt.Errorf("insert client %d: %w", c.ID, err)
		}
	}

	for _, c := range snap.Cases {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cases (id, client_id, title, number, court, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.ClientID, c.Title, c.Number, c.Court, orDefault(c.Status, "open"),
			c.Notes, orNow(c.CreatedAt), c.UpdatedAt); err != nil {
			return fmt.Errorf("insert case %d: %w", c.ID, err)
		}
	}

	plan := sanitizeFolders(snap.DocumentFolders)
	roots := make(map[string]int64) // normalized root folder name -> id
	for _, f := range plan.Folders {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_folders (id, name, parent_id, client_id, case_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			f.ID, f.Name, f.ParentID, f.ClientID, f.CaseID, orNow(f.CreatedAt)); err != nil {
			return fmt.Errorf("insert folder %d: %w", f.ID, err)
		}
		if f.ParentID == nil && f.ClientID == nil && f.CaseID == nil {
			roots[normalizeFolderName(f.Name)] = f.ID
		}
	}

	for _, d := range snap.Documents {
		folderID, err := im.resolveFolder(ctx, tx, d.FolderID, d.Folder, &plan, roots)
		if err != nil {
			return fmt.Errorf("resolve folder for document %d: %w", d.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (id, client_id, case_id, folder_id, folder, name,
			                       file_path, file_type, file_size, text_content,
			                       created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.ClientID, d.CaseID, folderID, d.Folder, d.Name,
			d.FilePath, d.FileType, d.FileSize, d.TextContent,
			orNow(d.CreatedAt), d.UpdatedAt); err != nil {
			return fmt.Errorf("insert document %d: %w", d.ID, err)
		}
	}

	for _, d := range snap.Deadlines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO deadlines (id, client_id, case_id, title, due_at, status, notes, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			d.ID, d.ClientID, d.CaseID, d.Title, d.DueAt,
			orDefault(d.Status, "pending"), d.Notes, orNow(d.CreatedAt)); err != nil {
			return fmt.Errorf("insert deadline %d: %w", d.ID, err)
		}
	}

	for _, s := range snap.ChatSessions {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_sessions (id, case_id, title, provider, model, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.CaseID, s.Title, s.Provider, s.Model,
			orNow(s.CreatedAt), s.UpdatedAt); err != nil {
			return fmt.Errorf("insert chat session %d: %w", s.ID, err)
		}
	}

	for _, m := range snap.ChatMessages {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_messages (id, session_id, role, content, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			m.ID, m.SessionID, m.Role, m.Content, orNow(m.CreatedAt)); err != nil {
			return fmt.Errorf("insert chat message %d: %w", m.ID, err)
		}
	}

	for _, a := range snap.ChatAttachments {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_attachments (id, message_id, name, file_type, file_size, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.MessageID, a.Name, a.FileType, a.FileSize, orNow(a.CreatedAt)); err != nil {
			return fmt.Errorf("insert chat attachment %d: %w", a.ID, err)
		}
	}

	for _, s := range snap.Settings {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
			s.Key, s.Value, orNow(s.UpdatedAt)); err != nil {
			return fmt.Errorf("insert setting %q: %w", s.Key, err)
		}
	}

	for _, l := range snap.ActivityLogs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO activity_logs (id, entity_type, entity_id, action, detail, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			l.ID, l.EntityType, l.EntityID, l.Action, l.Detail, orNow(l.CreatedAt)); err != nil {
			return fmt.Errorf("insert activity log %d: %w", l.ID, err)
		}
	}

	for _, l := range snap.AIUsageLogs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ai_usage_logs (id, session_id, provider, model,
			                           prompt_tokens, completion_tokens, cost_usd, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.SessionID, l.Provider, l.Model, l.PromptTokens,
			l.CompletionTokens, l.CostUSD, orNow(l.CreatedAt)); err != nil {
			return fmt.Errorf("insert ai usage log %d: %w", l.ID, err)
		}
	}

	return tx.Commit()
}

// resolveFolder decides the folder_id for an imported document: a numeric
// folder_id is remapped through the sanitization plan; otherwise a legacy
// string folder name finds or creates a root folder by normalized name.
func (im *Importer) resolveFolder(ctx context.Context, tx *sql.Tx,
	folderID *int64, legacyName *string, plan *folderPlan, roots map[string]int64) (*int64, error) {

	if folderID != nil && *folderID > 0 {
		if id := plan.Resolve(*folderID); id > 0 {
			return &id, nil
		}
	}

	if legacyName == nil || normalizeFolderName(*legacyName) == "" {
		return nil, nil
	}

	key := normalizeFolderName(*legacyName)
	if id, ok := roots[key]; ok {
		return &id, nil
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO document_folders (name, parent_id, client_id, case_id, created_at)
		VALUES (?, NULL, NULL, NULL, ?)`,
		*legacyName, nowRFC3339())
	if err != nil {
		return nil, fmt.Errorf("create folder %q: %w", *legacyName, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	roots[key] = id
	return &id, nil
}
