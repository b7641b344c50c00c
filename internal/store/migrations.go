package store

import (
	"database/sql"
	"fmt"
)

// Schema returns the ordered migration list for the JudDesk database.
//
// Versions 7-9 are state sweeps, not DDL: historical releases allowed more
// than one folder per client and duplicate root folder names. They must run
// in exactly this order — the unique index of version 9 cannot be created
// while duplicate rows still exist.
func Schema() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create clients, cases and settings tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE clients (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						name       TEXT NOT NULL,
						email      TEXT,
						phone      TEXT,
						address    TEXT,
						notes      TEXT,
						created_at TEXT NOT NULL
					);
					CREATE TABLE cases (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						client_id  INTEGER NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
						title      TEXT NOT NULL,
						number     TEXT,
						court      TEXT,
						status     TEXT NOT NULL DEFAULT 'open',
						notes      TEXT,
						created_at TEXT NOT NULL
					);
					CREATE INDEX idx_cases_client ON cases(client_id);
					CREATE TABLE settings (
						key        TEXT PRIMARY KEY,
						value      TEXT NOT NULL,
						updated_at TEXT NOT NULL
					)`)
				return err
			},
		},
		{
			Version:     2,
			Description: "create documents and deadlines tables",
			Up: func(tx *sql.Tx) error {
				// documents.folder is the legacy free-text folder name,
				// superseded by folder_id in version 4 but kept for old rows.
				_, err := tx.Exec(`
					CREATE TABLE documents (
						id           INTEGER PRIMARY KEY AUTOINCREMENT,
						client_id    INTEGER REFERENCES clients(id) ON DELETE SET NULL,
						case_id      INTEGER REFERENCES cases(id) ON DELETE SET NULL,
						folder       TEXT,
						name         TEXT NOT NULL,
						file_path    TEXT,
						file_type    TEXT,
						file_size    INTEGER,
						text_content TEXT,
						created_at   TEXT NOT NULL
					);
					CREATE INDEX idx_documents_case ON documents(case_id);
					CREATE TABLE deadlines (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						client_id  INTEGER REFERENCES clients(id) ON DELETE SET NULL,
						case_id    INTEGER REFERENCES cases(id) ON DELETE CASCADE,
						title      TEXT NOT NULL,
						due_at     TEXT NOT NULL,
						status     TEXT NOT NULL DEFAULT 'pending',
						notes      TEXT,
						created_at TEXT NOT NULL
					);
					CREATE INDEX idx_deadlines_due ON deadlines(due_at)`)
				return err
			},
		},
		{
			Version:     3,
			Description: "create chat session, message and attachment tables",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE chat_sessions (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						case_id    INTEGER REFERENCES cases(id) ON DELETE SET NULL,
						title      TEXT NOT NULL,
						provider   TEXT,
						model      TEXT,
						created_at TEXT NOT NULL
					);
					CREATE TABLE chat_messages (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						session_id INTEGER NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
						role       TEXT NOT NULL,
						content    TEXT NOT NULL,
						created_at TEXT NOT NULL
					);
					CREATE INDEX idx_chat_messages_session ON chat_messages(session_id);
					CREATE TABLE chat_attachments (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						message_id INTEGER NOT NULL REFERENCES chat_messages(id) ON DELETE CASCADE,
						name       TEXT NOT NULL,
						file_type  TEXT,
						file_size  INTEGER,
						created_at TEXT NOT NULL
					)`)
				return err
			},
		},
		{
			Version:     4,
			Description: "create document_folders tree and documents.folder_id",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE document_folders (
						id         INTEGER PRIMARY KEY AUTOINCREMENT,
						name       TEXT NOT NULL,
						parent_id  INTEGER REFERENCES document_folders(id) ON DELETE SET NULL,
						client_id  INTEGER REFERENCES clients(id) ON DELETE CASCADE,
						case_id    INTEGER REFERENCES cases(id) ON DELETE CASCADE,
						created_at TEXT NOT NULL
					);
					ALTER TABLE documents ADD COLUMN folder_id INTEGER
						REFERENCES document_folders(id) ON DELETE SET NULL;
					CREATE INDEX idx_documents_folder ON documents(folder_id)`)
				return err
			},
		},
		{
			Version:     5,
			Description: "create activity and AI usage logs",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE TABLE activity_logs (
						id          INTEGER PRIMARY KEY AUTOINCREMENT,
						entity_type TEXT NOT NULL,
						entity_id   INTEGER,
						action      TEXT NOT NULL,
						detail      TEXT,
						created_at  TEXT NOT NULL
					);
					CREATE TABLE ai_usage_logs (
						id                INTEGER PRIMARY KEY AUTOINCREMENT,
						session_id        INTEGER REFERENCES chat_sessions(id) ON DELETE SET NULL,
						provider          TEXT NOT NULL,
						model             TEXT NOT NULL,
						prompt_tokens     INTEGER NOT NULL DEFAULT 0,
						completion_tokens INTEGER NOT NULL DEFAULT 0,
						cost_usd          REAL,
						created_at        TEXT NOT NULL
					)`)
				return err
			},
		},
		{
			Version:     6,
			Description: "add updated_at columns backfilled from created_at",
			Up: func(tx *sql.Tx) error {
				for _, table := range []string{"clients", "cases", "documents", "chat_sessions"} {
					if _, err := tx.Exec(fmt.Sprintf(
						"ALTER TABLE %s ADD COLUMN updated_at TEXT", table)); err != nil {
						return err
					}
					if _, err := tx.Exec(fmt.Sprintf(
						"UPDATE %s SET updated_at = created_at WHERE updated_at IS NULL", table)); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{
			Version:     7,
			Description: "dedupe folders sharing a client",
			Up:          dedupeFoldersByClient,
		},
		{
			Version:     8,
			Description: "dedupe same-named root folders",
			Up:          dedupeRootFoldersByName,
		},
		{
			Version:     9,
			Description: "enforce one folder per client",
			Up: func(tx *sql.Tx) error {
				_, err := tx.Exec(`
					CREATE UNIQUE INDEX idx_folders_client_unique
						ON document_folders(client_id) WHERE client_id IS NOT NULL`)
				return err
			},
		},
	}
}

// dedupeFoldersByClient keeps the lowest-id folder for every client that
// accumulated more than one, re-points child folders and documents at the
// survivor, and deletes the rest.
func dedupeFoldersByClient(tx *sql.Tx) error {
	rows, err := tx.Query(`
		SELECT client_id, MIN(id) FROM document_folders
		WHERE client_id IS NOT NULL
		GROUP BY client_id HAVING COUNT(*) > 1`)
	if err != nil {
		return fmt.Errorf("find duplicate client folders: %w", err)
	}
	type dup struct{ clientID, keep int64 }
	var dups []dup
	for rows.Next() {
		var d dup
		if err := rows.Scan(&d.clientID, &d.keep); err != nil {
			rows.Close()
			return err
		}
		dups = append(dups, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range dups {
		// The survivor is excluded: if its own parent was a duplicate, the
		// ON DELETE SET NULL below clears it instead of self-referencing.
		if _, err := tx.Exec(`
			UPDATE document_folders SET parent_id = ?
			WHERE id <> ?
			  AND parent_id IN (SELECT id FROM document_folders WHERE client_id = ? AND id <> ?)`,
			d.keep, d.keep, d.clientID, d.keep); err != nil {
			return fmt.Errorf("repoint child folders: %w", err)
		}
		if _, err := tx.Exec(`
			UPDATE documents SET folder_id = ?
			WHERE folder_id IN (SELECT id FROM document_folders WHERE client_id = ? AND id <> ?)`,
			d.keep, d.clientID, d.keep); err != nil {
			return fmt.Errorf("repoint documents: %w", err)
		}
		if _, err := tx.Exec(
			`DELETE FROM document_folders WHERE client_id = ? AND id <> ?`,
			d.clientID, d.keep); err != nil {
			return fmt.Errorf("delete duplicate folders: %w", err)
		}
	}
	return nil
}

// dedupeRootFoldersByName merges unscoped root folders that share a name.
func dedupeRootFoldersByName(tx *sql.Tx) error {
	rows, err := tx.Query(`
		SELECT name, MIN(id) FROM document_folders
		WHERE parent_id IS NULL AND client_id IS NULL AND case_id IS NULL
		GROUP BY name HAVING COUNT(*) > 1`)
	if err != nil {
		return fmt.Errorf("find duplicate root folders: %w", err)
	}
	type dup struct {
		name string
		keep int64
	}
	var dups []dup
	for rows.Next() {
		var d dup
		if err := rows.Scan(&d.name, &d.keep); err != nil {
			rows.Close()
			return err
		}
		dups = append(dups, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, d := range dups {
		if _, err := tx.Exec(`
			UPDATE document_folders SET parent_id = ?
			WHERE id <> ?
			  AND parent_id IN (
				SELECT id FROM document_folders
				WHERE name = ? AND parent_id IS NULL AND client_id IS NULL AND case_id IS NULL AND id <> ?)`,
			d.keep, d.keep, d.name, d.keep); err != nil {
			return fmt.Errorf("repoint child folders: %w", err)
		}
		if _, err := tx.Exec(`
			UPDATE documents SET folder_id = ?
			WHERE folder_id IN (
				SELECT id FROM document_folders
				WHERE name = ? AND parent_id IS NULL AND client_id IS NULL AND case_id IS NULL AND id <> ?)`,
			d.keep, d.name, d.keep); err != nil {
			return fmt.Errorf("repoint documents: %w", err)
		}
		if _, err := tx.Exec(`
			DELETE FROM document_folders
			WHERE name = ? AND parent_id IS NULL AND client_id IS NULL AND case_id IS NULL AND id <> ?`,
			d.name, d.keep); err != nil {
			return fmt.Errorf("delete duplicate folders: %w", err)
		}
	}
	return nil
}
