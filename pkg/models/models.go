// Package models defines the row types persisted by the JudDesk store.
// The JSON tags double as the backup snapshot file format: nullable columns
// are pointer fields so that absent keys decode to NULL, and timestamps are
// RFC3339 strings so a snapshot round-trips without precision loss.
package models

// Client is a person or company the practice works for.
type Client struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	Notes     *string `json:"notes"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// Case is a legal matter. Deleting a client cascades to its cases.
type Case struct {
	ID        int64   `json:"id"`
	ClientID  int64   `json:"client_id"`
	Title     string  `json:"title"`
	Number    *string `json:"number"`
	Court     *string `json:"court"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// DocumentFolder is a node in the folder tree. ParentID forms the tree;
// at most one folder may be bound to a given client.
type DocumentFolder struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ParentID  *int64 `json:"parent_id"`
	ClientID  *int64 `json:"client_id"`
	CaseID    *int64 `json:"case_id"`
	CreatedAt string `json:"created_at"`
}

// Document is a stored file reference. Folder carries the legacy string
// folder name found in pre-folder-table snapshots; live rows use FolderID.
type Document struct {
	ID          int64   `json:"id"`
	ClientID    *int64  `json:"client_id"`
	CaseID      *int64  `json:"case_id"`
	FolderID    *int64  `json:"folder_id"`
	Folder      *string `json:"folder,omitempty"`
	Name        string  `json:"name"`
	FilePath    *string `json:"file_path"`
	FileType    *string `json:"file_type"`
	FileSize    *int64  `json:"file_size"`
	TextContent *string `json:"text_content"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   *string `json:"updated_at"`
}

// Deadline is a dated obligation, optionally tied to a case or client.
type Deadline struct {
	ID        int64   `json:"id"`
	ClientID  *int64  `json:"client_id"`
	CaseID    *int64  `json:"case_id"`
	Title     string  `json:"title"`
	DueAt     string  `json:"due_at"`
	Status    string  `json:"status"`
	Notes     *string `json:"notes"`
	CreatedAt string  `json:"created_at"`
}

// ChatSession groups AI chat messages, optionally scoped to a case.
type ChatSession struct {
	ID        int64   `json:"id"`
	CaseID    *int64  `json:"case_id"`
	Title     string  `json:"title"`
	Provider  *string `json:"provider"`
	Model     *string `json:"model"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// ChatMessage is one turn in a chat session.
type ChatMessage struct {
	ID        int64  `json:"id"`
	SessionID int64  `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// ChatAttachment is a file attached to a chat message.
type ChatAttachment struct {
	ID        int64   `json:"id"`
	MessageID int64   `json:"message_id"`
	Name      string  `json:"name"`
	FileType  *string `json:"file_type"`
	FileSize  *int64  `json:"file_size"`
	CreatedAt string  `json:"created_at"`
}

// Setting is a string key/value configuration entry.
type Setting struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	UpdatedAt string `json:"updated_at"`
}

// ActivityLog records a user-visible action for the audit trail.
type ActivityLog struct {
	ID         int64   `json:"id"`
	EntityType string  `json:"entity_type"`
	EntityID   *int64  `json:"entity_id"`
	Action     string  `json:"action"`
	Detail     *string `json:"detail"`
	CreatedAt  string  `json:"created_at"`
}

// AIUsageLog records token consumption per AI provider call.
type AIUsageLog struct {
	ID               int64    `json:"id"`
	SessionID        *int64   `json:"session_id"`
	Provider         string   `json:"provider"`
	Model            string   `json:"model"`
	PromptTokens     int64    `json:"prompt_tokens"`
	CompletionTokens int64    `json:"completion_tokens"`
	CostUSD          *float64 `json:"cost_usd"`
	CreatedAt        string   `json:"created_at"`
}
