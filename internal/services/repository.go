// Package services provides repository interfaces and SQLite implementations
// for data access above the raw store. Domain CRUD repositories for the UI
// live here; this subsystem ships the settings repository the backup
// scheduler depends on.
package services

import "errors"

// Sentinel errors returned by repositories.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)
