// Package models defines client-side data models of the GophVault CLI.
package models

import "time"

// PendingUpload is a chunked upload started by this client and not yet
// completed or cancelled. It carries everything needed to resume it.
type PendingUpload struct {
	// Token is the server-issued upload session token.
	Token string
	// FileID identifies the file record reserved by the server.
	FileID string
	// Path is the absolute path of the local source file.
	Path  string
	Title string

	FileSize    int64
	ChunkSize   int64
	TotalChunks int

	CreatedAt time.Time
}
