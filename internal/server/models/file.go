// Package models defines server-side data models persisted in the database.
package models

import (
	"strconv"
	"time"
)

// File is the durable catalog entry for an uploaded file.
type File struct {
	// ID is the public file identifier (uuid).
	ID string
	// UserID is the owner of the file.
	UserID string
	// Title is the user supplied label.
	Title string
	// FileName is the original base name, used for Content-Disposition.
	FileName string
	// FileSize is the plaintext byte count, kept as a decimal string.
	FileSize string
	// StorageKey names the encrypted blob. Empty until the upload completes.
	StorageKey string
	// IsComplete is false while a chunked upload is in progress.
	IsComplete bool
	CreatedAt  time.Time
}

// SizeBytes parses FileSize. Unparseable values count as zero.
func (f *File) SizeBytes() int64 {
	n, err := strconv.ParseInt(f.FileSize, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// DownloadTransaction is an append-only record of one retrieval.
type DownloadTransaction struct {
	ID        int64
	FileID    string
	UserID    string
	CreatedAt time.Time
	IPAddress string
	UserAgent string
}

// Summary strategies.
const (
	SummaryStrategyPrimary  = "primary"
	SummaryStrategyFallback = "fallback"
)

// Summary is one generated summary of a file's text content.
type Summary struct {
	ID        int64
	FileID    string
	Summary   string
	Strategy  string
	CreatedAt time.Time
}
