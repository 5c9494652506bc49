package models

import (
	"math"
	"time"
)

// UploadSession tracks a chunked upload from init until completion or cancellation.
type UploadSession struct {
	Token          string
	FileID         string
	UserID         string
	Title          string
	FileName       string
	TotalSize      int64
	TotalChunks    int
	ChunkSize      int64
	UploadedChunks int
	IsComplete     bool
	StorageKey     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Percentage returns uploaded/total as a percentage rounded to two decimals.
func (s *UploadSession) Percentage() float64 {
	return ProgressPercentage(s.UploadedChunks, s.TotalChunks)
}

// AllReceived reports whether every declared chunk has been received.
func (s *UploadSession) AllReceived() bool {
	return s.UploadedChunks >= s.TotalChunks
}

// ChunkRecord is the bookkeeping row of one staged chunk.
type ChunkRecord struct {
	SessionToken string
	Index        int
	Size         int64
	Digest       string
	IsReceived   bool
	ReceivedAt   time.Time
}

// ProgressPercentage computes uploaded/total*100 rounded to two decimals.
func ProgressPercentage(uploaded, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(uploaded)/float64(total)*10000) / 100
}
