package client

import "time"

type InitUploadRequest struct {
	FileTitle   string `json:"file_title"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
}

type InitUploadResponse struct {
	UploadID    string `json:"upload_id"`
	FileID      string `json:"file_id"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
}

type ChunkResponse struct {
	ChunkNumber        int     `json:"chunk_number"`
	UploadedChunks     int     `json:"uploaded_chunks"`
	TotalChunks        int     `json:"total_chunks"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
}

type StatusResponse struct {
	UploadID           string  `json:"upload_id"`
	FileTitle          string  `json:"file_title"`
	TotalChunks        int     `json:"total_chunks"`
	UploadedChunks     int     `json:"uploaded_chunks"`
	IsComplete         bool    `json:"is_complete"`
	ProgressPercentage float64 `json:"progress_percentage"`
	MissingChunks      []int   `json:"missing_chunks"`
}

type CompleteUploadResponse struct {
	FileID   string `json:"file_id"`
	FileSize string `json:"file_size"`
	FileURL  string `json:"file_url"`
}

type FileInfo struct {
	ID         string    `json:"id"`
	FileTitle  string    `json:"file_title"`
	FileName   string    `json:"file_name"`
	FileSize   string    `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	FileURL    string    `json:"file_url"`
}

type AccountStats struct {
	TotalFiles     int   `json:"total_files"`
	TotalFileSize  int64 `json:"total_file_size"`
	TotalDownloads int   `json:"total_downloads"`
}

// DownloadInfo describes a completed download.
type DownloadInfo struct {
	FileName string
	Written  int64
}

// errorBody is the shape of every error response.
type errorBody struct {
	Detail        string `json:"detail"`
	ExpectedHash  string `json:"expected_hash"`
	ComputedHash  string `json:"computed_hash"`
	MissingChunks []int  `json:"missing_chunks"`
}
