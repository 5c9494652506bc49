package client

import (
	"context"
	"io"
)

// API is the server surface used by the CLI.
type API interface {
	InitUpload(ctx context.Context, req InitUploadRequest) (*InitUploadResponse, error)
	UploadChunk(ctx context.Context, token string, index int, digest string, data []byte) (*ChunkResponse, error)
	Status(ctx context.Context, token string) (*StatusResponse, error)
	Complete(ctx context.Context, token string) (*CompleteUploadResponse, error)
	Cancel(ctx context.Context, token string) error
	Download(ctx context.Context, fileID string, w io.Writer) (*DownloadInfo, error)
	ListFiles(ctx context.Context) ([]FileInfo, error)
	AccountStats(ctx context.Context) (*AccountStats, error)
}
