// Package sessions persists chunked upload sessions.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.UploadSession) error
	Get(ctx context.Context, token string) (*models.UploadSession, error)
	// GetForUpdate reads the session and locks its row until the
	// surrounding transaction ends.
	GetForUpdate(ctx context.Context, token string) (*models.UploadSession, error)
	// IncrementUploaded bumps uploaded_chunks by one, never past total_chunks.
	IncrementUploaded(ctx context.Context, token string) error
	MarkComplete(ctx context.Context, token, storageKey string) error
	Delete(ctx context.Context, token string) error
	// ListExpired returns incomplete sessions not touched since before.
	ListExpired(ctx context.Context, before time.Time) ([]*models.UploadSession, error)
}
