// Package files persists the durable file catalog.
package files

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) error
	// GetOwned returns the file only when it belongs to userID.
	GetOwned(ctx context.Context, id, userID string) (*models.File, error)
	// MarkComplete sets the storage key and size of a file that is not yet
	// complete. It returns common.ErrSessionState when the file is already complete.
	MarkComplete(ctx context.Context, id, storageKey, fileSize string) error
	Delete(ctx context.Context, id string) error
	// ListByUser returns complete files of the user, newest first.
	ListByUser(ctx context.Context, userID string) ([]*models.File, error)
}
