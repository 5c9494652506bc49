// Package uploads persists pending chunked uploads in the local state DB.
package uploads

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
)

type Repository interface {
	Save(ctx context.Context, u *models.PendingUpload) error
	// Get returns common.ErrNotFound when no upload has this token.
	Get(ctx context.Context, token string) (*models.PendingUpload, error)
	Delete(ctx context.Context, token string) error
	List(ctx context.Context) ([]*models.PendingUpload, error)
}
