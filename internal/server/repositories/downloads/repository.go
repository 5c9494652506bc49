// Package downloads persists the append-only download log.
package downloads

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, t *models.DownloadTransaction) error
	// ListForOwner returns downloads of every file owned by userID.
	ListForOwner(ctx context.Context, userID string) ([]*models.DownloadTransaction, error)
}
