// Package summaries persists generated file summaries.
package summaries

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Summary) error
	// Latest returns the most recent summary of the file.
	Latest(ctx context.Context, fileID string) (*models.Summary, error)
}
