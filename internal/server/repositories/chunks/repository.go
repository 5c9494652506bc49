// Package chunks persists per-chunk bookkeeping of upload sessions.
package chunks

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, token string, index int) (*models.ChunkRecord, error)
	// Upsert inserts the record or replaces the existing one for the same
	// (session, index) pair.
	Upsert(ctx context.Context, c *models.ChunkRecord) error
	// ReceivedIndices returns received chunk indices in ascending order.
	ReceivedIndices(ctx context.Context, token string) ([]int, error)
	DeleteBySession(ctx context.Context, token string) error
}
