package summaries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.Summary) error {
	query :=
		`INSERT INTO file_summaries (file_id, summary, strategy)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, s.FileID, s.Summary, s.Strategy).Scan(&s.ID, &s.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Latest(ctx context.Context, fileID string) (*models.Summary, error) {
	query :=
		`SELECT id, file_id, summary, strategy, created_at FROM file_summaries
		WHERE file_id = $1 ORDER BY id DESC LIMIT 1`

	s := &models.Summary{}
	err := r.db.QueryRowContext(ctx, query, fileID).Scan(&s.ID, &s.FileID, &s.Summary, &s.Strategy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}
