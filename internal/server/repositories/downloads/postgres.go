package downloads

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, t *models.DownloadTransaction) error {
	query :=
		`INSERT INTO download_transactions (file_id, user_id, ip_address, user_agent)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, t.FileID, t.UserID, t.IPAddress, t.UserAgent).
		Scan(&t.ID, &t.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListForOwner(ctx context.Context, userID string) ([]*models.DownloadTransaction, error) {
	query :=
		`SELECT d.id, d.file_id, d.user_id, d.created_at, d.ip_address, d.user_agent
		FROM download_transactions d
		JOIN files f ON f.id = d.file_id
		WHERE f.user_id = $1
		ORDER BY d.id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select downloads: %w", err)
	}
	defer rows.Close()

	var result []*models.DownloadTransaction
	for rows.Next() {
		t := &models.DownloadTransaction{}
		if err := rows.Scan(&t.ID, &t.FileID, &t.UserID, &t.CreatedAt, &t.IPAddress, &t.UserAgent); err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
