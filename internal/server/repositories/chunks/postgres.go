package chunks

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

func (r *PostgresRepository) Get(ctx context.Context, token string, index int) (*models.ChunkRecord, error) {
	query :=
		`SELECT session_token, chunk_index, size, COALESCE(digest, ''), is_received, received_at
		FROM upload_chunks WHERE session_token = $1 AND chunk_index = $2`

	c := &models.ChunkRecord{}
	var receivedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, query, token, index).
		Scan(&c.SessionToken, &c.Index, &c.Size, &c.Digest, &c.IsReceived, &receivedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.ReceivedAt = receivedAt.Time
	return c, nil
}

func (r *PostgresRepository) Upsert(ctx context.Context, c *models.ChunkRecord) error {
	query :=
		`INSERT INTO upload_chunks (session_token, chunk_index, size, digest, is_received, received_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)
		ON CONFLICT (session_token, chunk_index)
		DO UPDATE SET
			size = EXCLUDED.size,
			digest = EXCLUDED.digest,
			is_received = EXCLUDED.is_received,
			received_at = EXCLUDED.received_at`

	var receivedAt sql.NullTime
	if !c.ReceivedAt.IsZero() {
		receivedAt = sql.NullTime{Time: c.ReceivedAt, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, query,
		c.SessionToken, c.Index, c.Size, c.Digest, c.IsReceived, receivedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReceivedIndices(ctx context.Context, token string) ([]int, error) {
	query :=
		`SELECT chunk_index FROM upload_chunks
		WHERE session_token = $1 AND is_received
		ORDER BY chunk_index`

	rows, err := r.db.QueryContext(ctx, query, token)
	if err != nil {
		return nil, fmt.Errorf("failed to select chunks: %w", err)
	}
	defer rows.Close()

	var result []int
	for rows.Next() {
		var idx int
		if err := rows.Scan(&idx); err != nil {
			return nil, err
		}
		result = append(result, idx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) DeleteBySession(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM upload_chunks WHERE session_token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
