package uploads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, u *models.PendingUpload) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_uploads (token, file_id, path, title, file_size, chunk_size, total_chunks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(token) DO UPDATE SET
			file_id = excluded.file_id,
			path = excluded.path,
			title = excluded.title,
			file_size = excluded.file_size,
			chunk_size = excluded.chunk_size,
			total_chunks = excluded.total_chunks
	`, u.Token, u.FileID, u.Path, u.Title, u.FileSize, u.ChunkSize, u.TotalChunks, u.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save pending upload %s: %w", u.Token, err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, token string) (*models.PendingUpload, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT token, file_id, path, title, file_size, chunk_size, total_chunks, created_at
		FROM pending_uploads WHERE token = ?`, token)

	u, err := scanUpload(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending upload %s: %w", token, err)
	}
	return u, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM pending_uploads WHERE token = ?`, token)
	if err != nil {
		return fmt.Errorf("failed to delete pending upload %s: %w", token, err)
	}
	return nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.PendingUpload, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT token, file_id, path, title, file_size, chunk_size, total_chunks, created_at
		FROM pending_uploads ORDER BY created_at, token`)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending uploads: %w", err)
	}
	defer rows.Close()

	result := make([]*models.PendingUpload, 0)
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pending upload: %w", err)
		}
		result = append(result, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate pending uploads: %w", err)
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*models.PendingUpload, error) {
	var u models.PendingUpload
	var created int64
	if err := s.Scan(&u.Token, &u.FileID, &u.Path, &u.Title, &u.FileSize, &u.ChunkSize, &u.TotalChunks, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(created, 0).UTC()
	return &u, nil
}
