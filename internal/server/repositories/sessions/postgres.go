package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
)

const selectColumns = `token, file_id, user_id, title, file_name, total_size, total_chunks, chunk_size,
	uploaded_chunks, is_complete, COALESCE(storage_key, ''), created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.UploadSession, error) {
	s := &models.UploadSession{}
	err := row.Scan(&s.Token, &s.FileID, &s.UserID, &s.Title, &s.FileName, &s.TotalSize, &s.TotalChunks,
		&s.ChunkSize, &s.UploadedChunks, &s.IsComplete, &s.StorageKey, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) Create(ctx context.Context, s *models.UploadSession) error {
	query :=
		`INSERT INTO upload_sessions (token, file_id, user_id, title, file_name, total_size, total_chunks, chunk_size)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		s.Token, s.FileID, s.UserID, s.Title, s.FileName, s.TotalSize, s.TotalChunks, s.ChunkSize).
		Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, query, token string) (*models.UploadSession, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return s, nil
}

func (r *PostgresRepository) Get(ctx context.Context, token string) (*models.UploadSession, error) {
	return r.get(ctx, `SELECT `+selectColumns+` FROM upload_sessions WHERE token = $1`, token)
}

func (r *PostgresRepository) GetForUpdate(ctx context.Context, token string) (*models.UploadSession, error) {
	return r.get(ctx, `SELECT `+selectColumns+` FROM upload_sessions WHERE token = $1 FOR UPDATE`, token)
}

func (r *PostgresRepository) exactlyOne(res sql.Result, err error) error {
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}

	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrNotFound
	default:
		return fmt.Errorf("wrong rows affected count: %d", n)
	}
}

func (r *PostgresRepository) IncrementUploaded(ctx context.Context, token string) error {
	query :=
		`UPDATE upload_sessions SET uploaded_chunks = uploaded_chunks + 1, updated_at = now()
		WHERE token = $1 AND uploaded_chunks < total_chunks`
	return r.exactlyOne(r.db.ExecContext(ctx, query, token))
}

func (r *PostgresRepository) MarkComplete(ctx context.Context, token, storageKey string) error {
	query :=
		`UPDATE upload_sessions SET is_complete = TRUE, storage_key = $2, updated_at = now()
		WHERE token = $1 AND NOT is_complete`
	err := r.exactlyOne(r.db.ExecContext(ctx, query, token, storageKey))
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrSessionState
	}
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM upload_sessions WHERE token = $1`, token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListExpired(ctx context.Context, before time.Time) ([]*models.UploadSession, error) {
	query := `SELECT ` + selectColumns + ` FROM upload_sessions
		WHERE NOT is_complete AND updated_at < $1
		ORDER BY updated_at`

	rows, err := r.db.QueryContext(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("failed to select sessions: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
