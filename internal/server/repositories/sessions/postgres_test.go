package sessions

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionColumns = []string{"token", "file_id", "user_id", "title", "file_name", "total_size", "total_chunks",
	"chunk_size", "uploaded_chunks", "is_complete", "storage_key", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgresRepository(db), mock, db
}

func sessionRow(now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows(sessionColumns).
		AddRow("tok", "f1", "u1", "title", "a.bin", int64(30), 3, int64(10), 2, false, "", now, now)
}

func TestCreate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT INTO upload_sessions .* RETURNING created_at, updated_at$`).
		WithArgs("tok", "f1", "u1", "title", "a.bin", int64(30), 3, int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	s := &models.UploadSession{Token: "tok", FileID: "f1", UserID: "u1", Title: "title", FileName: "a.bin",
		TotalSize: 30, TotalChunks: 3, ChunkSize: 10}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, now, s.UpdatedAt)

	mock.ExpectQuery(`INSERT INTO upload_sessions`).WillReturnError(errors.New("dup"))
	assert.EqualError(t, repo.Create(context.Background(), s), "db error: dup")
}

func TestGet(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`FROM upload_sessions WHERE token = \$1$`).WithArgs("tok").WillReturnRows(sessionRow(now))

	s, err := repo.Get(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, 2, s.UploadedChunks)
	assert.Equal(t, 3, s.TotalChunks)
	assert.Equal(t, "f1", s.FileID)
}

func TestGetForUpdate_LocksRow(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`WHERE token = \$1 FOR UPDATE$`).WithArgs("tok").WillReturnRows(sessionRow(time.Now()))

	_, err := repo.GetForUpdate(context.Background(), "tok")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`FROM upload_sessions`).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	mock.ExpectQuery(`FROM upload_sessions`).WithArgs("tok").WillReturnError(errors.New("conn reset"))
	_, err = repo.Get(context.Background(), "tok")
	assert.EqualError(t, err, "db error: conn reset")
}

func TestIncrementUploaded(t *testing.T) {
	q := `(?s)UPDATE upload_sessions SET uploaded_chunks = uploaded_chunks \+ 1.*WHERE token = \$1 AND uploaded_chunks < total_chunks`

	tests := []struct {
		name    string
		result  sql.Result
		wantErr error
	}{
		{name: "incremented", result: sqlmock.NewResult(0, 1)},
		{name: "missing or full", result: sqlmock.NewResult(0, 0), wantErr: common.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(q).WithArgs("tok").WillReturnResult(tt.result)
			err := repo.IncrementUploaded(context.Background(), "tok")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMarkComplete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)UPDATE upload_sessions SET is_complete = TRUE, storage_key = \$2.*WHERE token = \$1 AND NOT is_complete`
	mock.ExpectExec(q).WithArgs("tok", "key").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.MarkComplete(context.Background(), "tok", "key"))

	mock.ExpectExec(q).WithArgs("tok", "key").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.MarkComplete(context.Background(), "tok", "key"), common.ErrSessionState)

	mock.ExpectExec(q).WithArgs("tok", "key").WillReturnResult(sqlmock.NewResult(0, 3))
	assert.EqualError(t, repo.MarkComplete(context.Background(), "tok", "key"), "wrong rows affected count: 3")

	mock.ExpectExec(q).WithArgs("tok", "key").WillReturnResult(sqlmock.NewErrorResult(errors.New("ra")))
	assert.EqualError(t, repo.MarkComplete(context.Background(), "tok", "key"), "rows affected error: ra")
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM upload_sessions WHERE token = \$1`).WithArgs("tok").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "tok"))

	mock.ExpectExec(`DELETE FROM upload_sessions`).WithArgs("tok").WillReturnError(errors.New("x"))
	assert.EqualError(t, repo.Delete(context.Background(), "tok"), "failed to delete session: x")
}

func TestListExpired(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	cutoff := time.Now().Add(-24 * time.Hour)
	old := cutoff.Add(-time.Minute)
	mock.ExpectQuery(`(?s)WHERE NOT is_complete AND updated_at < \$1\s+ORDER BY updated_at`).
		WithArgs(cutoff).
		WillReturnRows(sessionRow(old).AddRow("tok2", "f2", "u2", "t2", "b.bin", int64(1), 1, int64(1), 0, false, "", old, old))

	got, err := repo.ListExpired(context.Background(), cutoff)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tok2", got[1].Token)

	mock.ExpectQuery(`FROM upload_sessions`).WillReturnError(errors.New("down"))
	_, err = repo.ListExpired(context.Background(), cutoff)
	assert.EqualError(t, err, "failed to select sessions: down")
}
