package uploads

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE pending_uploads (
    token        TEXT PRIMARY KEY,
    file_id      TEXT NOT NULL,
    path         TEXT NOT NULL,
    title        TEXT NOT NULL,
    file_size    INTEGER NOT NULL,
    chunk_size   INTEGER NOT NULL,
    total_chunks INTEGER NOT NULL,
    created_at   INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func sample(token string, created time.Time) *models.PendingUpload {
	return &models.PendingUpload{
		Token:       token,
		FileID:      "file-" + token,
		Path:        "/data/" + token + ".bin",
		Title:       "title " + token,
		FileSize:    2500,
		ChunkSize:   1000,
		TotalChunks: 3,
		CreatedAt:   created,
	}
}

func TestSaveAndGet(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, sample("t1", created)))

	got, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, sample("t1", created), got)
}

func TestSave_SetsCreatedAtAndUpserts(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	u := sample("t1", time.Time{})
	require.NoError(t, r.Save(ctx, u))
	assert.False(t, u.CreatedAt.IsZero())

	u.Path = "/moved.bin"
	require.NoError(t, r.Save(ctx, u))

	got, err := r.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "/moved.bin", got.Path)

	all, err := r.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGet_NotFound(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	_, err := r.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAndList(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Save(ctx, sample("b", base.Add(time.Hour))))
	require.NoError(t, r.Save(ctx, sample("a", base)))
	require.NoError(t, r.Save(ctx, sample("c", base.Add(2*time.Hour))))

	require.NoError(t, r.Delete(ctx, "b"))
	require.NoError(t, r.Delete(ctx, "b"))

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Token)
	assert.Equal(t, "c", all[1].Token)
}

func TestList_Empty(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))

	all, err := r.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk full")
	mock.ExpectExec("INSERT INTO pending_uploads").WillReturnError(boom)
	mock.ExpectExec("DELETE FROM pending_uploads").WillReturnError(boom)
	mock.ExpectQuery("SELECT token").WillReturnError(boom)
	mock.ExpectQuery("SELECT token").WillReturnError(boom)

	r := NewSQLiteRepository(db)
	ctx := context.Background()

	err = r.Save(ctx, sample("t", time.Now()))
	assert.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "failed to save pending upload t")

	assert.ErrorIs(t, r.Delete(ctx, "t"), boom)

	_, err = r.Get(ctx, "t")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, common.ErrNotFound)

	_, err = r.List(ctx)
	assert.ErrorIs(t, err, boom)

	require.NoError(t, mock.ExpectationsWereMet())
}
