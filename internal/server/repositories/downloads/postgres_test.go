package downloads

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	mock.ExpectQuery(`(?s)INSERT INTO download_transactions .*RETURNING id, created_at`).
		WithArgs("f1", "u1", "10.0.0.1", "curl/8").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))

	tx := &models.DownloadTransaction{FileID: "f1", UserID: "u1", IPAddress: "10.0.0.1", UserAgent: "curl/8"}
	require.NoError(t, repo.Create(context.Background(), tx))
	assert.Equal(t, int64(7), tx.ID)
	assert.Equal(t, now, tx.CreatedAt)

	mock.ExpectQuery(`INSERT INTO download_transactions`).WillReturnError(errors.New("fk"))
	assert.EqualError(t, repo.Create(context.Background(), tx), "db error: fk")
}

func TestListForOwner(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	repo := NewPostgresRepository(db)

	now := time.Now()
	cols := []string{"id", "file_id", "user_id", "created_at", "ip_address", "user_agent"}
	mock.ExpectQuery(`(?s)JOIN files f ON f.id = d.file_id\s+WHERE f.user_id = \$1`).
		WithArgs("owner").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(1), "f1", "owner", now, "", "Firefox").
			AddRow(int64(2), "f1", "owner", now, "", "Chrome"))

	got, err := repo.ListForOwner(context.Background(), "owner")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Chrome", got[1].UserAgent)

	mock.ExpectQuery(`FROM download_transactions`).WithArgs("owner").WillReturnError(errors.New("down"))
	_, err = repo.ListForOwner(context.Background(), "owner")
	assert.EqualError(t, err, "failed to select downloads: down")
}
