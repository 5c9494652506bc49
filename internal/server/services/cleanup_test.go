package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupExpiredSessions(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()

	stale := initUpload(t, e, "u1", 3)
	_, err := e.uploads.RecordChunk(ctx, "u1", stale.Token, 0, []byte("abc"), "")
	require.NoError(t, err)

	done := initUpload(t, e, "u1", 1)
	_, err = e.uploads.RecordChunk(ctx, "u1", done.Token, 0, []byte("z"), "")
	require.NoError(t, err)
	_, err = e.uploads.Complete(ctx, "u1", done.Token)
	require.NoError(t, err)

	cleanup := NewCleanupService(e.uploads, 24*time.Hour)

	removed, err := cleanup.CleanupExpiredSessions(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, removed, "fresh sessions survive")

	removed, err = cleanup.CleanupExpiredSessions(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = e.uploads.Status(ctx, "u1", stale.Token)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = os.Stat(filepath.Join(e.staging, stale.Token))
	assert.True(t, os.IsNotExist(err))
	_, err = e.repos.Files(nil).GetOwned(ctx, stale.FileID, "u1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	st, err := e.uploads.Status(ctx, "u1", done.Token)
	require.NoError(t, err)
	assert.True(t, st.Finalized, "completed sessions are never removed")

	removed, err = cleanup.CleanupExpiredSessions(ctx, time.Now().Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
}

func TestCleanupExpiredSessions_CanceledContext(t *testing.T) {
	e := newTestEnv(t)
	initUpload(t, e, "u1", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	removed, err := NewCleanupService(e.uploads, time.Hour).CleanupExpiredSessions(ctx, time.Now().Add(2*time.Hour))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, removed)
}

func TestCleanupRun_StopsWithContext(t *testing.T) {
	e := newTestEnv(t)
	res := initUpload(t, e, "u1", 2)

	// a zero TTL makes every idle session expired on the first tick
	cleanup := NewCleanupService(e.uploads, 0)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		cleanup.Run(ctx, 10*time.Millisecond)
		close(stopped)
	}()

	assert.Eventually(t, func() bool {
		_, err := e.uploads.Status(context.Background(), "u1", res.Token)
		return err != nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
