package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStorageKey(t *testing.T) {
	re := regexp.MustCompile(`^user_files/\d{10}\.pdf$`)

	k1, err := NewStorageKey("../Report.PDF")
	require.NoError(t, err)
	assert.Regexp(t, re, k1)

	k2, err := NewStorageKey("noext")
	require.NoError(t, err)
	assert.Regexp(t, `^user_files/\d{10}$`, k2)
}

func TestLocalBlobStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewLocalBlobStore(root)
	require.NoError(t, err)

	key := "user_files/0123456789.txt"
	require.NoError(t, s.Put(ctx, key, []byte("sealed")))

	_, err = os.Stat(filepath.Join(root, "user_files", "0123456789.txt"))
	require.NoError(t, err)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("sealed"), got)
	assert.Equal(t, "/media/"+key, s.URL(key))

	require.NoError(t, s.Delete(ctx, key))
	require.NoError(t, s.Delete(ctx, key))

	_, err = s.Get(ctx, key)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocalBlobStore_RejectsTraversal(t *testing.T) {
	s, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, s.Put(context.Background(), "../escape", []byte("x")), common.ErrValidation)
	_, err = s.Get(context.Background(), "")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestLocalBlobStore_PutRefusesExistingKey(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	key := "user_files/0123456789.txt"
	require.NoError(t, s.Put(ctx, key, []byte("alice's encrypted blob")))

	err = s.Put(ctx, key, []byte("bob's encrypted blob"))
	assert.ErrorIs(t, err, common.ErrAlreadyExists)

	got, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("alice's encrypted blob"), got)
}

// takenKeys rejects the first taken Puts as if the key already existed.
type takenKeys struct {
	BlobStore
	taken int
	err   error
	keys  []string
}

func (b *takenKeys) Put(ctx context.Context, key string, data []byte) error {
	b.keys = append(b.keys, key)
	if b.err != nil {
		return b.err
	}
	if len(b.keys) <= b.taken {
		return common.ErrAlreadyExists
	}
	return b.BlobStore.Put(ctx, key, data)
}

func TestPutNew(t *testing.T) {
	ctx := context.Background()

	t.Run("retries taken keys", func(t *testing.T) {
		local, err := NewLocalBlobStore(t.TempDir())
		require.NoError(t, err)
		b := &takenKeys{BlobStore: local, taken: 2}

		key, err := PutNew(ctx, b, "notes.txt", []byte("sealed"))
		require.NoError(t, err)
		require.Len(t, b.keys, 3)
		assert.Equal(t, b.keys[2], key)
		assert.Regexp(t, `^user_files/\d{10}\.txt$`, key)

		got, err := local.Get(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("sealed"), got)
	})

	t.Run("gives up after bounded attempts", func(t *testing.T) {
		b := &takenKeys{taken: maxKeyAttempts + 1}

		_, err := PutNew(ctx, b, "notes.txt", []byte("sealed"))
		assert.ErrorIs(t, err, common.ErrAlreadyExists)
		assert.Len(t, b.keys, maxKeyAttempts)
	})

	t.Run("other errors stop at once", func(t *testing.T) {
		boom := errors.New("disk full")
		b := &takenKeys{err: boom}

		_, err := PutNew(ctx, b, "notes.txt", []byte("sealed"))
		assert.ErrorIs(t, err, boom)
		assert.Len(t, b.keys, 1)
	})
}
