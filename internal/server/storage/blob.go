package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
)

// BlobStore keeps encrypted file artifacts addressed by storage key.
type BlobStore interface {
	// Put never replaces an existing key. It returns common.ErrAlreadyExists
	// when the key is taken.
	Put(ctx context.Context, key string, data []byte) error
	// Get returns common.ErrNotFound when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// URL returns the public locator of the key.
	URL(key string) string
}

// storageKeyDigits is the length of the random stem of a storage key.
const storageKeyDigits = 10

// NewStorageKey returns user_files/<10 random digits><ext of fileName>.
func NewStorageKey(fileName string) (string, error) {
	stem, err := common.MakeRandDigits(storageKeyDigits)
	if err != nil {
		return "", fmt.Errorf("storage key: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	return common.UploadsDir + "/" + stem + ext, nil
}

// maxKeyAttempts bounds the fresh keys tried by PutNew.
const maxKeyAttempts = 5

// PutNew stores data under a fresh storage key derived from fileName and
// returns the key. A taken key is replaced by a new random one.
func PutNew(ctx context.Context, blobs BlobStore, fileName string, data []byte) (string, error) {
	for range maxKeyAttempts {
		key, err := NewStorageKey(fileName)
		if err != nil {
			return "", err
		}
		err = blobs.Put(ctx, key, data)
		if err == nil {
			return key, nil
		}
		if !errors.Is(err, common.ErrAlreadyExists) {
			return "", err
		}
	}
	return "", fmt.Errorf("%w: no free storage key after %d attempts", common.ErrAlreadyExists, maxKeyAttempts)
}
