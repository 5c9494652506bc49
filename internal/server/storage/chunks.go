// Package storage holds the on-disk chunk staging area and the blob stores
// for encrypted file artifacts.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/google/uuid"
)

// ChunkStore stages raw chunk bytes under <root>/<token>/chunk_NNNNNN.
type ChunkStore struct {
	root string
}

// NewChunkStore creates the staging root if needed.
func NewChunkStore(root string) (*ChunkStore, error) {
	abs, err := filex.EnsureDir(root)
	if err != nil {
		return nil, err
	}
	return &ChunkStore{root: abs}, nil
}

func (s *ChunkStore) sessionDir(token string) (string, error) {
	if _, err := uuid.Parse(token); err != nil {
		return "", fmt.Errorf("%w: malformed upload token", common.ErrValidation)
	}
	return filepath.Join(s.root, token), nil
}

func chunkName(index int) string {
	return fmt.Sprintf("chunk_%06d", index)
}

// WriteChunk stores data for the given index, replacing any previous bytes.
func (s *ChunkStore) WriteChunk(ctx context.Context, token string, index int, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("%w: negative chunk index", common.ErrValidation)
	}
	dir, err := s.sessionDir(token)
	if err != nil {
		return err
	}
	return filex.WriteFileAtomic(filepath.Join(dir, chunkName(index)), data, 0o600)
}

// ReadAllOrdered returns chunks 0..total-1 in index order.
func (s *ChunkStore) ReadAllOrdered(ctx context.Context, token string, total int) ([][]byte, error) {
	dir, err := s.sessionDir(token)
	if err != nil {
		return nil, err
	}

	out := make([][]byte, 0, total)
	for i := range total {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(filepath.Join(dir, chunkName(i)))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &common.MissingChunkError{Index: i}
			}
			return nil, fmt.Errorf("read chunk %d: %w", i, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// Purge removes every staged byte of the session. A missing session is a no-op.
func (s *ChunkStore) Purge(ctx context.Context, token string) error {
	dir, err := s.sessionDir(token)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge %s: %w", token, err)
	}
	return nil
}
