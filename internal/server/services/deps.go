// Package services contains server-side business logic: the chunked upload
// lifecycle, single-shot uploads, downloads, analytics and summaries.
package services

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/notify"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/storage"
)

// ChunkStager is the staging area of in-flight chunk bytes.
type ChunkStager interface {
	WriteChunk(ctx context.Context, token string, index int, data []byte) error
	ReadAllOrdered(ctx context.Context, token string, total int) ([][]byte, error)
	Purge(ctx context.Context, token string) error
}

// Deps bundles collaborators shared by the services.
type Deps struct {
	Runner dbx.Runner
	Repos  repomanager.RepositoryManager
	Chunks ChunkStager
	Blobs  storage.BlobStore
	// Key is the AES key used for blobs at rest.
	Key    []byte
	Events notify.Publisher
	Logger logging.Logger
}

func (d Deps) events() notify.Publisher {
	if d.Events == nil {
		return notify.Noop{}
	}
	return d.Events
}

func (d Deps) logger(module string) logging.Logger {
	if d.Logger == nil {
		return logging.NewDiscardLogger().With("module", module)
	}
	return d.Logger.With("module", module)
}
