package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/notify"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/storage"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Type
	}
	return out
}

type testEnv struct {
	repos     *repomanager.InMemoryRepositoryManager
	deps      Deps
	uploads   *UploadService
	files     *FileService
	events    *recordingPublisher
	staging   string
	mediaRoot string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, nil, nil)
}

// newTestEnvWith lets tests swap the repository manager or blob store.
func newTestEnvWith(t *testing.T, repos repomanager.RepositoryManager, blobs storage.BlobStore) *testEnv {
	t.Helper()

	dir := t.TempDir()
	staging := filepath.Join(dir, "chunk_uploads")
	mediaRoot := filepath.Join(dir, "media")

	chunks, err := storage.NewChunkStore(staging)
	require.NoError(t, err)

	if blobs == nil {
		local, err := storage.NewLocalBlobStore(mediaRoot)
		require.NoError(t, err)
		blobs = local
	}

	mem := repomanager.NewInMemoryRepositoryManager()
	if repos == nil {
		repos = mem
	}

	events := &recordingPublisher{}
	deps := Deps{
		Runner: mem.Runner(),
		Repos:  repos,
		Chunks: chunks,
		Blobs:  blobs,
		Key:    testKey,
		Events: events,
	}

	return &testEnv{
		repos:     mem,
		deps:      deps,
		uploads:   NewUploadService(deps, 2),
		files:     NewFileService(deps, nil, 200),
		events:    events,
		staging:   staging,
		mediaRoot: mediaRoot,
	}
}

// blobCount returns the number of stored blobs.
func (e *testEnv) blobCount(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(e.mediaRoot, "user_files"))
	if os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, err)
	return len(entries)
}

func (e *testEnv) readFile(t *testing.T, userID, fileID string) []byte {
	t.Helper()
	d, err := e.files.Download(context.Background(), userID, fileID, Origin{})
	require.NoError(t, err)

	var buf bytes.Buffer
	for frame, err := range d.Frames {
		require.NoError(t, err)
		buf.Write(frame)
	}
	return buf.Bytes()
}

func md5hex(b []byte) string {
	return cryptox.MD5Hex(b)
}

// failingRunner commits nothing and returns err from every transaction.
type failingRunner struct {
	dbx.Runner
	err error
}

func (r failingRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return r.err
}
