// Package services implements the client-side workflows of the GophVault CLI:
// chunked uploads with resume, downloads and listings.
package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/repositories/uploads"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/netx"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"
)

// ErrNoLocalState is returned when resuming an upload this client never started.
var ErrNoLocalState = errors.New("no local state for upload")

// ProgressFunc receives the number of chunks the server holds and the total.
// Calls are serialized.
type ProgressFunc func(done, total int)

type UploadOptions struct {
	ChunkSize   int64
	Parallelism int
	MaxRetries  int
	RetryDelay  time.Duration
}

// UploadService splits local files into chunks and drives the server's
// chunked upload lifecycle. Unfinished uploads are remembered in the state
// repository so they can be resumed.
type UploadService struct {
	api    client.API
	state  uploads.Repository
	opts   UploadOptions
	logger logging.Logger
}

func NewUploadService(api client.API, state uploads.Repository, opts UploadOptions, logger logging.Logger) *UploadService {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1 << 20
	}
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 100 * time.Millisecond
	}
	return &UploadService{api: api, state: state, opts: opts, logger: logger}
}

// chunkCount returns how many chunks a file of size bytes is split into.
// An empty file is sent as a single empty chunk.
func chunkCount(size, chunkSize int64) int {
	if size == 0 {
		return 1
	}
	return int((size + chunkSize - 1) / chunkSize)
}

// Upload sends the file at path as a new chunked upload titled title.
func (s *UploadService) Upload(ctx context.Context, path, title string, progress ProgressFunc) (*client.CompleteUploadResponse, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", common.ErrValidation, path)
	}
	if title == "" {
		title = fi.Name()
	}

	total := chunkCount(fi.Size(), s.opts.ChunkSize)
	init, err := s.api.InitUpload(ctx, client.InitUploadRequest{
		FileTitle:   title,
		FileName:    fi.Name(),
		FileSize:    fi.Size(),
		TotalChunks: total,
		ChunkSize:   s.opts.ChunkSize,
	})
	if err != nil {
		return nil, fmt.Errorf("init upload: %w", err)
	}

	pending := &models.PendingUpload{
		Token:       init.UploadID,
		FileID:      init.FileID,
		Path:        abs,
		Title:       title,
		FileSize:    fi.Size(),
		ChunkSize:   s.opts.ChunkSize,
		TotalChunks: total,
	}
	if err := s.state.Save(ctx, pending); err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "upload started", "upload_id", pending.Token, "chunks", total)

	all := make([]int, total)
	for i := range all {
		all[i] = i
	}
	done, err := s.run(ctx, pending, all, progress)
	if err != nil {
		return nil, fmt.Errorf("upload %s interrupted: %w", pending.Token, err)
	}
	return done, nil
}

// Resume uploads only the chunks the server is still missing and completes
// the upload.
func (s *UploadService) Resume(ctx context.Context, token string, progress ProgressFunc) (*client.CompleteUploadResponse, error) {
	pending, err := s.state.Get(ctx, token)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("%w %s", ErrNoLocalState, token)
	}
	if err != nil {
		return nil, err
	}

	fi, err := os.Stat(pending.Path)
	if err != nil {
		return nil, fmt.Errorf("source file: %w", err)
	}
	if fi.Size() != pending.FileSize {
		return nil, fmt.Errorf("%w: %s changed size since the upload started (%d -> %d)",
			common.ErrValidation, pending.Path, pending.FileSize, fi.Size())
	}

	st, err := s.api.Status(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("upload status: %w", err)
	}
	s.logger.Info(ctx, "resuming upload", "upload_id", token, "missing", len(st.MissingChunks))

	return s.run(ctx, pending, st.MissingChunks, progress)
}

// run sends the given chunks, then completes. When the server still reports
// missing chunks at completion they are sent once more.
func (s *UploadService) run(ctx context.Context, pending *models.PendingUpload, indices []int, progress ProgressFunc) (*client.CompleteUploadResponse, error) {
	f, err := os.Open(pending.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tracker := newTracker(pending.TotalChunks-len(indices), pending.TotalChunks, progress)
	tracker.report()

	for round := 0; ; round++ {
		if err := s.sendChunks(ctx, f, pending, indices, tracker); err != nil {
			return nil, err
		}

		done, err := s.api.Complete(ctx, pending.Token)
		var incomplete *common.IncompleteUploadError
		switch {
		case err == nil:
			s.forget(ctx, pending.Token)
			s.logger.Info(ctx, "upload completed", "upload_id", pending.Token, "file_id", done.FileID)
			return done, nil
		case errors.Is(err, common.ErrSessionState):
			// finished by an earlier run that did not get to clean up
			s.forget(ctx, pending.Token)
			return &client.CompleteUploadResponse{FileID: pending.FileID, FileSize: fmt.Sprint(pending.FileSize)}, nil
		case errors.As(err, &incomplete) && round == 0:
			indices = incomplete.Missing
			s.logger.Warn(ctx, "server is missing chunks, resending", "upload_id", pending.Token, "missing", common.JoinInts(indices))
		default:
			return nil, fmt.Errorf("complete upload: %w", err)
		}
	}
}

func (s *UploadService) sendChunks(ctx context.Context, f *os.File, pending *models.PendingUpload, indices []int, tracker *tracker) error {
	for _, index := range indices {
		if index < 0 || index >= pending.TotalChunks {
			return fmt.Errorf("server reported chunk %d outside [0, %d)", index, pending.TotalChunks)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Parallelism)

	for _, index := range indices {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			data, err := readChunk(f, pending, index)
			if err != nil {
				return err
			}
			if err := s.sendChunk(gctx, pending.Token, index, data); err != nil {
				return err
			}
			tracker.add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func readChunk(f *os.File, pending *models.PendingUpload, index int) ([]byte, error) {
	offset := int64(index) * pending.ChunkSize
	size := min(pending.ChunkSize, pending.FileSize-offset)
	if size < 0 {
		size = 0
	}

	buf := make([]byte, size)
	if n, err := f.ReadAt(buf, offset); n < len(buf) {
		return nil, fmt.Errorf("read chunk %d: %w", index, err)
	}
	return buf, nil
}

// sendChunk uploads one chunk with its full digest, retrying transient
// failures and digest mismatches with exponential backoff.
func (s *UploadService) sendChunk(ctx context.Context, token string, index int, data []byte) error {
	digest := cryptox.MD5Hex(data)
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxRetries), retry.NewExponential(s.opts.RetryDelay))

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		_, err := s.api.UploadChunk(ctx, token, index, digest, data)
		if err == nil {
			return nil
		}
		if errors.Is(err, common.ErrIntegrity) || netx.Retryable(err) {
			s.logger.Warn(ctx, "chunk upload failed, retrying", "upload_id", token, "index", index, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("chunk %d: %w", index, err)
	}
	return nil
}

// Status asks the server for the progress of an upload.
func (s *UploadService) Status(ctx context.Context, token string) (*client.StatusResponse, error) {
	return s.api.Status(ctx, token)
}

// Cancel aborts an upload on the server and forgets it locally. An upload
// the server no longer knows is forgotten as well.
func (s *UploadService) Cancel(ctx context.Context, token string) error {
	err := s.api.Cancel(ctx, token)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	s.forget(ctx, token)
	return err
}

// Pending lists uploads started by this client that are not finished.
func (s *UploadService) Pending(ctx context.Context) ([]*models.PendingUpload, error) {
	return s.state.List(ctx)
}

func (s *UploadService) forget(ctx context.Context, token string) {
	if err := s.state.Delete(context.WithoutCancel(ctx), token); err != nil {
		s.logger.Warn(ctx, "failed to drop local upload state", "upload_id", token, "error", err)
	}
}

// tracker counts acknowledged chunks and forwards them to a ProgressFunc.
type tracker struct {
	mu       sync.Mutex
	done     int
	total    int
	progress ProgressFunc
}

func newTracker(done, total int, progress ProgressFunc) *tracker {
	return &tracker{done: max(done, 0), total: total, progress: progress}
}

func (t *tracker) add(n int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = min(t.done+n, t.total)
	if t.progress != nil {
		t.progress(t.done, t.total)
	}
}

func (t *tracker) report() {
	t.add(0)
}
