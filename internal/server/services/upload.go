package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/notify"
	"github.com/dmitrijs2005/gophvault/internal/server/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// InitRequest declares a chunked upload.
type InitRequest struct {
	Title       string
	FileName    string
	TotalSize   int64
	TotalChunks int
	ChunkSize   int64
}

// InitResult identifies a freshly opened session.
type InitResult struct {
	Token       string
	FileID      string
	TotalChunks int
	ChunkSize   int64
}

// Progress is returned after each accepted chunk.
type Progress struct {
	Token          string
	Index          int
	Size           int
	UploadedChunks int
	TotalChunks    int
	Percentage     float64
	// IsComplete reports that every declared chunk has been received.
	IsComplete bool
}

// Status describes a session and the chunks it still needs.
type Status struct {
	Token          string
	Title          string
	TotalChunks    int
	UploadedChunks int
	Percentage     float64
	// IsComplete reports that every declared chunk has been received.
	IsComplete bool
	// Finalized reports that the file has been assembled.
	Finalized     bool
	MissingChunks []int
}

// UploadService drives the chunked upload lifecycle.
type UploadService struct {
	deps   Deps
	locks  *keyedMutex
	pool   *semaphore.Weighted
	logger logging.Logger
	now    func() time.Time
}

// NewUploadService bounds concurrent assemblies to maxAssemblies (at least one).
func NewUploadService(deps Deps, maxAssemblies int) *UploadService {
	if maxAssemblies < 1 {
		maxAssemblies = 1
	}
	return &UploadService{
		deps:   deps,
		locks:  newKeyedMutex(),
		pool:   semaphore.NewWeighted(int64(maxAssemblies)),
		logger: deps.logger("upload"),
		now:    time.Now,
	}
}

func sanitizeFileName(name string) string {
	name = filepath.Base(strings.TrimSpace(strings.ReplaceAll(name, "\\", "/")))
	if name == "." || name == "/" {
		return ""
	}
	return name
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, msg)
}

// Init opens a session and its incomplete file record in one transaction.
func (s *UploadService) Init(ctx context.Context, userID string, req InitRequest) (*InitResult, error) {
	title := strings.TrimSpace(req.Title)
	fileName := sanitizeFileName(req.FileName)
	switch {
	case title == "":
		return nil, validationError("file title is required")
	case fileName == "":
		return nil, validationError("file name is required")
	case req.TotalChunks < 1:
		return nil, validationError("total_chunks must be at least 1")
	case req.TotalSize < 0:
		return nil, validationError("file_size must not be negative")
	case req.ChunkSize < 0:
		return nil, validationError("chunk_size must not be negative")
	}

	file := &models.File{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    title,
		FileName: fileName,
		FileSize: strconv.FormatInt(req.TotalSize, 10),
	}
	session := &models.UploadSession{
		Token:       uuid.NewString(),
		FileID:      file.ID,
		UserID:      userID,
		Title:       title,
		FileName:    fileName,
		TotalSize:   req.TotalSize,
		TotalChunks: req.TotalChunks,
		ChunkSize:   req.ChunkSize,
	}

	err := s.deps.Runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.deps.Repos.Files(tx).Create(ctx, file); err != nil {
			return err
		}
		return s.deps.Repos.Sessions(tx).Create(ctx, session)
	})
	if err != nil {
		return nil, fmt.Errorf("init upload: %w", err)
	}

	s.logger.Info(ctx, "upload session opened", "upload_id", session.Token, "file_id", file.ID, "total_chunks", req.TotalChunks)

	return &InitResult{
		Token:       session.Token,
		FileID:      file.ID,
		TotalChunks: session.TotalChunks,
		ChunkSize:   session.ChunkSize,
	}, nil
}

// ownedSession loads a session visible to userID. Foreign sessions look absent.
func (s *UploadService) ownedSession(ctx context.Context, db dbx.DBTX, userID, token string, forUpdate bool) (*models.UploadSession, error) {
	if _, err := uuid.Parse(token); err != nil {
		return nil, common.ErrNotFound
	}

	repo := s.deps.Repos.Sessions(db)
	var (
		session *models.UploadSession
		err     error
	)
	if forUpdate {
		session, err = repo.GetForUpdate(ctx, token)
	} else {
		session, err = repo.Get(ctx, token)
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, common.ErrNotFound
	}
	return session, nil
}

// RecordChunk verifies and stages one chunk and marks it received.
func (s *UploadService) RecordChunk(ctx context.Context, userID, token string, index int, data []byte, digest string) (*Progress, error) {
	session, err := s.ownedSession(ctx, s.deps.Runner.Conn(), userID, token, false)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, fmt.Errorf("%w: upload already completed", common.ErrSessionState)
	}
	if index < 0 || index >= session.TotalChunks {
		return nil, validationError(fmt.Sprintf("chunk_number %d out of range [0, %d)", index, session.TotalChunks))
	}

	computed, err := cryptox.VerifyDigest(data, digest)
	if err != nil {
		s.logger.Warn(ctx, "chunk rejected", "upload_id", token, "index", index, "error", err)
		return nil, err
	}

	unlock := s.locks.Lock(token)
	defer unlock()

	var uploaded int
	err = s.deps.Runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		session, err := s.ownedSession(ctx, tx, userID, token, true)
		if err != nil {
			return err
		}
		if session.IsComplete {
			return fmt.Errorf("%w: upload already completed", common.ErrSessionState)
		}

		chunks := s.deps.Repos.Chunks(tx)
		prev, err := chunks.Get(ctx, token, index)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		firstReceipt := prev == nil || !prev.IsReceived

		if err := s.deps.Chunks.WriteChunk(ctx, token, index, data); err != nil {
			return fmt.Errorf("stage chunk: %w", err)
		}

		if err := chunks.Upsert(ctx, &models.ChunkRecord{
			SessionToken: token,
			Index:        index,
			Size:         int64(len(data)),
			Digest:       computed,
			IsReceived:   true,
			ReceivedAt:   s.now(),
		}); err != nil {
			return err
		}

		uploaded = session.UploadedChunks
		if firstReceipt {
			if err := s.deps.Repos.Sessions(tx).IncrementUploaded(ctx, token); err != nil {
				return fmt.Errorf("increment counter: %w", err)
			}
			uploaded++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug(ctx, "chunk stored", "upload_id", token, "index", index, "size", len(data), "uploaded", uploaded)

	return &Progress{
		Token:          token,
		Index:          index,
		Size:           len(data),
		UploadedChunks: uploaded,
		TotalChunks:    session.TotalChunks,
		Percentage:     models.ProgressPercentage(uploaded, session.TotalChunks),
		IsComplete:     uploaded >= session.TotalChunks,
	}, nil
}

func missingIndices(total int, received []int) []int {
	have := make(map[int]struct{}, len(received))
	for _, i := range received {
		have[i] = struct{}{}
	}
	var missing []int
	for i := range total {
		if _, ok := have[i]; !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// Status reports progress and the ordered list of missing chunk indices.
func (s *UploadService) Status(ctx context.Context, userID, token string) (*Status, error) {
	conn := s.deps.Runner.Conn()
	session, err := s.ownedSession(ctx, conn, userID, token, false)
	if err != nil {
		return nil, err
	}

	received, err := s.deps.Repos.Chunks(conn).ReceivedIndices(ctx, token)
	if err != nil {
		return nil, err
	}

	st := &Status{
		Token:          token,
		Title:          session.Title,
		TotalChunks:    session.TotalChunks,
		UploadedChunks: session.UploadedChunks,
		Percentage:     session.Percentage(),
		IsComplete:     session.AllReceived(),
		Finalized:      session.IsComplete,
	}
	if !session.IsComplete {
		st.MissingChunks = missingIndices(session.TotalChunks, received)
	}
	return st, nil
}

// Cancel discards an unfinished session with its staged bytes and rows.
func (s *UploadService) Cancel(ctx context.Context, userID, token string) error {
	unlock := s.locks.Lock(token)
	defer unlock()

	session, err := s.ownedSession(ctx, s.deps.Runner.Conn(), userID, token, false)
	if err != nil {
		return err
	}
	if session.IsComplete {
		return fmt.Errorf("%w: upload already completed", common.ErrSessionState)
	}

	if err := s.discard(ctx, session); err != nil {
		return err
	}

	s.logger.Info(ctx, "upload cancelled", "upload_id", token)
	s.deps.events().Publish(ctx, notify.Event{
		Type:   notify.EventUploadCancelled,
		UserID: userID,
		Data:   map[string]any{"upload_id": token, "file_id": session.FileID, "file_title": session.Title},
	})
	return nil
}

// discard deletes session, chunk and file rows, then purges staging.
// Callers hold the session lock.
func (s *UploadService) discard(ctx context.Context, session *models.UploadSession) error {
	err := s.deps.Runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := s.deps.Repos.Sessions(tx).GetForUpdate(ctx, session.Token)
		if err != nil {
			return err
		}
		if current.IsComplete {
			return fmt.Errorf("%w: upload already completed", common.ErrSessionState)
		}
		if err := s.deps.Repos.Chunks(tx).DeleteBySession(ctx, session.Token); err != nil {
			return err
		}
		if err := s.deps.Repos.Sessions(tx).Delete(ctx, session.Token); err != nil {
			return err
		}
		return s.deps.Repos.Files(tx).Delete(ctx, session.FileID)
	})
	if err != nil {
		return err
	}

	if err := s.deps.Chunks.Purge(context.WithoutCancel(ctx), session.Token); err != nil {
		s.logger.Warn(ctx, "staging purge failed", "upload_id", session.Token, "error", err)
	}
	return nil
}

// Complete assembles, encrypts and commits the uploaded file.
func (s *UploadService) Complete(ctx context.Context, userID, token string) (*models.File, error) {
	unlock := s.locks.Lock(token)
	defer unlock()

	conn := s.deps.Runner.Conn()
	session, err := s.ownedSession(ctx, conn, userID, token, false)
	if err != nil {
		return nil, err
	}
	if session.IsComplete {
		return nil, fmt.Errorf("%w: upload already completed", common.ErrSessionState)
	}

	received, err := s.deps.Repos.Chunks(conn).ReceivedIndices(ctx, token)
	if err != nil {
		return nil, err
	}
	if missing := missingIndices(session.TotalChunks, received); len(missing) > 0 {
		return nil, &common.IncompleteUploadError{Missing: missing}
	}

	if err := s.pool.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.pool.Release(1)

	file, err := s.assemble(ctx, userID, session)
	if err != nil {
		s.logger.Error(ctx, "assembly failed", "upload_id", token, "error", err)
		return nil, err
	}

	if err := s.deps.Chunks.Purge(ctx, token); err != nil {
		s.logger.Warn(ctx, "staging purge failed", "upload_id", token, "error", err)
	}

	s.logger.Info(ctx, "upload completed", "upload_id", token, "file_id", file.ID, "size", file.FileSize)
	s.deps.events().Publish(ctx, notify.Event{
		Type:   notify.EventUploadCompleted,
		UserID: userID,
		Data: map[string]any{
			"file_id":    file.ID,
			"file_title": file.Title,
			"file_name":  file.FileName,
			"file_size":  file.FileSize,
			"chunked":    true,
		},
	})
	return file, nil
}

func (s *UploadService) assemble(ctx context.Context, userID string, session *models.UploadSession) (*models.File, error) {
	parts, err := s.deps.Chunks.ReadAllOrdered(ctx, session.Token, session.TotalChunks)
	if err != nil {
		return nil, &common.AssemblyError{Err: err}
	}

	size := 0
	for _, p := range parts {
		size += len(p)
	}
	plain := make([]byte, 0, size)
	for _, p := range parts {
		plain = append(plain, p...)
	}

	sealed, err := cryptox.Encrypt(plain, s.deps.Key)
	if err != nil {
		return nil, &common.AssemblyError{Err: err}
	}

	key, err := storage.PutNew(ctx, s.deps.Blobs, session.FileName, sealed)
	if err != nil {
		return nil, &common.AssemblyError{Err: err}
	}

	fileSize := strconv.Itoa(size)
	err = s.deps.Runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		current, err := s.deps.Repos.Sessions(tx).GetForUpdate(ctx, session.Token)
		if err != nil {
			return err
		}
		if current.IsComplete {
			return common.ErrSessionState
		}
		if err := s.deps.Repos.Files(tx).MarkComplete(ctx, session.FileID, key, fileSize); err != nil {
			return err
		}
		if err := s.deps.Repos.Sessions(tx).MarkComplete(ctx, session.Token, key); err != nil {
			return err
		}
		return s.deps.Repos.Chunks(tx).DeleteBySession(ctx, session.Token)
	})
	if err != nil {
		if derr := s.deps.Blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn(ctx, "orphan blob not removed", "storage_key", key, "error", derr)
		}
		if errors.Is(err, common.ErrSessionState) {
			return nil, fmt.Errorf("%w: upload already completed", common.ErrSessionState)
		}
		return nil, &common.AssemblyError{Err: err}
	}

	file, err := s.deps.Repos.Files(s.deps.Runner.Conn()).GetOwned(ctx, session.FileID, userID)
	if err != nil {
		return nil, &common.AssemblyError{Err: err}
	}
	return file, nil
}
