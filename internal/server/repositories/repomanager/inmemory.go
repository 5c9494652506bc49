package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/chunks"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/downloads"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/files"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/summaries"
)

type chunkKey struct {
	token string
	index int
}

type memState struct {
	files     map[string]models.File
	fileSeq   map[string]int64
	sessions  map[string]models.UploadSession
	chunks    map[chunkKey]models.ChunkRecord
	downloads []models.DownloadTransaction
	summaries []models.Summary
	seq       int64
}

func newMemState() *memState {
	return &memState{
		files:    map[string]models.File{},
		fileSeq:  map[string]int64{},
		sessions: map[string]models.UploadSession{},
		chunks:   map[chunkKey]models.ChunkRecord{},
	}
}

func (s *memState) clone() *memState {
	return &memState{
		files:     maps.Clone(s.files),
		fileSeq:   maps.Clone(s.fileSeq),
		sessions:  maps.Clone(s.sessions),
		chunks:    maps.Clone(s.chunks),
		downloads: slices.Clone(s.downloads),
		summaries: slices.Clone(s.summaries),
		seq:       s.seq,
	}
}

func (s *memState) next() int64 {
	s.seq++
	return s.seq
}

// InMemoryRepositoryManager keeps all rows in process memory. Transactions
// run one at a time and roll back to a snapshot on error. Operations outside
// a transaction wait until the running one ends, so they never see
// uncommitted rows and a rollback never discards them.
type InMemoryRepositoryManager struct {
	mu    sync.Mutex
	txMu  sync.Mutex
	state *memState
	now   func() time.Time
}

func NewInMemoryRepositoryManager() *InMemoryRepositoryManager {
	return &InMemoryRepositoryManager{state: newMemState(), now: time.Now}
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return nil
}

func (m *InMemoryRepositoryManager) store(db dbx.DBTX) memStore {
	_, inTx := db.(memTx)
	return memStore{m: m, inTx: inTx}
}

func (m *InMemoryRepositoryManager) Files(db dbx.DBTX) files.Repository {
	return memFiles{m.store(db)}
}

func (m *InMemoryRepositoryManager) Sessions(db dbx.DBTX) sessions.Repository {
	return memSessions{m.store(db)}
}

func (m *InMemoryRepositoryManager) Chunks(db dbx.DBTX) chunks.Repository {
	return memChunks{m.store(db)}
}

func (m *InMemoryRepositoryManager) Downloads(db dbx.DBTX) downloads.Repository {
	return memDownloads{m.store(db)}
}

func (m *InMemoryRepositoryManager) Summaries(db dbx.DBTX) summaries.Repository {
	return memSummaries{m.store(db)}
}

// Runner returns a dbx.Runner whose transactions are applied to this manager.
func (m *InMemoryRepositoryManager) Runner() dbx.Runner {
	return memRunner{m}
}

var errMemTx = errors.New("in-memory transaction handle does not run SQL")

// memTx is the handle passed to InTx callbacks. Repositories built from it
// run inside the transaction that already holds txMu.
type memTx struct{}

func (memTx) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errMemTx
}

func (memTx) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errMemTx
}

func (memTx) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

type memStore struct {
	m    *InMemoryRepositoryManager
	inTx bool
}

func (st memStore) now() time.Time {
	return st.m.now()
}

func (st memStore) locked(fn func(s *memState) error) error {
	if !st.inTx {
		st.m.txMu.Lock()
		defer st.m.txMu.Unlock()
	}
	st.m.mu.Lock()
	defer st.m.mu.Unlock()
	return fn(st.m.state)
}

type memRunner struct {
	m *InMemoryRepositoryManager
}

func (r memRunner) Conn() dbx.DBTX {
	return nil
}

func (r memRunner) InTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	r.m.txMu.Lock()
	defer r.m.txMu.Unlock()

	r.m.mu.Lock()
	snapshot := r.m.state.clone()
	r.m.mu.Unlock()

	defer func() {
		p := recover()
		if p != nil || err != nil {
			r.m.mu.Lock()
			r.m.state = snapshot
			r.m.mu.Unlock()
		}
		if p != nil {
			panic(p)
		}
	}()

	return fn(ctx, memTx{})
}

type memFiles struct{ st memStore }

func (r memFiles) Create(ctx context.Context, f *models.File) error {
	return r.st.locked(func(s *memState) error {
		if _, ok := s.files[f.ID]; ok {
			return common.ErrAlreadyExists
		}
		f.CreatedAt = r.st.now()
		s.files[f.ID] = *f
		s.fileSeq[f.ID] = s.next()
		return nil
	})
}

func (r memFiles) GetOwned(ctx context.Context, id, userID string) (*models.File, error) {
	var out *models.File
	err := r.st.locked(func(s *memState) error {
		f, ok := s.files[id]
		if !ok || f.UserID != userID {
			return common.ErrNotFound
		}
		out = &f
		return nil
	})
	return out, err
}

func (r memFiles) MarkComplete(ctx context.Context, id, storageKey, fileSize string) error {
	return r.st.locked(func(s *memState) error {
		f, ok := s.files[id]
		if !ok || f.IsComplete {
			return common.ErrSessionState
		}
		f.IsComplete = true
		f.StorageKey = storageKey
		f.FileSize = fileSize
		s.files[id] = f
		return nil
	})
}

func (r memFiles) Delete(ctx context.Context, id string) error {
	return r.st.locked(func(s *memState) error {
		delete(s.files, id)
		delete(s.fileSeq, id)
		return nil
	})
}

func (r memFiles) ListByUser(ctx context.Context, userID string) ([]*models.File, error) {
	var out []*models.File
	err := r.st.locked(func(s *memState) error {
		for _, f := range s.files {
			if f.UserID == userID && f.IsComplete {
				out = append(out, &f)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			return s.fileSeq[out[i].ID] > s.fileSeq[out[j].ID]
		})
		return nil
	})
	return out, err
}

type memSessions struct{ st memStore }

func (r memSessions) Create(ctx context.Context, us *models.UploadSession) error {
	return r.st.locked(func(s *memState) error {
		if _, ok := s.sessions[us.Token]; ok {
			return common.ErrAlreadyExists
		}
		now := r.st.now()
		us.CreatedAt, us.UpdatedAt = now, now
		s.sessions[us.Token] = *us
		return nil
	})
}

func (r memSessions) Get(ctx context.Context, token string) (*models.UploadSession, error) {
	var out *models.UploadSession
	err := r.st.locked(func(s *memState) error {
		us, ok := s.sessions[token]
		if !ok {
			return common.ErrNotFound
		}
		out = &us
		return nil
	})
	return out, err
}

func (r memSessions) GetForUpdate(ctx context.Context, token string) (*models.UploadSession, error) {
	return r.Get(ctx, token)
}

func (r memSessions) IncrementUploaded(ctx context.Context, token string) error {
	return r.st.locked(func(s *memState) error {
		us, ok := s.sessions[token]
		if !ok || us.UploadedChunks >= us.TotalChunks {
			return common.ErrNotFound
		}
		us.UploadedChunks++
		us.UpdatedAt = r.st.now()
		s.sessions[token] = us
		return nil
	})
}

func (r memSessions) MarkComplete(ctx context.Context, token, storageKey string) error {
	return r.st.locked(func(s *memState) error {
		us, ok := s.sessions[token]
		if !ok || us.IsComplete {
			return common.ErrSessionState
		}
		us.IsComplete = true
		us.StorageKey = storageKey
		us.UpdatedAt = r.st.now()
		s.sessions[token] = us
		return nil
	})
}

func (r memSessions) Delete(ctx context.Context, token string) error {
	return r.st.locked(func(s *memState) error {
		delete(s.sessions, token)
		return nil
	})
}

func (r memSessions) ListExpired(ctx context.Context, before time.Time) ([]*models.UploadSession, error) {
	var out []*models.UploadSession
	err := r.st.locked(func(s *memState) error {
		for _, us := range s.sessions {
			if !us.IsComplete && us.UpdatedAt.Before(before) {
				out = append(out, &us)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
		return nil
	})
	return out, err
}

type memChunks struct{ st memStore }

func (r memChunks) Get(ctx context.Context, token string, index int) (*models.ChunkRecord, error) {
	var out *models.ChunkRecord
	err := r.st.locked(func(s *memState) error {
		c, ok := s.chunks[chunkKey{token, index}]
		if !ok {
			return common.ErrNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r memChunks) Upsert(ctx context.Context, c *models.ChunkRecord) error {
	return r.st.locked(func(s *memState) error {
		if _, ok := s.sessions[c.SessionToken]; !ok {
			return common.ErrNotFound
		}
		s.chunks[chunkKey{c.SessionToken, c.Index}] = *c
		return nil
	})
}

func (r memChunks) ReceivedIndices(ctx context.Context, token string) ([]int, error) {
	var out []int
	err := r.st.locked(func(s *memState) error {
		for k, c := range s.chunks {
			if k.token == token && c.IsReceived {
				out = append(out, k.index)
			}
		}
		slices.Sort(out)
		return nil
	})
	return out, err
}

func (r memChunks) DeleteBySession(ctx context.Context, token string) error {
	return r.st.locked(func(s *memState) error {
		maps.DeleteFunc(s.chunks, func(k chunkKey, _ models.ChunkRecord) bool { return k.token == token })
		return nil
	})
}

type memDownloads struct{ st memStore }

func (r memDownloads) Create(ctx context.Context, t *models.DownloadTransaction) error {
	return r.st.locked(func(s *memState) error {
		if _, ok := s.files[t.FileID]; !ok {
			return common.ErrNotFound
		}
		t.ID = s.next()
		t.CreatedAt = r.st.now()
		s.downloads = append(s.downloads, *t)
		return nil
	})
}

func (r memDownloads) ListForOwner(ctx context.Context, userID string) ([]*models.DownloadTransaction, error) {
	var out []*models.DownloadTransaction
	err := r.st.locked(func(s *memState) error {
		for _, t := range s.downloads {
			if f, ok := s.files[t.FileID]; ok && f.UserID == userID {
				out = append(out, &t)
			}
		}
		return nil
	})
	return out, err
}

type memSummaries struct{ st memStore }

func (r memSummaries) Create(ctx context.Context, sm *models.Summary) error {
	return r.st.locked(func(s *memState) error {
		sm.ID = s.next()
		sm.CreatedAt = r.st.now()
		s.summaries = append(s.summaries, *sm)
		return nil
	})
}

func (r memSummaries) Latest(ctx context.Context, fileID string) (*models.Summary, error) {
	var out *models.Summary
	err := r.st.locked(func(s *memState) error {
		for i := len(s.summaries) - 1; i >= 0; i-- {
			if s.summaries[i].FileID == fileID {
				sm := s.summaries[i]
				out = &sm
				return nil
			}
		}
		return common.ErrNotFound
	})
	return out, err
}
