package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/netx"
)

type fakeSession struct {
	fileID    string
	title     string
	name      string
	total     int
	chunks    map[int][]byte
	completed bool
	cancelled bool
}

// fakeAPI is an in-memory server with scriptable chunk failures.
type fakeAPI struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*fakeSession
	files    map[string][]byte

	// failures[i] transient 503s before chunk i is accepted
	failures map[int]int
	// corrupt[i] digest mismatches before chunk i is accepted
	corrupt map[int]int
	// fatal[i] is returned for chunk i every time
	fatal map[int]error
	// dropOnce chunks are acknowledged but lost the first time
	dropOnce map[int]bool

	calls       map[int]int
	inFlight    int
	maxInFlight int
	delay       time.Duration
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		sessions: map[string]*fakeSession{},
		files:    map[string][]byte{},
		failures: map[int]int{},
		corrupt:  map[int]int{},
		fatal:    map[int]error{},
		dropOnce: map[int]bool{},
		calls:    map[int]int{},
	}
}

func (f *fakeAPI) InitUpload(_ context.Context, req client.InitUploadRequest) (*client.InitUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token := fmt.Sprintf("upload-%d", f.seq)
	fileID := fmt.Sprintf("file-%d", f.seq)
	f.sessions[token] = &fakeSession{fileID: fileID, title: req.FileTitle, name: req.FileName, total: req.TotalChunks, chunks: map[int][]byte{}}
	return &client.InitUploadResponse{UploadID: token, FileID: fileID, TotalChunks: req.TotalChunks, ChunkSize: req.ChunkSize}, nil
}

func (f *fakeAPI) session(token string) (*fakeSession, error) {
	s, ok := f.sessions[token]
	if !ok || s.cancelled {
		return nil, fmt.Errorf("%w: %w", common.ErrNotFound, &netx.StatusError{StatusCode: http.StatusNotFound})
	}
	return s, nil
}

func (f *fakeAPI) UploadChunk(ctx context.Context, token string, index int, digest string, data []byte) (*client.ChunkResponse, error) {
	f.mu.Lock()
	f.calls[index]++
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.fatal[index]; ok {
		return nil, err
	}
	if f.failures[index] > 0 {
		f.failures[index]--
		return nil, &netx.StatusError{StatusCode: http.StatusServiceUnavailable}
	}
	if f.corrupt[index] > 0 {
		f.corrupt[index]--
		return nil, &common.IntegrityError{Expected: digest[:8], Computed: "00000000"}
	}
	if digest != cryptox.MD5Hex(data) {
		return nil, &common.IntegrityError{Expected: digest, Computed: cryptox.MD5Hex(data)}
	}

	s, err := f.session(token)
	if err != nil {
		return nil, err
	}
	if s.completed {
		return nil, common.ErrSessionState
	}
	if f.dropOnce[index] {
		delete(f.dropOnce, index)
	} else {
		s.chunks[index] = bytes.Clone(data)
	}
	return &client.ChunkResponse{ChunkNumber: index, UploadedChunks: len(s.chunks), TotalChunks: s.total, IsComplete: len(s.chunks) == s.total}, nil
}

func (s *fakeSession) missing() []int {
	out := make([]int, 0)
	for i := range s.total {
		if _, ok := s.chunks[i]; !ok {
			out = append(out, i)
		}
	}
	return out
}

func (f *fakeAPI) Status(_ context.Context, token string) (*client.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.session(token)
	if err != nil {
		return nil, err
	}
	missing := s.missing()
	return &client.StatusResponse{UploadID: token, TotalChunks: s.total, UploadedChunks: len(s.chunks), IsComplete: len(missing) == 0, MissingChunks: missing}, nil
}

func (f *fakeAPI) Complete(_ context.Context, token string) (*client.CompleteUploadResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.session(token)
	if err != nil {
		return nil, err
	}
	if s.completed {
		return nil, common.ErrSessionState
	}
	if missing := s.missing(); len(missing) > 0 {
		return nil, &common.IncompleteUploadError{Missing: missing}
	}

	keys := make([]int, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	var buf bytes.Buffer
	for _, k := range keys {
		buf.Write(s.chunks[k])
	}
	s.completed = true
	f.files[s.fileID] = buf.Bytes()
	return &client.CompleteUploadResponse{FileID: s.fileID, FileSize: fmt.Sprint(buf.Len())}, nil
}

func (f *fakeAPI) Cancel(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, err := f.session(token)
	if err != nil {
		return err
	}
	s.cancelled = true
	return nil
}

func (f *fakeAPI) Download(_ context.Context, fileID string, w io.Writer) (*client.DownloadInfo, error) {
	f.mu.Lock()
	data, ok := f.files[fileID]
	name := ""
	for _, s := range f.sessions {
		if s.fileID == fileID {
			name = s.name
		}
	}
	f.mu.Unlock()
	if !ok {
		return nil, common.ErrNotFound
	}
	n, err := w.Write(data)
	return &client.DownloadInfo{FileName: name, Written: int64(n)}, err
}

func (f *fakeAPI) ListFiles(context.Context) ([]client.FileInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]client.FileInfo, 0, len(f.files))
	for id, data := range f.files {
		out = append(out, client.FileInfo{ID: id, FileSize: fmt.Sprint(len(data))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAPI) AccountStats(context.Context) (*client.AccountStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var size int64
	for _, data := range f.files {
		size += int64(len(data))
	}
	return &client.AccountStats{TotalFiles: len(f.files), TotalFileSize: size}, nil
}
