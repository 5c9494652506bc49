package httpapi

import (
	"errors"
	"iter"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func framesOf(parts ...string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for _, p := range parts {
			if !yield([]byte(p), nil) {
				return
			}
		}
	}
}

func TestUploadFile(t *testing.T) {
	api := newTestAPI(t)
	data := []byte("whole file")
	api.files.On("Upload", mock.Anything, "u1", "notes", "notes.txt", data).
		Return(&models.File{ID: "f1", FileName: "notes.txt", StorageKey: "user_files/0000000001.txt"}, nil)

	body, ct := multipartBody(t, map[string]string{"file_title": "notes"}, formFile{"file", "notes.txt", data})
	w := api.do(t, http.MethodPost, "/api/upload-file", "u1", body, ct)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, UploadFileResponse{
		FileID:         "f1",
		FileName:       "notes.txt",
		StoredFilePath: "/media/user_files/0000000001.txt",
		Detail:         "File uploaded and encrypted successfully",
	}, decode[UploadFileResponse](t, w))
}

func TestUploadFile_RequiresAuthAndFile(t *testing.T) {
	api := newTestAPI(t)

	body, ct := multipartBody(t, map[string]string{"file_title": "notes"}, formFile{"file", "notes.txt", []byte("x")})
	w := api.do(t, http.MethodPost, "/api/upload-file", "", body, ct)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, ct = multipartBody(t, map[string]string{"file_title": "notes"})
	w = api.do(t, http.MethodPost, "/api/upload-file", "u1", body, ct)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListFiles(t *testing.T) {
	api := newTestAPI(t)
	created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	api.files.On("List", mock.Anything, "u1").Return([]*models.File{
		{ID: "f2", Title: "b", FileName: "b.txt", FileSize: "2", StorageKey: "user_files/2.txt", CreatedAt: created},
	}, nil)

	w := api.do(t, http.MethodGet, "/api/my-files", "u1", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []FileResponse{{
		ID: "f2", FileTitle: "b", FileName: "b.txt", FileSize: "2", UploadedAt: created, FileURL: "/media/user_files/2.txt",
	}}, decode[[]FileResponse](t, w))
}

func TestListFiles_EmptyIsArray(t *testing.T) {
	api := newTestAPI(t)
	api.files.On("List", mock.Anything, "u1").Return(nil, nil)

	w := api.do(t, http.MethodGet, "/api/my-files", "u1", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestDownloadFile(t *testing.T) {
	api := newTestAPI(t)
	api.files.On("Download", mock.Anything, "u1", "f1", services.Origin{IP: "203.0.113.7", UserAgent: "Firefox/121.0"}).
		Return(&services.Download{FileName: "report 2024.pdf", Size: 11, Frames: framesOf("hello ", "world")}, nil)

	req := newAuthedRequest(t, http.MethodGet, "/api/download-file/f1", "u1")
	req.Header.Set("User-Agent", "Firefox/121.0")
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	w := serve(api, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/octet-stream", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report 2024.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "11", w.Header().Get("Content-Length"))
	assert.Equal(t, "hello world", w.Body.String())
}

func TestDownloadFile_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"unknown", common.ErrNotFound},
		{"decryption failure", &common.DecryptionFailedError{Err: &common.IntegrityError{Reason: "bad padding"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t)
			api.files.On("Download", mock.Anything, "u1", "f1", mock.Anything).Return(nil, tt.err)

			w := api.do(t, http.MethodGet, "/api/download-file/f1", "u1", nil, "")

			assert.Equal(t, http.StatusNotFound, w.Code)
		})
	}
}

func TestAccountStats(t *testing.T) {
	api := newTestAPI(t)
	api.files.On("AccountStats", mock.Anything, "u1").Return(&services.AccountStats{TotalFiles: 2, TotalFileSize: 15, TotalDownloads: 4}, nil)

	w := api.do(t, http.MethodGet, "/api/account-stats", "u1", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_files":2,"total_file_size":15,"total_downloads":4}`, w.Body.String())
}

func TestDownloadReports(t *testing.T) {
	api := newTestAPI(t)
	api.files.On("DownloadReport", mock.Anything, "u1").Return([]services.FileDownloads{
		{FileID: "f1", FileTitle: "alpha", TotalDownloads: 3, Browsers: map[string]int{"Chrome": 2, "Firefox": 1}},
	}, nil)

	w := api.do(t, http.MethodGet, "/api/download-reports", "u1", nil, "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"file_id":"f1","file_title":"alpha","total_downloads":3,"browsers":{"Chrome":2,"Firefox":1}}]`, w.Body.String())
}

func TestSummarizeFile(t *testing.T) {
	api := newTestAPI(t)
	api.files.On("Summarize", mock.Anything, "u1", "f1").Return(&models.Summary{Summary: "Short.", Strategy: models.SummaryStrategyFallback}, nil)
	api.files.On("Summarize", mock.Anything, "u1", "bin").Return(nil, errors.Join(common.ErrValidation, errors.New("not text")))

	w := api.do(t, http.MethodPost, "/api/files/f1/summary", "u1", nil, "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, SummaryResponse{Summary: "Short.", Strategy: "fallback"}, decode[SummaryResponse](t, w))

	w = api.do(t, http.MethodPost, "/api/files/bin/summary", "u1", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
