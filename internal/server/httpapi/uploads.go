package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type InitUploadRequest struct {
	FileTitle   string `json:"file_title"`
	FileName    string `json:"file_name"`
	FileSize    int64  `json:"file_size"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
}

type InitUploadResponse struct {
	UploadID    string `json:"upload_id"`
	FileID      string `json:"file_id"`
	TotalChunks int    `json:"total_chunks"`
	ChunkSize   int64  `json:"chunk_size"`
	Detail      string `json:"detail"`
}

type ChunkResponse struct {
	ChunkNumber        int     `json:"chunk_number"`
	ChunkSize          int     `json:"chunk_size"`
	UploadedChunks     int     `json:"uploaded_chunks"`
	TotalChunks        int     `json:"total_chunks"`
	ProgressPercentage float64 `json:"progress_percentage"`
	IsComplete         bool    `json:"is_complete"`
}

type StatusResponse struct {
	UploadID           string  `json:"upload_id"`
	FileTitle          string  `json:"file_title"`
	TotalChunks        int     `json:"total_chunks"`
	UploadedChunks     int     `json:"uploaded_chunks"`
	IsComplete         bool    `json:"is_complete"`
	ProgressPercentage float64 `json:"progress_percentage"`
	MissingChunks      []int   `json:"missing_chunks"`
}

type CompleteUploadRequest struct {
	UploadID string `json:"upload_id"`
}

type CompleteUploadResponse struct {
	FileID   string `json:"file_id"`
	FileSize string `json:"file_size"`
	FileURL  string `json:"file_url"`
	Detail   string `json:"detail"`
}

type DetailResponse struct {
	Detail string `json:"detail"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return maxBytesErr
		}
		return fmt.Errorf("%w: malformed JSON body: %v", common.ErrValidation, err)
	}
	return nil
}

// InitUpload opens a chunked upload session.
func (h *Handler) InitUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req InitUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	res, err := h.uploads.Init(r.Context(), userID, services.InitRequest{
		Title:       req.FileTitle,
		FileName:    req.FileName,
		TotalSize:   req.FileSize,
		TotalChunks: req.TotalChunks,
		ChunkSize:   req.ChunkSize,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, InitUploadResponse{
		UploadID:    res.Token,
		FileID:      res.FileID,
		TotalChunks: res.TotalChunks,
		ChunkSize:   res.ChunkSize,
		Detail:      "Upload session created",
	})
}

// readPart returns the bytes of the multipart file field name.
func readPart(r *http.Request, name string) ([]byte, string, error) {
	f, hdr, err := r.FormFile(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s is required", common.ErrValidation, name)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", err
	}
	return data, hdr.Filename, nil
}

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return maxBytesErr
		}
		return fmt.Errorf("%w: malformed multipart body", common.ErrValidation)
	}
	return nil
}

// UploadChunk stores one chunk of a session.
func (h *Handler) UploadChunk(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	token := chi.URLParam(r, "token")

	if err := parseMultipart(r); err != nil {
		h.fail(w, r, err)
		return
	}

	index, err := strconv.Atoi(strings.TrimSpace(r.FormValue("chunk_number")))
	if err != nil {
		h.fail(w, r, fmt.Errorf("%w: chunk_number must be an integer", common.ErrValidation))
		return
	}

	data, _, err := readPart(r, "chunk")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	p, err := h.uploads.RecordChunk(r.Context(), userID, token, index, data, strings.TrimSpace(r.FormValue("chunk_hash")))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ChunkResponse{
		ChunkNumber:        p.Index,
		ChunkSize:          p.Size,
		UploadedChunks:     p.UploadedChunks,
		TotalChunks:        p.TotalChunks,
		ProgressPercentage: p.Percentage,
		IsComplete:         p.IsComplete,
	})
}

// UploadStatus reports progress and missing chunks.
func (h *Handler) UploadStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	st, err := h.uploads.Status(r.Context(), userID, chi.URLParam(r, "token"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	missing := st.MissingChunks
	if missing == nil {
		missing = []int{}
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		UploadID:           st.Token,
		FileTitle:          st.Title,
		TotalChunks:        st.TotalChunks,
		UploadedChunks:     st.UploadedChunks,
		IsComplete:         st.IsComplete,
		ProgressPercentage: st.Percentage,
		MissingChunks:      missing,
	})
}

// CompleteUpload assembles the uploaded chunks into the final file.
func (h *Handler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req CompleteUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.UploadID) == "" {
		h.fail(w, r, fmt.Errorf("%w: upload_id is required", common.ErrValidation))
		return
	}

	f, err := h.uploads.Complete(r.Context(), userID, req.UploadID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, CompleteUploadResponse{
		FileID:   f.ID,
		FileSize: f.FileSize,
		FileURL:  h.files.URL(f),
		Detail:   "File uploaded and encrypted successfully",
	})
}

// CancelUpload discards a session.
func (h *Handler) CancelUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.uploads.Cancel(r.Context(), userID, chi.URLParam(r, "token")); err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DetailResponse{Detail: "Upload cancelled"})
}
