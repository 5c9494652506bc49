package httpapi

import (
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type UploadFileResponse struct {
	FileID         string `json:"file_id"`
	FileName       string `json:"file_name"`
	StoredFilePath string `json:"stored_file_path"`
	Detail         string `json:"detail"`
}

type FileResponse struct {
	ID         string    `json:"id"`
	FileTitle  string    `json:"file_title"`
	FileName   string    `json:"file_name"`
	FileSize   string    `json:"file_size"`
	UploadedAt time.Time `json:"uploaded_at"`
	FileURL    string    `json:"file_url"`
}

type AccountStatsResponse struct {
	TotalFiles     int   `json:"total_files"`
	TotalFileSize  int64 `json:"total_file_size"`
	TotalDownloads int   `json:"total_downloads"`
}

type DownloadReportRow struct {
	FileID         string         `json:"file_id"`
	FileTitle      string         `json:"file_title"`
	TotalDownloads int            `json:"total_downloads"`
	Browsers       map[string]int `json:"browsers"`
}

type SummaryResponse struct {
	Summary  string `json:"summary"`
	Strategy string `json:"strategy"`
}

// UploadFile stores a whole file from a multipart form in one request.
func (h *Handler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := parseMultipart(r); err != nil {
		h.fail(w, r, err)
		return
	}

	data, name, err := readPart(r, "file")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := h.files.Upload(r.Context(), userID, r.FormValue("file_title"), name, data)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadFileResponse{
		FileID:         f.ID,
		FileName:       f.FileName,
		StoredFilePath: h.files.URL(f),
		Detail:         "File uploaded and encrypted successfully",
	})
}

// ListFiles returns the caller's files, newest first.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	files, err := h.files.List(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]FileResponse, 0, len(files))
	for _, f := range files {
		resp = append(resp, FileResponse{
			ID:         f.ID,
			FileTitle:  f.Title,
			FileName:   f.FileName,
			FileSize:   f.FileSize,
			UploadedAt: f.CreatedAt,
			FileURL:    h.files.URL(f),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// DownloadFile streams the decrypted file as an attachment.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	d, err := h.files.Download(r.Context(), userID, chi.URLParam(r, "id"), services.Origin{
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", contentDisposition(d.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(d.Size))
	w.WriteHeader(http.StatusOK)

	for frame, err := range d.Frames {
		if err != nil {
			h.logger.Error(r.Context(), "download aborted", "error", err)
			return
		}
		if _, err := w.Write(frame); err != nil {
			h.logger.Warn(r.Context(), "client went away during download", "error", err)
			return
		}
	}
}

// contentDisposition quotes plain ASCII names as is and falls back to the
// RFC 2231 form for anything else.
func contentDisposition(name string) string {
	plain := name != ""
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			plain = false
			break
		}
	}
	if plain {
		return `attachment; filename="` + name + `"`
	}
	if v := mime.FormatMediaType("attachment", map[string]string{"filename": name}); v != "" {
		return v
	}
	return "attachment"
}

// AccountStats reports the caller's storage usage.
func (h *Handler) AccountStats(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	s, err := h.files.AccountStats(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, AccountStatsResponse{
		TotalFiles:     s.TotalFiles,
		TotalFileSize:  s.TotalFileSize,
		TotalDownloads: s.TotalDownloads,
	})
}

// DownloadReports groups the caller's downloads per file and browser.
func (h *Handler) DownloadReports(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	report, err := h.files.DownloadReport(r.Context(), userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	resp := make([]DownloadReportRow, 0, len(report))
	for _, row := range report {
		resp = append(resp, DownloadReportRow(row))
	}
	writeJSON(w, http.StatusOK, resp)
}

// SummarizeFile produces and stores a summary of a text file.
func (h *Handler) SummarizeFile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFrom(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	sm, err := h.files.Summarize(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, SummaryResponse{Summary: sm.Summary, Strategy: sm.Strategy})
}
