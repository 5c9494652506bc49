package httpapi

import (
	"context"
	"net"
	"net/http"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// maxMultipartMemory is how much of a multipart body is kept in memory
// before spilling to temporary files.
const maxMultipartMemory = 32 << 20

// UploadService is the chunked upload lifecycle used by the handlers.
type UploadService interface {
	Init(ctx context.Context, userID string, req services.InitRequest) (*services.InitResult, error)
	RecordChunk(ctx context.Context, userID, token string, index int, data []byte, digest string) (*services.Progress, error)
	Status(ctx context.Context, userID, token string) (*services.Status, error)
	Complete(ctx context.Context, userID, token string) (*models.File, error)
	Cancel(ctx context.Context, userID, token string) error
}

// FileService covers single-shot uploads, downloads and analytics.
type FileService interface {
	Upload(ctx context.Context, userID, title, fileName string, data []byte) (*models.File, error)
	URL(f *models.File) string
	Download(ctx context.Context, userID, fileID string, origin services.Origin) (*services.Download, error)
	List(ctx context.Context, userID string) ([]*models.File, error)
	AccountStats(ctx context.Context, userID string) (*services.AccountStats, error)
	DownloadReport(ctx context.Context, userID string) ([]services.FileDownloads, error)
	Summarize(ctx context.Context, userID, fileID string) (*models.Summary, error)
}

// Handler serves the /api routes.
type Handler struct {
	uploads UploadService
	files   FileService
	logger  logging.Logger
}

func NewHandler(uploads UploadService, files FileService, logger logging.Logger) *Handler {
	return &Handler{uploads: uploads, files: files, logger: logger}
}

// Routes exposes handler routes. Authentication is applied by the router.
func (h *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/upload-chunk/init", h.InitUpload)
	router.Post("/upload-chunk/complete", h.CompleteUpload)
	router.Get("/upload-chunk/status/{token}", h.UploadStatus)
	router.Post("/upload-chunk/cancel/{token}", h.CancelUpload)
	router.Post("/upload-chunk/{token}", h.UploadChunk)

	router.Post("/upload-file", h.UploadFile)
	router.Get("/my-files", h.ListFiles)
	router.Get("/download-file/{id}", h.DownloadFile)
	router.Get("/account-stats", h.AccountStats)
	router.Get("/download-reports", h.DownloadReports)
	router.Post("/files/{id}/summary", h.SummarizeFile)

	return router
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(r.Context(), w, h.logger, err)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
