package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

type errorResponse struct {
	Detail        string `json:"detail"`
	ExpectedHash  string `json:"expected_hash,omitempty"`
	ComputedHash  string `json:"computed_hash,omitempty"`
	MissingChunks []int  `json:"missing_chunks,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// writeError maps service errors to status codes and bodies. Unknown errors
// are logged and answered with a generic 500.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	var (
		digestErr     *common.DigestFormatError
		integrityErr  *common.IntegrityError
		incompleteErr *common.IncompleteUploadError
		maxBytesErr   *http.MaxBytesError
	)

	switch {
	case errors.Is(err, common.ErrDecryptionFailed):
		logger.Error(ctx, "stored file could not be decrypted", "error", err)
		writeDetail(w, http.StatusNotFound, "Decryption failed")
	case errors.Is(err, common.ErrAssembly):
		logger.Error(ctx, "assembly failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to assemble file")
	case errors.As(err, &digestErr):
		writeDetail(w, http.StatusBadRequest, digestErr.Error())
	case errors.As(err, &integrityErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Detail:       "Chunk hash mismatch",
			ExpectedHash: integrityErr.Expected,
			ComputedHash: integrityErr.Computed,
		})
	case errors.As(err, &incompleteErr):
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Detail:        "Upload is incomplete",
			MissingChunks: incompleteErr.Missing,
		})
	case errors.As(err, &maxBytesErr):
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large")
	case errors.Is(err, common.ErrSessionState):
		writeDetail(w, http.StatusBadRequest, "Upload already completed")
	case errors.Is(err, common.ErrValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Not found")
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken):
		writeDetail(w, http.StatusUnauthorized, "Authentication required")
	default:
		logger.Error(ctx, "request failed", "error", err)
		writeDetail(w, http.StatusInternalServerError, "Internal server error")
	}
}
