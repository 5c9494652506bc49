package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/netx"
)

// detailAlreadyCompleted is what the server answers when a finished
// session is touched again.
const detailAlreadyCompleted = "Upload already completed"

// mapError translates a failed response into the common error taxonomy.
func mapError(err error) error {
	var se *netx.StatusError
	if !errors.As(err, &se) {
		return err
	}

	switch se.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", common.ErrUnauthorized, se)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %w", common.ErrNotFound, se)
	case http.StatusBadRequest:
		var body errorBody
		if json.Unmarshal(se.Body, &body) != nil {
			return se
		}
		switch {
		case body.ExpectedHash != "" || body.ComputedHash != "":
			return &common.IntegrityError{Expected: body.ExpectedHash, Computed: body.ComputedHash}
		case len(body.MissingChunks) > 0:
			return &common.IncompleteUploadError{Missing: body.MissingChunks}
		case body.Detail == detailAlreadyCompleted:
			return fmt.Errorf("%w: %w", common.ErrSessionState, se)
		}
	}
	return se
}
