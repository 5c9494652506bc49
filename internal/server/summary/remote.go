package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Remote calls an inference endpoint: POST {"text","max_length"} -> {"summary"}.
type Remote struct {
	endpoint string
	client   *http.Client
}

func NewRemote(endpoint string, timeout time.Duration) *Remote {
	return &Remote{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type remoteRequest struct {
	Text      string `json:"text"`
	MaxLength int    `json:"max_length"`
}

type remoteResponse struct {
	Summary string `json:"summary"`
}

func (r *Remote) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	body, err := json.Marshal(remoteRequest{Text: text, MaxLength: maxLen})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summarizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("summarizer status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summarizer decode: %w", err)
	}
	return out.Summary, nil
}
