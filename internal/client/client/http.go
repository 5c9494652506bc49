package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/netx"
)

// HTTPClient talks to the GophVault REST API.
type HTTPClient struct {
	baseURL string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewHTTPClient builds a client for the server at baseURL. timeout bounds
// every call except the body transfer of downloads.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/") + "/api",
		token:   token,
		timeout: timeout,
		http:    &http.Client{},
	}
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

// do sends the request and decodes a JSON answer into out when out is not nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := c.newRequest(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return mapError(err)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, body, contentType, out)
}

func (c *HTTPClient) InitUpload(ctx context.Context, req InitUploadRequest) (*InitUploadResponse, error) {
	var resp InitUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/upload-chunk/init", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) UploadChunk(ctx context.Context, token string, index int, digest string, data []byte) (*ChunkResponse, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chunk_number", strconv.Itoa(index)); err != nil {
		return nil, err
	}
	if digest != "" {
		if err := mw.WriteField("chunk_hash", digest); err != nil {
			return nil, err
		}
	}
	fw, err := mw.CreateFormFile("chunk", fmt.Sprintf("chunk_%06d", index))
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(data); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	var resp ChunkResponse
	if err := c.do(ctx, http.MethodPost, "/upload-chunk/"+url.PathEscape(token), &buf, mw.FormDataContentType(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Status(ctx context.Context, token string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/upload-chunk/status/"+url.PathEscape(token), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Complete(ctx context.Context, token string) (*CompleteUploadResponse, error) {
	var resp CompleteUploadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/upload-chunk/complete", map[string]string{"upload_id": token}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Cancel(ctx context.Context, token string) error {
	return c.doJSON(ctx, http.MethodPost, "/upload-chunk/cancel/"+url.PathEscape(token), nil, nil)
}

func (c *HTTPClient) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var resp []FileInfo
	if err := c.doJSON(ctx, http.MethodGet, "/my-files", nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *HTTPClient) AccountStats(ctx context.Context) (*AccountStats, error) {
	var resp AccountStats
	if err := c.doJSON(ctx, http.MethodGet, "/account-stats", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Download streams the decrypted file into w. Only ctx bounds the transfer.
func (c *HTTPClient) Download(ctx context.Context, fileID string, w io.Writer) (*DownloadInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/download-file/"+url.PathEscape(fileID), nil, "")
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := netx.CheckResponse(resp); err != nil {
		return nil, mapError(err)
	}

	info := &DownloadInfo{FileName: attachmentName(resp.Header.Get("Content-Disposition"))}
	n, err := io.Copy(w, resp.Body)
	info.Written = n
	if err != nil {
		return info, fmt.Errorf("download %s: %w", fileID, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return info, fmt.Errorf("download %s: got %d of %d bytes", fileID, n, resp.ContentLength)
	}
	return info, nil
}

func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return params["filename"]
}
