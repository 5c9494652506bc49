package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/dbx"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/notify"
	"github.com/dmitrijs2005/gophvault/internal/server/storage"
	"github.com/dmitrijs2005/gophvault/internal/server/summary"
	"github.com/google/uuid"
)

// FrameSize is the size of download frames.
const FrameSize = 8192

// Origin describes who asked for a download.
type Origin struct {
	IP        string
	UserAgent string
}

// Download is a decrypted file ready to be streamed.
type Download struct {
	FileName string
	Size     int
	Frames   iter.Seq2[[]byte, error]
}

// AccountStats aggregates a user's storage usage.
type AccountStats struct {
	TotalFiles     int
	TotalFileSize  int64
	TotalDownloads int
}

// FileDownloads is one row of the download report.
type FileDownloads struct {
	FileID         string
	FileTitle      string
	TotalDownloads int
	Browsers       map[string]int
}

// FileService covers single-shot uploads, downloads, analytics and summaries.
type FileService struct {
	deps       Deps
	summarizer *summary.TwoTier
	maxSummary int
	logger     logging.Logger
}

func NewFileService(deps Deps, summarizer *summary.TwoTier, maxSummary int) *FileService {
	if maxSummary <= 0 {
		maxSummary = 200
	}
	return &FileService{
		deps:       deps,
		summarizer: summarizer,
		maxSummary: maxSummary,
		logger:     deps.logger("files"),
	}
}

// Upload encrypts data and stores it as a complete file in one step.
func (s *FileService) Upload(ctx context.Context, userID, title, fileName string, data []byte) (*models.File, error) {
	title = strings.TrimSpace(title)
	fileName = sanitizeFileName(fileName)
	if title == "" {
		return nil, validationError("file title is required")
	}
	if fileName == "" {
		return nil, validationError("file name is required")
	}

	sealed, err := cryptox.Encrypt(data, s.deps.Key)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}

	key, err := storage.PutNew(ctx, s.deps.Blobs, fileName, sealed)
	if err != nil {
		return nil, fmt.Errorf("store blob: %w", err)
	}

	file := &models.File{
		ID:         uuid.NewString(),
		UserID:     userID,
		Title:      title,
		FileName:   fileName,
		FileSize:   strconv.Itoa(len(data)),
		StorageKey: key,
		IsComplete: true,
	}
	if err := s.deps.Repos.Files(s.deps.Runner.Conn()).Create(ctx, file); err != nil {
		if derr := s.deps.Blobs.Delete(context.WithoutCancel(ctx), key); derr != nil {
			s.logger.Warn(ctx, "orphan blob not removed", "storage_key", key, "error", derr)
		}
		return nil, err
	}

	s.logger.Info(ctx, "file uploaded", "file_id", file.ID, "size", file.FileSize)
	s.deps.events().Publish(ctx, notify.Event{
		Type:   notify.EventUploadCompleted,
		UserID: userID,
		Data: map[string]any{
			"file_id":    file.ID,
			"file_title": file.Title,
			"file_name":  file.FileName,
			"file_size":  file.FileSize,
			"chunked":    false,
		},
	})
	return file, nil
}

// URL returns the storage locator of a file.
func (s *FileService) URL(f *models.File) string {
	return s.deps.Blobs.URL(f.StorageKey)
}

func (s *FileService) completeFile(ctx context.Context, userID, fileID string) (*models.File, error) {
	if _, err := uuid.Parse(fileID); err != nil {
		return nil, common.ErrNotFound
	}
	f, err := s.deps.Repos.Files(s.deps.Runner.Conn()).GetOwned(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}
	if !f.IsComplete || f.StorageKey == "" {
		return nil, common.ErrNotFound
	}
	return f, nil
}

func (s *FileService) open(ctx context.Context, f *models.File) ([]byte, error) {
	sealed, err := s.deps.Blobs.Get(ctx, f.StorageKey)
	if err != nil {
		return nil, err
	}
	plain, err := cryptox.Decrypt(sealed, s.deps.Key)
	if err != nil {
		if errors.Is(err, common.ErrIntegrity) {
			return nil, &common.DecryptionFailedError{Err: err}
		}
		return nil, err
	}
	return plain, nil
}

func frames(data []byte) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		for off := 0; off < len(data); off += FrameSize {
			end := min(off+FrameSize, len(data))
			if !yield(data[off:end], nil) {
				return
			}
		}
	}
}

// Download decrypts a file of the user and records the retrieval.
func (s *FileService) Download(ctx context.Context, userID, fileID string, origin Origin) (*Download, error) {
	f, err := s.completeFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	plain, err := s.open(ctx, f)
	if err != nil {
		s.logger.Warn(ctx, "download failed", "file_id", fileID, "error", err)
		return nil, err
	}

	if err := s.deps.Repos.Downloads(s.deps.Runner.Conn()).Create(ctx, &models.DownloadTransaction{
		FileID:    f.ID,
		UserID:    userID,
		IPAddress: origin.IP,
		UserAgent: origin.UserAgent,
	}); err != nil {
		return nil, fmt.Errorf("record download: %w", err)
	}

	s.deps.events().Publish(ctx, notify.Event{
		Type:   notify.EventFileDownloaded,
		UserID: userID,
		Data:   map[string]any{"file_id": f.ID, "ip_address": origin.IP, "user_agent": origin.UserAgent},
	})

	return &Download{FileName: f.FileName, Size: len(plain), Frames: frames(plain)}, nil
}

// List returns the user's complete files, newest first.
func (s *FileService) List(ctx context.Context, userID string) ([]*models.File, error) {
	return s.deps.Repos.Files(s.deps.Runner.Conn()).ListByUser(ctx, userID)
}

// AccountStats counts files, bytes and downloads of the user.
func (s *FileService) AccountStats(ctx context.Context, userID string) (*AccountStats, error) {
	conn := s.deps.Runner.Conn()
	files, err := s.deps.Repos.Files(conn).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	downloads, err := s.deps.Repos.Downloads(conn).ListForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &AccountStats{TotalFiles: len(files), TotalDownloads: len(downloads)}
	for _, f := range files {
		stats.TotalFileSize += f.SizeBytes()
	}
	return stats, nil
}

// BrowserFamily classifies a user agent. Chromium based browsers report
// Chrome because their agents carry the Chrome token.
func BrowserFamily(agent string) string {
	switch {
	case agent == "":
		return "Other"
	case strings.Contains(agent, "Chrome"):
		return "Chrome"
	case strings.Contains(agent, "Firefox"):
		return "Firefox"
	case strings.Contains(agent, "Safari"):
		return "Safari"
	case strings.Contains(agent, "Edge"):
		return "Edge"
	case strings.Contains(agent, "MSIE"), strings.Contains(agent, "Trident"):
		return "Internet Explorer"
	default:
		return "Other"
	}
}

// DownloadReport groups the user's downloads per file and browser family.
func (s *FileService) DownloadReport(ctx context.Context, userID string) ([]FileDownloads, error) {
	conn := s.deps.Runner.Conn()
	files, err := s.deps.Repos.Files(conn).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	downloads, err := s.deps.Repos.Downloads(conn).ListForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	byFile := make(map[string][]*models.DownloadTransaction, len(files))
	for _, d := range downloads {
		byFile[d.FileID] = append(byFile[d.FileID], d)
	}

	report := make([]FileDownloads, 0, len(files))
	for _, f := range files {
		row := FileDownloads{FileID: f.ID, FileTitle: f.Title, Browsers: map[string]int{}}
		for _, d := range byFile[f.ID] {
			row.TotalDownloads++
			row.Browsers[BrowserFamily(d.UserAgent)]++
		}
		report = append(report, row)
	}
	return report, nil
}

// Summarize decrypts a text file, summarizes it and stores the result.
func (s *FileService) Summarize(ctx context.Context, userID, fileID string) (*models.Summary, error) {
	f, err := s.completeFile(ctx, userID, fileID)
	if err != nil {
		return nil, err
	}

	plain, err := s.open(ctx, f)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(plain) {
		return nil, validationError("file is not valid UTF-8 text")
	}
	text := strings.TrimSpace(string(plain))
	if text == "" {
		return nil, validationError("file has no text to summarize")
	}

	tier := s.summarizer
	if tier == nil {
		tier = &summary.TwoTier{Fallback: summary.Extractive{}}
	}
	res, err := tier.Run(ctx, text, s.maxSummary)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	sm := &models.Summary{FileID: f.ID, Summary: res.Text, Strategy: res.Strategy}
	err = s.deps.Runner.InTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.deps.Repos.Summaries(tx).Create(ctx, sm)
	})
	if err != nil {
		return nil, err
	}

	s.deps.events().Publish(ctx, notify.Event{
		Type:   notify.EventFileSummarized,
		UserID: userID,
		Data:   map[string]any{"file_id": f.ID, "strategy": res.Strategy},
	})
	return sm, nil
}
