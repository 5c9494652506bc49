package httpapi

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/server/models"
	"github.com/dmitrijs2005/gophvault/internal/server/services"
	"github.com/stretchr/testify/mock"
)

type mockUploads struct {
	mock.Mock
}

func (m *mockUploads) Init(ctx context.Context, userID string, req services.InitRequest) (*services.InitResult, error) {
	args := m.Called(ctx, userID, req)
	res, _ := args.Get(0).(*services.InitResult)
	return res, args.Error(1)
}

func (m *mockUploads) RecordChunk(ctx context.Context, userID, token string, index int, data []byte, digest string) (*services.Progress, error) {
	args := m.Called(ctx, userID, token, index, data, digest)
	res, _ := args.Get(0).(*services.Progress)
	return res, args.Error(1)
}

func (m *mockUploads) Status(ctx context.Context, userID, token string) (*services.Status, error) {
	args := m.Called(ctx, userID, token)
	res, _ := args.Get(0).(*services.Status)
	return res, args.Error(1)
}

func (m *mockUploads) Complete(ctx context.Context, userID, token string) (*models.File, error) {
	args := m.Called(ctx, userID, token)
	res, _ := args.Get(0).(*models.File)
	return res, args.Error(1)
}

func (m *mockUploads) Cancel(ctx context.Context, userID, token string) error {
	return m.Called(ctx, userID, token).Error(0)
}

type mockFiles struct {
	mock.Mock
}

func (m *mockFiles) Upload(ctx context.Context, userID, title, fileName string, data []byte) (*models.File, error) {
	args := m.Called(ctx, userID, title, fileName, data)
	res, _ := args.Get(0).(*models.File)
	return res, args.Error(1)
}

func (m *mockFiles) URL(f *models.File) string {
	return "/media/" + f.StorageKey
}

func (m *mockFiles) Download(ctx context.Context, userID, fileID string, origin services.Origin) (*services.Download, error) {
	args := m.Called(ctx, userID, fileID, origin)
	res, _ := args.Get(0).(*services.Download)
	return res, args.Error(1)
}

func (m *mockFiles) List(ctx context.Context, userID string) ([]*models.File, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]*models.File)
	return res, args.Error(1)
}

func (m *mockFiles) AccountStats(ctx context.Context, userID string) (*services.AccountStats, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*services.AccountStats)
	return res, args.Error(1)
}

func (m *mockFiles) DownloadReport(ctx context.Context, userID string) ([]services.FileDownloads, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]services.FileDownloads)
	return res, args.Error(1)
}

func (m *mockFiles) Summarize(ctx context.Context, userID, fileID string) (*models.Summary, error) {
	args := m.Called(ctx, userID, fileID)
	res, _ := args.Get(0).(*models.Summary)
	return res, args.Error(1)
}
