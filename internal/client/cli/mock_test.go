package cli

import (
	"context"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/client/models"
	"github.com/dmitrijs2005/gophvault/internal/client/services"
	"github.com/stretchr/testify/mock"
)

type mockUploader struct{ mock.Mock }

func (m *mockUploader) Upload(ctx context.Context, path, title string, progress services.ProgressFunc) (*client.CompleteUploadResponse, error) {
	args := m.Called(ctx, path, title, progress)
	if progress != nil {
		progress(1, 2)
		progress(2, 2)
	}
	resp, _ := args.Get(0).(*client.CompleteUploadResponse)
	return resp, args.Error(1)
}

func (m *mockUploader) Resume(ctx context.Context, token string, progress services.ProgressFunc) (*client.CompleteUploadResponse, error) {
	args := m.Called(ctx, token, progress)
	resp, _ := args.Get(0).(*client.CompleteUploadResponse)
	return resp, args.Error(1)
}

func (m *mockUploader) Status(ctx context.Context, token string) (*client.StatusResponse, error) {
	args := m.Called(ctx, token)
	resp, _ := args.Get(0).(*client.StatusResponse)
	return resp, args.Error(1)
}

func (m *mockUploader) Cancel(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *mockUploader) Pending(ctx context.Context) ([]*models.PendingUpload, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).([]*models.PendingUpload)
	return resp, args.Error(1)
}

type mockFiles struct{ mock.Mock }

func (m *mockFiles) Download(ctx context.Context, fileID, out string) (string, error) {
	args := m.Called(ctx, fileID, out)
	return args.String(0), args.Error(1)
}

func (m *mockFiles) List(ctx context.Context) ([]client.FileInfo, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).([]client.FileInfo)
	return resp, args.Error(1)
}

func (m *mockFiles) AccountStats(ctx context.Context) (*client.AccountStats, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*client.AccountStats)
	return resp, args.Error(1)
}
