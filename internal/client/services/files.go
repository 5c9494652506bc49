package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/gophvault/internal/client/client"
	"github.com/dmitrijs2005/gophvault/internal/common"
)

type FileService struct {
	api client.API
}

func NewFileService(api client.API) *FileService {
	return &FileService{api: api}
}

// Download saves a file to out. When out is empty or a directory, the name
// announced by the server is used inside it. The target only appears once
// the transfer is complete.
func (s *FileService) Download(ctx context.Context, fileID, out string) (string, error) {
	dir, name := ".", ""
	switch fi, err := os.Stat(out); {
	case out == "":
	case err == nil && fi.IsDir():
		dir = out
	default:
		dir, name = filepath.Dir(out), filepath.Base(out)
	}

	tmp, err := os.CreateTemp(dir, ".gophvault-download-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	info, err := s.api.Download(ctx, fileID, tmp)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", err
	}

	if name == "" {
		name = filepath.Base(info.FileName)
		if name == "." || name == string(filepath.Separator) || name == "" {
			name = fileID
		}
	}
	target := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("%w: save %s: %v", common.ErrInternal, target, err)
	}
	return target, nil
}

func (s *FileService) List(ctx context.Context) ([]client.FileInfo, error) {
	return s.api.ListFiles(ctx)
}

func (s *FileService) AccountStats(ctx context.Context) (*client.AccountStats, error) {
	return s.api.AccountStats(ctx)
}
