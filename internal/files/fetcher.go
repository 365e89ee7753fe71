package files

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/cliff-rosen/orchestrator-sub003/internal/api"
	"github.com/cliff-rosen/orchestrator-sub003/internal/schema"
	"github.com/cliff-rosen/orchestrator-sub003/pkg/logging"
)

// DirFetcher serves file content from a directory holding one file per
// file id.
type DirFetcher struct {
	dir string
}

// NewDirFetcher creates a fetcher reading from dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

// Dir returns the directory files are read from.
func (d *DirFetcher) Dir() string {
	return d.dir
}

func (d *DirFetcher) path(fileID string) (string, error) {
	if fileID == "" || fileID == "." || fileID == ".." || strings.ContainsAny(fileID, `/\`) {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	return filepath.Join(d.dir, fileID), nil
}

// GetContent implements api.FileContentFetcher.
func (d *DirFetcher) GetContent(ctx context.Context, fileID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := d.path(fileID)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", api.NewNotFoundError("file", fileID)
		}
		return "", fmt.Errorf("failed to read file %s: %w", fileID, err)
	}

	logging.Debug("Files", "Read %d bytes of file %s", len(data), fileID)
	return string(data), nil
}

// Import copies a local file into the directory under a new file id and
// returns the handle for a file variable. The content is not cached on the
// handle; it is fetched when a step first uses it.
func (d *DirFetcher) Import(source string) (schema.FileValue, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return schema.FileValue{}, fmt.Errorf("failed to read %s: %w", source, err)
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return schema.FileValue{}, fmt.Errorf("failed to create files directory: %w", err)
	}

	id := uuid.New().String()
	if err := os.WriteFile(filepath.Join(d.dir, id), data, 0644); err != nil {
		return schema.FileValue{}, fmt.Errorf("failed to store %s: %w", source, err)
	}

	logging.Info("Files", "Imported %s as file %s", source, id)
	return schema.FileValue{FileID: id, Name: filepath.Base(source)}, nil
}

// SingleFlight deduplicates concurrent fetches of the same file id.
type SingleFlight struct {
	fetcher api.FileContentFetcher
	group   singleflight.Group
}

// NewSingleFlight wraps fetcher.
func NewSingleFlight(fetcher api.FileContentFetcher) *SingleFlight {
	return &SingleFlight{fetcher: fetcher}
}

// GetContent implements api.FileContentFetcher.
func (s *SingleFlight) GetContent(ctx context.Context, fileID string) (string, error) {
	result, err, shared := s.group.Do(fileID, func() (interface{}, error) {
		return s.fetcher.GetContent(ctx, fileID)
	})
	if err != nil {
		return "", err
	}
	if shared {
		logging.Debug("Files", "Shared fetch of file %s", fileID)
	}
	return result.(string), nil
}

var (
	_ api.FileContentFetcher = (*DirFetcher)(nil)
	_ api.FileContentFetcher = (*SingleFlight)(nil)
)
