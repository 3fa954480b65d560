package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fedorten/resursGraf/internal/models"
)

// File keeps one JSON document per resource under dir.
type File struct {
	dir string
	mu  sync.Mutex
}

func NewFile(dir string) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	return &File{dir: dir}, nil
}

func (f *File) path(resource string) string {
	return filepath.Join(f.dir, resource+".json")
}

func (f *File) Load(_ context.Context, resource string) (*models.History, error) {
	data, err := os.ReadFile(f.path(resource))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history %s: %w", resource, err)
	}

	var h models.History
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode history %s: %w", resource, err)
	}
	if h.Resource == "" {
		h.Resource = resource
	}
	models.SortPoints(h.Points)
	return &h, nil
}

// Save writes to a temp file and renames it over the old one so readers never
// see a partial document.
func (f *File) Save(_ context.Context, h *models.History) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history %s: %w", h.Resource, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	tmp, err := os.CreateTemp(f.dir, h.Resource+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write history %s: %w", h.Resource, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(h.Resource)); err != nil {
		return fmt.Errorf("replace history %s: %w", h.Resource, err)
	}
	return nil
}

func (f *File) Ping(context.Context) error {
	_, err := os.Stat(f.dir)
	return err
}

func (f *File) Close() error { return nil }
