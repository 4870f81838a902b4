package payslipdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage persists a rendered document and returns the path it is served under.
type Storage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStorage writes documents below Dir; the API serves Dir at BaseURL.
type LocalStorage struct {
	Dir     string
	BaseURL string
}

func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, fmt.Errorf("payslip storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create payslip storage dir: %w", err)
	}
	return &LocalStorage{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Save writes through a temp file and rename, so readers never see a
// half-written PDF when a document is regenerated in place.
func (s *LocalStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean("/" + name)[1:]
	if clean == "" {
		return "", fmt.Errorf("invalid document name %q", name)
	}

	target := filepath.Join(s.Dir, clean)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create document dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".payslip-*")
	if err != nil {
		return "", fmt.Errorf("create temp document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close document: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return "", fmt.Errorf("store document: %w", err)
	}

	return s.BaseURL + "/" + filepath.ToSlash(clean), nil
}
