package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalStore writes blobs under a base directory and returns file URLs.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the base directory if needed. baseURL is prefixed
// to every returned location; when empty a file:// URL is produced.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: baseURL}, nil
}

// Put writes the blob to disk under key.
func (s *LocalStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	name := key + ExtensionFor(contentType)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write media file: %w", err)
	}
	if s.baseURL != "" {
		return fmt.Sprintf("%s/%s", s.baseURL, name), nil
	}
	return "file://" + path, nil
}
