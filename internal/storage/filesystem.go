package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// FileStore persists generated images on the local filesystem and maps
// stored keys to public URLs under urlPrefix.
type FileStore struct {
	basePath  string
	urlPrefix string
}

// NewFileStore initializes a FileStore rooted at basePath. urlPrefix is
// prepended to keys by URL, e.g. "/assets".
func NewFileStore(basePath, urlPrefix string) (*FileStore, error) {
	basePath = strings.TrimSpace(basePath)
	if basePath == "" {
		return nil, errors.New("storage: base path is required")
	}
	if !filepath.IsAbs(basePath) {
		if abs, err := filepath.Abs(basePath); err == nil {
			basePath = abs
		}
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("storage: ensure base path: %w", err)
	}
	return &FileStore{basePath: basePath, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// BasePath returns the configured root directory.
func (s *FileStore) BasePath() string {
	if s == nil {
		return ""
	}
	return s.basePath
}

// Write persists data at the given relative key and returns the public URL
// of the stored file. Keys are cleaned to prevent directory traversal.
func (s *FileStore) Write(ctx context.Context, key string, data []byte) (string, error) {
	if s == nil {
		return "", errors.New("storage: no store configured")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	fullPath := filepath.Join(s.basePath, filepath.FromSlash(cleanKey))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("storage: ensure directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: write file: %w", err)
	}
	return s.URL(cleanKey), nil
}

// URL maps a stored key to its public location. Without a prefix the
// absolute file path is returned as a file:// URL.
func (s *FileStore) URL(key string) string {
	if s.urlPrefix == "" {
		return "file://" + filepath.ToSlash(filepath.Join(s.basePath, filepath.FromSlash(key)))
	}
	return s.urlPrefix + "/" + strings.TrimLeft(key, "/")
}

// Read loads a file previously returned by Write, addressed by its URL.
func (s *FileStore) Read(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var key string
	switch {
	case s.urlPrefix != "" && strings.HasPrefix(url, s.urlPrefix+"/"):
		key = strings.TrimPrefix(url, s.urlPrefix+"/")
	case strings.HasPrefix(url, "file://"):
		rel, err := filepath.Rel(s.basePath, filepath.FromSlash(strings.TrimPrefix(url, "file://")))
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		key = filepath.ToSlash(rel)
	default:
		return nil, fmt.Errorf("storage: %q is not served by this store", url)
	}
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(s.basePath, filepath.FromSlash(cleanKey)))
	if err != nil {
		return nil, fmt.Errorf("storage: read file: %w", err)
	}
	return data, nil
}

// Handler serves stored files. Mount it under the store's URL prefix.
func (s *FileStore) Handler() http.Handler {
	return http.StripPrefix(s.urlPrefix+"/", http.FileServer(http.Dir(s.basePath)))
}

// sanitizeKey normalizes a key and prevents escaping the storage root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("storage: key is required")
	}
	key = strings.ReplaceAll(key, "\\", "/")
	key = strings.TrimPrefix(key, "./")
	key = strings.TrimLeft(key, "/")
	cleaned := filepath.Clean(key)
	cleaned = strings.ReplaceAll(cleaned, "\\", "/")
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", errors.New("storage: invalid key")
	}
	return cleaned, nil
}
