// Package upload persists request media to temp files for the duration of a
// request. Files are removed on every exit path, success or failure.
package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/whisperlm/internal/logger"
)

// Config holds configuration for the upload store.
type Config struct {
	// Dir is the directory for temp media files. Empty means the OS temp dir.
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// ApplyDefaults applies default values to upload configuration.
func (c *Config) ApplyDefaults() {
	if c.Dir == "" {
		c.Dir = os.TempDir()
	}
}

// Validate validates upload configuration.
func (c *Config) Validate() error {
	return nil
}

// Store writes uploaded media to temp files.
type Store struct {
	dir string
	log *logger.Logger
}

// NewStore creates a Store rooted at cfg.Dir.
func NewStore(cfg Config, log *logger.Logger) (*Store, error) {
	cfg.ApplyDefaults()
	abs, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("upload: resolve dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("upload: create dir: %w", err)
	}
	return &Store{dir: abs, log: log.WithComponent("upload")}, nil
}

// Save writes the multipart file to a uniquely named temp file preserving
// the upload's extension, and returns its path. The caller must call
// Remove when the request finishes.
func (s *Store) Save(header *multipart.FileHeader) (string, error) {
	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("upload: open multipart file: %w", err)
	}
	defer src.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	path := filepath.Join(s.dir, uuid.NewString()+ext)

	dst, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("upload: create temp file: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("upload: write temp file: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("upload: close temp file: %w", err)
	}

	s.log.Debug("Upload saved", map[string]interface{}{
		"filename": header.Filename,
		"path":     path,
		"size":     header.Size,
	})
	return path, nil
}

// Remove deletes a saved temp file. Missing files are not an error.
func (s *Store) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("Failed to remove temp file", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
}
