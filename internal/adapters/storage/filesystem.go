// Package storage provides the blob store backends: a local filesystem tree
// and an S3-compatible object store. Both serve as source or cache storage
// behind the same port.
package storage

import (
	"context"
	"errors"
	"fmt"
	"imagio/internal/core/domain"
	"imagio/internal/core/port"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var _ port.BlobStore = (*Filesystem)(nil)

// Filesystem stores blobs as files under a configured root, one path segment
// per key segment.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) (*Filesystem, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage root: %w", err)
	}

	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage root: %w", err)
	}

	log.Debug().Str("root", abs).Msg("filesystem store ready")
	return &Filesystem{root: abs}, nil
}

func (f *Filesystem) Get(_ context.Context, key string) ([]byte, error) {
	path, err := f.path(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrBlobNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", key, err)
	}

	return data, nil
}

func (f *Filesystem) Put(_ context.Context, key string, data []byte) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating blob directory: %w", err)
	}

	// Write-then-rename so a concurrent reader never observes a partial blob.
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp blob: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing blob %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing blob %s: %w", key, err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("publishing blob %s: %w", key, err)
	}

	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("blob written")
	return nil
}

func (f *Filesystem) Delete(_ context.Context, key string) error {
	path, err := f.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing blob %s: %w", key, err)
	}

	return nil
}

// path maps a key to an absolute file path, rejecting keys that would escape
// the root.
func (f *Filesystem) path(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid blob key %q", key)
	}

	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}

	return filepath.Join(f.root, clean), nil
}
