// Package blob provides durable storage for uploaded and colorized image
// files. Blobs live in one flat namespace keyed by storage name; the name is
// the opaque storage reference persisted on artifact records.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotExist is returned by Open and Delete when no blob has the given
// name. Deletion paths treat it as success.
var ErrNotExist = errors.New("blob: not found")

// Store is the contract for durable blob storage.
type Store interface {
	// Save persists the reader's bytes under name. The write is atomic:
	// a failed save leaves no partial blob behind.
	Save(ctx context.Context, name string, r io.Reader) error
	// Open returns a reader for the named blob, or ErrNotExist.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Exists reports whether a blob with the given name is present.
	Exists(ctx context.Context, name string) (bool, error)
	// Delete removes the named blob, returning ErrNotExist if absent.
	Delete(ctx context.Context, name string) error
}

// FileStore is a filesystem-backed implementation of Store.
type FileStore struct {
	baseDir string
}

// NewFileStore creates a blob store rooted at the specified directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	//nolint:gosec // G301: 0755 is intentional for the shared upload directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure blob dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// path validates the name and resolves it inside baseDir. Names are flat;
// anything that could escape the directory is rejected.
func (s *FileStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid blob name: %q", name)
	}
	return filepath.Join(s.baseDir, name), nil
}

func (s *FileStore) Save(ctx context.Context, name string, r io.Reader) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	//nolint:gosec // G304: path validated above
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to flush blob: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to commit blob: %w", err)
	}
	return nil
}

func (s *FileStore) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	path, err := s.path(name)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path) //nolint:gosec // name validated as flat
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotExist
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

func (s *FileStore) Exists(ctx context.Context, name string) (bool, error) {
	path, err := s.path(name)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat blob: %w", err)
}

func (s *FileStore) Delete(ctx context.Context, name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
