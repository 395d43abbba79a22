package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"k8s.io/klog/v2"
)

// FileStore keeps a model in a local file.
type FileStore struct {
	Path string
}

var _ Store = (*FileStore)(nil)

// URI returns the file path.
func (s *FileStore) URI() string { return s.Path }

// Get reads the whole file.
func (s *FileStore) Get(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %q: %w", s.Path, err)
	}
	return data, nil
}

// Put writes data to a temp file in the destination directory and renames
// it over Path, so readers never observe a partially written model.
func (s *FileStore) Put(ctx context.Context, data []byte) error {
	log := klog.FromContext(ctx)

	dir := filepath.Dir(s.Path)
	tempFile, err := os.CreateTemp(dir, ".model-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}

	shouldDeleteTempFile := true
	defer func() {
		if shouldDeleteTempFile {
			if err := os.Remove(tempFile.Name()); err != nil && !os.IsNotExist(err) {
				log.Error(err, "removing temp file", "path", tempFile.Name())
			}
		}
	}()

	shouldCloseTempFile := true
	defer func() {
		if shouldCloseTempFile {
			if err := tempFile.Close(); err != nil {
				log.Error(err, "closing temp file", "path", tempFile.Name())
			}
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tempFile.Chmod(0o644); err != nil {
		return fmt.Errorf("setting permissions on temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	shouldCloseTempFile = false

	if err := os.Rename(tempFile.Name(), s.Path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	shouldDeleteTempFile = false

	return nil
}
