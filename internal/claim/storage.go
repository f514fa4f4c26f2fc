package claim

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for upload-directory file operations. All
// names are flat filenames inside one shared directory; collision between
// concurrent submissions is avoided by unique name prefixes, not locking.
type Storage interface {
	// Save writes a file and returns its storage name.
	Save(filename string, data []byte) (string, error)

	// Get retrieves a file by storage name.
	Get(name string) ([]byte, error)

	// Delete removes a file.
	Delete(name string) error

	// Path returns the absolute filesystem path for a storage name, for
	// handing to external tools that work on paths.
	Path(name string) string

	// Exists reports whether a file is present.
	Exists(name string) bool
}

// LocalStorage implements Storage on the local filesystem.
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates the upload directory if needed.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}

	return &LocalStorage{basePath: abs}, nil
}

// Save writes a file into the upload directory.
func (l *LocalStorage) Save(filename string, data []byte) (string, error) {
	if err := os.WriteFile(l.Path(filename), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return filename, nil
}

// Get reads a file from the upload directory.
func (l *LocalStorage) Get(name string) ([]byte, error) {
	data, err := os.ReadFile(l.Path(name))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a file from the upload directory.
func (l *LocalStorage) Delete(name string) error {
	if err := os.Remove(l.Path(name)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// Path maps a storage name onto the upload directory. The name is reduced to
// its base so callers cannot traverse outside the directory.
func (l *LocalStorage) Path(name string) string {
	return filepath.Join(l.basePath, filepath.Base(name))
}

// Exists reports whether the named file is present.
func (l *LocalStorage) Exists(name string) bool {
	_, err := os.Stat(l.Path(name))
	return err == nil
}
