package journal

import (
	"fmt"
	"os"
	"path/filepath"
)

// Storage defines the interface for image blob storage. Blobs are grouped by
// session so a reset can drop everything a session uploaded in one call.
type Storage interface {
	// Save stores an image under a session and returns its reference
	Save(sessionID, name string, data []byte) (string, error)

	// Get retrieves an image by session and reference
	Get(sessionID, ref string) ([]byte, error)

	// Delete removes a single image
	Delete(sessionID, ref string) error

	// DeleteAll removes every image a session uploaded
	DeleteAll(sessionID string) error
}

// LocalStorage implements the Storage interface using a local directory with
// one subdirectory per session
type LocalStorage struct {
	basePath string
}

// NewLocalStorage creates a new LocalStorage instance
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &LocalStorage{
		basePath: basePath,
	}, nil
}

// Save stores an image blob for a session
func (l *LocalStorage) Save(sessionID, name string, data []byte) (string, error) {
	dir := filepath.Join(l.basePath, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating session directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return name, nil
}

// Get retrieves an image blob
func (l *LocalStorage) Get(sessionID, ref string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.basePath, sessionID, ref))
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return data, nil
}

// Delete removes a single image blob
func (l *LocalStorage) Delete(sessionID, ref string) error {
	if err := os.Remove(filepath.Join(l.basePath, sessionID, ref)); err != nil {
		return fmt.Errorf("deleting file: %w", err)
	}
	return nil
}

// DeleteAll removes a session's entire blob directory
func (l *LocalStorage) DeleteAll(sessionID string) error {
	if err := os.RemoveAll(filepath.Join(l.basePath, sessionID)); err != nil {
		return fmt.Errorf("deleting session directory: %w", err)
	}
	return nil
}
