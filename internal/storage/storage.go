// Package storage stores uploaded file blobs. Blobs are addressed by a
// key shaped {uploader_id}/{board_id}/{task_or_room_id}/{filename}; the
// rest of the system only ever holds the key, never a filesystem path.
package storage

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// FileStore saves and removes blobs by key.
type FileStore interface {
	// Save writes the blob and returns its key.
	Save(uploaderID, boardID, entityID uint64, filename string, r io.Reader) (string, error)

	// Remove deletes the blob for key. Missing blobs are not an error.
	Remove(key string) error

	// URL returns the address clients fetch the blob from.
	URL(key string) string
}

// BuildKey assembles the blob key. The stored filename is prefixed with a
// random id so two uploads of the same name never collide.
func BuildKey(uploaderID, boardID, entityID uint64, filename string) string {
	base := filepath.Base(filename)
	return fmt.Sprintf("%d/%d/%d/%s_%s", uploaderID, boardID, entityID, uuid.NewString(), base)
}

// DiskStore keeps blobs under a root directory on the local filesystem.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a DiskStore rooted at dir; served under baseURL
// (e.g. "/media").
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &DiskStore{root: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *DiskStore) Save(uploaderID, boardID, entityID uint64, filename string, r io.Reader) (string, error) {
	key := BuildKey(uploaderID, boardID, entityID, filename)
	dst := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("failed to create blob dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create blob: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dst)
		return "", fmt.Errorf("failed to write blob: %w", err)
	}
	return key, nil
}

func (s *DiskStore) Remove(key string) error {
	err := os.Remove(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob: %w", err)
	}
	return nil
}

func (s *DiskStore) URL(key string) string {
	return s.baseURL + "/" + path.Clean(key)
}
