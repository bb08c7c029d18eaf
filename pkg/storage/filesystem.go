package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StoredFile describes a persisted upload.
type StoredFile struct {
	FileName string
	FilePath string
	FileSize int64
	MimeType string
}

// LocalStorage persists applicant uploads on disk under a base directory.
// Files are grouped by owner and category so a record's documents stay
// together: <base>/<ownerID>/<category>/<uuid><ext>.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./uploads"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create uploads directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Store writes the reader's content under the owner/category directory and
// returns the stored file metadata. The original file name is preserved in
// FileName; the path on disk uses a generated name to avoid collisions.
func (s *LocalStorage) Store(r io.Reader, originalName, mimeType, ownerID, category string) (*StoredFile, error) {
	if ownerID == "" {
		ownerID = "unowned"
	}
	if category == "" {
		category = "misc"
	}
	ext := filepath.Ext(originalName)
	relPath := filepath.Join(sanitize(ownerID), sanitize(category), uuid.NewString()+ext)
	absPath := filepath.Join(s.baseDir, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("prepare upload directory: %w", err)
	}
	file, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close() //nolint:errcheck
	size, err := io.Copy(file, r)
	if err != nil {
		_ = os.Remove(absPath)
		return nil, fmt.Errorf("write upload file: %w", err)
	}
	return &StoredFile{
		FileName: originalName,
		FilePath: relPath,
		FileSize: size,
		MimeType: mimeType,
	}, nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(relPath string) (io.ReadCloser, error) {
	file, err := os.Open(s.resolve(relPath))
	if err != nil {
		return nil, fmt.Errorf("open upload file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(relPath string) error {
	if err := os.Remove(s.resolve(relPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}
	return nil
}

// CleanupOlderThan removes files older than the provided TTL and returns deleted names.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	cutoff := time.Now().Add(-ttl)
	deleted := make([]string, 0)
	err := filepath.WalkDir(s.baseDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		if info.ModTime().After(cutoff) {
			return nil
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return err
		}
		rel, err := filepath.Rel(s.baseDir, path)
		if err != nil {
			rel = path
		}
		deleted = append(deleted, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cleanup uploads: %w", err)
	}
	return deleted, nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(relPath string) string {
	return s.resolve(relPath)
}

func (s *LocalStorage) resolve(relPath string) string {
	if filepath.IsAbs(relPath) {
		return relPath
	}
	return filepath.Join(s.baseDir, relPath)
}

func sanitize(segment string) string {
	segment = strings.ReplaceAll(segment, string(os.PathSeparator), "_")
	return strings.ReplaceAll(segment, "..", "_")
}
