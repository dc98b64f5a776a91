// Package storage persists uploaded proof-of-work files.
//
// Client filenames are never used on disk: each file gets a
// collision-resistant uuid name, keeping only a sanitized extension.
// The original name is returned so the caller can store it as display
// metadata.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Store writes uploaded files into a single directory
type Store struct {
	dir string
}

// New creates the uploads directory if needed and returns a Store for it
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the uploads directory
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the uploaded bytes under a generated name and returns the
// path relative to the uploads directory. The file is fully written
// before the caller records it; a crash before the record leaves an
// orphaned file, never a dangling reference.
func (s *Store) Save(originalName string, r io.Reader) (string, error) {
	name := uuid.NewString() + sanitizeExt(originalName)

	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to write upload: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("failed to close upload: %w", err)
	}

	return name, nil
}

// Open opens a stored file by the name Save returned
func (s *Store) Open(name string) (*os.File, error) {
	// Stored names are uuid-generated; reject anything path-like
	if name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid stored name: %s", name)
	}
	return os.Open(filepath.Join(s.dir, name))
}

// OrphanedFiles returns stored names present on disk but absent from the
// referenced set. Used by the periodic sweep; orphans are logged, not
// removed.
func (s *Store) OrphanedFiles(referenced map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploads directory: %w", err)
	}

	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !referenced[entry.Name()] {
			orphans = append(orphans, entry.Name())
		}
	}
	return orphans, nil
}

// LogOrphans writes a warning for any stored file no submission points at
func (s *Store) LogOrphans(referenced map[string]bool) {
	orphans, err := s.OrphanedFiles(referenced)
	if err != nil {
		log.Error().Err(err).Msg("Failed to sweep uploads directory")
		return
	}
	for _, name := range orphans {
		log.Warn().Str("file", name).Msg("Orphaned upload with no submission record")
	}
}

// sanitizeExt keeps a short alphanumeric extension from the client
// filename, or nothing when it has none worth keeping.
func sanitizeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) < 2 || len(ext) > 16 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
