package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/seedliq/makerbot/internal/domain"
)

// indexFile is the on-disk format: the index wrapped in a single object keyed
// "markets".
type indexFile struct {
	Markets domain.VenueIndex `json:"markets"`
}

// FileStore persists the venue index as a single JSON file. Save writes a
// temporary file and renames it over the target, so readers never observe a
// partially written index.
type FileStore struct {
	path string
}

// NewFileStore creates a FileStore writing to the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted index. It returns domain.ErrNotFound when the
// cache file does not exist yet.
func (s *FileStore) Load(_ context.Context) (domain.VenueIndex, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("index: read %s: %w", s.path, err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("index: parse %s: %w", s.path, err)
	}
	if f.Markets == nil {
		return nil, domain.ErrNotFound
	}
	return f.Markets, nil
}

// Save atomically replaces the persisted index with idx.
func (s *FileStore) Save(_ context.Context, idx domain.VenueIndex) error {
	data, err := json.Marshal(indexFile{Markets: idx})
	if err != nil {
		return fmt.Errorf("index: marshal index: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("index: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("index: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("index: close %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("index: replace %s: %w", s.path, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.VenueIndexStore = (*FileStore)(nil)
