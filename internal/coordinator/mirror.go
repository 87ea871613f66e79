package coordinator

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Mirror is a read-through fallback copy of collection snapshots. It is
// only ever written from successful store reads.
type Mirror interface {
	// Save replaces the mirrored copy of collection.
	Save(collection string, records any) error

	// Load decodes the mirrored copy of collection into v. ok is false when
	// nothing was mirrored yet.
	Load(collection string, v any) (ok bool, err error)
}

// FileMirror keeps one JSON file per collection in a directory.
type FileMirror struct {
	dir string
}

// NewFileMirror returns a mirror rooted at dir. The directory is created on
// first Save.
func NewFileMirror(dir string) *FileMirror {
	return &FileMirror{dir: dir}
}

// Dir returns the mirror directory.
func (m *FileMirror) Dir() string {
	return m.dir
}

func (m *FileMirror) path(collection string) string {
	return filepath.Join(m.dir, collection+".json")
}

// Save writes records to <dir>/<collection>.json. The file is replaced by
// rename so readers never observe a partial write.
func (m *FileMirror) Save(collection string, records any) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("mirror: encode %s: %w", collection, err)
	}
	if err := os.MkdirAll(m.dir, 0o700); err != nil {
		return fmt.Errorf("mirror: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(m.dir, collection+".*.tmp")
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	defer os.Remove(tmp.Name()) // No-op after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("mirror: write %s: %w", collection, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("mirror: write %s: %w", collection, err)
	}
	if err := os.Rename(tmp.Name(), m.path(collection)); err != nil {
		return fmt.Errorf("mirror: replace %s: %w", collection, err)
	}
	return nil
}

// Load reads <dir>/<collection>.json into v.
func (m *FileMirror) Load(collection string, v any) (bool, error) {
	data, err := os.ReadFile(m.path(collection))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mirror: read %s: %w", collection, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("mirror: decode %s: %w", collection, err)
	}
	return true, nil
}
