package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// SnapshotExt is the file extension of named snapshots.
const SnapshotExt = ".json"

// Snapshots stores named full copies of the store in a directory, one file
// per name, in the same format as the primary file.
type Snapshots struct {
	dir string
}

// SnapshotInfo describes one snapshot file.
type SnapshotInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// NewSnapshots creates a Snapshots rooted at dir. The directory is created on
// first save.
func NewSnapshots(dir string) *Snapshots {
	return &Snapshots{dir: dir}
}

// Dir returns the snapshot directory.
func (s *Snapshots) Dir() string { return s.dir }

// SanitizeName replaces every character outside [A-Za-z0-9_-] with '_'.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

// Path returns the file location for name.
func (s *Snapshots) Path(name string) (string, error) {
	if name == "" {
		return "", ErrInvalidName
	}
	return filepath.Join(s.dir, SanitizeName(name)+SnapshotExt), nil
}

// Save writes records under name, replacing any previous snapshot with the
// same sanitized name, and returns the file location.
func (s *Snapshots) Save(_ context.Context, name string, records []Record) (string, error) {
	path, err := s.Path(name)
	if err != nil {
		return "", err
	}
	data, err := Encode(records)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return path, nil
}

// Load reads the snapshot called name.
func (s *Snapshots) Load(_ context.Context, name string) ([]Record, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, path, err)
	}
	return Decode(data)
}

// Remove deletes the snapshot called name.
func (s *Snapshots) Remove(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// List returns all snapshots sorted by name. A missing directory yields none.
func (s *Snapshots) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []SnapshotInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), SnapshotExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, SnapshotInfo{
			Name:    strings.TrimSuffix(e.Name(), SnapshotExt),
			Path:    filepath.Join(s.dir, e.Name()),
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
