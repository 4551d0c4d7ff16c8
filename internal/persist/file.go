package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// BackupSuffix is appended to the primary file name for the rolling copy
// taken before every write.
const BackupSuffix = ".bak"

// FileBackend keeps all records in one JSON file.
type FileBackend struct {
	path   string
	logger *slog.Logger
}

// NewFileBackend creates a Backend writing to path. The parent directory is
// created on first save.
func NewFileBackend(path string, logger *slog.Logger) *FileBackend {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileBackend{path: path, logger: logger}
}

// Path returns the primary file location.
func (b *FileBackend) Path() string { return b.path }

// BackupPath returns the location of the rolling backup copy.
func (b *FileBackend) BackupPath() string { return b.path + BackupSuffix }

// Load reads the primary file. When it cannot be decoded the backup copy is
// tried and, if good, written back over the primary. When both are unusable
// the store starts empty. Only I/O errors other than a missing file are
// returned.
func (b *FileBackend) Load(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, b.path, err)
	}

	records, err := Decode(data)
	if err == nil {
		return records, nil
	}
	b.logger.Warn("persistence file corrupt, trying backup", "path", b.path, "error", err.Error())

	bak, err := os.ReadFile(b.BackupPath())
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			b.logger.Error("read backup failed", "path", b.BackupPath(), "error", err.Error())
		}
		b.logger.Warn("no usable backup, starting empty", "path", b.path)
		return nil, nil
	}

	records, err = Decode(bak)
	if err != nil {
		b.logger.Error("backup corrupt, starting empty", "path", b.BackupPath(), "error", err.Error())
		return nil, nil
	}

	if err := writeAtomic(b.path, bak); err != nil {
		b.logger.Error("restore backup over primary failed", "path", b.path, "error", err.Error())
	}
	b.logger.Info("loaded from backup", "path", b.BackupPath(), "keys", len(records))
	return records, nil
}

// Save copies the current file to the backup location, then atomically
// replaces the primary with the encoded records.
func (b *FileBackend) Save(_ context.Context, records []Record) error {
	data, err := Encode(records)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSaveFailed, err)
	}

	if prev, err := os.ReadFile(b.path); err == nil {
		if err := writeAtomic(b.BackupPath(), prev); err != nil {
			return fmt.Errorf("%w: backup: %w", ErrSaveFailed, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	if err := writeAtomic(b.path, data); err != nil {
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	return nil
}

// Size stats the primary file. A missing file has size 0.
func (b *FileBackend) Size() (int64, error) {
	fi, err := os.Stat(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (b *FileBackend) Close() error { return nil }

// writeAtomic writes data to a temp file next to path and renames it into
// place so readers never see a partial file.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
