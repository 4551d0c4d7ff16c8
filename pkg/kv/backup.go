package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/dotcommander/dotkv/internal/persist"
	"github.com/dotcommander/dotkv/pkg/dotpath"
)

// BackupInfo describes a named snapshot on disk.
type BackupInfo = persist.SnapshotInfo

// Backup writes the live entries to a snapshot called name in the backup
// directory and returns its path. Characters outside [A-Za-z0-9_-] are
// replaced with '_'; an existing snapshot with the same name is overwritten.
func (s *Store) Backup(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", opErr("backup", name, ErrInvalidName)
	}

	s.mu.Lock()
	live := s.ordered(s.now(), "")
	records := make([]persist.Record, len(live))
	for i, e := range live {
		records[i] = persist.Record{
			Key:       e.key,
			Value:     dotpath.Clone(e.value),
			ExpiresAt: persist.ExpiryMillis(e.expiresAt),
		}
	}
	s.mu.Unlock()

	path, err := s.snapshots.Save(ctx, name, records)
	if err != nil {
		return "", opErr("backup", name, fromPersist(err))
	}
	s.logger.Info("backup written", "name", name, "path", path, "keys", len(records))
	return path, nil
}

// Restore replaces the whole store with the snapshot called name, writes it
// to disk immediately, and emits a single ClearEvent. Individual set events
// are not emitted.
func (s *Store) Restore(ctx context.Context, name string) error {
	if name == "" {
		return opErr("restore", name, ErrInvalidName)
	}
	if s.closed.Load() {
		return opErr("restore", name, ErrClosed)
	}
	records, err := s.snapshots.Load(ctx, name)
	if err != nil {
		return opErr("restore", name, fromPersist(err))
	}

	s.mu.Lock()
	s.replace(records)
	s.mu.Unlock()

	syncErr := s.flusher.Sync(ctx)
	s.bus.dispatch([]Event{ClearEvent{}})
	if syncErr != nil {
		return opErr("restore", name, fromPersist(syncErr))
	}
	return nil
}

// ListBackups returns the snapshots in the backup directory sorted by name.
func (s *Store) ListBackups() ([]BackupInfo, error) {
	infos, err := s.snapshots.List()
	if err != nil {
		return nil, opErr("backups", "", err)
	}
	return infos, nil
}

// RemoveBackup deletes the snapshot called name.
func (s *Store) RemoveBackup(name string) error {
	if err := s.snapshots.Remove(name); err != nil {
		return opErr("remove-backup", name, fromPersist(err))
	}
	return nil
}

// fromPersist maps persistence sentinels onto the package's own.
func fromPersist(err error) error {
	switch {
	case errors.Is(err, persist.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persist.ErrCorrupt):
		return fmt.Errorf("%w: %v", ErrCorrupt, err)
	case errors.Is(err, persist.ErrInvalidName):
		return ErrInvalidName
	case errors.Is(err, persist.ErrClosed):
		return ErrClosed
	default:
		return err
	}
}
