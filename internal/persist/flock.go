package persist

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// lockSuffix names the advisory lock file kept next to a SQLite database.
const lockSuffix = ".migrate.lock"

// migrationLock serialises goose migrations between processes that open the
// same database file.
type migrationLock struct {
	f *os.File
}

// acquireMigrationLock blocks until it holds the exclusive lock for dbPath.
func acquireMigrationLock(dbPath string) (*migrationLock, error) {
	path := dbPath + lockSuffix
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600) //nolint:gosec // path is the configured store path plus a fixed suffix
	if err != nil {
		return nil, fmt.Errorf("open migration lock %s: %w", path, err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	return &migrationLock{f: f}, nil
}

// release drops the lock. Safe on a nil lock and when called twice.
func (l *migrationLock) release() {
	if l == nil || l.f == nil {
		return
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	_ = l.f.Close()
	l.f = nil
}
