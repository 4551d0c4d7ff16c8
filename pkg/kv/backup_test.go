package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackupRestore(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", map[string]any{"x": true}))

	path, err := s.Backup(ctx, "daily snap")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Config().BackupPath, "daily_snap.json"), path)

	require.NoError(t, s.Set("c", 3))
	_, err = s.Delete("a")
	require.NoError(t, err)

	var clears, sets int
	defer On(s, func(ClearEvent) { clears++ })()
	defer On(s, func(SetEvent) { sets++ })()

	require.NoError(t, s.Restore(ctx, "daily snap"))
	assert.Equal(t, []string{"a", "b"}, s.Keys())
	assert.Equal(t, 1, clears)
	assert.Equal(t, 0, sets)

	// Restore writes through immediately.
	data, err := os.ReadFile(s.Config().FilePath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"b"`)
	assert.NotContains(t, string(data), `"c"`)
}

func TestBackupSkipsExpiredEntries(t *testing.T) {
	s, clock := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set("live", 1))
	require.NoError(t, s.Set("dead", 1, WithTTL(time.Second)))
	clock.Advance(time.Second)

	_, err := s.Backup(ctx, "b1")
	require.NoError(t, err)
	require.NoError(t, s.Clear())
	require.NoError(t, s.Restore(ctx, "b1"))
	assert.Equal(t, []string{"live"}, s.Keys())
}

func TestBackupErrors(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Backup(ctx, "")
	require.ErrorIs(t, err, ErrInvalidName)

	err = s.Restore(ctx, "")
	require.ErrorIs(t, err, ErrInvalidName)

	err = s.Restore(ctx, "nope")
	require.ErrorIs(t, err, ErrNotFound)

	var opErr *OpError
	require.ErrorAs(t, err, &opErr)
	assert.Equal(t, "NOT_FOUND", opErr.ErrorCode())

	require.ErrorIs(t, s.RemoveBackup("nope"), ErrNotFound)
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.Set("a", 1))

	dir := s.Config().BackupPath
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("[1,2"), 0o600))

	err := s.Restore(context.Background(), "bad")
	require.ErrorIs(t, err, ErrCorrupt)
	assert.Equal(t, []string{"a"}, s.Keys())
}

func TestListAndRemoveBackups(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	infos, err := s.ListBackups()
	require.NoError(t, err)
	assert.Empty(t, infos)

	_, err = s.Backup(ctx, "b")
	require.NoError(t, err)
	_, err = s.Backup(ctx, "a")
	require.NoError(t, err)

	infos, err = s.ListBackups()
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "a", infos[0].Name)
	assert.Equal(t, "b", infos[1].Name)

	require.NoError(t, s.RemoveBackup("a"))
	infos, err = s.ListBackups()
	require.NoError(t, err)
	require.Len(t, infos, 1)
}

func TestStats(t *testing.T) {
	s, clock := newTestStore(t)

	require.NoError(t, s.Set("a", 1))
	require.NoError(t, s.Set("b", 2, WithTTL(time.Second)))
	require.NoError(t, s.Set("c", 3, WithTTL(time.Hour)))
	require.NoError(t, s.Sync(context.Background()))
	clock.Advance(2 * time.Second)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalKeys)
	assert.Equal(t, 2, st.KeysWithTTL)
	assert.Equal(t, 1, st.ExpiredCount)
	assert.True(t, st.AutoSave)
	assert.Equal(t, int64(2000), st.UptimeMs)
	assert.Positive(t, st.MemSize)

	fi, err := os.Stat(s.Config().FilePath)
	require.NoError(t, err)
	assert.Equal(t, fi.Size(), st.FileSize)
	assert.Equal(t, st.FileSize, st.MemSize)
}
