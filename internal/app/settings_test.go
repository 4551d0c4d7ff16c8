package app

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dotcommander/dotkv/pkg/kv"
)

func resetSettingsStateForTest() {
	settingsOnce = sync.Once{}
	settings = Settings{}
	settingsErr = nil
	SetOverrides(Overrides{})
}

// isolate points HOME and the working directory at fresh temp dirs.
func isolate(t *testing.T) (home, workdir string) {
	t.Helper()
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home = t.TempDir()
	t.Setenv("HOME", home)

	workdir = t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workdir))
	t.Cleanup(func() { _ = os.Chdir(oldwd) })
	return home, workdir
}

func writeUserConfig(t *testing.T, home, content string) {
	t.Helper()
	path := filepath.Join(home, ".config", "dotkv", "config.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestLoadSettings_PrefersUserConfigOverLocal(t *testing.T) {
	home, workdir := isolate(t)

	writeUserConfig(t, home, "file_path: /tmp/from-user.json\n")
	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("file_path: /tmp/from-local.json\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-user.json", s.FilePath)
}

func TestLoadSettings_FallsBackToLocalConfig(t *testing.T) {
	_, workdir := isolate(t)

	require.NoError(t, os.WriteFile(filepath.Join(workdir, "config.yaml"), []byte("file_path: /tmp/from-local.json\n"), 0o600))

	s, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-local.json", s.FilePath)
}

func TestLoadSettings_InvalidYAMLReturnsError(t *testing.T) {
	home, _ := isolate(t)
	writeUserConfig(t, home, "file_path: [")

	_, err := LoadSettings()
	require.Error(t, err)
}

func TestLoadSettings_ExplicitConfigMustExist(t *testing.T) {
	isolate(t)
	SetOverrides(Overrides{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")})

	_, err := LoadSettings()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadSettingsFile_ReadsAllFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "file_path: /tmp/read.json\n" +
		"backup_path: /tmp/snaps\n" +
		"driver: sqlite\n" +
		"auto_save: false\n" +
		"write_delay_ms: 250\n" +
		"auto_clean_interval_ms: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	s, err := loadSettingsFile(path)
	require.NoError(t, err)
	require.Equal(t, "/tmp/read.json", s.FilePath)
	require.Equal(t, "/tmp/snaps", s.BackupPath)
	require.Equal(t, "sqlite", s.Driver)
	require.NotNil(t, s.AutoSave)
	require.False(t, *s.AutoSave)
	require.NotNil(t, s.WriteDelayMs)
	require.Equal(t, int64(250), *s.WriteDelayMs)
	require.NotNil(t, s.AutoCleanIntervalMs)
	require.Equal(t, int64(0), *s.AutoCleanIntervalMs)
}

func TestResolveConfig_Defaults(t *testing.T) {
	home, _ := isolate(t)

	cfg, err := ResolveConfig()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "dotkv", "dotkv.json"), cfg.FilePath)
	require.Equal(t, "", cfg.BackupPath)
	require.Equal(t, kv.DriverJSON, cfg.Driver)
	require.True(t, cfg.AutoSave)
	require.Equal(t, 100*time.Millisecond, cfg.WriteDelay)
	require.Equal(t, time.Minute, cfg.AutoCleanInterval)
	require.DirExists(t, filepath.Dir(cfg.FilePath))
}

func TestResolveConfig_Precedence(t *testing.T) {
	home, _ := isolate(t)

	writeUserConfig(t, home, "file_path: ~/from-config.json\n"+
		"backup_path: /tmp/config-backups\n"+
		"auto_save: false\n"+
		"write_delay_ms: 10\n")
	t.Setenv(EnvFile, filepath.Join(home, "env", "store.json"))
	t.Setenv(EnvWriteDelayMs, "20")

	cfg, err := ResolveConfig()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "env", "store.json"), cfg.FilePath)
	require.Equal(t, "/tmp/config-backups", cfg.BackupPath)
	require.False(t, cfg.AutoSave)
	require.Equal(t, 20*time.Millisecond, cfg.WriteDelay)

	override := filepath.Join(home, "cli", "store.db")
	SetOverrides(Overrides{FilePath: override, Driver: kv.DriverSQLite})
	cfg, err = ResolveConfig()
	require.NoError(t, err)
	require.Equal(t, override, cfg.FilePath)
	require.Equal(t, kv.DriverSQLite, cfg.Driver)
}

func TestResolveConfig_ExpandsHomeFromConfig(t *testing.T) {
	home, _ := isolate(t)
	writeUserConfig(t, home, "file_path: ~/data/kv.json\n")

	cfg, err := ResolveConfig()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "data", "kv.json"), cfg.FilePath)
}

func TestResolveConfig_RejectsBadValues(t *testing.T) {
	isolate(t)

	t.Setenv(EnvAutoSave, "maybe")
	_, err := ResolveConfig()
	require.Error(t, err)

	t.Setenv(EnvAutoSave, "")
	t.Setenv(EnvDriver, "bolt")
	_, err = ResolveConfig()
	require.Error(t, err)
}

func TestResolveFilePathDetailed_ReportsSource(t *testing.T) {
	home, _ := isolate(t)

	path, source, err := ResolveFilePathDetailed()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".config", "dotkv", "dotkv.json"), path)
	require.Equal(t, "default(~/.config/dotkv/dotkv.json)", source)

	envPath := filepath.Join(home, "env", "store.json")
	t.Setenv(EnvFile, envPath)
	path, source, err = ResolveFilePathDetailed()
	require.NoError(t, err)
	require.Equal(t, envPath, path)
	require.Equal(t, "env(DOTKV_FILE)", source)

	SetOverrides(Overrides{FilePath: "/tmp/cli.json"})
	_, source, err = ResolveFilePathDetailed()
	require.NoError(t, err)
	require.Equal(t, "cli(--file)", source)
}

func TestEnsureStoreDir_CreatesParentDirectories(t *testing.T) {
	base := t.TempDir()
	path := filepath.Join(base, "nested", "deep", "dotkv.json")

	resolved, err := EnsureStoreDir(path)
	require.NoError(t, err)
	require.Equal(t, path, resolved)
	require.DirExists(t, filepath.Dir(path))
}
