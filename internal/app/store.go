package app

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dotcommander/dotkv/pkg/kv"
)

// Environment variables read by ResolveConfig.
const (
	EnvFile              = "DOTKV_FILE"
	EnvBackupDir         = "DOTKV_BACKUP_DIR"
	EnvDriver            = "DOTKV_DRIVER"
	EnvAutoSave          = "DOTKV_AUTO_SAVE"
	EnvWriteDelayMs      = "DOTKV_WRITE_DELAY_MS"
	EnvAutoCleanInterval = "DOTKV_AUTO_CLEAN_INTERVAL_MS"
)

// ResolveConfig builds the store configuration.
// Order of precedence, per field:
// 1) CLI override (--file, --backup-dir, --driver)
// 2) Environment variables (DOTKV_*)
// 3) config.yaml
// 4) Defaults: ~/.config/dotkv/dotkv.json, backups next to it
// The parent directory of the store file is created.
func ResolveConfig() (kv.Config, error) {
	cfg := kv.DefaultConfig()
	cfg.FilePath = ""

	s, err := LoadSettings()
	if err != nil {
		return kv.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	applySettings(&cfg, s)

	if err := applyEnv(&cfg); err != nil {
		return kv.Config{}, err
	}

	o := getOverrides()
	if o.FilePath != "" {
		cfg.FilePath = o.FilePath
	}
	if o.BackupPath != "" {
		cfg.BackupPath = o.BackupPath
	}
	if o.Driver != "" {
		cfg.Driver = o.Driver
	}

	if cfg.FilePath == "" {
		dir, err := ConfigDir()
		if err != nil {
			return kv.Config{}, fmt.Errorf("failed to determine config directory: %w", err)
		}
		cfg.FilePath = filepath.Join(dir, "dotkv.json")
	}
	cfg.FilePath = expandHome(cfg.FilePath)
	cfg.BackupPath = expandHome(cfg.BackupPath)

	switch cfg.Driver {
	case kv.DriverJSON, kv.DriverSQLite:
	default:
		return kv.Config{}, fmt.Errorf("unknown driver %q (want %s or %s)", cfg.Driver, kv.DriverJSON, kv.DriverSQLite)
	}

	if _, err := EnsureStoreDir(cfg.FilePath); err != nil {
		return kv.Config{}, err
	}
	return cfg, nil
}

// ResolveFilePathDetailed returns the resolved store path along with the source of that decision.
// This is for debugging/reporting; normal code should use ResolveConfig.
func ResolveFilePathDetailed() (path string, source string, err error) {
	if o := getOverrides(); o.FilePath != "" {
		return expandHome(o.FilePath), "cli(--file)", nil
	}
	if envPath := os.Getenv(EnvFile); envPath != "" {
		return expandHome(envPath), "env(" + EnvFile + ")", nil
	}

	paths, err := configPaths()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	for _, p := range paths {
		s, loadErr := loadSettingsFile(p)
		if loadErr == nil {
			if s.FilePath != "" {
				return expandHome(s.FilePath), fmt.Sprintf("config(%s)", p), nil
			}
			// File exists but no file_path set; keep looking.
			continue
		}
		if os.IsNotExist(loadErr) {
			continue
		}
		return "", "", fmt.Errorf("failed to load config %s: %w", p, loadErr)
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine config directory: %w", err)
	}
	return filepath.Join(dir, "dotkv.json"), "default(~/.config/dotkv/dotkv.json)", nil
}

// EnsureStoreDir creates the parent directory of path.
func EnsureStoreDir(path string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create store directory: %w", err)
	}
	return path, nil
}

func applySettings(cfg *kv.Config, s Settings) {
	if s.FilePath != "" {
		cfg.FilePath = s.FilePath
	}
	if s.BackupPath != "" {
		cfg.BackupPath = s.BackupPath
	}
	if s.Driver != "" {
		cfg.Driver = s.Driver
	}
	if s.AutoSave != nil {
		cfg.AutoSave = *s.AutoSave
	}
	if s.WriteDelayMs != nil && *s.WriteDelayMs >= 0 {
		cfg.WriteDelay = time.Duration(*s.WriteDelayMs) * time.Millisecond
	}
	if s.AutoCleanIntervalMs != nil {
		cfg.AutoCleanInterval = time.Duration(*s.AutoCleanIntervalMs) * time.Millisecond
	}
}

func applyEnv(cfg *kv.Config) error {
	if v := os.Getenv(EnvFile); v != "" {
		cfg.FilePath = v
	}
	if v := os.Getenv(EnvBackupDir); v != "" {
		cfg.BackupPath = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		cfg.Driver = v
	}
	if v := os.Getenv(EnvAutoSave); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAutoSave, err)
		}
		cfg.AutoSave = b
	}
	if v := os.Getenv(EnvWriteDelayMs); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			return fmt.Errorf("invalid %s: %q", EnvWriteDelayMs, v)
		}
		cfg.WriteDelay = time.Duration(ms) * time.Millisecond
	}
	if v := os.Getenv(EnvAutoCleanInterval); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", EnvAutoCleanInterval, v)
		}
		cfg.AutoCleanInterval = time.Duration(ms) * time.Millisecond
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
