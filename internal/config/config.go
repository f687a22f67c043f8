// Package config locates the planner data directory and loads its settings
// from defaults, the optional planner.toml file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/leeovery/studyplan/internal/task"
)

// Default values.
const (
	DirName  = ".planner"
	FileName = "planner.toml"

	DefaultDataFile    = "tasks.json"
	DefaultBackupDir   = "backups"
	DefaultCacheFile   = "cache.db"
	DefaultLockFile    = "lock"
	DefaultLockTimeout = "5s"
	DefaultLogLevel    = "info"
)

// Config holds the settings for one data directory. Relative paths are
// resolved against Root.
type Config struct {
	DataFile    string `toml:"data_file"`
	BackupDir   string `toml:"backup_dir"`
	CacheFile   string `toml:"cache_file"`
	LockFile    string `toml:"lock_file"`
	DateLayout  string `toml:"date_layout"`
	LockTimeout string `toml:"lock_timeout"`
	LogLevel    string `toml:"log_level"`

	// Root is the .planner directory (computed).
	Root string `toml:"-"`

	lockTimeout time.Duration
}

// Default returns the built-in configuration for the data directory root.
func Default(root string) *Config {
	cfg := &Config{Root: root}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.DataFile = DefaultDataFile
	cfg.BackupDir = DefaultBackupDir
	cfg.CacheFile = DefaultCacheFile
	cfg.LockFile = DefaultLockFile
	cfg.DateLayout = task.DefaultDateLayout
	cfg.LockTimeout = DefaultLockTimeout
	cfg.LogLevel = DefaultLogLevel
}

// Load builds the configuration for root in priority order:
// 1. Defaults
// 2. root/planner.toml, if present
// 3. Environment variables
func Load(root string) (*Config, error) {
	cfg := Default(root)

	path := filepath.Join(root, FileName)
	if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading config file %s: %w", path, err)
	}

	loadFromEnv(cfg)

	if err := finalizeConfig(cfg); err != nil {
		return nil, fmt.Errorf("finalizing config: %w", err)
	}
	return cfg, nil
}

// loadFromEnv overrides config from environment variables.
func loadFromEnv(cfg *Config) {
	if v := os.Getenv("PLANNER_DATA_FILE"); v != "" {
		cfg.DataFile = v
	}
	if v := os.Getenv("PLANNER_BACKUP_DIR"); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv("PLANNER_DATE_LAYOUT"); v != "" {
		cfg.DateLayout = v
	}
	if v := os.Getenv("PLANNER_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}

// finalizeConfig validates values that cannot be checked by type alone.
func finalizeConfig(cfg *Config) error {
	d, err := time.ParseDuration(strings.TrimSpace(cfg.LockTimeout))
	if err != nil || d <= 0 {
		return fmt.Errorf("invalid lock_timeout %q: must be a positive duration such as 5s", cfg.LockTimeout)
	}
	cfg.lockTimeout = d

	probe := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	if back, err := time.Parse(cfg.DateLayout, probe.Format(cfg.DateLayout)); err != nil || !back.Equal(probe) {
		return fmt.Errorf("invalid date_layout %q: must include year, month and day", cfg.DateLayout)
	}

	if _, err := log.ParseLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", cfg.LogLevel, err)
	}

	for name, v := range map[string]string{"data_file": cfg.DataFile, "backup_dir": cfg.BackupDir, "cache_file": cfg.CacheFile, "lock_file": cfg.LockFile} {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s must not be empty", name)
		}
	}
	return nil
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// DataPath returns the primary task file path.
func (c *Config) DataPath() string { return c.resolve(c.DataFile) }

// BackupPath returns the backup directory.
func (c *Config) BackupPath() string { return c.resolve(c.BackupDir) }

// CachePath returns the SQLite cache path.
func (c *Config) CachePath() string { return c.resolve(c.CacheFile) }

// LockPath returns the lock file path.
func (c *Config) LockPath() string { return c.resolve(c.LockFile) }

// LockTimeoutDuration returns the parsed lock timeout. It falls back to the
// default for a Config that did not go through Load.
func (c *Config) LockTimeoutDuration() time.Duration {
	if c.lockTimeout > 0 {
		return c.lockTimeout
	}
	if d, err := time.ParseDuration(c.LockTimeout); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(DefaultLockTimeout)
	return d
}

// Level returns the configured log level, InfoLevel if it does not parse.
func (c *Config) Level() log.Level {
	lvl, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
