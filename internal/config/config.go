package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment override, e.g. PATHKIT_LOG_LEVEL.
const EnvPrefix = "PATHKIT"

// Config represents the main configuration for pathkit.
type Config struct {
	LogDir   string     `toml:"log_dir"`
	LogLevel string     `toml:"log_level"`      // "debug", "info" (default), "warn" or "error"
	Home     string     `toml:"home,omitempty"` // overrides the home directory used for "~"
	Walk     WalkConfig `toml:"walk"`
	Copy     CopyConfig `toml:"copy"`
	Find     FindConfig `toml:"find"`
}

// WalkConfig holds the traversal defaults.
type WalkConfig struct {
	FollowSymlinks bool     `toml:"follow_symlinks"`
	MaxDepth       int      `toml:"max_depth"` // 0 means unlimited
	Ignore         []string `toml:"ignore"`
}

// CopyConfig holds tree copy settings.
type CopyConfig struct {
	Symlinks string `toml:"symlinks"` // "dereference" (default), "preserve" or "skip"
}

// FindConfig holds settings for parallel search.
type FindConfig struct {
	Workers int `toml:"workers"` // 0 picks a default from the CPU count
}

// envOverrides mirrors the settings that can come from the environment.
// Pointer fields stay nil when the variable is unset. Only prefixed names
// are read; HOME or LOG_LEVEL on their own are ignored.
type envOverrides struct {
	LogDir         *string `split_words:"true"`
	LogLevel       *string `split_words:"true"`
	Home           *string
	FollowSymlinks *bool   `split_words:"true"`
	CopySymlinks   *string `split_words:"true"`
	FindWorkers    *int    `split_words:"true"`
}

// NewConfig creates a new Config with defaults rooted at stateDir.
func NewConfig(stateDir string) *Config {
	return &Config{
		LogDir:   filepath.Join(stateDir, "log"),
		LogLevel: "info",
		Copy:     CopyConfig{Symlinks: "dereference"},
	}
}

// ApplyEnv overwrites cfg with any PATHKIT_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("reading environment overrides: %w", err)
	}
	if env.LogDir != nil {
		cfg.LogDir = *env.LogDir
	}
	if env.LogLevel != nil {
		cfg.LogLevel = *env.LogLevel
	}
	if env.Home != nil {
		cfg.Home = *env.Home
	}
	if env.FollowSymlinks != nil {
		cfg.Walk.FollowSymlinks = *env.FollowSymlinks
	}
	if env.CopySymlinks != nil {
		cfg.Copy.Symlinks = *env.CopySymlinks
	}
	if env.FindWorkers != nil {
		cfg.Find.Workers = *env.FindWorkers
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.LogDir == "" {
		return fmt.Errorf("log_dir is required")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Copy.Symlinks) {
	case "", "dereference", "preserve", "skip":
	default:
		return fmt.Errorf("copy.symlinks: unknown policy %q", c.Copy.Symlinks)
	}
	if c.Walk.MaxDepth < 0 {
		return fmt.Errorf("walk.max_depth must not be negative, got %d", c.Walk.MaxDepth)
	}
	if c.Find.Workers < 0 {
		return fmt.Errorf("find.workers must not be negative, got %d", c.Find.Workers)
	}
	return nil
}

// Level parses LogLevel. An empty level means info.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if c.LogLevel == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads path when it exists and falls back to NewConfig(stateDir)
// otherwise, then applies environment overrides and validates the result.
func Load(path, stateDir string) (*Config, error) {
	cfg := NewConfig(stateDir)
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			cfg, err = ReadFromFile(path)
			if err != nil {
				return nil, err
			}
			if cfg.LogDir == "" {
				cfg.LogDir = filepath.Join(stateDir, "log")
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
