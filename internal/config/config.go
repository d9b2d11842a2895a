// Package config loads the TOML configuration file, fills defaults, and
// validates the result. Every path field comes back expanded and absolute.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	// DataDir holds the library database and generated artifacts.
	DataDir string `toml:"data_dir"`
}

// Generation contains model selection and batch tuning.
type Generation struct {
	ImageModel string `toml:"image_model"`
	TextModel  string `toml:"text_model"`
	VideoModel string `toml:"video_model"`

	// DefaultCount is the batch size used when a generate command gives none.
	DefaultCount int `toml:"default_count"`

	// PauseSeconds is the fixed delay between consecutive batch calls.
	PauseSeconds int `toml:"pause_seconds"`
}

// Retry contains backoff tuning for rate-limited API calls.
type Retry struct {
	MaxRetries          int `toml:"max_retries"`
	InitialDelaySeconds int `toml:"initial_delay_seconds"`

	// RequestsPerMinute, when positive, gates every API attempt through a
	// client-side limiter.
	RequestsPerMinute int `toml:"requests_per_minute"`
}

// Studio contains session behavior.
type Studio struct {
	Autosave bool `toml:"autosave"`
}

// Logging contains log output configuration.
type Logging struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Config encapsulates all configuration values.
type Config struct {
	Paths      Paths      `toml:"paths"`
	Generation Generation `toml:"generation"`
	Retry      Retry      `toml:"retry"`
	Studio     Studio     `toml:"studio"`
	Logging    Logging    `toml:"logging"`
}

const (
	defaultDataDir      = "~/.local/share/stagecraft"
	defaultImageModel   = "gemini-2.5-flash-image"
	defaultTextModel    = "gemini-2.5-flash"
	defaultVideoModel   = "veo-3.0-generate-001"
	defaultDefaultCount = 1
	defaultPauseSeconds = 1
	defaultMaxRetries   = 3
	defaultInitialDelay = 2
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{DataDir: defaultDataDir},
		Generation: Generation{
			ImageModel:   defaultImageModel,
			TextModel:    defaultTextModel,
			VideoModel:   defaultVideoModel,
			DefaultCount: defaultDefaultCount,
			PauseSeconds: defaultPauseSeconds,
		},
		Retry: Retry{
			MaxRetries:          defaultMaxRetries,
			InitialDelaySeconds: defaultInitialDelay,
		},
		Studio:  Studio{Autosave: true},
		Logging: Logging{Level: defaultLogLevel},
	}
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/stagecraft/config.toml")
}

// Load locates, parses, and validates a configuration file. A missing file is
// not an error; defaults apply. The boolean reports whether a file was read.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		if err := toml.NewDecoder(file).Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("stagecraft.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	expanded, err := expandPath(c.Paths.DataDir)
	if err != nil {
		return err
	}
	c.Paths.DataDir = expanded
	return nil
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir cannot be empty")
	}
	if c.Generation.DefaultCount < 1 || c.Generation.DefaultCount > 4 {
		return fmt.Errorf("generation.default_count must be between 1 and 4, got %d", c.Generation.DefaultCount)
	}
	if c.Generation.PauseSeconds < 0 {
		return fmt.Errorf("generation.pause_seconds cannot be negative, got %d", c.Generation.PauseSeconds)
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries cannot be negative, got %d", c.Retry.MaxRetries)
	}
	if c.Retry.InitialDelaySeconds < 0 {
		return fmt.Errorf("retry.initial_delay_seconds cannot be negative, got %d", c.Retry.InitialDelaySeconds)
	}
	if c.Retry.RequestsPerMinute < 0 {
		return fmt.Errorf("retry.requests_per_minute cannot be negative, got %d", c.Retry.RequestsPerMinute)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug/info/warn/error, got %q", c.Logging.Level)
	}
	return nil
}

// EnsureDirectories creates the data directory tree.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.ArtifactDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArtifactDir is where generated images and videos land.
func (c *Config) ArtifactDir() string {
	return filepath.Join(c.Paths.DataDir, "artifacts")
}

// DatabasePath is the sqlite library file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "library.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}
