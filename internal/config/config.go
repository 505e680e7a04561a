// Package config provides configuration loading and structs for the urlmatch server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Session store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Upload  UploadConfig  `yaml:"upload"`
	Session SessionConfig `yaml:"session"`
	Display DisplayConfig `yaml:"display"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// UploadConfig limits spreadsheet uploads.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"`
}

// SessionConfig selects where session state is kept and for how long.
type SessionConfig struct {
	Store        string `yaml:"store"`
	DatabasePath string `yaml:"database_path"`
	CookieName   string `yaml:"cookie_name"`
	// TTL is how long an untouched session is kept. A negative value keeps sessions forever.
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// DisplayConfig holds presentation settings.
type DisplayConfig struct {
	// PreviewLimit is how many reference values the page lists before "and N more".
	PreviewLimit int `yaml:"preview_limit"`
}

// Load reads and parses the config file at path, applies environment overrides
// and defaults, and expands paths. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := ApplyEnv(&cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(&cfg)

	cfg.Session.DatabasePath = expandPath(cfg.Session.DatabasePath, filepath.Dir(path))
	return &cfg, nil
}

// LoadOrDefault behaves like Load but returns the defaults (with environment
// overrides) when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	cfg = &Config{}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	if cwd, cwdErr := os.Getwd(); cwdErr == nil {
		cfg.Session.DatabasePath = expandPath(cfg.Session.DatabasePath, cwd)
	}
	return cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// LoadDotEnv loads a .env file from the working directory into the process
// environment if one exists. Variables already set are not overwritten.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ApplyEnv overrides cfg with URLMATCH_* environment variables.
func ApplyEnv(cfg *Config) error {
	if v := os.Getenv("URLMATCH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("URLMATCH_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid URLMATCH_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("URLMATCH_DEBUG"); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid URLMATCH_DEBUG %q: %w", v, err)
		}
		cfg.Debug = debug
	}
	if v := os.Getenv("URLMATCH_SESSION_STORE"); v != "" {
		cfg.Session.Store = strings.ToLower(v)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
