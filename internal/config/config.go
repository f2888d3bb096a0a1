package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// Project config file names, checked in this order.
const (
	ProjectConfigYAML = ".sift.yaml"
	ProjectConfigYML  = ".sift.yml"
)

// Config represents the complete sift configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Stats   StatsConfig   `yaml:"stats" json:"stats"`
}

// StorageConfig controls where and how indexes are persisted.
type StorageConfig struct {
	// Root is the service root; index artifacts live under <root>/data.
	Root string `yaml:"root" json:"root"`

	// Backend selects the storage engine: "sqlite" (FTS5) or "bleve".
	Backend string `yaml:"backend" json:"backend"`

	// SQLiteCacheMB is the per-index SQLite page cache.
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`

	// DiscoveryWorkers bounds how many artifacts are opened concurrently at startup.
	DiscoveryWorkers int `yaml:"discovery_workers" json:"discovery_workers"`

	// Watch enables registration of artifacts that appear in the data
	// directory while the server is running.
	Watch bool `yaml:"watch" json:"watch"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host            string `yaml:"host" json:"host"`
	Port            int    `yaml:"port" json:"port"`
	LogLevel        string `yaml:"log_level" json:"log_level"`
	ShutdownTimeout string `yaml:"shutdown_timeout" json:"shutdown_timeout"`
	CORS            *bool  `yaml:"cors" json:"cors"`
}

// StatsConfig configures the stats collector.
type StatsConfig struct {
	InstanceID string `yaml:"instance_id" json:"instance_id"`
	TopQueries int    `yaml:"top_queries" json:"top_queries"`
}

var (
	validBackends  = map[string]bool{"sqlite": true, "bleve": true}
	validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
)

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	cors := true
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Root:             ".",
			Backend:          "sqlite",
			SQLiteCacheMB:    64,
			DiscoveryWorkers: 4,
			Watch:            false,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            3000,
			LogLevel:        "info",
			ShutdownTimeout: "10s",
			CORS:            &cors,
		},
		Stats: StatsConfig{
			InstanceID: "main",
			TopQueries: 256,
		},
	}
}

// CORSEnabled reports whether the wildcard CORS header is sent.
func (s ServerConfig) CORSEnabled() bool {
	return s.CORS == nil || *s.CORS
}

// ShutdownDuration parses ShutdownTimeout. Validate guarantees it parses.
func (s ServerConfig) ShutdownDuration() time.Duration {
	d, err := time.ParseDuration(s.ShutdownTimeout)
	if err != nil {
		return 0
	}
	return d
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/sift/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/sift/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sift", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "sift", "config.yaml")
	}
	return filepath.Join(home, ".config", "sift", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig loads the user/global configuration file if it exists.
// Returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var parsed Config
	if err := parseYAML(configPath, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// LoadUserConfig loads the user configuration file as written, without defaults.
// Returns nil config and nil error if the file doesn't exist.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/sift/config.yaml)
//  3. Project config (.sift.yaml in dir)
//  4. Environment variables (SIFT_*)
//
// CLI flags are applied by the caller on top of the returned config.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	userCfg, err := loadUserConfig()
	if err != nil {
		return nil, err
	}
	if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if there is none.
// .sift.yaml takes precedence over .sift.yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigYAML, ProjectConfigYML} {
		path := filepath.Join(dir, name)
		if fileExists(path) {
			return path
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil
	}

	var parsed Config
	if err := parseYAML(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

func parseYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return serrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithSuggestion("Check the YAML syntax and field types")
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.Root != "" {
		c.Storage.Root = other.Storage.Root
	}
	if other.Storage.Backend != "" {
		c.Storage.Backend = other.Storage.Backend
	}
	if other.Storage.SQLiteCacheMB != 0 {
		c.Storage.SQLiteCacheMB = other.Storage.SQLiteCacheMB
	}
	if other.Storage.DiscoveryWorkers != 0 {
		c.Storage.DiscoveryWorkers = other.Storage.DiscoveryWorkers
	}
	// false is indistinguishable from unset, so a file can only turn watching on.
	if other.Storage.Watch {
		c.Storage.Watch = true
	}

	if other.Server.Host != "" {
		c.Server.Host = other.Server.Host
	}
	if other.Server.Port != 0 {
		c.Server.Port = other.Server.Port
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Server.ShutdownTimeout != "" {
		c.Server.ShutdownTimeout = other.Server.ShutdownTimeout
	}
	if other.Server.CORS != nil {
		cors := *other.Server.CORS
		c.Server.CORS = &cors
	}

	if other.Stats.InstanceID != "" {
		c.Stats.InstanceID = other.Stats.InstanceID
	}
	if other.Stats.TopQueries != 0 {
		c.Stats.TopQueries = other.Stats.TopQueries
	}
}

// applyEnvOverrides applies SIFT_* environment variables. Empty values are ignored.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("SIFT_DATA_DIR"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("SIFT_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SIFT_WATCH"); v != "" {
		c.Storage.Watch = strings.ToLower(v) == "true" || v == "1"
	}
	if v := os.Getenv("SIFT_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("SIFT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return serrors.ConfigError(fmt.Sprintf("SIFT_PORT must be an integer, got %q", v), err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv("SIFT_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("SIFT_INSTANCE_ID"); v != "" {
		c.Stats.InstanceID = v
	}
	return nil
}

// Validate checks that configuration values are within valid ranges.
func (c *Config) Validate() error {
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		return serrors.ConfigError(
			fmt.Sprintf("storage.backend must be 'sqlite' or 'bleve', got %q", c.Storage.Backend), nil)
	}
	if c.Storage.DiscoveryWorkers < 1 {
		return serrors.ConfigError(
			fmt.Sprintf("storage.discovery_workers must be at least 1, got %d", c.Storage.DiscoveryWorkers), nil)
	}
	if c.Storage.SQLiteCacheMB < 0 {
		return serrors.ConfigError(
			fmt.Sprintf("storage.sqlite_cache_mb must be non-negative, got %d", c.Storage.SQLiteCacheMB), nil)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return serrors.ConfigError(
			fmt.Sprintf("server.port must be between 1 and 65535, got %d", c.Server.Port), nil)
	}
	if !validLogLevels[strings.ToLower(c.Server.LogLevel)] {
		return serrors.ConfigError(
			fmt.Sprintf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel), nil)
	}
	if d, err := time.ParseDuration(c.Server.ShutdownTimeout); err != nil || d <= 0 {
		return serrors.ConfigError(
			fmt.Sprintf("server.shutdown_timeout must be a positive duration, got %q", c.Server.ShutdownTimeout), err)
	}

	if c.Stats.TopQueries < 1 {
		return serrors.ConfigError(
			fmt.Sprintf("stats.top_queries must be at least 1, got %d", c.Stats.TopQueries), nil)
	}
	return nil
}

// WriteYAML writes the configuration to a YAML file, creating parent directories.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// MergeNewDefaults fills fields an older config file lacks with their defaults.
// Returns the dotted names of the fields that were added.
func (c *Config) MergeNewDefaults() []string {
	defaults := NewConfig()
	var added []string

	if c.Version == 0 {
		c.Version = defaults.Version
		added = append(added, "version")
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
		added = append(added, "storage.backend")
	}
	if c.Storage.SQLiteCacheMB == 0 {
		c.Storage.SQLiteCacheMB = defaults.Storage.SQLiteCacheMB
		added = append(added, "storage.sqlite_cache_mb")
	}
	if c.Storage.DiscoveryWorkers == 0 {
		c.Storage.DiscoveryWorkers = defaults.Storage.DiscoveryWorkers
		added = append(added, "storage.discovery_workers")
	}
	if c.Server.ShutdownTimeout == "" {
		c.Server.ShutdownTimeout = defaults.Server.ShutdownTimeout
		added = append(added, "server.shutdown_timeout")
	}
	if c.Server.CORS == nil {
		c.Server.CORS = defaults.Server.CORS
		added = append(added, "server.cors")
	}
	if c.Stats.TopQueries == 0 {
		c.Stats.TopQueries = defaults.Stats.TopQueries
		added = append(added, "stats.top_queries")
	}
	return added
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
