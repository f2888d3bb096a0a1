package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/Aman-CERP/sift/internal/errors"
)

// isolate points the user config at an empty directory and clears SIFT_* overrides.
func isolate(t *testing.T) string {
	t.Helper()
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	for _, key := range []string{
		"SIFT_DATA_DIR", "SIFT_BACKEND", "SIFT_WATCH", "SIFT_HOST",
		"SIFT_PORT", "SIFT_LOG_LEVEL", "SIFT_INSTANCE_ID",
	} {
		t.Setenv(key, "")
	}
	return configHome
}

func writeUserConfig(t *testing.T, configHome, content string) {
	t.Helper()
	dir := filepath.Join(configHome, "sift")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

// =============================================================================
// Defaults
// =============================================================================

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)

	assert.Equal(t, ".", cfg.Storage.Root)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, 64, cfg.Storage.SQLiteCacheMB)
	assert.Equal(t, 4, cfg.Storage.DiscoveryWorkers)
	assert.False(t, cfg.Storage.Watch)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownDuration())
	assert.True(t, cfg.Server.CORSEnabled())

	assert.Equal(t, "main", cfg.Stats.InstanceID)
	assert.Equal(t, 256, cfg.Stats.TopQueries)

	require.NoError(t, cfg.Validate())
}

// =============================================================================
// Project config file
// =============================================================================

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	// Given: a directory with no .sift.yaml
	isolate(t)

	// When: loading configuration
	cfg, err := Load(t.TempDir())

	// Then: defaults are returned without error
	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_YamlFile_OverridesDefaults(t *testing.T) {
	// Given: a directory with .sift.yaml
	isolate(t)
	dir := t.TempDir()
	content := `
version: 1
storage:
  root: /srv/sift
  backend: bleve
  discovery_workers: 8
  watch: true
server:
  port: 7700
  shutdown_timeout: 30s
  cors: false
stats:
  instance_id: edge-1
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte(content), 0o644))

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: all overrides are applied and the rest keep their defaults
	require.NoError(t, err)
	assert.Equal(t, "/srv/sift", cfg.Storage.Root)
	assert.Equal(t, "bleve", cfg.Storage.Backend)
	assert.Equal(t, 8, cfg.Storage.DiscoveryWorkers)
	assert.True(t, cfg.Storage.Watch)
	assert.Equal(t, 7700, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownDuration())
	assert.False(t, cfg.Server.CORSEnabled())
	assert.Equal(t, "edge-1", cfg.Stats.InstanceID)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 256, cfg.Stats.TopQueries)
}

func TestLoad_YamlPreferredOverYml(t *testing.T) {
	// Given: both .yaml and .yml exist
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte("server:\n  port: 4000\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYML), []byte("server:\n  port: 5000\n"), 0o644))

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: .yaml takes precedence
	require.NoError(t, err)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dir, ProjectConfigYAML), ProjectConfigPath(dir))
}

func TestLoad_YmlExtension_IsRecognized(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYML), []byte("stats:\n  top_queries: 10\n"), 0o644))

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Stats.TopQueries)
}

func TestLoad_InvalidYaml_ReturnsConfigError(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"syntax", "server:\n  port: [3000\n"},
		{"field type", "server:\n  port: not-a-number\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Given: a malformed project config
			isolate(t)
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte(tt.content), 0o644))

			// When: loading configuration
			cfg, err := Load(dir)

			// Then: a config error names the file
			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Equal(t, serrors.ErrCodeConfigInvalid, serrors.GetCode(err))
			assert.Contains(t, err.Error(), "parse")
		})
	}
}

// =============================================================================
// Environment overrides
// =============================================================================

func TestLoad_EnvVarOverrides(t *testing.T) {
	// Given: every SIFT_* variable is set
	isolate(t)
	t.Setenv("SIFT_DATA_DIR", "/var/lib/sift")
	t.Setenv("SIFT_BACKEND", "BLEVE")
	t.Setenv("SIFT_WATCH", "1")
	t.Setenv("SIFT_HOST", "0.0.0.0")
	t.Setenv("SIFT_PORT", "8080")
	t.Setenv("SIFT_LOG_LEVEL", "debug")
	t.Setenv("SIFT_INSTANCE_ID", "replica-2")

	// When: loading configuration
	cfg, err := Load(t.TempDir())

	// Then: each variable is applied
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/sift", cfg.Storage.Root)
	assert.Equal(t, "bleve", cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Watch)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Server.LogLevel)
	assert.Equal(t, "replica-2", cfg.Stats.InstanceID)
}

func TestLoad_EnvPortNotInteger_ReturnsError(t *testing.T) {
	isolate(t)
	t.Setenv("SIFT_PORT", "http")

	cfg, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SIFT_PORT")
}

func TestLoad_EnvWatchFalse_OverridesFile(t *testing.T) {
	// Given: the project file enables watching but the environment disables it
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte("storage:\n  watch: true\n"), 0o644))
	t.Setenv("SIFT_WATCH", "false")

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: the environment wins
	require.NoError(t, err)
	assert.False(t, cfg.Storage.Watch)
}

// =============================================================================
// Validation
// =============================================================================

func TestValidate_RejectsOutOfRangeValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "lucene" }, "storage.backend"},
		{"zero workers", func(c *Config) { c.Storage.DiscoveryWorkers = 0 }, "discovery_workers"},
		{"negative cache", func(c *Config) { c.Storage.SQLiteCacheMB = -1 }, "sqlite_cache_mb"},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"log level", func(c *Config) { c.Server.LogLevel = "trace" }, "log_level"},
		{"shutdown timeout", func(c *Config) { c.Server.ShutdownTimeout = "soon" }, "shutdown_timeout"},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = "-1s" }, "shutdown_timeout"},
		{"top queries", func(c *Config) { c.Stats.TopQueries = 0 }, "top_queries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, serrors.ErrCodeConfigInvalid, serrors.GetCode(err))
		})
	}
}

func TestLoad_InvalidValueInFile_FailsValidation(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte("storage:\n  backend: redis\n"), 0o644))

	cfg, err := Load(dir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "storage.backend")
}

// =============================================================================
// User/global configuration
// =============================================================================

func TestGetUserConfigPath_DefaultsToXDGLocation(t *testing.T) {
	// Given: no XDG_CONFIG_HOME set
	t.Setenv("XDG_CONFIG_HOME", "")

	// When: getting user config path
	path := GetUserConfigPath()

	// Then: defaults to ~/.config/sift/config.yaml
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".config", "sift", "config.yaml"), path)
	assert.Equal(t, filepath.Dir(path), GetUserConfigDir())
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	configHome := isolate(t)

	assert.Equal(t, filepath.Join(configHome, "sift", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())

	writeUserConfig(t, configHome, "version: 1\n")
	assert.True(t, UserConfigExists())
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: both user and project configs exist
	configHome := isolate(t)
	dir := t.TempDir()
	writeUserConfig(t, configHome, "server:\n  port: 4000\n  host: 0.0.0.0\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte("server:\n  port: 5000\n"), 0o644))

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: project config takes precedence, user values it does not set survive
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
}

func TestLoad_EnvVarOverridesUserAndProjectConfig(t *testing.T) {
	configHome := isolate(t)
	dir := t.TempDir()
	writeUserConfig(t, configHome, "stats:\n  instance_id: user\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigYAML), []byte("stats:\n  instance_id: project\n"), 0o644))
	t.Setenv("SIFT_INSTANCE_ID", "env")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "env", cfg.Stats.InstanceID)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configHome := isolate(t)
	writeUserConfig(t, configHome, "server:\n  host: [oops\n")

	cfg, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), GetUserConfigPath())
}

func TestLoadUserConfig_MissingReturnsNil(t *testing.T) {
	isolate(t)

	cfg, err := LoadUserConfig()

	require.NoError(t, err)
	assert.Nil(t, cfg)
}

// =============================================================================
// Writing and upgrading
// =============================================================================

func TestWriteYAML_RoundTripsThroughLoad(t *testing.T) {
	// Given: a customised config written as the project file
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Storage.Backend = "bleve"
	cfg.Server.Port = 9100
	cors := false
	cfg.Server.CORS = &cors
	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigYAML)))

	// When: loading it back
	loaded, err := Load(dir)

	// Then: the values survive
	require.NoError(t, err)
	assert.Equal(t, "bleve", loaded.Storage.Backend)
	assert.Equal(t, 9100, loaded.Server.Port)
	assert.False(t, loaded.Server.CORSEnabled())
}

func TestWriteYAML_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sift", "config.yaml")

	require.NoError(t, NewConfig().WriteYAML(path))

	assert.FileExists(t, path)
}

func TestMergeNewDefaults_FillsOnlyMissingFields(t *testing.T) {
	// Given: an old config that predates several fields
	cfg := &Config{
		Version: 1,
		Storage: StorageConfig{Backend: "bleve"},
		Server:  ServerConfig{Port: 3100},
	}

	// When: merging new defaults
	added := cfg.MergeNewDefaults()

	// Then: missing fields are filled, existing ones kept
	assert.Equal(t, "bleve", cfg.Storage.Backend)
	assert.Equal(t, 3100, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Storage.SQLiteCacheMB)
	assert.Equal(t, "10s", cfg.Server.ShutdownTimeout)
	assert.True(t, cfg.Server.CORSEnabled())
	assert.ElementsMatch(t, []string{
		"storage.sqlite_cache_mb",
		"storage.discovery_workers",
		"server.shutdown_timeout",
		"server.cors",
		"stats.top_queries",
	}, added)

	// And: a second merge is a no-op
	assert.Empty(t, cfg.MergeNewDefaults())
}
