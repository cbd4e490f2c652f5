package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/logger"
)

func TestGetDefaultDataDirectory(t *testing.T) {
	tests := []struct {
		name     string
		xdgHome  string
		expected string
	}{
		{
			name:     "With XDG_DATA_HOME set",
			xdgHome:  "/custom/data",
			expected: "/custom/data/memo",
		},
		{
			name:    "Without XDG_DATA_HOME",
			xdgHome: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_DATA_HOME", tt.xdgHome)
			result := GetDefaultDataDirectory()

			if tt.xdgHome == "" {
				homeDir, _ := os.UserHomeDir()
				assert.Equal(t, filepath.Join(homeDir, ".local", "share", "memo"), result)
				return
			}
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tempDir, "data"))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 20, cfg.PageSize)
	assert.True(t, cfg.EnableMetrics)
	assert.False(t, cfg.Debug)
	assert.Equal(t, filepath.Join(tempDir, "data", "memo"), cfg.DataDirectory)
	assert.Equal(t, filepath.Join(tempDir, "data", "memo", "memo.db"), cfg.DatabasePath)
	assert.Equal(t, 5*time.Minute, cfg.QueryCacheTTL())
	assert.Equal(t, "0.0.0.0:8000", cfg.Addr())
}

func TestDefaultMatchesLoadWithoutConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tempDir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tempDir, "data"))

	core, logs := observer.New(zapcore.WarnLevel)
	restore := logger.ReplaceForTest(zap.New(core))
	defer restore()

	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Zero(t, logs.Len(), "defaults should apply without errors")

	loaded, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, loaded, cfg)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestConfigSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "memo", "config.yaml")
	dataDir := filepath.Join(tempDir, "test-data")

	saved := &Config{
		DataDirectory:        dataDir,
		DatabasePath:         filepath.Join(dataDir, "notes.db"),
		WebDirectory:         filepath.Join(tempDir, "web"),
		Host:                 "127.0.0.1",
		Port:                 9090,
		PageSize:             50,
		QueryCacheSize:       10,
		QueryCacheTTLSeconds: 30,
		EnableMetrics:        false,
		Debug:                true,
	}

	require.NoError(t, Save(saved, configFile))

	info, err := os.Stat(configFile)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	_, err = os.Stat(dataDir)
	assert.NoError(t, err, "data directory should be created")

	loaded, err := Load(viper.New(), configFile)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSavedFileIsYAML(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	cfg := Default()
	cfg.DataDirectory = ""
	cfg.Port = 8123

	require.NoError(t, Save(cfg, configFile))

	data, err := os.ReadFile(configFile)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	assert.Equal(t, 8123, raw["port"])
	assert.Contains(t, raw, "query_cache_ttl_seconds")
}

func TestEnvironmentOverridesFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("port: 9000\nhost: localhost\n"), 0600))

	t.Setenv("MEMO_PORT", "7000")

	cfg, err := Load(viper.New(), configFile)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, "localhost", cfg.Host)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("port: 70000\n"), 0600))

	_, err := Load(viper.New(), configFile)
	assert.ErrorIs(t, err, interrors.ErrInvalidPort)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Port = 65536 }, true},
		{"page size zero", func(c *Config) { c.PageSize = 0 }, true},
		{"page size too large", func(c *Config) { c.PageSize = 501 }, true},
		{"negative cache", func(c *Config) { c.QueryCacheSize = -1 }, true},
		{"cache disabled", func(c *Config) { c.QueryCacheSize = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSet(t *testing.T) {
	tests := []struct {
		key     string
		value   string
		check   func(*testing.T, *Config)
		wantErr error
	}{
		{key: "host", value: "127.0.0.1", check: func(t *testing.T, c *Config) { assert.Equal(t, "127.0.0.1", c.Host) }},
		{key: "port", value: "8080", check: func(t *testing.T, c *Config) { assert.Equal(t, 8080, c.Port) }},
		{key: "page_size", value: "10", check: func(t *testing.T, c *Config) { assert.Equal(t, 10, c.PageSize) }},
		{key: "query_cache_ttl_seconds", value: "60", check: func(t *testing.T, c *Config) {
			assert.Equal(t, time.Minute, c.QueryCacheTTL())
		}},
		{key: "debug", value: "true", check: func(t *testing.T, c *Config) { assert.True(t, c.Debug) }},
		{key: "enable_metrics", value: "false", check: func(t *testing.T, c *Config) { assert.False(t, c.EnableMetrics) }},
		{key: "web_directory", value: "/srv/web", check: func(t *testing.T, c *Config) { assert.Equal(t, "/srv/web", c.WebDirectory) }},
		{key: "port", value: "0", wantErr: interrors.ErrInvalidPort},
		{key: "unknown", value: "x", wantErr: interrors.ErrUnknownConfigKey},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			cfg := Default()
			err := cfg.Set(tt.key, tt.value)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}

	t.Run("non-numeric port", func(t *testing.T) {
		assert.Error(t, Default().Set("port", "abc"))
	})
}
