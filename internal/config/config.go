package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/streed/memo/internal/constants"
	interrors "github.com/streed/memo/internal/errors"
	"github.com/streed/memo/internal/logger"
)

// EnvPrefix is prepended to environment overrides, e.g. MEMO_PORT.
const EnvPrefix = "MEMO"

type Config struct {
	DataDirectory string `mapstructure:"data_directory" yaml:"data_directory"`
	DatabasePath  string `mapstructure:"database_path" yaml:"database_path,omitempty"`
	WebDirectory  string `mapstructure:"web_directory" yaml:"web_directory,omitempty"`

	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`

	PageSize             int  `mapstructure:"page_size" yaml:"page_size"`
	QueryCacheSize       int  `mapstructure:"query_cache_size" yaml:"query_cache_size"`
	QueryCacheTTLSeconds int  `mapstructure:"query_cache_ttl_seconds" yaml:"query_cache_ttl_seconds"`
	EnableMetrics        bool `mapstructure:"enable_metrics" yaml:"enable_metrics"`
	Debug                bool `mapstructure:"debug" yaml:"debug"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_directory", GetDefaultDataDirectory())
	v.SetDefault("database_path", "")
	v.SetDefault("web_directory", "")
	v.SetDefault("host", constants.DefaultHost)
	v.SetDefault("port", constants.DefaultPort)
	v.SetDefault("page_size", constants.DefaultPageLimit)
	v.SetDefault("query_cache_size", constants.DefaultQueryCacheSize)
	v.SetDefault("query_cache_ttl_seconds", constants.DefaultQueryCacheTTLSeconds)
	v.SetDefault("enable_metrics", true)
	v.SetDefault("debug", false)
}

func GetConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(configDir, "memo", "config.yaml"), nil
}

func GetDefaultDataDirectory() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(".", ".memo")
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "memo")
}

// Load reads configuration into v from configFile (or the default config
// path when empty), environment variables and defaults, in increasing order
// of precedence: defaults, file, env, flags already bound on v.
// A missing default config file is not an error.
func Load(v *viper.Viper, configFile string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := configFile != ""
	if !explicit {
		path, err := GetConfigPath()
		if err != nil {
			return nil, err
		}
		configFile = path
	}
	v.SetConfigFile(configFile)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		if explicit || !missing {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDirectory, "memo.db")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		logger.Error("Failed to apply default configuration: %v", err)
	}
	cfg.DatabasePath = filepath.Join(cfg.DataDirectory, "memo.db")
	return &cfg
}

func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", interrors.ErrInvalidPort, c.Port)
	}
	if c.PageSize < 1 || c.PageSize > constants.MaxPageLimit {
		return fmt.Errorf("page_size must be between 1 and %d, got %d", constants.MaxPageLimit, c.PageSize)
	}
	if c.QueryCacheSize < 0 {
		return fmt.Errorf("query_cache_size must not be negative, got %d", c.QueryCacheSize)
	}
	return nil
}

// Save writes cfg as YAML to path, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), constants.DirMode); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if cfg.DataDirectory != "" {
		if err := os.MkdirAll(cfg.DataDirectory, constants.DirMode); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, constants.ConfigFileMode); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) GetDatabasePath() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDirectory, "memo.db")
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *Config) QueryCacheTTL() time.Duration {
	return time.Duration(c.QueryCacheTTLSeconds) * time.Second
}

// Set updates a single key by its YAML name.
func (c *Config) Set(key, value string) error {
	switch key {
	case "data_directory":
		c.DataDirectory = value
	case "database_path":
		c.DatabasePath = value
	case "web_directory":
		c.WebDirectory = value
	case "host":
		c.Host = value
	case "port", "page_size", "query_cache_size", "query_cache_ttl_seconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", key, err)
		}
		switch key {
		case "port":
			c.Port = n
		case "page_size":
			c.PageSize = n
		case "query_cache_size":
			c.QueryCacheSize = n
		default:
			c.QueryCacheTTLSeconds = n
		}
	case "enable_metrics", "debug":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean value for %s: %w", key, err)
		}
		if key == "debug" {
			c.Debug = b
		} else {
			c.EnableMetrics = b
		}
	default:
		return fmt.Errorf("%w: %s", interrors.ErrUnknownConfigKey, key)
	}
	return c.Validate()
}
