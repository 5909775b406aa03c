package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	configDir  = ".litequery"
	configFile = "config"
	configType = "yaml"
	envPrefix  = "LITEQUERY"
)

// Defaults applied before the config file and environment are read.
const (
	DefaultReturnFormat = "array"
	DefaultLogLevel     = "warn"
)

// Load reads the configuration from ~/.litequery/config.yaml.
// Returns the defaults if the file does not exist. Every preference can be
// overridden with LITEQUERY_<KEY>, e.g. LITEQUERY_PREFERENCES_RETURN_FORMAT.
func Load() (*Config, error) {
	dir, err := configDirPath()
	if err != nil {
		return nil, fmt.Errorf("config dir: %w", err)
	}
	return loadFrom(dir)
}

func loadFrom(dir string) (*Config, error) {
	v := newViper(dir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func newViper(dir string) *viper.Viper {
	v := viper.New()
	v.SetConfigName(configFile)
	v.SetConfigType(configType)
	v.AddConfigPath(dir)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults double as the key registry AutomaticEnv needs for Unmarshal.
	v.SetDefault("preferences.return_format", DefaultReturnFormat)
	v.SetDefault("preferences.data_dir", "")
	v.SetDefault("preferences.log_level", DefaultLogLevel)
	v.SetDefault("preferences.default_connection", "")
	return v
}

// Save writes the configuration to ~/.litequery/config.yaml.
func Save(cfg *Config) error {
	dir, err := configDirPath()
	if err != nil {
		return fmt.Errorf("config dir: %w", err)
	}
	return saveTo(dir, cfg)
}

func saveTo(dir string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType(configType)
	v.Set("connections", cfg.Connections)
	v.Set("preferences", cfg.Preferences)

	path := filepath.Join(dir, configFile+"."+configType)
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// SaveConnection adds conn to cfg and persists it when it is new.
func SaveConnection(cfg *Config, conn Connection) error {
	if !cfg.AddConnection(conn) {
		return nil
	}
	return Save(cfg)
}

// DefaultConnection returns the default connection from config, or the first one.
func DefaultConnection(cfg *Config) *Connection {
	if len(cfg.Connections) == 0 {
		return nil
	}

	if name := cfg.Preferences.DefaultConnection; name != "" {
		if c := cfg.Connection(name); c != nil {
			return c
		}
	}

	return &cfg.Connections[0]
}

// DataDir returns the directory SQLite databases are opened from: the
// configured data_dir, or the working directory.
func DataDir(cfg *Config) (string, error) {
	if cfg.Preferences.DataDir != "" {
		return expandHome(cfg.Preferences.DataDir)
	}
	return os.Getwd()
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func configDirPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir), nil
}
