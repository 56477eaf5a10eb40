package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from files and environment variables.
	// Priority: defaults → user config → project config → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	homeDir string
	file    string
}

// NewLoader creates a new configuration loader for the given root directory.
// The user config is read from the home directory when one is known.
func NewLoader(rootDir string) Loader {
	home, _ := os.UserHomeDir()
	return &loader{rootDir: rootDir, homeDir: home}
}

// NewFileLoader creates a loader reading one explicit config file in place of
// the user and project configs.
func NewFileLoader(file string) Loader {
	return &loader{file: file}
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (TYPEDSQL_*)
// 2. Project config file (.typedsql/config.yml or .typedsql/config.yaml)
// 3. User config file (~/.typedsql/config.yml)
// 4. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TYPEDSQL")
	v.AutomaticEnv()
	// Replace . with _ in env var names (e.g., TYPEDSQL_DATABASE_DSN)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvVars(v)
	setDefaults(v)

	if l.file != "" {
		v.SetConfigFile(l.file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		for _, dir := range []string{l.homeDir, l.rootDir} {
			if dir == "" {
				continue
			}
			if err := mergeDir(v, filepath.Join(dir, ".typedsql")); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// mergeDir merges dir/config.yml or dir/config.yaml over the values read so
// far. A missing file is not an error.
func mergeDir(v *viper.Viper, dir string) error {
	for _, name := range []string{"config.yml", "config.yaml"} {
		path := filepath.Join(dir, name)
		f, err := os.Open(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to open config file: %w", err)
		}
		err = v.MergeConfig(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}
	return nil
}

// bindEnvVars binds the scalar keys so Unmarshal sees their environment values.
func bindEnvVars(v *viper.Viper) {
	for _, key := range []string{
		"dialect.name",
		"database.driver",
		"database.dsn",
		"paging.max_limit",
		"paging.max_offset",
		"paging.page_offset",
		"generation.merge_generated",
		"generation.toggle_policy",
		"generation.default_widening",
		"cache.capacity",
		"types.files",
		"log.debug",
	} {
		_ = v.BindEnv(key)
	}
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("dialect.name", defaults.Dialect.Name)

	v.SetDefault("database.driver", defaults.Database.Driver)
	v.SetDefault("database.dsn", defaults.Database.DSN)

	v.SetDefault("paging.max_limit", defaults.Paging.MaxLimit)
	v.SetDefault("paging.max_offset", defaults.Paging.MaxOffset)
	v.SetDefault("paging.page_offset", defaults.Paging.PageOffset)

	v.SetDefault("generation.merge_generated", defaults.Generation.MergeGenerated)
	v.SetDefault("generation.toggle_policy", defaults.Generation.TogglePolicy)
	v.SetDefault("generation.default_widening", defaults.Generation.DefaultWidening)

	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("log.debug", defaults.Log.Debug)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
