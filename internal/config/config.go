// Package config provides configuration loading for typedsql.
//
// Configuration Hierarchy (highest to lowest priority):
//  1. Environment variables (TYPEDSQL_*)
//  2. Project config (.typedsql/config.yml)
//  3. User config (~/.typedsql/config.yml)
//  4. Built-in defaults
//
// Nested keys map to environment variables with underscores, e.g.
// TYPEDSQL_DATABASE_DSN for database.dsn.
package config

import (
	"github.com/mvp-joe/typedsql/internal/dialect"
)

// Config represents the complete typedsql configuration.
type Config struct {
	Dialect    DialectConfig    `yaml:"dialect" mapstructure:"dialect"`
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Paging     PagingConfig     `yaml:"paging" mapstructure:"paging"`
	Generation GenerationConfig `yaml:"generation" mapstructure:"generation"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Types      TypesConfig      `yaml:"types" mapstructure:"types"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// DialectConfig selects the SQL dialect and table affixes.
type DialectConfig struct {
	Name    string          `yaml:"name" mapstructure:"name"` // postgres, sqlite, mysql or ansi
	Affixes []dialect.Affix `yaml:"affixes" mapstructure:"affixes"`
}

// DatabaseConfig locates the databases. Sources serve the type ids starting
// with their prefix, the longest prefix winning; DSN serves every other type
// id. No DSN and no sources means generation only.
type DatabaseConfig struct {
	Driver  string             `yaml:"driver" mapstructure:"driver"` // defaults to the dialect's driver
	DSN     string             `yaml:"dsn" mapstructure:"dsn"`
	Sources []DataSourceConfig `yaml:"sources" mapstructure:"sources"`
}

// DataSourceConfig is a database serving the type ids starting with Prefix.
type DataSourceConfig struct {
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// HasDatabase reports whether any database is configured.
func (c *Config) HasDatabase() bool {
	return c.Database.DSN != "" || len(c.Database.Sources) > 0
}

// PagingConfig bounds the paging callers may request. Zero means unbounded.
type PagingConfig struct {
	MaxLimit   int  `yaml:"max_limit" mapstructure:"max_limit"`
	MaxOffset  int  `yaml:"max_offset" mapstructure:"max_offset"`
	PageOffset bool `yaml:"page_offset" mapstructure:"page_offset"` // offsets count pages, not rows
}

// GenerationConfig holds the statement generation policies.
type GenerationConfig struct {
	MergeGenerated  string `yaml:"merge_generated" mapstructure:"merge_generated"`   // exclude or include
	TogglePolicy    string `yaml:"toggle_policy" mapstructure:"toggle_policy"`       // skip or invert
	DefaultWidening string `yaml:"default_widening" mapstructure:"default_widening"` // equals or off
}

// CacheConfig sizes the dialect rewrite cache.
type CacheConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"` // statements per dialect
}

// TypesConfig lists the type definition files.
type TypesConfig struct {
	Files []string `yaml:"files" mapstructure:"files"`
}

// LogConfig configures logging.
type LogConfig struct {
	Debug bool `yaml:"debug" mapstructure:"debug"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Dialect: DialectConfig{
			Name: dialect.Postgres,
		},
		Generation: GenerationConfig{
			MergeGenerated:  "exclude",
			TogglePolicy:    "skip",
			DefaultWidening: "equals",
		},
		Cache: CacheConfig{
			Capacity: dialect.DefaultCacheCapacity,
		},
	}
}
