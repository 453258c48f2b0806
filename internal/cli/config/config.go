// Package config loads the sprocsync.yml project configuration.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Config is the sprocsync project configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Metadata MetadataConfig `mapstructure:"metadata"`
	Wrapper  WrapperConfig  `mapstructure:"wrapper"`
	Naming   NamingConfig   `mapstructure:"naming"`

	// Constants are extra placeholder definitions, name to value.
	Constants map[string]string `mapstructure:"constants"`

	SQLMode      string `mapstructure:"sql_mode"`
	CharacterSet string `mapstructure:"character_set"`
	Collation    string `mapstructure:"collation"`
}

// DatabaseConfig holds the connection settings.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// SourcesConfig locates the routine definition files.
type SourcesConfig struct {
	Dir     string   `mapstructure:"dir"`
	Pattern string   `mapstructure:"pattern"`
	Files   []string `mapstructure:"files"`
}

// MetadataConfig locates the metadata cache.
type MetadataConfig struct {
	Path string `mapstructure:"path"`
}

// WrapperConfig controls wrapper generation.
type WrapperConfig struct {
	Path      string `mapstructure:"path"`
	Package   string `mapstructure:"package"`
	ChunkSize int    `mapstructure:"chunk_size"`
}

// NamingConfig configures the wrapper naming strategy. An empty
// pattern disables renaming.
type NamingConfig struct {
	Pattern     string `mapstructure:"pattern"`
	Replacement string `mapstructure:"replacement"`
}

// Load reads sprocsync.yml or sprocsync.yaml from the given directory.
func Load(dir string) (*Config, error) {
	v := viper.New()

	v.SetDefault("sources.dir", "routines")
	v.SetDefault("sources.pattern", "*.sql")
	v.SetDefault("metadata.path", ".sprocsync/metadata.json")
	v.SetDefault("wrapper.path", "sproc/sproc.go")
	v.SetDefault("wrapper.package", "sproc")
	v.SetDefault("wrapper.chunk_size", 1048576)
	v.SetDefault("sql_mode", "STRICT_ALL_TABLES")
	v.SetDefault("character_set", "utf8mb4")
	v.SetDefault("collation", "utf8mb4_general_ci")

	v.SetConfigName("sprocsync")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DSN returns the connection string. The DATABASE_URL environment
// variable overrides the config file.
func (c *Config) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return c.Database.DSN
}

func validate(c *Config) error {
	if c.Wrapper.Package == "" {
		return fmt.Errorf("wrapper.package must not be empty")
	}
	if c.Metadata.Path == "" {
		return fmt.Errorf("metadata.path must not be empty")
	}
	if len(c.Sources.Files) == 0 && c.Sources.Dir == "" {
		return fmt.Errorf("either sources.dir or sources.files must be set")
	}
	return nil
}

// RequireDSN fails when no connection string is configured. Commands
// that talk to the database call this before opening a connection.
func (c *Config) RequireDSN() (string, error) {
	dsn := c.DSN()
	if dsn == "" {
		return "", fmt.Errorf("no database configured: set database.dsn in sprocsync.yml or the DATABASE_URL environment variable")
	}
	return dsn, nil
}
