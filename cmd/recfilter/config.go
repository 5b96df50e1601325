package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides: RECFILTER_DATA,
// RECFILTER_LOG_LEVEL, RECFILTER_ADDR, ...
const envPrefix = "RECFILTER"

// Config holds the settings shared by all commands. Values come from
// flags, then RECFILTER_* environment variables, then the config file.
type Config struct {
	Data           string   `mapstructure:"data"`
	Strategy       string   `mapstructure:"strategy"`
	LogLevel       string   `mapstructure:"log-level"`
	Addr           string   `mapstructure:"addr"`
	Schema         string   `mapstructure:"schema"`
	Table          string   `mapstructure:"table"`
	DuckDB         string   `mapstructure:"duckdb"`
	DuckDBTables   []string `mapstructure:"duckdb-tables"`
	Workers        int      `mapstructure:"workers"`
	CacheSize      int      `mapstructure:"cache-size"`
	MaxMessageSize int      `mapstructure:"max-message-size"`
	Explain        bool     `mapstructure:"explain"`
}

// loadConfig merges the command's flags with the environment and the
// optional config file.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// newLogger builds the text logger for level, writing to stderr so that
// search output stays machine readable.
func newLogger(level string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})), nil
}
