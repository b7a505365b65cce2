// Package config loads runtime settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/ukaji3/visitreport-go/pkg/visitreport"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/compose"
)

// Config represents the complete application configuration
type Config struct {
	Server ServerConfig
	Report ReportConfig
	Log    LogConfig
}

// ServerConfig holds preview server settings
type ServerConfig struct {
	Addr    string
	GinMode string
}

// ReportConfig holds report composition and export settings
type ReportConfig struct {
	PageSize    int
	Layout      compose.Layout
	TimeZone    string
	OutputDir   string
	MaxFileSize int64
	GeneratedAt bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file, then configuration from environment
// variables, and validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Addr:    getEnvOrDefault("VISITREPORT_ADDR", ":8080"),
			GinMode: getEnvOrDefault("VISITREPORT_GIN_MODE", "release"),
		},
		Report: ReportConfig{
			PageSize:    getEnvIntOrDefault("VISITREPORT_PAGE_SIZE", compose.DefaultPageSize),
			Layout:      compose.Layout(getEnvOrDefault("VISITREPORT_LAYOUT", string(compose.LayoutRecords))),
			TimeZone:    getEnvOrDefault("VISITREPORT_TZ", "Local"),
			OutputDir:   getEnvOrDefault("VISITREPORT_OUTPUT_DIR", "."),
			MaxFileSize: int64(getEnvIntOrDefault("VISITREPORT_MAX_FILE_SIZE", visitreport.DefaultMaxFileSize)),
			GeneratedAt: getEnvBoolOrDefault("VISITREPORT_GENERATED_AT", false),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "console"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Report.PageSize < 1 {
		return fmt.Errorf("page size must be positive, got %d", c.Report.PageSize)
	}
	if _, err := ParseLayout(string(c.Report.Layout)); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Report.MaxFileSize < 1 {
		return fmt.Errorf("max file size must be positive, got %d", c.Report.MaxFileSize)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be console or json)", c.Log.Format)
	}
	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("invalid gin mode: %s (must be debug, release, or test)", c.Server.GinMode)
	}
	return nil
}

// Location resolves the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Report.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.Report.TimeZone, err)
	}
	return loc, nil
}

// Options builds session options from the report settings.
func (c *Config) Options() (visitreport.Options, error) {
	loc, err := c.Location()
	if err != nil {
		return visitreport.Options{}, err
	}
	opts := visitreport.DefaultOptions()
	opts.PageSize = c.Report.PageSize
	opts.Layout = c.Report.Layout
	opts.Location = loc
	opts.MaxFileSize = c.Report.MaxFileSize
	opts.ShowGeneratedAt = c.Report.GeneratedAt
	return opts, nil
}

// ParseLayout maps a layout name to a compose.Layout.
func ParseLayout(s string) (compose.Layout, error) {
	switch compose.Layout(s) {
	case compose.LayoutRecords, compose.LayoutTable:
		return compose.Layout(s), nil
	}
	return "", fmt.Errorf("invalid layout: %s (must be records or table)", s)
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
