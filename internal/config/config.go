package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/footprint/internal/refine"
)

// Config represents the complete configuration for the footprint application.
// It covers the refine and serve commands and can be loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	Refine RefineConfig `mapstructure:"refine" yaml:"refine" json:"refine"`
	Input  InputConfig  `mapstructure:"input" yaml:"input" json:"input"`
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// RefineConfig holds the two refinement thresholds.
type RefineConfig struct {
	EdgeThreshold int `mapstructure:"edge_threshold" yaml:"edge_threshold" json:"edge_threshold"`
	AreaThreshold int `mapstructure:"area_threshold" yaml:"area_threshold" json:"area_threshold"`
}

// InputConfig controls how input rasters are decoded.
type InputConfig struct {
	AllowColor bool `mapstructure:"allow_color" yaml:"allow_color" json:"allow_color"`
}

// OutputConfig contains report formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`

	// Rate limiting, per client IP. Zero disables a limit.
	RateLimitEnabled  bool  `mapstructure:"rate_limit_enabled" yaml:"rate_limit_enabled" json:"rate_limit_enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// DefaultConfig returns a configuration with the sample thresholds.
func DefaultConfig() Config {
	rc := refine.DefaultConfig()
	return Config{
		LogLevel: "info",
		Refine: RefineConfig{
			EdgeThreshold: rc.EdgeThreshold,
			AreaThreshold: rc.AreaThreshold,
		},
		Output: OutputConfig{Format: refine.FormatText},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			MaxUploadMB:       50,
			TimeoutSec:        30,
			ShutdownTimeout:   10,
			RequestsPerMinute: 60,
			RequestsPerHour:   1000,
		},
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Output.Format != "" && !refine.ValidFormat(c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: text, json, yaml)", c.Output.Format)
	}

	if err := c.ToRefineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid refine settings: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	if c.Server.RequestsPerMinute < 0 || c.Server.RequestsPerHour < 0 ||
		c.Server.MaxRequestsPerDay < 0 || c.Server.MaxDataPerDay < 0 {
		return errors.New("invalid rate limit: limits must not be negative")
	}
	return nil
}

// ToRefineConfig converts the config to the pipeline configuration.
func (c *Config) ToRefineConfig() refine.Config {
	return refine.Config{
		EdgeThreshold: c.Refine.EdgeThreshold,
		AreaThreshold: c.Refine.AreaThreshold,
		AllowColor:    c.Input.AllowColor,
	}
}
