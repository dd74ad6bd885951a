// Package config loads and validates the whisperlm service configuration
// from a YAML file merged with environment variable overrides. The loaded
// Config is constructed once in main and passed explicitly into every
// component constructor.
package config

import (
	"fmt"

	"github.com/kbukum/whisperlm/internal/align"
	"github.com/kbukum/whisperlm/internal/diarize"
	"github.com/kbukum/whisperlm/internal/observability"
	"github.com/kbukum/whisperlm/internal/separate"
	"github.com/kbukum/whisperlm/internal/server"
	"github.com/kbukum/whisperlm/internal/transcribe"
	"github.com/kbukum/whisperlm/internal/upload"
)

// ServiceName is the canonical service name used for config discovery,
// logging, and telemetry.
const ServiceName = "whisperlm"

// Config is the root configuration for the whisperlm service.
type Config struct {
	ServiceConfig `yaml:",inline" mapstructure:",squash"`

	Server        server.Config        `yaml:"server" mapstructure:"server"`
	Auth          AuthConfig           `yaml:"auth" mapstructure:"auth"`
	Whisper       transcribe.Config    `yaml:"whisper" mapstructure:"whisper"`
	Align         align.Config         `yaml:"align" mapstructure:"align"`
	Diarization   diarize.Config       `yaml:"diarization" mapstructure:"diarization"`
	Separation    separate.Config      `yaml:"separation" mapstructure:"separation"`
	Observability observability.Config `yaml:"observability" mapstructure:"observability"`
	Upload        upload.Config        `yaml:"upload" mapstructure:"upload"`
	Output        OutputConfig         `yaml:"output" mapstructure:"output"`
}

// AuthConfig configures optional bearer-token authentication on the API.
type AuthConfig struct {
	Enabled   bool     `yaml:"enabled" mapstructure:"enabled"`
	JWTSecret string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`
	SkipPaths []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// ApplyDefaults applies default values to auth configuration.
func (c *AuthConfig) ApplyDefaults() {
	if len(c.SkipPaths) == 0 {
		c.SkipPaths = []string{"/health", "/info", "/metrics"}
	}
}

// Validate validates auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Enabled && c.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth is enabled")
	}
	return nil
}

// OutputConfig controls which detail the transcription response carries.
// The include flags are pointers so an explicit false survives defaulting.
type OutputConfig struct {
	Formats               []string `yaml:"formats" mapstructure:"formats"`
	IncludeWordTimestamps *bool    `yaml:"include_word_timestamps" mapstructure:"include_word_timestamps"`
	IncludeConfidence     *bool    `yaml:"include_confidence" mapstructure:"include_confidence"`
}

// ApplyDefaults applies default values to output configuration.
func (c *OutputConfig) ApplyDefaults() {
	if len(c.Formats) == 0 {
		c.Formats = []string{"json"}
	}
	if c.IncludeWordTimestamps == nil {
		v := true
		c.IncludeWordTimestamps = &v
	}
	if c.IncludeConfidence == nil {
		v := true
		c.IncludeConfidence = &v
	}
}

// WordTimestamps reports whether responses carry word-level timing.
func (c *OutputConfig) WordTimestamps() bool {
	return c.IncludeWordTimestamps == nil || *c.IncludeWordTimestamps
}

// Confidence reports whether responses carry per-segment confidence.
func (c *OutputConfig) Confidence() bool {
	return c.IncludeConfidence == nil || *c.IncludeConfidence
}

// Load reads the whisperlm configuration, applies defaults, and validates it.
func Load(opts ...LoaderOption) (*Config, error) {
	cfg := &Config{}
	if err := LoadConfig(ServiceName, cfg, opts...); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults applies defaults to every configuration section.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = ServiceName
	}
	c.ServiceConfig.ApplyDefaults()
	c.Server.ApplyDefaults()
	c.Auth.ApplyDefaults()
	c.Whisper.ApplyDefaults()
	c.Align.ApplyDefaults()
	c.Diarization.ApplyDefaults()
	c.Separation.ApplyDefaults()
	c.Observability.ApplyDefaults()
	c.Upload.ApplyDefaults()
	c.Output.ApplyDefaults()
}

// Validate validates every configuration section.
func (c *Config) Validate() error {
	if err := c.ServiceConfig.Validate(); err != nil {
		return err
	}
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if err := c.Whisper.Validate(); err != nil {
		return err
	}
	if err := c.Align.Validate(); err != nil {
		return err
	}
	if err := c.Diarization.Validate(); err != nil {
		return err
	}
	if err := c.Separation.Validate(); err != nil {
		return err
	}
	return nil
}
