// Package diarize attributes speech to speakers. A pyannote HTTP sidecar
// produces speaker turns; AssignSpeakers merges the turns onto transcript
// words and segments by temporal overlap.
package diarize

import (
	"time"
)

// Turn is a speaker-attributed time range.
type Turn struct {
	// Speaker is the diarization speaker label, e.g. SPEAKER_00.
	Speaker string `json:"speaker"`
	// Start is the turn start time in seconds.
	Start float64 `json:"start"`
	// End is the turn end time in seconds.
	End float64 `json:"end"`
}

// Result holds the output of a diarization call.
type Result struct {
	Turns       []Turn `json:"turns"`
	NumSpeakers int    `json:"num_speakers"`
}

// Config holds configuration for speaker diarization.
type Config struct {
	// Enabled allows diarization requests when a HuggingFace token is set.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// URL is the base URL of the pyannote sidecar.
	URL string `yaml:"url" mapstructure:"url"`
	// HuggingFaceToken gates access to the pyannote model weights. Without
	// a token the diarization stage is skipped with a warning.
	HuggingFaceToken string `yaml:"hugging_face_token" mapstructure:"hugging_face_token"`
	// MinSpeakers is the default lower bound passed to the sidecar (0 = auto).
	MinSpeakers int `yaml:"min_speakers" mapstructure:"min_speakers"`
	// MaxSpeakers is the default upper bound passed to the sidecar (0 = auto).
	MaxSpeakers int `yaml:"max_speakers" mapstructure:"max_speakers"`
	// Timeout bounds a single diarization call.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults applies default values to diarization configuration.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8388"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

// Validate validates diarization configuration.
func (c *Config) Validate() error {
	return nil
}

// Available reports whether diarization can run at all. It requires both
// the feature flag and a HuggingFace token.
func (c *Config) Available() bool {
	return c.Enabled && c.HuggingFaceToken != ""
}
