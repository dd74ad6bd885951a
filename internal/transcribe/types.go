// Package transcribe defines the speech-recognition engine interface and
// the whisperx sidecar backend.
package transcribe

import (
	"fmt"
	"time"
)

// Word is a word-level timestamp inside a segment. Score is a confidence
// value in [0, 1].
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Score   float64 `json:"score"`
	Speaker string  `json:"speaker,omitempty"`
}

// Segment is a contiguous time span of transcribed speech. Alignment fills
// Words; diarization fills Speaker.
type Segment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
}

// Result is the output of the recognition stage, mutated in place by the
// alignment and diarization stages.
type Result struct {
	Language string
	Segments []Segment
}

// GPUInfo describes the accelerator available to the recognition backend.
type GPUInfo struct {
	Available   bool   `json:"available"`
	Name        string `json:"name,omitempty"`
	MemoryTotal string `json:"memory_total,omitempty"`
	MemoryUsed  string `json:"memory_used,omitempty"`
}

// Status reports the recognition backend's model state.
type Status struct {
	Model  string  `json:"model"`
	Device string  `json:"device"`
	Loaded bool    `json:"loaded"`
	GPU    GPUInfo `json:"gpu"`
}

// Config holds configuration for the whisperx recognition backend.
type Config struct {
	URL         string        `yaml:"url" mapstructure:"url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	Device      string        `yaml:"device" mapstructure:"device"`
	ComputeType string        `yaml:"compute_type" mapstructure:"compute_type"`
	BatchSize   int           `yaml:"batch_size" mapstructure:"batch_size"`
	Language    string        `yaml:"language" mapstructure:"language"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ApplyDefaults applies default values to whisper configuration.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8387"
	}
	if c.Model == "" {
		c.Model = "large-v3"
	}
	if c.Device == "" {
		c.Device = "cuda"
	}
	if c.ComputeType == "" {
		c.ComputeType = "int8"
	}
	if c.BatchSize == 0 {
		c.BatchSize = 24
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
}

// Validate validates whisper configuration.
func (c *Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("whisper.batch_size must be positive (got: %d)", c.BatchSize)
	}
	validComputeTypes := []string{"float32", "float16", "int16", "int8", "int8_float16"}
	for _, v := range validComputeTypes {
		if c.ComputeType == v {
			return nil
		}
	}
	return fmt.Errorf("whisper.compute_type must be one of %v (got: %s)", validComputeTypes, c.ComputeType)
}
