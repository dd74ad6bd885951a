// Package align refines segment timestamps into word-level timestamps using
// a per-language forced-alignment backend. Loaded models are cached by
// language for the process lifetime; a language whose model cannot be loaded
// is cached as unavailable and never retried.
package align

import (
	"time"
)

// OutcomeStatus classifies how the alignment stage ended.
type OutcomeStatus string

const (
	// StatusAligned means word-level timestamps were merged into segments.
	StatusAligned OutcomeStatus = "aligned"
	// StatusSkipped means no alignment model is available for the language.
	StatusSkipped OutcomeStatus = "skipped"
	// StatusFailed means a model was available but applying it failed.
	// The pipeline continues with segment-level timestamps.
	StatusFailed OutcomeStatus = "failed"
)

// Outcome is the typed result of the alignment stage. Alignment is never
// fatal to a request: Skipped and Failed both degrade to segments without
// word-level detail.
type Outcome struct {
	Status   OutcomeStatus
	Language string
	Model    string
	Words    int
	Err      error
}

// Degraded reports whether the response will lack word-level timestamps.
func (o Outcome) Degraded() bool {
	return o.Status != StatusAligned
}

// Config holds configuration for the alignment backend.
type Config struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// Models maps a language code to an override alignment model name,
	// e.g. zh: jonatasgrosman/wav2vec2-large-xlsr-53-chinese-zh-cn.
	// Languages without an entry use the backend's default model.
	Models map[string]string `yaml:"models" mapstructure:"models"`
}

// ApplyDefaults applies default values to alignment configuration.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8389"
	}
	if c.Timeout == 0 {
		c.Timeout = 5 * time.Minute
	}
}

// Validate validates alignment configuration.
func (c *Config) Validate() error {
	return nil
}
