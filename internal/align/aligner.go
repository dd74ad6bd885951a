package align

import (
	"context"

	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/logger"
	"github.com/kbukum/whisperlm/internal/transcribe"
)

// cacheEntry tracks the alignment model state for one language. An entry
// with unavailable=true is a sentinel: loading failed once and is never
// retried for the process lifetime.
type cacheEntry struct {
	model       string
	unavailable bool
	ready       chan struct{}
}

// Aligner owns the per-language alignment model cache and drives the
// alignment stage. Concurrent first loads for the same language collapse
// into a single load; the losers wait for its result.
type Aligner struct {
	cfg     Config
	backend Backend
	log     *logger.Logger

	mu    chan struct{} // binary semaphore so waiting can observe ctx
	cache map[string]*cacheEntry
}

// NewAligner creates an Aligner over the given backend.
func NewAligner(cfg Config, backend Backend, log *logger.Logger) *Aligner {
	cfg.ApplyDefaults()
	mu := make(chan struct{}, 1)
	mu <- struct{}{}
	return &Aligner{
		cfg:     cfg,
		backend: backend,
		log:     log.WithComponent("align"),
		mu:      mu,
		cache:   make(map[string]*cacheEntry),
	}
}

// Align refines result.Segments with word-level timestamps. It never fails
// the request: when the model is unavailable or application fails, the
// outcome is degraded and segments keep their segment-level timestamps.
func (a *Aligner) Align(ctx context.Context, result *transcribe.Result, buf *audio.Buffer) Outcome {
	language := result.Language
	if language == "" {
		language = "en"
	}

	model, ok := a.modelFor(ctx, language)
	if !ok {
		a.log.Warn("Alignment model not available, skipping word-level alignment", map[string]interface{}{
			"language": language,
		})
		return Outcome{Status: StatusSkipped, Language: language}
	}

	aligned, err := a.backend.Align(ctx, buf, language, result.Segments)
	if err != nil {
		a.log.Warn("Word-level alignment failed, continuing without word timestamps", map[string]interface{}{
			"language": language,
			"error":    err.Error(),
		})
		return Outcome{Status: StatusFailed, Language: language, Model: model, Err: err}
	}

	result.Segments = aligned
	words := 0
	for i := range aligned {
		words += len(aligned[i].Words)
	}

	a.log.Info("Word-level alignment completed", map[string]interface{}{
		"language": language,
		"words":    words,
	})
	return Outcome{Status: StatusAligned, Language: language, Model: model, Words: words}
}

// modelFor returns the cached alignment model for a language, loading it on
// first use. Returns ok=false when the language is cached as unavailable.
func (a *Aligner) modelFor(ctx context.Context, language string) (string, bool) {
	for {
		select {
		case <-a.mu:
		case <-ctx.Done():
			return "", false
		}

		entry, exists := a.cache[language]
		if !exists {
			// First request for this language: claim the load. The load
			// runs detached from the request context so a client
			// disconnect mid-load cannot cache the unavailable sentinel
			// for the whole process.
			entry = &cacheEntry{ready: make(chan struct{})}
			a.cache[language] = entry
			a.mu <- struct{}{}

			loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Timeout)
			a.load(loadCtx, language, entry)
			cancel()
			close(entry.ready)
			return entry.model, !entry.unavailable
		}
		a.mu <- struct{}{}

		select {
		case <-entry.ready:
			return entry.model, !entry.unavailable
		case <-ctx.Done():
			return "", false
		}
	}
}

// load attempts the configured override model first, falling back to the
// backend default; a final failure marks the language unavailable.
func (a *Aligner) load(ctx context.Context, language string, entry *cacheEntry) {
	override := a.cfg.Models[language]
	if override != "" {
		a.log.Info("Loading configured alignment model", map[string]interface{}{
			"language": language,
			"model":    override,
		})
		model, err := a.backend.LoadModel(ctx, language, override)
		if err == nil {
			entry.model = model
			return
		}
		a.log.Warn("Configured alignment model failed to load, trying default", map[string]interface{}{
			"language": language,
			"model":    override,
			"error":    err.Error(),
		})
	} else {
		a.log.Info("Loading alignment model", map[string]interface{}{
			"language": language,
		})
	}

	model, err := a.backend.LoadModel(ctx, language, "")
	if err != nil {
		a.log.Warn("Alignment model load failed, word-level alignment disabled for language", map[string]interface{}{
			"language": language,
			"error":    err.Error(),
		})
		entry.unavailable = true
		return
	}
	entry.model = model

	a.log.Info("Alignment model loaded", map[string]interface{}{
		"language": language,
		"model":    model,
	})
}
