package task

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/whisperlm/internal/align"
	"github.com/kbukum/whisperlm/internal/apperr"
	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/diarize"
	"github.com/kbukum/whisperlm/internal/logger"
	"github.com/kbukum/whisperlm/internal/observability"
	"github.com/kbukum/whisperlm/internal/transcribe"
)

// Loader decodes a media file into the shared pipeline buffer.
type Loader interface {
	Load(ctx context.Context, path string) (*audio.Buffer, error)
}

// Service runs the transcription pipeline. The diarization backend is nil
// when diarization is not configured; requests that ask for it are then
// served without speakers, with a warning.
type Service struct {
	loader   Loader
	engine   transcribe.Engine
	aligner  *align.Aligner
	diarizer diarize.Backend
	output   Output
	log      *logger.Logger
}

// NewService creates the pipeline service. diarizer may be nil.
func NewService(loader Loader, engine transcribe.Engine, aligner *align.Aligner, diarizer diarize.Backend, output Output, log *logger.Logger) *Service {
	return &Service{
		loader:   loader,
		engine:   engine,
		aligner:  aligner,
		diarizer: diarizer,
		output:   output,
		log:      log.WithComponent("task"),
	}
}

// DiarizationConfigured reports whether a diarization backend is wired in.
func (s *Service) DiarizationConfigured() bool {
	return s.diarizer != nil
}

// Transcribe runs the full pipeline over the media file at path and returns
// the completed response. Alignment degrades gracefully; diarization is
// skipped when unconfigured but a configured backend's failure is fatal.
func (s *Service) Transcribe(ctx context.Context, path string, opts Options) (*Response, error) {
	taskID := newTaskID()
	started := time.Now()
	log := s.log.WithFields(map[string]interface{}{logger.FieldTaskID: taskID})

	ctx, span := observability.StartSpan(ctx, "pipeline.transcribe",
		attribute.String("task.id", taskID),
		attribute.String("task.language", opts.Language),
		attribute.Bool("task.diarize", opts.Diarize),
	)
	defer span.End()

	resp, err := s.run(ctx, taskID, path, opts, log)
	elapsed := time.Since(started)
	if err != nil {
		span.RecordError(err)
		observability.RecordTranscribeRequest("error", elapsed)
		return nil, err
	}

	observability.RecordTranscribeRequest("completed", elapsed)

	// Speed factor: seconds of audio processed per wall second.
	speed := 0.0
	if elapsed.Seconds() > 0 {
		speed = resp.Duration / elapsed.Seconds()
	}
	log.Info("Transcription completed", map[string]interface{}{
		"language":   resp.Language,
		"segments":   len(resp.Segments),
		"speakers":   len(resp.Speakers),
		"duration_s": resp.Duration,
		"elapsed_ms": elapsed.Milliseconds(),
		"speed":      speed,
	})
	return resp, nil
}

func (s *Service) run(ctx context.Context, taskID, path string, opts Options, log *logger.Logger) (*Response, error) {
	buf, err := s.stageLoad(ctx, path, log)
	if err != nil {
		return nil, err
	}

	result, err := s.stageTranscribe(ctx, buf, opts.Language, log)
	if err != nil {
		return nil, err
	}

	s.stageAlign(ctx, result, buf)

	if err := s.stageDiarize(ctx, result, buf, opts, log); err != nil {
		return nil, err
	}

	return buildResponse(taskID, result, buf.Duration(), s.output), nil
}

func (s *Service) stageLoad(ctx context.Context, path string, log *logger.Logger) (*audio.Buffer, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.load")
	defer span.End()

	started := time.Now()
	buf, err := s.loader.Load(ctx, path)
	if err != nil {
		observability.RecordStage(observability.StageLoad, "error", time.Since(started))
		return nil, apperr.AudioDecode(err)
	}
	observability.RecordStage(observability.StageLoad, "ok", time.Since(started))
	observability.RecordAudioDuration(buf.Duration())

	log.Info("Audio loaded", map[string]interface{}{
		"duration_s": buf.Duration(),
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	return buf, nil
}

func (s *Service) stageTranscribe(ctx context.Context, buf *audio.Buffer, language string, log *logger.Logger) (*transcribe.Result, error) {
	ctx, span := observability.StartSpan(ctx, "pipeline.transcribe_stage")
	defer span.End()

	started := time.Now()
	result, err := s.engine.Transcribe(ctx, buf, language)
	if err != nil {
		observability.RecordStage(observability.StageTranscribe, "error", time.Since(started))
		return nil, apperr.Transcription(err)
	}
	observability.RecordStage(observability.StageTranscribe, "ok", time.Since(started))

	log.Info("Transcription stage completed", map[string]interface{}{
		logger.FieldLanguage: result.Language,
		"segments":           len(result.Segments),
		"elapsed_ms":         time.Since(started).Milliseconds(),
	})
	return result, nil
}

func (s *Service) stageAlign(ctx context.Context, result *transcribe.Result, buf *audio.Buffer) {
	ctx, span := observability.StartSpan(ctx, "pipeline.align")
	defer span.End()

	started := time.Now()
	outcome := s.aligner.Align(ctx, result, buf)
	observability.RecordStage(observability.StageAlign, string(outcome.Status), time.Since(started))
	span.SetAttributes(
		attribute.String("align.status", string(outcome.Status)),
		attribute.String("align.language", outcome.Language),
	)
}

func (s *Service) stageDiarize(ctx context.Context, result *transcribe.Result, buf *audio.Buffer, opts Options, log *logger.Logger) error {
	if !opts.Diarize {
		return nil
	}
	if s.diarizer == nil {
		log.Warn("Diarization requested but not configured, skipping", nil)
		observability.RecordStage(observability.StageDiarize, "skipped", 0)
		return nil
	}

	ctx, span := observability.StartSpan(ctx, "pipeline.diarize")
	defer span.End()

	started := time.Now()
	diarization, err := s.diarizer.Diarize(ctx, buf, opts.MinSpeakers, opts.MaxSpeakers)
	if err != nil {
		observability.RecordStage(observability.StageDiarize, "error", time.Since(started))
		return apperr.Diarization(err)
	}
	diarize.AssignSpeakers(diarization.Turns, result.Segments)
	observability.RecordStage(observability.StageDiarize, "ok", time.Since(started))

	log.Info("Diarization stage completed", map[string]interface{}{
		"turns":      len(diarization.Turns),
		"speakers":   diarization.NumSpeakers,
		"elapsed_ms": time.Since(started).Milliseconds(),
	})
	return nil
}
