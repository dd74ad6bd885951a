// Package task orchestrates the transcription pipeline: decode once, then
// transcribe, align, and diarize over the shared buffer, and shape the
// result into the API response.
package task

import (
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/whisperlm/internal/diarize"
	"github.com/kbukum/whisperlm/internal/transcribe"
)

// Output controls which optional detail responses carry. Both flags default
// to on in configuration.
type Output struct {
	// WordTimestamps includes per-word timing on segments.
	WordTimestamps bool
	// Confidence includes the mean word score per segment.
	Confidence bool
}

// FullOutput enables every response detail.
func FullOutput() Output {
	return Output{WordTimestamps: true, Confidence: true}
}

// Options are the per-request knobs of the transcription pipeline.
type Options struct {
	// Language forces the recognition language; empty means auto-detect.
	Language string
	// Diarize requests speaker attribution.
	Diarize bool
	// MinSpeakers bounds diarization from below (0 = backend default).
	MinSpeakers int
	// MaxSpeakers bounds diarization from above (0 = backend default).
	MaxSpeakers int
}

// Word mirrors transcribe.Word in the response shape.
type Word struct {
	Word    string  `json:"word"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Score   float64 `json:"score"`
	Speaker string  `json:"speaker,omitempty"`
}

// Segment is one transcript segment in the response.
type Segment struct {
	ID      int     `json:"id"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
	Words   []Word  `json:"words,omitempty"`
	// Confidence is the mean word score of the segment, 0 when the
	// segment has no word-level detail.
	Confidence float64 `json:"confidence"`
}

// Response is the completed transcription result.
type Response struct {
	TaskID   string    `json:"task_id"`
	Status   string    `json:"status"`
	Language string    `json:"language"`
	Duration float64   `json:"duration"`
	Speakers []string  `json:"speakers,omitempty"`
	Segments []Segment `json:"segments"`
}

// StatusCompleted is the terminal status of a successful pipeline run.
const StatusCompleted = "completed"

// newTaskID returns a short request-scoped identifier.
func newTaskID() string {
	return uuid.NewString()[:8]
}

// buildResponse shapes the pipeline result into the response. Segment IDs
// are positional, speakers are the sorted distinct labels, and output
// controls which optional detail is carried.
func buildResponse(taskID string, result *transcribe.Result, duration float64, output Output) *Response {
	segments := make([]Segment, len(result.Segments))
	for i, seg := range result.Segments {
		var words []Word
		if output.WordTimestamps {
			words = make([]Word, len(seg.Words))
			for j, w := range seg.Words {
				words[j] = Word{
					Word:    w.Word,
					Start:   w.Start,
					End:     w.End,
					Score:   w.Score,
					Speaker: w.Speaker,
				}
			}
		}
		segments[i] = Segment{
			ID:      i,
			Start:   seg.Start,
			End:     seg.End,
			Text:    strings.TrimSpace(seg.Text),
			Speaker: seg.Speaker,
			Words:   words,
		}
		if output.Confidence {
			segments[i].Confidence = confidence(seg.Words)
		}
	}

	return &Response{
		TaskID:   taskID,
		Status:   StatusCompleted,
		Language: result.Language,
		Duration: duration,
		Speakers: diarize.Speakers(result.Segments),
		Segments: segments,
	}
}

// confidence returns the mean word score, or 0 without word-level detail.
func confidence(words []transcribe.Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Score
	}
	return sum / float64(len(words))
}
