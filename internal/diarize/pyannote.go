package diarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/kbukum/whisperlm/internal/audio"
)

// BackendName is the registered name for the pyannote backend.
const BackendName = "pyannote"

// Backend is the interface diarization backends must implement.
type Backend interface {
	// Name returns the backend's unique name.
	Name() string

	// IsAvailable checks if the backend is ready to handle requests.
	IsAvailable(ctx context.Context) bool

	// Diarize segments the buffer into speaker turns. Zero speaker bounds
	// let the backend auto-detect the speaker count.
	Diarize(ctx context.Context, buf *audio.Buffer, minSpeakers, maxSpeakers int) (*Result, error)
}

// Pyannote implements Backend using the pyannote HTTP sidecar.
type Pyannote struct {
	cfg    Config
	client *http.Client
}

// NewPyannote creates a new pyannote diarization backend.
func NewPyannote(cfg Config) *Pyannote {
	cfg.ApplyDefaults()
	return &Pyannote{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the backend name.
func (p *Pyannote) Name() string { return BackendName }

// IsAvailable checks if the pyannote sidecar is reachable.
func (p *Pyannote) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Diarize posts the buffer to the sidecar and returns speaker turns.
// Unset request bounds fall back to the configured defaults; a zero result
// leaves speaker-count detection to the sidecar.
func (p *Pyannote) Diarize(ctx context.Context, buf *audio.Buffer, minSpeakers, maxSpeakers int) (*Result, error) {
	if minSpeakers <= 0 {
		minSpeakers = p.cfg.MinSpeakers
	}
	if maxSpeakers <= 0 {
		maxSpeakers = p.cfg.MaxSpeakers
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(buf)); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}

	if minSpeakers > 0 {
		_ = writer.WriteField("min_speakers", strconv.Itoa(minSpeakers))
	}
	if maxSpeakers > 0 {
		_ = writer.WriteField("max_speakers", strconv.Itoa(maxSpeakers))
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.URL+"/diarize", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	if p.cfg.HuggingFaceToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.HuggingFaceToken)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("diarization request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("diarization error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result pyannoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode diarization response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("diarization error: %s", result.Error)
	}

	return toResult(&result), nil
}

// --- internal pyannote API types ---

type pyannoteResponse struct {
	Segments    []pyannoteSegment `json:"segments"`
	NumSpeakers int               `json:"num_speakers"`
	Error       string            `json:"error,omitempty"`
}

type pyannoteSegment struct {
	SpeakerID string  `json:"speaker_id"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

func toResult(resp *pyannoteResponse) *Result {
	turns := make([]Turn, len(resp.Segments))
	for i, seg := range resp.Segments {
		turns[i] = Turn{
			Speaker: seg.SpeakerID,
			Start:   seg.StartTime,
			End:     seg.EndTime,
		}
	}
	return &Result{
		Turns:       turns,
		NumSpeakers: resp.NumSpeakers,
	}
}
