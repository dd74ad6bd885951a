package transcribe

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

// EngineName is the registered name for the whisperx backend.
const EngineName = "whisperx"

// WhisperX implements Engine using a whisperx HTTP sidecar. The sidecar
// owns the recognition model; this client posts the decoded buffer and
// converts the sidecar's response shape.
type WhisperX struct {
	cfg    Config
	client *http.Client
}

// NewWhisperX creates a new whisperx recognition backend.
func NewWhisperX(cfg Config) *WhisperX {
	cfg.ApplyDefaults()
	return &WhisperX{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the backend name.
func (e *WhisperX) Name() string { return EngineName }

// IsAvailable checks if the whisperx sidecar is reachable.
func (e *WhisperX) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Status reports the sidecar's model and GPU state.
func (e *WhisperX) Status(ctx context.Context) (*Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.URL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whisperx health: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("whisperx health status %d", resp.StatusCode)
	}

	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode whisperx health: %w", err)
	}
	if status.Model == "" {
		status.Model = e.cfg.Model
	}
	if status.Device == "" {
		status.Device = e.cfg.Device
	}
	return &status, nil
}

// Transcribe posts the buffer to the sidecar and returns recognized segments
// with the detected language.
func (e *WhisperX) Transcribe(ctx context.Context, buf *audio.Buffer, language string) (*Result, error) {
	if language == "" {
		language = e.cfg.Language
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

	_ = writer.WriteField("model", e.cfg.Model)
	_ = writer.WriteField("batch_size", strconv.Itoa(e.cfg.BatchSize))
	if language != "" {
		_ = writer.WriteField("language", language)
	}
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("whisperx request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whisperx error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result whisperxResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode whisperx response: %w", err)
	}

	return toResult(&result), nil
}

// --- internal whisperx API response types ---

type whisperxResponse struct {
	Language string            `json:"language"`
	Segments []whisperxSegment `json:"segments"`
	Error    string            `json:"error,omitempty"`
}

type whisperxSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

func toResult(resp *whisperxResponse) *Result {
	segments := make([]Segment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		}
	}
	return &Result{
		Language: resp.Language,
		Segments: segments,
	}
}
