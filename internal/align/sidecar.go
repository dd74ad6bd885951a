package align

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/transcribe"
)

// Backend is the interface alignment backends must implement.
type Backend interface {
	// Name returns the backend's unique name.
	Name() string

	// IsAvailable checks if the backend is ready to handle requests.
	IsAvailable(ctx context.Context) bool

	// LoadModel loads the alignment model for a language. An empty modelName
	// selects the backend's default model for that language. It returns the
	// name of the model actually loaded.
	LoadModel(ctx context.Context, language, modelName string) (string, error)

	// Align produces word-level timestamps for the given segments.
	Align(ctx context.Context, buf *audio.Buffer, language string, segments []transcribe.Segment) ([]transcribe.Segment, error)
}

// BackendName is the registered name for the sidecar alignment backend.
const BackendName = "wav2vec2"

// Sidecar implements Backend against the alignment HTTP sidecar. The
// sidecar holds the wav2vec2 models; LoadModel instructs it to load one for
// a language and Align applies the loaded model.
type Sidecar struct {
	cfg    Config
	client *http.Client
}

// NewSidecar creates a new sidecar alignment backend.
func NewSidecar(cfg Config) *Sidecar {
	cfg.ApplyDefaults()
	return &Sidecar{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name returns the backend name.
func (s *Sidecar) Name() string { return BackendName }

// IsAvailable checks if the alignment sidecar is reachable.
func (s *Sidecar) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// LoadModel asks the sidecar to load an alignment model for the language.
func (s *Sidecar) LoadModel(ctx context.Context, language, modelName string) (string, error) {
	payload := map[string]string{"language": language}
	if modelName != "" {
		payload["model_name"] = modelName
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode load request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/models", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("alignment load request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("alignment load error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Model string `json:"model"`
		Error string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode alignment load response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("alignment load error: %s", result.Error)
	}
	if result.Model == "" {
		result.Model = modelName
	}
	return result.Model, nil
}

// Align posts the buffer and segments to the sidecar and returns segments
// with word-level timestamps merged in.
func (s *Sidecar) Align(ctx context.Context, buf *audio.Buffer, language string, segments []transcribe.Segment) ([]transcribe.Segment, error) {
	segmentsJSON, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("encode segments: %w", err)
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

	_ = writer.WriteField("language", language)
	_ = writer.WriteField("segments", string(segmentsJSON))
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/align", &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("alignment request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("alignment error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Segments []transcribe.Segment `json:"segments"`
		Error    string               `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode alignment response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("alignment error: %s", result.Error)
	}
	return result.Segments, nil
}
