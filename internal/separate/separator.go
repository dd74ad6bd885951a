// Package separate splits a mixture recording into a vocals stem and a
// background stem using a demucs HTTP sidecar. The service normalizes the
// input level before the call and restores it on the returned stems, so the
// stems sum back to the original loudness.
package separate

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/logger"
)

// Separation input is resampled to the rate the separation model was
// trained on, independent of the recognition rate.
const modelSampleRate = 44100

// Config holds configuration for source separation.
type Config struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Model   string        `yaml:"model" mapstructure:"model"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// OutputDir is where stem files are written.
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// ApplyDefaults applies default values to separation configuration.
func (c *Config) ApplyDefaults() {
	if c.URL == "" {
		c.URL = "http://localhost:8390"
	}
	if c.Model == "" {
		c.Model = "htdemucs"
	}
	if c.Timeout == 0 {
		c.Timeout = 10 * time.Minute
	}
	if c.OutputDir == "" {
		c.OutputDir = "output"
	}
}

// Validate validates separation configuration.
func (c *Config) Validate() error {
	return nil
}

// Stems holds the paths of the written stem files.
type Stems struct {
	Vocals     string `json:"vocals"`
	Background string `json:"background"`
}

// Separator drives source separation over the demucs sidecar.
type Separator struct {
	cfg    Config
	loader *audio.Loader
	client *http.Client
	log    *logger.Logger
}

// NewSeparator creates a Separator.
func NewSeparator(cfg Config, loader *audio.Loader, log *logger.Logger) *Separator {
	cfg.ApplyDefaults()
	return &Separator{
		cfg:    cfg,
		loader: loader,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log.WithComponent("separate"),
	}
}

// IsAvailable checks if the separation sidecar is reachable.
func (s *Separator) IsAvailable(ctx context.Context) bool {
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

// Separate decodes the file at path, separates it into vocals and
// background, and writes both stems under the output directory. An empty
// model selects the configured default. The stem file names derive from
// the input base name.
func (s *Separator) Separate(ctx context.Context, path, model string) (*Stems, error) {
	if model == "" {
		model = s.cfg.Model
	}

	buf, err := s.loader.LoadStereo(ctx, path, modelSampleRate)
	if err != nil {
		return nil, fmt.Errorf("load audio: %w", err)
	}

	mean, std := referenceLevel(buf)
	scale := normalize(buf, mean, std)

	vocals, background, err := s.call(ctx, buf, model)
	if err != nil {
		return nil, err
	}

	denormalize(vocals, mean, scale)
	denormalize(background, mean, scale)

	if err := os.MkdirAll(s.cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stems := &Stems{
		Vocals:     filepath.Join(s.cfg.OutputDir, base+"_vocals.wav"),
		Background: filepath.Join(s.cfg.OutputDir, base+"_background.wav"),
	}
	if err := os.WriteFile(stems.Vocals, audio.EncodeWAV(vocals), 0o644); err != nil {
		return nil, fmt.Errorf("write vocals stem: %w", err)
	}
	if err := os.WriteFile(stems.Background, audio.EncodeWAV(background), 0o644); err != nil {
		return nil, fmt.Errorf("write background stem: %w", err)
	}

	s.log.Info("Source separation completed", map[string]interface{}{
		"input":      path,
		"vocals":     stems.Vocals,
		"background": stems.Background,
		"duration_s": buf.Duration(),
	})
	return stems, nil
}

// call posts the normalized buffer to the sidecar and decodes the two-stem
// multipart response.
func (s *Separator) call(ctx context.Context, buf *audio.Buffer, model string) (vocals, background *audio.Buffer, err error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("audio", "audio.wav")
	if err != nil {
		return nil, nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(audio.EncodeWAV(buf)); err != nil {
		return nil, nil, fmt.Errorf("write audio data: %w", err)
	}
	_ = writer.WriteField("model", model)
	writer.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL+"/separate", &body)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("separation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, nil, fmt.Errorf("separation error (status %d): %s", resp.StatusCode, string(respBody))
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return nil, nil, fmt.Errorf("separation response: unexpected content type %q", resp.Header.Get("Content-Type"))
	}

	reader := multipart.NewReader(resp.Body, params["boundary"])
	stems := make(map[string]*audio.Buffer, 2)
	for {
		p, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read separation response: %w", err)
		}
		data, err := io.ReadAll(p)
		if err != nil {
			return nil, nil, fmt.Errorf("read stem %s: %w", p.FormName(), err)
		}
		stem, err := audio.DecodeWAV(data)
		if err != nil {
			return nil, nil, fmt.Errorf("decode stem %s: %w", p.FormName(), err)
		}
		stems[p.FormName()] = stem
	}

	vocals, background = stems["vocals"], stems["background"]
	if vocals == nil || background == nil {
		return nil, nil, fmt.Errorf("separation response missing stems (got %d parts)", len(stems))
	}
	return vocals, background, nil
}

// referenceLevel computes mean and standard deviation over the mono downmix,
// which is the reference the model's normalization expects.
func referenceLevel(buf *audio.Buffer) (mean, std float64) {
	frames := len(buf.Samples) / buf.Channels
	if frames == 0 {
		return 0, 1
	}
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < buf.Channels; c++ {
			sum += float64(buf.Samples[i*buf.Channels+c])
		}
		mono[i] = sum / float64(buf.Channels)
	}

	mean = stat.Mean(mono, nil)
	std = stat.StdDev(mono, nil)
	if std == 0 || frames < 2 {
		std = 1
	}
	return mean, std
}

// normalize standardizes the buffer in place and returns the scale needed
// to undo it. The standardized signal is additionally scaled to fit the
// 16-bit WAV payload, so the scale folds std and the peak factor together.
func normalize(buf *audio.Buffer, mean, std float64) float64 {
	peak := 0.0
	for i, s := range buf.Samples {
		v := (float64(s) - mean) / std
		buf.Samples[i] = float32(v)
		if a := math.Abs(v); a > peak {
			peak = a
		}
	}
	if peak <= 1 {
		return std
	}
	for i, s := range buf.Samples {
		buf.Samples[i] = float32(float64(s) / peak)
	}
	return std * peak
}

func denormalize(buf *audio.Buffer, mean, scale float64) {
	for i, s := range buf.Samples {
		buf.Samples[i] = float32(float64(s)*scale + mean)
	}
}
