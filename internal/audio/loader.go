// Package audio decodes input media into raw sample buffers and converts
// between buffers and WAV payloads for the inference sidecars. Decoding
// shells out to ffmpeg so every container/codec the service accepts is
// handled by one path.
package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/kbukum/whisperlm/internal/logger"
)

// SampleRate is the rate required by the recognition model.
const SampleRate = 16000

// Buffer holds decoded PCM samples. Multi-channel data is interleaved.
type Buffer struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate <= 0 || b.Channels <= 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate*b.Channels)
}

// Loader decodes media files via ffmpeg.
type Loader struct {
	ffmpegPath string
	log        *logger.Logger
}

// NewLoader creates a Loader. An empty ffmpegPath resolves "ffmpeg" from PATH.
func NewLoader(log *logger.Logger) *Loader {
	return &Loader{
		ffmpegPath: "ffmpeg",
		log:        log.WithComponent("audio"),
	}
}

// Load decodes the file at path into mono float32 PCM at the recognition
// sample rate. It is invoked exactly once per transcription request; all
// downstream stages reuse the returned buffer.
func (l *Loader) Load(ctx context.Context, path string) (*Buffer, error) {
	return l.decode(ctx, path, SampleRate, 1)
}

// LoadStereo decodes the file at path into interleaved stereo float32 PCM
// at the given sample rate, as required by the separation model.
func (l *Loader) LoadStereo(ctx context.Context, path string, sampleRate int) (*Buffer, error) {
	return l.decode(ctx, path, sampleRate, 2)
}

func (l *Loader) decode(ctx context.Context, path string, sampleRate, channels int) (*Buffer, error) {
	args := []string{
		"-nostdin",
		"-threads", "0",
		"-i", path,
		"-f", "f32le",
		"-ac", strconv.Itoa(channels),
		"-ar", strconv.Itoa(sampleRate),
		"-",
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, l.ffmpegPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w: %s", path, err, lastLine(stderr.String()))
	}

	raw := stdout.Bytes()
	if len(raw) < 4 {
		return nil, fmt.Errorf("ffmpeg decode %s: empty output", path)
	}

	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}

	buf := &Buffer{
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}

	l.log.Debug("Audio decoded", map[string]interface{}{
		"path":        path,
		"samples":     len(samples),
		"sample_rate": sampleRate,
		"channels":    channels,
		"duration_s":  buf.Duration(),
	})
	return buf, nil
}

// lastLine extracts the final non-empty line of ffmpeg stderr, which
// carries the actual failure reason.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
