package diarize

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kbukum/whisperlm/internal/audio"
)

func TestPyannote_Diarize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/diarize" {
			t.Errorf("expected /diarize, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("min_speakers"); got != "2" {
			t.Errorf("expected min_speakers=2, got %q", got)
		}
		if got := r.FormValue("max_speakers"); got != "4" {
			t.Errorf("expected max_speakers=4, got %q", got)
		}
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio part: %v", err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer hf_test" {
			t.Errorf("expected HF bearer token, got %q", got)
		}

		json.NewEncoder(w).Encode(pyannoteResponse{
			Segments: []pyannoteSegment{
				{SpeakerID: "SPEAKER_00", StartTime: 0, EndTime: 3.5},
				{SpeakerID: "SPEAKER_01", StartTime: 3.5, EndTime: 7},
			},
			NumSpeakers: 2,
		})
	}))
	defer srv.Close()

	p := NewPyannote(Config{URL: srv.URL, HuggingFaceToken: "hf_test"})
	buf := &audio.Buffer{Samples: make([]float32, 16000), SampleRate: 16000, Channels: 1}

	result, err := p.Diarize(context.Background(), buf, 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(result.Turns))
	}
	if result.Turns[0].Speaker != "SPEAKER_00" || result.Turns[0].End != 3.5 {
		t.Errorf("unexpected first turn: %+v", result.Turns[0])
	}
	if result.NumSpeakers != 2 {
		t.Errorf("expected 2 speakers, got %d", result.NumSpeakers)
	}
}

func TestPyannote_Diarize_ConfiguredBoundsAreDefaults(t *testing.T) {
	type bounds struct{ min, max string }
	var got bounds
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		got = bounds{min: r.FormValue("min_speakers"), max: r.FormValue("max_speakers")}
		json.NewEncoder(w).Encode(pyannoteResponse{})
	}))
	defer srv.Close()

	p := NewPyannote(Config{URL: srv.URL, MinSpeakers: 2, MaxSpeakers: 4})
	buf := &audio.Buffer{Samples: make([]float32, 100), SampleRate: 16000, Channels: 1}

	// No per-request bounds: the configured defaults reach the sidecar.
	if _, err := p.Diarize(context.Background(), buf, 0, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.min != "2" || got.max != "4" {
		t.Errorf("expected configured bounds 2/4, got %q/%q", got.min, got.max)
	}

	// Per-request bounds win over the configured defaults.
	if _, err := p.Diarize(context.Background(), buf, 3, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.min != "3" || got.max != "5" {
		t.Errorf("expected request bounds 3/5, got %q/%q", got.min, got.max)
	}
}

func TestPyannote_Diarize_SidecarError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(pyannoteResponse{Error: "model not loaded"})
	}))
	defer srv.Close()

	p := NewPyannote(Config{URL: srv.URL})
	buf := &audio.Buffer{Samples: make([]float32, 100), SampleRate: 16000, Channels: 1}

	if _, err := p.Diarize(context.Background(), buf, 0, 0); err == nil {
		t.Fatal("expected error from sidecar error body")
	}
}

func TestPyannote_IsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := NewPyannote(Config{URL: srv.URL})
	if !p.IsAvailable(context.Background()) {
		t.Error("expected available")
	}

	srv.Close()
	if p.IsAvailable(context.Background()) {
		t.Error("expected unavailable after server close")
	}
}

func TestConfig_Available(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want bool
	}{
		{"enabled with token", Config{Enabled: true, HuggingFaceToken: "hf"}, true},
		{"enabled without token", Config{Enabled: true}, false},
		{"disabled with token", Config{HuggingFaceToken: "hf"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Available(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
