package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/align"
	"github.com/kbukum/whisperlm/internal/audio"
	"github.com/kbukum/whisperlm/internal/logger"
	"github.com/kbukum/whisperlm/internal/separate"
	"github.com/kbukum/whisperlm/internal/task"
	"github.com/kbukum/whisperlm/internal/transcribe"
	"github.com/kbukum/whisperlm/internal/upload"
)

type fakeEngine struct {
	status    *transcribe.Status
	statusErr error
}

func (f *fakeEngine) Name() string                       { return "fake" }
func (f *fakeEngine) IsAvailable(_ context.Context) bool { return f.statusErr == nil }
func (f *fakeEngine) Transcribe(_ context.Context, _ *audio.Buffer, language string) (*transcribe.Result, error) {
	return &transcribe.Result{
		Language: "en",
		Segments: []transcribe.Segment{{Start: 0, End: 1.5, Text: " Testing."}},
	}, nil
}
func (f *fakeEngine) Status(_ context.Context) (*transcribe.Status, error) {
	return f.status, f.statusErr
}

type fakeLoader struct{}

func (fakeLoader) Load(_ context.Context, _ string) (*audio.Buffer, error) {
	return &audio.Buffer{Samples: make([]float32, 24000), SampleRate: 16000, Channels: 1}, nil
}

type fakeAlignBackend struct{}

func (fakeAlignBackend) Name() string                       { return "fake" }
func (fakeAlignBackend) IsAvailable(_ context.Context) bool { return true }
func (fakeAlignBackend) LoadModel(_ context.Context, _, _ string) (string, error) {
	return "", errors.New("unavailable")
}
func (fakeAlignBackend) Align(_ context.Context, _ *audio.Buffer, _ string, s []transcribe.Segment) ([]transcribe.Segment, error) {
	return s, nil
}

type fakeSeparator struct {
	stems *separate.Stems
	err   error
}

func (f *fakeSeparator) Separate(_ context.Context, _, _ string) (*separate.Stems, error) {
	return f.stems, f.err
}

func testRouter(t *testing.T, engine transcribe.Engine) (*gin.Engine, string) {
	t.Helper()
	log := logger.NewDefault("test")
	separator := separate.NewSeparator(separate.Config{OutputDir: t.TempDir()}, audio.NewLoader(log), log)
	return testRouterWith(t, engine, separator)
}

func testRouterWith(t *testing.T, engine transcribe.Engine, separator Separator) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.NewDefault("test")
	uploadDir := t.TempDir()
	store, err := upload.NewStore(upload.Config{Dir: uploadDir}, log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	aligner := align.NewAligner(align.Config{}, fakeAlignBackend{}, log)
	pipeline := task.NewService(fakeLoader{}, engine, aligner, nil, task.FullOutput(), log)

	h := NewHandler(pipeline, separator, store, engine, Info{
		Service: "whisperlm",
		Version: "test",
	}, log)

	r := gin.New()
	h.Register(r)
	return r, uploadDir
}

func multipartBody(t *testing.T, filename string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		part.Write([]byte("fake media"))
	}
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()
	return &body, writer.FormDataContentType()
}

func postForm(t *testing.T, r *gin.Engine, path, filename string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, filename, fields)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v (%s)", err, rec.Body.String())
	}
	return resp.Error.Code
}

func TestHandleTranscribe_Success(t *testing.T) {
	r, uploadDir := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/transcribe", "meeting.wav", map[string]string{
		"language": "auto",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp task.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != task.StatusCompleted {
		t.Errorf("expected completed, got %s", resp.Status)
	}
	if resp.Language != "en" {
		t.Errorf("expected detected en, got %s", resp.Language)
	}
	if len(resp.Segments) != 1 || resp.Segments[0].Text != "Testing." {
		t.Errorf("unexpected segments: %+v", resp.Segments)
	}

	// The spooled upload must be gone once the request finishes.
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected temp file removed, found %d entries", len(entries))
	}
}

func TestHandleTranscribe_TempRemovedOnRejection(t *testing.T) {
	r, uploadDir := testRouter(t, &fakeEngine{})

	// Upload is rejected before spooling, dir must stay empty.
	rec := postForm(t, r, "/api/v1/transcribe", "notes.txt", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	entries, err := os.ReadDir(uploadDir)
	if err != nil {
		t.Fatalf("read upload dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no temp files, found %d", len(entries))
	}
}

func TestHandleTranscribe_MissingFile(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/transcribe", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %s", code)
	}
}

func TestHandleTranscribe_UnsupportedExtension(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/transcribe", "notes.txt", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "UNSUPPORTED_FORMAT" {
		t.Errorf("expected UNSUPPORTED_FORMAT, got %s", code)
	}
}

func TestHandleTranscribe_InvalidFormValue(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/transcribe", "a.wav", map[string]string{
		"min_speakers": "lots",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandleTranscribe_MaxBelowMin(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/transcribe", "a.wav", map[string]string{
		"min_speakers": "4",
		"max_speakers": "2",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != "INVALID_INPUT" {
		t.Errorf("expected INVALID_INPUT, got %s", code)
	}
}

func TestHandleSeparate_StreamsAndRemovesStems(t *testing.T) {
	dir := t.TempDir()
	vocals := filepath.Join(dir, "in_vocals.wav")
	background := filepath.Join(dir, "in_background.wav")
	if err := os.WriteFile(vocals, []byte("vocals-wav"), 0o644); err != nil {
		t.Fatalf("write stem: %v", err)
	}
	if err := os.WriteFile(background, []byte("background-wav"), 0o644); err != nil {
		t.Fatalf("write stem: %v", err)
	}

	r, _ := testRouterWith(t, &fakeEngine{}, &fakeSeparator{
		stems: &separate.Stems{Vocals: vocals, Background: background},
	})

	rec := postForm(t, r, "/api/v1/separate", "in.wav", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	mediaType, params, err := mime.ParseMediaType(rec.Header().Get("Content-Type"))
	if err != nil || mediaType != "multipart/mixed" {
		t.Fatalf("expected multipart/mixed, got %q (%v)", mediaType, err)
	}

	mr := multipart.NewReader(rec.Body, params["boundary"])
	want := []struct{ name, content string }{
		{"vocals", "vocals-wav"},
		{"background", "background-wav"},
	}
	for _, w := range want {
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("expected %s part: %v", w.name, err)
		}
		if part.FormName() != w.name {
			t.Errorf("expected part %s, got %s", w.name, part.FormName())
		}
		data, err := io.ReadAll(part)
		if err != nil {
			t.Fatalf("read %s part: %v", w.name, err)
		}
		if string(data) != w.content {
			t.Errorf("part %s: expected %q, got %q", w.name, w.content, string(data))
		}
	}

	// Stem files are request-scoped and must not outlive the response.
	if _, err := os.Stat(vocals); !os.IsNotExist(err) {
		t.Errorf("vocals stem not removed: %v", err)
	}
	if _, err := os.Stat(background); !os.IsNotExist(err) {
		t.Errorf("background stem not removed: %v", err)
	}
}

func TestHandleSeparate_MissingFile(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/api/v1/separate", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandleTranscribeLegacy_Success(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/transcribe/", "call.mp3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Status   string `json:"status"`
		Language string `json:"language"`
		Segments []struct {
			Text string `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "success" {
		t.Errorf("expected success, got %s", resp.Status)
	}
	if resp.Language != "en" {
		t.Errorf("expected en, got %s", resp.Language)
	}
	if len(resp.Segments) != 1 || resp.Segments[0].Text != "Testing." {
		t.Errorf("unexpected segments: %+v", resp.Segments)
	}
}

func TestHandleTranscribeLegacy_MissingFile(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	rec := postForm(t, r, "/transcribe/", "", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestHandleHealth_Healthy(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{
		status: &transcribe.Status{Model: "large-v3", Device: "cuda", Loaded: true},
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "healthy" {
		t.Errorf("expected healthy, got %v", resp["status"])
	}
}

func TestHandleHealth_DegradedWhenSidecarDown(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{statusErr: errors.New("connection refused")})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "degraded" {
		t.Errorf("expected degraded, got %v", resp["status"])
	}
}

func TestHandleRoot(t *testing.T) {
	r, _ := testRouter(t, &fakeEngine{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["service"] != "whisperlm" {
		t.Errorf("expected service whisperlm, got %v", resp["service"])
	}
}

func TestCheckExtension(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"a.mp3", false},
		{"a.WAV", false},
		{"video.mkv", false},
		{"clip.webm", false},
		{"", true},
		{"noext", true},
		{"doc.pdf", true},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := checkExtension(tt.filename)
			if tt.wantErr && err == nil {
				t.Error("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
