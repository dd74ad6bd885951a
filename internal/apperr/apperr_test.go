package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestConstructors_StatusAndCode(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantCode   ErrorCode
		wantStatus int
	}{
		{"missing field", MissingField("file"), ErrCodeMissingField, http.StatusBadRequest},
		{"unsupported format", UnsupportedFormat(".txt"), ErrCodeUnsupportedFormat, http.StatusBadRequest},
		{"validation", Validation("bad form"), ErrCodeInvalidInput, http.StatusUnprocessableEntity},
		{"audio decode", AudioDecode(errors.New("x")), ErrCodeAudioDecode, http.StatusInternalServerError},
		{"transcription", Transcription(errors.New("x")), ErrCodeTranscription, http.StatusInternalServerError},
		{"diarization", Diarization(errors.New("x")), ErrCodeDiarization, http.StatusInternalServerError},
		{"separation", Separation(errors.New("x")), ErrCodeSeparation, http.StatusInternalServerError},
		{"external", ExternalServiceError("whisperx", errors.New("x")), ErrCodeExternalService, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, tt.err.Code)
			}
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, tt.err.HTTPStatus)
			}
		})
	}
}

func TestUnsupportedFormat_NamesExtension(t *testing.T) {
	err := UnsupportedFormat(".txt")
	if err.Details["extension"] != ".txt" {
		t.Errorf("expected extension detail, got %v", err.Details)
	}
}

func TestFromError(t *testing.T) {
	appErr := MissingField("file")
	if got := FromError(appErr); got != appErr {
		t.Error("expected same AppError back")
	}

	wrapped := fmt.Errorf("handler: %w", appErr)
	if got := FromError(wrapped); got.Code != ErrCodeMissingField {
		t.Errorf("expected unwrap to MISSING_FIELD, got %s", got.Code)
	}

	plain := errors.New("boom")
	got := FromError(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL, got %s", got.Code)
	}
	if !errors.Is(got, plain) {
		t.Error("expected cause preserved")
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("socket closed")
	err := Transcription(cause)
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find cause")
	}
}

func TestRetryable(t *testing.T) {
	if MissingField("x").Retryable {
		t.Error("input errors are not retryable")
	}
	if !Transcription(errors.New("x")).Retryable {
		t.Error("transcription failures are retryable")
	}
	if !ExternalServiceError("s", errors.New("x")).Retryable {
		t.Error("external service errors are retryable")
	}
}

func TestToResponse(t *testing.T) {
	resp := UnsupportedFormat(".pdf").ToResponse()
	if resp.Error.Code != ErrCodeUnsupportedFormat {
		t.Errorf("expected code in response, got %s", resp.Error.Code)
	}
	if resp.Error.Message == "" {
		t.Error("expected message in response")
	}
}
