package apperr

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Connection/Availability errors (retryable)
const (
	// ErrCodeServiceUnavailable indicates the service is temporarily unavailable.
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	// ErrCodeConnectionFailed indicates a failed connection to a service.
	ErrCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Input errors
const (
	// ErrCodeInvalidInput indicates the request input was invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field was missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
	// ErrCodeUnsupportedFormat indicates an unsupported media format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
)

// Auth errors
const (
	// ErrCodeUnauthorized indicates missing or failed authentication.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeInvalidToken indicates an invalid authentication token.
	ErrCodeInvalidToken ErrorCode = "INVALID_TOKEN"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL"
	// ErrCodeAudioDecode indicates the input media could not be decoded.
	ErrCodeAudioDecode ErrorCode = "AUDIO_DECODE_FAILED"
	// ErrCodeTranscription indicates the recognition backend failed.
	ErrCodeTranscription ErrorCode = "TRANSCRIPTION_FAILED"
	// ErrCodeDiarization indicates the diarization backend failed.
	ErrCodeDiarization ErrorCode = "DIARIZATION_FAILED"
	// ErrCodeSeparation indicates the separation backend failed.
	ErrCodeSeparation ErrorCode = "SEPARATION_FAILED"
	// ErrCodeExternalService indicates an error from an external service.
	ErrCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// retryableCodes holds codes for operations that may succeed on retry.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeConnectionFailed:   true,
	ErrCodeTimeout:            true,
	ErrCodeExternalService:    true,
}

// IsRetryableCode reports whether an error code is considered retryable.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
