package transcribe

import (
	"context"

	"github.com/kbukum/whisperlm/internal/audio"
)

// Engine is the interface recognition backends must implement.
type Engine interface {
	// Name returns the backend's unique name.
	Name() string

	// IsAvailable checks if the backend is ready to handle requests.
	IsAvailable(ctx context.Context) bool

	// Transcribe runs speech recognition over the decoded buffer. An empty
	// language triggers language detection in the backend.
	Transcribe(ctx context.Context, buf *audio.Buffer, language string) (*Result, error)

	// Status reports the backend's model and accelerator state.
	Status(ctx context.Context) (*Status, error)
}
