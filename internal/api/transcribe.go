package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/apperr"
	"github.com/kbukum/whisperlm/internal/task"
	"github.com/kbukum/whisperlm/internal/validation"
)

// transcribeRequest is the form of POST /api/v1/transcribe. Diarization
// defaults to on; "auto" language means detect.
type transcribeRequest struct {
	Language    string `form:"language"`
	Diarization bool   `form:"diarization,default=true"`
	MinSpeakers int    `form:"min_speakers" validate:"gte=0"`
	MaxSpeakers int    `form:"max_speakers" validate:"omitempty,gte=0,gtefield=MinSpeakers"`
}

func (h *Handler) handleTranscribe(c *gin.Context) {
	var req transcribeRequest
	if err := c.ShouldBind(&req); err != nil {
		h.writeError(c, apperr.Validation(err.Error()))
		return
	}
	if err := validation.Validate(&req); err != nil {
		h.writeError(c, err)
		return
	}

	// A request without a file part never got past binding in the original
	// surface; it maps to the 422 validation shape, not a 400.
	file, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, apperr.Validation("missing required field: file"))
		return
	}
	if err := checkExtension(file.Filename); err != nil {
		h.writeError(c, err)
		return
	}

	path, err := h.store.Save(file)
	if err != nil {
		h.writeError(c, apperr.Internal(err))
		return
	}
	defer h.store.Remove(path)

	language := req.Language
	if language == "auto" {
		language = ""
	}

	resp, err := h.pipeline.Transcribe(c.Request.Context(), path, task.Options{
		Language:    language,
		Diarize:     req.Diarization,
		MinSpeakers: req.MinSpeakers,
		MaxSpeakers: req.MaxSpeakers,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// legacyResponse is the reduced shape of the pre-v1 endpoint: status plus
// bare segments, no word timestamps or confidence.
type legacyResponse struct {
	Status   string          `json:"status"`
	Language string          `json:"language,omitempty"`
	Segments []legacySegment `json:"segments"`
}

type legacySegment struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Text    string  `json:"text"`
	Speaker string  `json:"speaker,omitempty"`
}

// handleTranscribeLegacy serves the pre-v1 route: diarization fixed on,
// language auto-detected. Pipeline failures map to a 200 with
// status "error" and an empty segment list, which is what legacy clients
// expect.
func (h *Handler) handleTranscribeLegacy(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		h.writeError(c, apperr.Validation("missing required field: file"))
		return
	}
	if err := checkExtension(file.Filename); err != nil {
		h.writeError(c, err)
		return
	}

	path, err := h.store.Save(file)
	if err != nil {
		h.writeError(c, apperr.Internal(err))
		return
	}
	defer h.store.Remove(path)

	resp, err := h.pipeline.Transcribe(c.Request.Context(), path, task.Options{
		Diarize: true,
	})
	if err != nil {
		h.log.Error("Legacy transcription failed", map[string]interface{}{
			"error": err.Error(),
		})
		c.JSON(http.StatusOK, legacyResponse{
			Status:   "error",
			Segments: []legacySegment{},
		})
		return
	}

	segments := make([]legacySegment, len(resp.Segments))
	for i, seg := range resp.Segments {
		segments[i] = legacySegment{
			Start:   seg.Start,
			End:     seg.End,
			Text:    seg.Text,
			Speaker: seg.Speaker,
		}
	}
	c.JSON(http.StatusOK, legacyResponse{
		Status:   "success",
		Language: resp.Language,
		Segments: segments,
	})
}
