package api

import (
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/apperr"
	"github.com/kbukum/whisperlm/internal/observability"
)

// handleSeparate runs source separation and streams the two stems back as a
// multipart body: vocals first, then background.
func (h *Handler) handleSeparate(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		observability.RecordSeparateRequest("error")
		h.writeError(c, apperr.Validation("missing required field: file"))
		return
	}
	if err := checkExtension(file.Filename); err != nil {
		observability.RecordSeparateRequest("error")
		h.writeError(c, err)
		return
	}

	path, err := h.store.Save(file)
	if err != nil {
		observability.RecordSeparateRequest("error")
		h.writeError(c, apperr.Internal(err))
		return
	}
	defer h.store.Remove(path)

	ctx, span := observability.StartSpan(c.Request.Context(), "pipeline.separate")
	defer span.End()

	started := time.Now()
	stems, err := h.separator.Separate(ctx, path, c.PostForm("model"))
	if err != nil {
		span.RecordError(err)
		observability.RecordStage(observability.StageSeparate, "error", time.Since(started))
		observability.RecordSeparateRequest("error")
		h.writeError(c, apperr.Separation(err))
		return
	}
	// Stem files are request-scoped; drop them once streamed (or on a
	// partial write).
	defer os.Remove(stems.Vocals)
	defer os.Remove(stems.Background)
	observability.RecordStage(observability.StageSeparate, "ok", time.Since(started))
	observability.RecordSeparateRequest("completed")

	writer := multipart.NewWriter(c.Writer)
	c.Header("Content-Type", "multipart/mixed; boundary="+writer.Boundary())
	c.Status(http.StatusOK)

	if err := writeStem(writer, "vocals", stems.Vocals); err == nil {
		err = writeStem(writer, "background", stems.Background)
		if err == nil {
			err = writer.Close()
		}
	}
	if err != nil {
		// Headers are gone; all we can do is log and drop the connection.
		h.log.Error("Failed to stream separation stems", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// writeStem copies one stem file into a multipart part named after it.
func writeStem(writer *multipart.Writer, name, path string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", "audio/wav")
	header.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.wav"`)

	part, err := writer.CreatePart(header)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = io.Copy(part, f)
	return err
}
