package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthProbeTimeout = 5 * time.Second

// handleRoot serves a small service banner with the endpoint map.
func (h *Handler) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": h.info.Service,
		"version": h.info.Version,
		"endpoints": gin.H{
			"transcribe": "/api/v1/transcribe",
			"separate":   "/api/v1/separate",
			"health":     "/health",
			"metrics":    "/metrics",
		},
	})
}

// handleInfo reports service identity.
func (h *Handler) handleInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.info)
}

// handleHealth reports recognition model status and GPU availability. The
// service is degraded, not down, when the recognition backend is
// unreachable.
func (h *Handler) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
	defer cancel()

	overall := "healthy"
	whisper := gin.H{"loaded": false}

	status, err := h.engine.Status(ctx)
	if err != nil {
		overall = "degraded"
		whisper["error"] = err.Error()
	} else {
		whisper = gin.H{
			"model":  status.Model,
			"device": status.Device,
			"loaded": status.Loaded,
			"gpu":    status.GPU,
		}
		if !status.Loaded {
			overall = "degraded"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  overall,
		"whisper": whisper,
		"diarization": gin.H{
			"enabled": h.pipeline.DiarizationConfigured(),
		},
	})
}
