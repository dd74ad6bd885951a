// Package api registers the HTTP routes of the whisperlm service on a Gin
// engine: the transcription and separation endpoints, the legacy
// transcription endpoint, and the health/info surface.
package api

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/whisperlm/internal/apperr"
	"github.com/kbukum/whisperlm/internal/logger"
	"github.com/kbukum/whisperlm/internal/separate"
	"github.com/kbukum/whisperlm/internal/task"
	"github.com/kbukum/whisperlm/internal/transcribe"
	"github.com/kbukum/whisperlm/internal/upload"
)

// supportedExtensions are the accepted input container extensions. Anything
// else is rejected before any model work begins.
var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".ogg":  {},
	".m4a":  {},
	".mp4":  {},
	".mkv":  {},
	".avi":  {},
	".mov":  {},
	".webm": {},
}

// Info describes the running service for the root and info endpoints.
type Info struct {
	Service     string `json:"service"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

// Separator runs source separation for the separate endpoint.
type Separator interface {
	Separate(ctx context.Context, path, model string) (*separate.Stems, error)
}

// Handler holds the service dependencies of the HTTP layer.
type Handler struct {
	pipeline  *task.Service
	separator Separator
	store     *upload.Store
	engine    transcribe.Engine
	info      Info
	log       *logger.Logger
}

// NewHandler creates the HTTP handler set.
func NewHandler(pipeline *task.Service, separator Separator, store *upload.Store, engine transcribe.Engine, info Info, log *logger.Logger) *Handler {
	return &Handler{
		pipeline:  pipeline,
		separator: separator,
		store:     store,
		engine:    engine,
		info:      info,
		log:       log.WithComponent("api"),
	}
}

// Register mounts all routes on the engine.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.handleRoot)
	r.GET("/health", h.handleHealth)
	r.GET("/info", h.handleInfo)

	v1 := r.Group("/api/v1")
	v1.POST("/transcribe", h.handleTranscribe)
	v1.POST("/separate", h.handleSeparate)

	// Legacy route kept for pre-v1 clients.
	r.POST("/transcribe/", h.handleTranscribeLegacy)
}

// writeError converts err to the unified error response shape.
func (h *Handler) writeError(c *gin.Context, err error) {
	appErr := apperr.FromError(err)
	if appErr.HTTPStatus >= 500 {
		h.log.Error("Request failed", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"code":  string(appErr.Code),
			"error": appErr.Error(),
		})
	}
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

// checkExtension validates the upload's filename and extension.
func checkExtension(filename string) error {
	if filename == "" {
		return apperr.MissingField("file")
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := supportedExtensions[ext]; !ok {
		return apperr.UnsupportedFormat(ext)
	}
	return nil
}
