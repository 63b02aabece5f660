// Package server exposes the ingest, review, and commit surface over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anubhav-nekko/cw-dns/internal/archive"
	"github.com/anubhav-nekko/cw-dns/internal/commit"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/export"
	"github.com/anubhav-nekko/cw-dns/internal/pipeline"
	"github.com/anubhav-nekko/cw-dns/internal/review"
)

// Server wires the pipeline, staging store, commit gateway, and exporter
// behind a gin router. It owns no state of its own.
type Server struct {
	pipeline *pipeline.Pipeline
	staging  *review.Store
	gateway  *commit.Gateway
	exporter *export.Service
	archive  archive.Store
	logger   *zap.SugaredLogger
}

func NewServer(
	p *pipeline.Pipeline,
	staging *review.Store,
	gateway *commit.Gateway,
	exporter *export.Service,
	arch archive.Store,
	logger *zap.SugaredLogger,
) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		pipeline: p,
		staging:  staging,
		gateway:  gateway,
		exporter: exporter,
		archive:  arch,
		logger:   logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(func(c *gin.Context) {
		ctx := common.WithRequestID(c.Request.Context(), uuid.NewString())
		ctx = common.WithReviewer(ctx, reviewer(c))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1")
	{
		v1.POST("/ingest", s.handleIngest)

		v1.GET("/tickets", s.handleListTickets)
		v1.GET("/tickets/:id", s.handleGetTicket)
		v1.POST("/tickets/:id/edit", s.handleEditTicket)
		v1.POST("/tickets/:id/approve", s.handleApproveTicket)
		v1.POST("/tickets/:id/reject", s.handleRejectTicket)
		v1.POST("/tickets/:id/commit", s.handleCommitTicket)

		v1.GET("/schemes/:id", s.handleGetScheme)
		v1.GET("/schemes/:id/export", s.handleExportScheme)

		v1.GET("/documents/:source_id/raw", s.handleGetRawDocument)
	}
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.gateway.Health(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// errorResponse is the uniform error body for every non-2xx reply.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// writeError maps the application error taxonomy onto HTTP status codes.
func (s *Server) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	code := "internal"
	switch {
	case errors.Is(err, common.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, common.ErrStaleTicket):
		status, code = http.StatusConflict, "stale_version"
	case errors.Is(err, common.ErrCommitConflict):
		status, code = http.StatusConflict, "commit_conflict"
	case errors.Is(err, common.ErrTerminalState):
		status, code = http.StatusConflict, "terminal_state"
	case errors.Is(err, common.ErrValidation):
		status, code = http.StatusUnprocessableEntity, "validation_failed"
	case errors.Is(err, common.ErrUnsupportedFormat):
		status, code = http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, common.ErrUnreadableDocument):
		status, code = http.StatusUnprocessableEntity, "unreadable_document"
	case errors.Is(err, common.ErrInvalidInput):
		status, code = http.StatusBadRequest, "invalid_input"
	case errors.Is(err, context.DeadlineExceeded):
		status, code = http.StatusGatewayTimeout, "timeout"
	}
	if status >= http.StatusInternalServerError {
		s.logger.Errorw("request failed",
			"path", c.FullPath(),
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"error", err)
	}
	c.JSON(status, errorResponse{Error: err.Error(), Code: code})
}

// reviewer resolves the acting reviewer from the request; review actions
// are attributed in the ticket audit trail.
func reviewer(c *gin.Context) string {
	if v := c.GetHeader("X-Reviewer"); v != "" {
		return v
	}
	return "anonymous"
}
