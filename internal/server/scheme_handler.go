package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anubhav-nekko/cw-dns/internal/common"
)

func (s *Server) handleGetScheme(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "scheme id"))
		return
	}
	scheme, err := s.gateway.Scheme(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, scheme)
}

func (s *Server) handleExportScheme(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "scheme id"))
		return
	}
	data, err := s.exporter.ExportSchemeXLSX(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	filename := fmt.Sprintf("scheme-%s.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *Server) handleGetRawDocument(c *gin.Context) {
	sourceID := c.Param("source_id")
	if sourceID == "" {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "source id"))
		return
	}
	text, ok, err := s.archive.Get(c.Request.Context(), sourceID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !ok {
		s.writeError(c, common.ErrNotFound)
		return
	}
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(text))
}
