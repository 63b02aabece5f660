package server

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/anubhav-nekko/cw-dns/constants"
	"github.com/anubhav-nekko/cw-dns/internal/common"
	"github.com/anubhav-nekko/cw-dns/internal/review"
)

// IngestRequest triggers a pipeline run over one source document already
// visible to the service host.
type IngestRequest struct {
	Path string `json:"path" binding:"required"`
}

func (s *Server) handleIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, err.Error()))
		return
	}

	ticket, err := s.pipeline.Run(c.Request.Context(), req.Path)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticket)
}

func (s *Server) handleListTickets(c *gin.Context) {
	status := constants.TicketStatus(c.Query("status"))
	tickets := s.staging.List(status)
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "count": len(tickets)})
}

func (s *Server) handleGetTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "ticket id"))
		return
	}
	ticket, err := s.staging.Get(id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// EditTicketRequest applies one reviewer correction. Value carries the
// typed replacement and is validated against the edit schema before use.
type EditTicketRequest struct {
	Version int             `json:"version" binding:"required"`
	Field   string          `json:"field" binding:"required"`
	Value   json.RawMessage `json:"value" binding:"required"`
}

func (s *Server) handleEditTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "ticket id"))
		return
	}
	var req EditTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, err.Error()))
		return
	}
	value, err := review.ParseValue(req.Value)
	if err != nil {
		s.writeError(c, err)
		return
	}

	ticket, err := s.staging.Edit(id, req.Version, req.Field, value, reviewer(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Infow("ticket edited",
		"ticket_id", id, "field", req.Field, "version", ticket.Version)
	c.JSON(http.StatusOK, ticket)
}

// DecisionRequest carries the reviewer's last-seen version for approve
// and reject actions.
type DecisionRequest struct {
	Version int `json:"version" binding:"required"`
}

func (s *Server) handleApproveTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "ticket id"))
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, err.Error()))
		return
	}
	ticket, err := s.staging.Approve(id, req.Version, reviewer(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Infow("ticket approved", "ticket_id", id, "version", ticket.Version)
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) handleRejectTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "ticket id"))
		return
	}
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, err.Error()))
		return
	}
	ticket, err := s.staging.Reject(id, req.Version, reviewer(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Infow("ticket rejected", "ticket_id", id, "version", ticket.Version)
	c.JSON(http.StatusOK, ticket)
}

func (s *Server) handleCommitTicket(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		s.writeError(c, common.WrapError(common.ErrInvalidInput, "ticket id"))
		return
	}
	schemeID, err := s.gateway.Commit(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.logger.Infow("ticket committed", "ticket_id", id, "scheme_id", schemeID)
	c.JSON(http.StatusOK, gin.H{"scheme_id": schemeID})
}
