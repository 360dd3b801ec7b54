package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FezAmir/projectfinal-api/internal/models"
	"github.com/FezAmir/projectfinal-api/internal/service"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
	"github.com/FezAmir/projectfinal-api/pkg/response"
)

// ParticipationHandler exposes participation endpoints.
type ParticipationHandler struct {
	participations *service.ParticipationService
	exports        *service.ExportService
}

// NewParticipationHandler constructs ParticipationHandler.
func NewParticipationHandler(participations *service.ParticipationService, exports *service.ExportService) *ParticipationHandler {
	return &ParticipationHandler{participations: participations, exports: exports}
}

// Join godoc
// @Summary Register for a competition
// @Tags Participation
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body service.JoinRequest true "Registration notes"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /competitions/{id}/join [post]
func (h *ParticipationHandler) Join(c *gin.Context) {
	var req service.JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	participation, err := h.participations.Join(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, participation)
}

// Cancel godoc
// @Summary Withdraw from a competition
// @Tags Participation
// @Produce json
// @Param id path string true "Competition ID"
// @Success 204
// @Router /competitions/{id}/join [delete]
func (h *ParticipationHandler) Cancel(c *gin.Context) {
	if err := h.participations.Cancel(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListMine godoc
// @Summary List the acting student's registrations
// @Tags Participation
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student/participations [get]
func (h *ParticipationHandler) ListMine(c *gin.Context) {
	participations, err := h.participations.ListMine(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participations, nil)
}

// ListByCompetition godoc
// @Summary List a competition's participants
// @Tags Participation
// @Produce json
// @Param id path string true "Competition ID"
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/participants [get]
func (h *ParticipationHandler) ListByCompetition(c *gin.Context) {
	status := models.ParticipationStatus(strings.ToUpper(c.Query("status")))
	participations, err := h.participations.ListByCompetition(c.Request.Context(), actorFromContext(c), c.Param("id"), status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, participations, nil)
}

// Approve godoc
// @Summary Approve one participant
// @Tags Moderation
// @Produce json
// @Param id path string true "Competition ID"
// @Param studentId path string true "Student ID"
// @Success 204
// @Router /competitions/{id}/participants/{studentId}/approve [post]
func (h *ParticipationHandler) Approve(c *gin.Context) {
	if err := h.participations.Approve(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("studentId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reject godoc
// @Summary Reject one participant with a reason
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param studentId path string true "Student ID"
// @Param payload body service.RejectParticipantRequest true "Rejection payload"
// @Success 204
// @Router /competitions/{id}/participants/{studentId}/reject [post]
func (h *ParticipationHandler) Reject(c *gin.Context) {
	var req service.RejectParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.participations.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Param("studentId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ApproveAll godoc
// @Summary Approve every pending participant
// @Tags Moderation
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id}/participants/approve-all [post]
func (h *ParticipationHandler) ApproveAll(c *gin.Context) {
	result, err := h.participations.ApproveAll(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// ExportRoster godoc
// @Summary Export a competition's roster as CSV or PDF
// @Tags Participation
// @Produce octet-stream
// @Param id path string true "Competition ID"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /competitions/{id}/participants/export [get]
func (h *ParticipationHandler) ExportRoster(c *gin.Context) {
	if h.exports == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "exports are disabled"))
		return
	}
	result, err := h.exports.Roster(c.Request.Context(), actorFromContext(c), c.Param("id"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
