package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FezAmir/projectfinal-api/internal/models"
	"github.com/FezAmir/projectfinal-api/internal/service"
	appErrors "github.com/FezAmir/projectfinal-api/pkg/errors"
	"github.com/FezAmir/projectfinal-api/pkg/response"
)

// CompetitionHandler exposes competition endpoints.
type CompetitionHandler struct {
	competitions *service.CompetitionService
}

// NewCompetitionHandler constructs CompetitionHandler.
func NewCompetitionHandler(competitions *service.CompetitionService) *CompetitionHandler {
	return &CompetitionHandler{competitions: competitions}
}

func competitionFilterFromQuery(c *gin.Context) models.CompetitionFilter {
	var filter models.CompetitionFilter
	filter.CategoryID = c.Query("categoryId")
	filter.Search = c.Query("search")
	filter.Status = models.CompetitionStatus(strings.ToUpper(c.Query("status")))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}

// List godoc
// @Summary List approved competitions
// @Tags Competitions
// @Produce json
// @Param categoryId query string false "Filter by category"
// @Param search query string false "Search in title and description"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /competitions [get]
func (h *CompetitionHandler) List(c *gin.Context) {
	competitions, pagination, err := h.competitions.ListPublic(c.Request.Context(), competitionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competitions, pagination)
}

// ListMine godoc
// @Summary List the acting organizer's competitions
// @Tags Competitions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /organizer/competitions [get]
func (h *CompetitionHandler) ListMine(c *gin.Context) {
	competitions, pagination, err := h.competitions.ListMine(c.Request.Context(), actorFromContext(c), competitionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competitions, pagination)
}

// ListAll godoc
// @Summary List competitions in every status
// @Tags Competitions
// @Produce json
// @Param status query string false "Filter by status"
// @Success 200 {object} response.Envelope
// @Router /admin/competitions [get]
func (h *CompetitionHandler) ListAll(c *gin.Context) {
	competitions, pagination, err := h.competitions.ListAll(c.Request.Context(), actorFromContext(c), competitionFilterFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competitions, pagination)
}

// Get godoc
// @Summary Competition detail
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id} [get]
func (h *CompetitionHandler) Get(c *gin.Context) {
	detail, err := h.competitions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create competition
// @Tags Competitions
// @Accept json
// @Produce json
// @Param payload body service.CompetitionRequest true "Competition payload"
// @Success 201 {object} response.Envelope
// @Router /competitions [post]
func (h *CompetitionHandler) Create(c *gin.Context) {
	var req service.CompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	competition, err := h.competitions.Create(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, competition)
}

// Update godoc
// @Summary Edit competition content
// @Tags Competitions
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body service.CompetitionRequest true "Competition payload"
// @Success 200 {object} response.Envelope
// @Router /competitions/{id} [put]
func (h *CompetitionHandler) Update(c *gin.Context) {
	var req service.CompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	competition, err := h.competitions.Edit(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, competition, nil)
}

// Delete godoc
// @Summary Delete competition with its participations and notifications
// @Tags Competitions
// @Produce json
// @Param id path string true "Competition ID"
// @Success 204
// @Router /competitions/{id} [delete]
func (h *CompetitionHandler) Delete(c *gin.Context) {
	if err := h.competitions.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Approve godoc
// @Summary Approve competition
// @Tags Moderation
// @Produce json
// @Param id path string true "Competition ID"
// @Success 204
// @Router /competitions/{id}/approve [post]
func (h *CompetitionHandler) Approve(c *gin.Context) {
	if err := h.competitions.Approve(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reject godoc
// @Summary Reject competition with a reason
// @Tags Moderation
// @Accept json
// @Produce json
// @Param id path string true "Competition ID"
// @Param payload body service.RejectCompetitionRequest true "Rejection payload"
// @Success 204
// @Router /competitions/{id}/reject [post]
func (h *CompetitionHandler) Reject(c *gin.Context) {
	var req service.RejectCompetitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.competitions.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
