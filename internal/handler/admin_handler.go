package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/FezAmir/projectfinal-api/internal/service"
	"github.com/FezAmir/projectfinal-api/pkg/response"
)

// AdminHandler exposes admin-only read endpoints.
type AdminHandler struct {
	audit *service.AuditService
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(audit *service.AuditService) *AdminHandler {
	return &AdminHandler{audit: audit}
}

// ListLogs godoc
// @Summary List admin action logs
// @Tags Admin
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/logs [get]
func (h *AdminHandler) ListLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	logs, pagination, err := h.audit.List(c.Request.Context(), actorFromContext(c), page, size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}
