package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/response"
)

// AdminSessionHandler handles admin HTTP requests for session housekeeping.
type AdminSessionHandler struct {
	service *application.PlanningService
}

// NewAdminSessionHandler creates a new AdminSessionHandler.
func NewAdminSessionHandler(service *application.PlanningService) *AdminSessionHandler {
	return &AdminSessionHandler{service: service}
}

// RegisterRoutes registers admin session routes.
func (h *AdminSessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/api/v1/admin")
	{
		admin.GET("/stats/sessions", h.SessionStats)
		admin.POST("/sessions/purge", h.PurgeExpired)
	}
}

// SessionStats handles GET /api/v1/admin/stats/sessions.
func (h *AdminSessionHandler) SessionStats(c *gin.Context) {
	stats, err := h.service.GetSessionStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}

// PurgeExpired handles POST /api/v1/admin/sessions/purge.
func (h *AdminSessionHandler) PurgeExpired(c *gin.Context) {
	n, err := h.service.PurgeExpired(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"purged": n})
}
