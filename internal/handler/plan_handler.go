package handler

import (
	"math"
	"strconv"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/response"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PlanHandler handles HTTP requests for planning sessions.
type PlanHandler struct {
	service *application.PlanningService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(service *application.PlanningService) *PlanHandler {
	return &PlanHandler{service: service}
}

// RegisterRoutes registers all planning routes on the given router group.
func (h *PlanHandler) RegisterRoutes(r *gin.RouterGroup) {
	plans := r.Group("/api/v1/plans")
	{
		plans.POST("", h.CreatePlan)
		plans.GET("/:id", h.GetPlan)
		plans.POST("/:id/routes", h.Refetch)
		plans.POST("/:id/select", h.SelectRoute)
		plans.POST("/:id/toggle-all", h.ToggleShowAll)
		plans.POST("/:id/apply-suggestion", h.ApplySuggestion)
		plans.GET("/:id/routes/:index/markers", h.Markers)
		plans.GET("/:id/geojson", h.GeoJSON)
	}

	r.GET("/api/v1/snap", h.Snap)
}

type selectRouteRequest struct {
	Index *int `json:"index" binding:"required"`
}

// CreatePlan handles POST /api/v1/plans.
func (h *PlanHandler) CreatePlan(c *gin.Context) {
	var req application.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.CreatePlan(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, result)
}

// GetPlan handles GET /api/v1/plans/:id.
func (h *PlanHandler) GetPlan(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.service.GetPlan(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Refetch handles POST /api/v1/plans/:id/routes.
func (h *PlanHandler) Refetch(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req application.PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.Refetch(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// SelectRoute handles POST /api/v1/plans/:id/select.
func (h *PlanHandler) SelectRoute(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req selectRouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.SelectRoute(c.Request.Context(), id, *req.Index)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ToggleShowAll handles POST /api/v1/plans/:id/toggle-all.
func (h *PlanHandler) ToggleShowAll(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.service.ToggleShowAll(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// ApplySuggestion handles POST /api/v1/plans/:id/apply-suggestion.
func (h *PlanHandler) ApplySuggestion(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.service.ApplySuggestion(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Markers handles GET /api/v1/plans/:id/routes/:index/markers.
func (h *PlanHandler) Markers(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.BadRequest(c, "invalid route index")
		return
	}

	spacing, err := strconv.ParseFloat(c.DefaultQuery("spacing", "0"), 64)
	if err != nil || spacing < 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		response.BadRequest(c, "invalid spacing")
		return
	}
	maxMarkers, err := strconv.Atoi(c.DefaultQuery("max", "0"))
	if err != nil || maxMarkers < 0 {
		response.BadRequest(c, "invalid max")
		return
	}

	result, err := h.service.Markers(c.Request.Context(), id, index, spacing, maxMarkers)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

// Snap handles GET /api/v1/snap?lat=&lng=.
func (h *PlanHandler) Snap(c *gin.Context) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lat")
		return
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		response.BadRequest(c, "invalid lng")
		return
	}

	result, err := h.service.Snap(c.Request.Context(), route.Coordinate{Lat: lat, Lng: lng})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, result)
}

func parseSessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session ID")
		return uuid.Nil, false
	}
	return id, true
}
