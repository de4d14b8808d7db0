package handler

import (
	"errors"
	"net/http"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/application"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/apperror"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/common/response"
	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/summary"
	"github.com/gin-gonic/gin"
)

// SummaryHandler handles HTTP requests for route-set summaries.
type SummaryHandler struct {
	service *application.SummaryService
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(service *application.SummaryService) *SummaryHandler {
	return &SummaryHandler{service: service}
}

// RegisterRoutes registers summary routes.
func (h *SummaryHandler) RegisterRoutes(r *gin.RouterGroup) {
	plans := r.Group("/api/v1/plans")
	{
		plans.GET("/:id/summary", h.GetSummary)
		plans.POST("/:id/summary", h.Summarize)
	}
}

type summarizeRequest struct {
	Force bool `json:"force"`
}

// summaryDTO reports a summary and whether this call produced it.
type summaryDTO struct {
	*summary.Result
	Generated bool `json:"generated"`
}

// GetSummary handles GET /api/v1/plans/:id/summary.
func (h *SummaryHandler) GetSummary(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	result, err := h.service.GetSummary(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	if result == nil {
		response.Error(c, apperror.NewNotFoundError("Summary", id.String()))
		return
	}

	response.Success(c, summaryDTO{Result: result})
}

// Summarize handles POST /api/v1/plans/:id/summary. An unchanged route set
// returns the stored summary without calling out unless force is set.
func (h *SummaryHandler) Summarize(c *gin.Context) {
	id, ok := parseSessionID(c)
	if !ok {
		return
	}

	var req summarizeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}
	if c.Query("force") == "true" {
		req.Force = true
	}

	ctx := c.Request.Context()
	result, err := h.service.SummarizeSession(ctx, id, req.Force)
	if errors.Is(err, summary.ErrUnchanged) {
		stored, getErr := h.service.GetSummary(ctx, id)
		if getErr != nil {
			writeError(c, getErr)
			return
		}
		if stored == nil {
			response.Fail(c, http.StatusConflict, "a summary for this route set is already being generated")
			return
		}
		response.Success(c, summaryDTO{Result: stored})
		return
	}
	if err != nil {
		if _, known := statusFor(err); known {
			writeError(c, err)
			return
		}
		var (
			notFound   *apperror.NotFoundError
			validation *apperror.ValidationError
			conflict   *apperror.ConflictError
		)
		if errors.As(err, &notFound) || errors.As(err, &validation) || errors.As(err, &conflict) {
			response.Error(c, err)
			return
		}
		response.Fail(c, http.StatusBadGateway, "summary service unavailable: "+err.Error())
		return
	}

	response.Success(c, summaryDTO{Result: result, Generated: true})
}
