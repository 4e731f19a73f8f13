package handler

import (
	"net/http"
	"time"

	appPricing "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves aggregated lookup statistics
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *appPricing.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *appPricing.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

type summaryQuery struct {
	From string `form:"from"`
	To   string `form:"to"`
}

// GetSummary handles GET /api/v1/analytics/summary
func (h *AnalyticsHandler) GetSummary(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var q summaryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}

	var from, to time.Time
	var err error
	if q.From != "" {
		if from, err = time.Parse(time.RFC3339, q.From); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "from must be RFC3339")
			return
		}
	}
	if q.To != "" {
		if to, err = time.Parse(time.RFC3339, q.To); err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "to must be RFC3339")
			return
		}
	}

	summary, err := h.analyticsService.GetSummary(c.Request.Context(), tenantID, from, to)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}
