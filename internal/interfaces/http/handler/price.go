package handler

import (
	appPricing "github.com/erp/pricing/internal/application/pricing"
	"github.com/gin-gonic/gin"
)

// PriceHandler serves price lookups
type PriceHandler struct {
	BaseHandler
	priceService *appPricing.PriceService
}

// NewPriceHandler creates a new price handler
func NewPriceHandler(priceService *appPricing.PriceService) *PriceHandler {
	return &PriceHandler{priceService: priceService}
}

// Quote handles POST /api/v1/prices/quote
func (h *PriceHandler) Quote(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req appPricing.QuoteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.priceService.GetPrice(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
