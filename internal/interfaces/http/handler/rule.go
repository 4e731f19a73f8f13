package handler

import (
	"net/http"

	appPricing "github.com/erp/pricing/internal/application/pricing"
	"github.com/erp/pricing/internal/domain/shared"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// RuleHandler manages price rule administration
type RuleHandler struct {
	BaseHandler
	ruleService *appPricing.RuleService
}

// NewRuleHandler creates a new rule handler
func NewRuleHandler(ruleService *appPricing.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

// ruleListRequest extends the common list parameters with rule filters
type ruleListRequest struct {
	dto.ListRequest
	IsActive       *bool  `form:"is_active"`
	Channel        string `form:"channel"`
	AdjustmentType string `form:"adjustment_type"`
}

// List handles GET /api/v1/rules
func (h *RuleHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req ruleListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}
	req.ListRequest = req.ListRequest.WithDefaults()

	filter := shared.Filter{
		Page:     req.Page,
		PageSize: req.PageSize,
		OrderBy:  req.OrderBy,
		OrderDir: req.OrderDir,
		Search:   req.Search,
		Filters:  make(map[string]interface{}),
	}
	if req.IsActive != nil {
		filter.Filters["is_active"] = *req.IsActive
	}
	if req.Channel != "" {
		filter.Filters["channel"] = req.Channel
	}
	if req.AdjustmentType != "" {
		filter.Filters["adjustment_type"] = req.AdjustmentType
	}

	result, err := h.ruleService.List(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// Get handles GET /api/v1/rules/:id
func (h *RuleHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	ruleID, ok := h.bindID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.Get(c.Request.Context(), tenantID, ruleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Create handles POST /api/v1/rules
func (h *RuleHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req appPricing.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// Update handles PUT /api/v1/rules/:id
func (h *RuleHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	ruleID, ok := h.bindID(c)
	if !ok {
		return
	}

	var req appPricing.RuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), tenantID, ruleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Delete handles DELETE /api/v1/rules/:id
func (h *RuleHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	ruleID, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), tenantID, ruleID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Toggle handles POST /api/v1/rules/:id/toggle
func (h *RuleHandler) Toggle(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	ruleID, ok := h.bindID(c)
	if !ok {
		return
	}

	rule, err := h.ruleService.Toggle(c.Request.Context(), tenantID, ruleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rule)
}

// Duplicate handles POST /api/v1/rules/:id/duplicate
func (h *RuleHandler) Duplicate(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	ruleID, ok := h.bindID(c)
	if !ok {
		return
	}

	var req appPricing.DuplicateRuleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rule, err := h.ruleService.Duplicate(c.Request.Context(), tenantID, ruleID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, rule)
}

// BulkToggle handles POST /api/v1/rules/bulk-toggle
func (h *RuleHandler) BulkToggle(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req appPricing.BulkToggleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	rules, err := h.ruleService.BulkToggle(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, rules)
}
