package handler

import (
	"net/http"

	appWebhook "github.com/erp/pricing/internal/application/webhook"
	"github.com/erp/pricing/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// WebhookHandler manages webhook subscriptions and their delivery queue
type WebhookHandler struct {
	BaseHandler
	subscriptionService *appWebhook.SubscriptionService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(subscriptionService *appWebhook.SubscriptionService) *WebhookHandler {
	return &WebhookHandler{subscriptionService: subscriptionService}
}

// List handles GET /api/v1/webhooks/subscriptions
func (h *WebhookHandler) List(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	subs, err := h.subscriptionService.List(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, subs)
}

// Get handles GET /api/v1/webhooks/subscriptions/:id
func (h *WebhookHandler) Get(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Get(c.Request.Context(), tenantID, subID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Create handles POST /api/v1/webhooks/subscriptions.
// The response includes the signing secret; it is not returned again.
func (h *WebhookHandler) Create(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req appWebhook.SubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.Create(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, sub)
}

// Update handles PUT /api/v1/webhooks/subscriptions/:id
func (h *WebhookHandler) Update(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	var req appWebhook.SubscriptionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	sub, err := h.subscriptionService.Update(c.Request.Context(), tenantID, subID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Delete handles DELETE /api/v1/webhooks/subscriptions/:id
func (h *WebhookHandler) Delete(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	if err := h.subscriptionService.Delete(c.Request.Context(), tenantID, subID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Toggle handles POST /api/v1/webhooks/subscriptions/:id/toggle
func (h *WebhookHandler) Toggle(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.Toggle(c.Request.Context(), tenantID, subID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// RotateSecret handles POST /api/v1/webhooks/subscriptions/:id/rotate-secret.
// The response includes the new signing secret.
func (h *WebhookHandler) RotateSecret(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.RotateSecret(c.Request.Context(), tenantID, subID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sub)
}

// Test handles POST /api/v1/webhooks/subscriptions/:id/test. A failed
// attempt is still a 200; the body carries the outcome.
func (h *WebhookHandler) Test(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	subID, ok := h.bindID(c)
	if !ok {
		return
	}

	result, err := h.subscriptionService.SendTest(c.Request.Context(), tenantID, subID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListDeadDeliveries handles GET /api/v1/webhooks/deliveries/dead
func (h *WebhookHandler) ListDeadDeliveries(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, err.Error())
		return
	}
	req = req.WithDefaults()

	result, err := h.subscriptionService.ListDeadDeliveries(c.Request.Context(), tenantID, req.Page, req.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// RequeueDelivery handles POST /api/v1/webhooks/deliveries/:id/requeue
func (h *WebhookHandler) RequeueDelivery(c *gin.Context) {
	tenantID, ok := h.tenant(c)
	if !ok {
		return
	}
	deliveryID, ok := h.bindID(c)
	if !ok {
		return
	}

	delivery, err := h.subscriptionService.RequeueDelivery(c.Request.Context(), tenantID, deliveryID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, delivery)
}
