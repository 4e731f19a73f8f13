package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine() *gin.Engine {
	return New(&config.Config{}, zap.NewNop(), Handlers{
		System:    handler.NewSystemHandler(nil, "test"),
		Price:     handler.NewPriceHandler(nil),
		Rule:      handler.NewRuleHandler(nil),
		Analytics: handler.NewAnalyticsHandler(nil),
		Webhook:   handler.NewWebhookHandler(nil),
	})
}

func TestRouter_HealthWithoutTenant(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestRouter_APIRequiresTenant(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rules", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_RequestIDHeader(t *testing.T) {
	engine := newTestEngine()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
