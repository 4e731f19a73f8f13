package router

import (
	"github.com/erp/pricing/internal/infrastructure/config"
	"github.com/erp/pricing/internal/infrastructure/logger"
	"github.com/erp/pricing/internal/interfaces/http/handler"
	"github.com/erp/pricing/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts
type Handlers struct {
	System    *handler.SystemHandler
	Price     *handler.PriceHandler
	Rule      *handler.RuleHandler
	Analytics *handler.AnalyticsHandler
	Webhook   *handler.WebhookHandler
}

// New builds the gin engine with the full middleware chain and all routes.
// Health probes sit outside the versioned API and skip tenant resolution.
func New(cfg *config.Config, log *zap.Logger, h Handlers) *gin.Engine {
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		_ = engine.SetTrustedProxies(cfg.HTTP.TrustedProxies)
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.TenantMiddleware())

	engine.GET("/health", h.System.Health)
	engine.GET("/ready", h.System.Ready)

	api := engine.Group("/api/v1")

	prices := api.Group("/prices")
	{
		prices.POST("/quote", h.Price.Quote)
	}

	rules := api.Group("/rules")
	{
		rules.GET("", h.Rule.List)
		rules.POST("", h.Rule.Create)
		rules.POST("/bulk-toggle", h.Rule.BulkToggle)
		rules.GET("/:id", h.Rule.Get)
		rules.PUT("/:id", h.Rule.Update)
		rules.DELETE("/:id", h.Rule.Delete)
		rules.POST("/:id/toggle", h.Rule.Toggle)
		rules.POST("/:id/duplicate", h.Rule.Duplicate)
	}

	analytics := api.Group("/analytics")
	{
		analytics.GET("/summary", h.Analytics.GetSummary)
	}

	webhooks := api.Group("/webhooks")
	{
		subs := webhooks.Group("/subscriptions")
		{
			subs.GET("", h.Webhook.List)
			subs.POST("", h.Webhook.Create)
			subs.GET("/:id", h.Webhook.Get)
			subs.PUT("/:id", h.Webhook.Update)
			subs.DELETE("/:id", h.Webhook.Delete)
			subs.POST("/:id/toggle", h.Webhook.Toggle)
			subs.POST("/:id/rotate-secret", h.Webhook.RotateSecret)
			subs.POST("/:id/test", h.Webhook.Test)
		}

		deliveries := webhooks.Group("/deliveries")
		{
			deliveries.GET("/dead", h.Webhook.ListDeadDeliveries)
			deliveries.POST("/:id/requeue", h.Webhook.RequeueDelivery)
		}
	}

	return engine
}
