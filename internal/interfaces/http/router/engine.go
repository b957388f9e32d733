package router

import (
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EngineConfig configures the admin API engine
type EngineConfig struct {
	ServiceName    string
	MaxBodySize    int64
	TrustedProxies []string
	Tracing        bool
	Profiling      bool
	Logger         *zap.Logger
}

// NewEngine builds a gin engine with the standard middleware stack:
// recovery, request logging, tracing, profiling labels and body limit.
func NewEngine(cfg EngineConfig) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	if cfg.Tracing {
		engine.Use(middleware.Tracing(cfg.ServiceName))
		engine.Use(middleware.SpanEnricher())
	}
	if cfg.Profiling {
		engine.Use(middleware.Profiling())
	}
	if cfg.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	return engine
}

// FulfillmentRoutes maps the admin endpoints under /fulfillment, each
// behind authn and its own scope.
func FulfillmentRoutes(h *handler.FulfillmentHandler, authn gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("fulfillment", "/fulfillment").Use(authn)

	g.POST("/inventory/resync", middleware.RequireScope(auth.ScopeInventoryResync), h.FlagFullResync)
	g.GET("/credentials/check", middleware.RequireScope(auth.ScopeCredentialCheck), h.CheckCredentials)
	g.POST("/rates", middleware.RequireScope(auth.ScopeRateQuote), h.EstimateRates)

	g.Group("jobs", "/jobs").
		Use(middleware.RequireScope(auth.ScopeJobs)).
		GET("", h.ListJobs).
		POST("/:name/run", h.RunJob)

	g.Group("orders", "/orders").
		Use(middleware.RequireScope(auth.ScopeOrders)).
		POST("/:increment_id/submit", h.SubmitOrder).
		POST("/:increment_id/cancel", h.CancelOrder)

	return g
}

// Mount wires the health endpoint and the versioned fulfillment API onto
// engine.
func Mount(engine *gin.Engine, system *handler.SystemHandler, fulfillment *handler.FulfillmentHandler, authn gin.HandlerFunc) {
	engine.GET("/health", system.Health)
	NewRouter(engine).
		Register(FulfillmentRoutes(fulfillment, authn)).
		Setup()
}
