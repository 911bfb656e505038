package handler

import (
	"net/http"
	"time"

	"github.com/GoPolymarket/namegate/internal/config"
	"github.com/GoPolymarket/namegate/internal/manager"
	"github.com/GoPolymarket/namegate/internal/middleware"
	"github.com/GoPolymarket/namegate/internal/pkg/logger"
	"github.com/GoPolymarket/namegate/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps wires the HTTP surface. Everything but Registrar may be nil.
type RouterDeps struct {
	Config      *config.Config
	Registrar   *service.Registrar
	Events      *service.EventService
	Idempotency middleware.IdempotencyStore
	Limiter     *middleware.CallerLimiter
	Contracts   middleware.ContractSignatureVerifier
}

func NewRouter(d RouterDeps) *gin.Engine {
	cfg := d.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	operator := d.Registrar.Operator()

	registration := NewRegistrationHandler(d.Registrar)
	query := NewQueryHandler(d.Registrar)
	admin := NewAdminHandler(d.Registrar)

	r := gin.New()
	r.Use(gin.Recovery())

	// Global Middleware
	r.Use(middleware.AccessLogMiddleware(logger.Component("http")))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.MetricsMiddleware())

	// Health Check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "namegate", "paused": d.Registrar.Paused()})
	})

	// Metrics Endpoint
	if cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(promhttp.Handler()))
	}

	v1 := r.Group("/v1")

	// Public reads
	v1.GET("/status", query.Status)
	v1.GET("/quotes/:name", registration.Quote)
	v1.GET("/quotes/:name/reserve", registration.QuoteReserve)
	v1.GET("/feeds", query.ListFeeds)
	v1.GET("/feeds/:currency", query.GetFeed)
	v1.GET("/agents/:agent", query.GetAgent)
	v1.GET("/agents/:agent/commissions/:currency", query.GetCommission)
	v1.GET("/reserve", query.Reserve)
	if d.Events != nil {
		events := NewEventHandler(d.Events)
		v1.GET("/events", events.List)
		v1.GET("/events/stream", events.Stream)
	}

	// Caller-authenticated writes
	caller := v1.Group("")
	auth := middleware.CallerAuth{Contracts: d.Contracts}
	if cfg.Auth.RequireSignature {
		window := time.Duration(cfg.Auth.MaxSkewSeconds) * time.Second
		if window <= 0 {
			window = 5 * time.Minute
		}
		// a timestamp is fresh for maxSkew either side of now
		auth.Replay = manager.NewReplayGuard(2 * window)
	}
	caller.Use(middleware.CallerMiddleware(cfg, operator, auth))
	if d.Limiter != nil {
		caller.Use(middleware.RateLimitMiddleware(d.Limiter))
	}
	if d.Idempotency != nil {
		caller.Use(middleware.IdempotencyMiddleware(d.Idempotency))
	}
	{
		caller.POST("/registrations", registration.Register)
		caller.POST("/registrations/reserve", registration.RegisterWithReserve)
	}

	ops := caller.Group("/admin")
	ops.Use(middleware.AdminMiddleware(cfg, operator))
	{
		ops.GET("/snapshot", admin.Snapshot)
		ops.POST("/feeds", admin.AddFeed)
		ops.PUT("/feeds/:currency", admin.UpdateFeed)
		ops.DELETE("/feeds/:currency", admin.RemoveFeed)
		ops.POST("/feeds/:currency/forward", admin.ForwardCollected)
		ops.POST("/agents", admin.AddAgent)
		ops.PUT("/agents/:agent", admin.UpdateAgent)
		ops.DELETE("/agents/:agent", admin.RemoveAgent)
		ops.POST("/reserve/deposit", admin.DepositReserve)
		ops.POST("/reserve/withdraw", admin.WithdrawReserve)
		ops.PUT("/reserve/approval", admin.ApproveRegistry)
		ops.POST("/reserve/forward", admin.ForwardCollectedReserve)
		ops.PUT("/reserve-price", admin.SetReservePrice)
		ops.PUT("/registry", admin.SetRegistry)
		ops.POST("/pause", admin.Pause)
		ops.POST("/unpause", admin.Unpause)
	}

	return r
}
