package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	fulfillmentapp "github.com/erp/fulfillment/internal/application/fulfillment"
	"github.com/erp/fulfillment/internal/domain/fulfillment"
	"github.com/erp/fulfillment/internal/infrastructure/auth"
	"github.com/erp/fulfillment/internal/infrastructure/cache"
	"github.com/erp/fulfillment/internal/infrastructure/config"
	"github.com/erp/fulfillment/internal/infrastructure/logger"
	"github.com/erp/fulfillment/internal/infrastructure/mcf"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/internal/infrastructure/scheduler"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/erp/fulfillment/internal/interfaces/http/handler"
	"github.com/erp/fulfillment/internal/interfaces/http/middleware"
	"github.com/erp/fulfillment/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	var (
		issueToken string
		scopes     string
	)
	flag.StringVar(&issueToken, "issue-token", "", "Print an admin API token for the given subject and exit")
	flag.StringVar(&scopes, "scopes", "", "Comma-separated scopes for -issue-token (default: all)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.ConfigFor(cfg.App.Env, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output), cfg.App.Name)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	jwtService := auth.NewJWTService(cfg.JWT)
	if issueToken != "" {
		if err := printToken(jwtService, issueToken, scopes); err != nil {
			log.Fatal("Failed to issue token", zap.Error(err))
		}
		return
	}

	log.Info("Starting fulfillment service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Bool("simulate", cfg.MCF.Simulate),
	)

	ctx := context.Background()

	// Telemetry
	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	mp, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	lp, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilerAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
		BasicAuthUser:   cfg.Telemetry.ProfilerAuthUser,
		BasicAuthToken:  cfg.Telemetry.ProfilerAuthToken,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tp.EnableSpanProfiles()
	}
	defer shutdownTelemetry(log, tp, mp, lp, profiler)

	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	log = lp.Bridge(log, level)

	metrics, err := telemetry.NewReconciliationMetrics(mp.Meter("fulfillment"))
	if err != nil {
		log.Fatal("Failed to create reconciliation metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, cfg.Log.Level, 200*time.Millisecond)
	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to create sqlite schema", zap.Error(err))
		}
	}
	dbSystem := "postgresql"
	if db.Driver == "sqlite" {
		dbSystem = "sqlite"
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		DBSystem:   dbSystem,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Warn("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver))

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	stockRepo := persistence.NewGormStockRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	scopeRepo := persistence.NewGormStoreScopeRepository(db.DB, cfg.MCF.EnabledStoreIDs)
	txScope := persistence.NewGormTransactionScope(db.DB)
	notifier := persistence.NewGormNotificationRepository(db.DB)

	cursors, closeCursors := cache.NewCursorStoreFactory(
		cfg.Cursor, cfg.Redis, persistence.NewGormCursorStore(db.DB), log,
	).CreateStore()
	defer func() {
		if err := closeCursors(); err != nil {
			log.Error("Error closing cursor store", zap.Error(err))
		}
	}()

	// Provider client
	client, err := newRemoteClient(ctx, cfg.MCF, log)
	if err != nil {
		log.Fatal("Failed to create fulfillment client", zap.Error(err))
	}
	gateway := fulfillmentapp.NewRemoteGateway(client, cfg.MCF.SellerID, log)
	gateway.SetMetrics(metrics)

	// Application services
	opts := fulfillmentapp.Options{
		InventoryPageSize:  cfg.MCF.InventoryPageSize,
		OrderPageSize:      cfg.MCF.OrderPageSize,
		ResubmitBatchSize:  cfg.MCF.ResubmitBatchSize,
		MaxAttempts:        cfg.MCF.MaxAttempts,
		LeaseTTL:           cfg.MCF.LeaseTTL,
		PackingSlipComment: cfg.MCF.PackingSlipComment,
		ShipConfirmation:   cfg.MCF.ShipConfirmation,
	}
	inventorySvc := fulfillmentapp.NewInventoryService(productRepo, stockRepo, cursors, gateway, notifier, opts, log)
	inventorySvc.SetMetrics(metrics)
	orderStatusSvc := fulfillmentapp.NewOrderStatusService(orderRepo, scopeRepo, cursors, txScope, gateway, notifier, opts, log)
	orderStatusSvc.SetMetrics(metrics)
	resubmissionSvc := fulfillmentapp.NewResubmissionService(orderRepo, scopeRepo, txScope, gateway, notifier, opts, log)
	resubmissionSvc.SetMetrics(metrics)
	submissionSvc := fulfillmentapp.NewSubmissionService(orderRepo, scopeRepo, gateway, notifier, opts, log)
	submissionSvc.SetMetrics(metrics)
	adminSvc := fulfillmentapp.NewAdminService(inventorySvc, gateway, log)
	rateSvc := fulfillmentapp.NewRateService(gateway, log)

	// Scheduler
	sched, err := scheduler.NewScheduler(scheduler.ConfigFrom(cfg.Scheduler), log)
	if err != nil {
		log.Fatal("Failed to create scheduler", zap.Error(err))
	}
	sched.SetMetrics(metrics)
	for _, job := range scheduler.ReconciliationJobs(cfg.Scheduler, scheduler.Services{
		Inventory:    inventorySvc,
		OrderStatus:  orderStatusSvc,
		Resubmission: resubmissionSvc,
	}) {
		if err := sched.Register(job); err != nil {
			log.Fatal("Failed to register job", zap.String("job", job.Name), zap.Error(err))
		}
	}
	if err := sched.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Tracing:        cfg.Telemetry.Enabled,
		Profiling:      profiler.IsEnabled(),
		Logger:         log,
	})
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.Logger = log
	router.Mount(engine,
		handler.NewSystemHandler(db, cfg.App.Name, version),
		handler.NewFulfillmentHandler(adminSvc, rateSvc, sched).WithOrders(submissionSvc),
		middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
	)

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	// running passes finish before the store handles close
	if err := sched.Stop(shutdownCtx); err != nil {
		log.Error("Scheduler did not stop cleanly", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func newRemoteClient(ctx context.Context, cfg config.MCFConfig, log *zap.Logger) (fulfillment.RemoteClient, error) {
	if cfg.Simulate {
		log.Warn("Using simulated fulfillment provider")
		return mcf.NewSimulatedClient(log), nil
	}
	client, err := mcf.NewClient(ctx, cfg, log, mcf.WithUserAgent("mcf-fulfillment/"+version))
	if err != nil {
		return nil, err
	}
	return client, nil
}

func shutdownTelemetry(
	log *zap.Logger,
	tp *telemetry.TracerProvider,
	mp *telemetry.MeterProvider,
	lp *telemetry.LoggerProvider,
	profiler *telemetry.Profiler,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := mp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := lp.Shutdown(ctx); err != nil {
		log.Error("Error shutting down logger provider", zap.Error(err))
	}
}

func printToken(svc *auth.JWTService, subject, scopes string) error {
	var granted []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}
	token, expiresAt, err := svc.IssueToken(subject, granted...)
	if err != nil {
		return err
	}
	fmt.Println(token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
	return nil
}
