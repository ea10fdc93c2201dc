package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/anonimouzmkt/calendar-server/internal/client/calendar"
	"github.com/anonimouzmkt/calendar-server/internal/config"
	cronrunner "github.com/anonimouzmkt/calendar-server/internal/cron"
	"github.com/anonimouzmkt/calendar-server/internal/db"
	"github.com/anonimouzmkt/calendar-server/internal/handler"
	"github.com/anonimouzmkt/calendar-server/internal/logger"
	gormrepository "github.com/anonimouzmkt/calendar-server/internal/repository/gorm"
	syncer "github.com/anonimouzmkt/calendar-server/internal/sync"

	_ "github.com/anonimouzmkt/calendar-server/docs"
)

func main() {
	cfgPath := os.Getenv("CAL_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("CAL_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.Ping(dbConn); err != nil {
		logger.Fatal("db unreachable", zap.Error(err))
	}
	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	calendarHTTP := &http.Client{Timeout: cfg.Calendar.Timeout}
	calendarClient := calendar.NewClient(calendarHTTP, cfg.Calendar.BaseURL)
	tokenHTTP := &http.Client{Timeout: cfg.OAuth.Timeout}
	tokenClient := calendar.NewTokenClient(tokenHTTP, cfg.OAuth.TokenURL)
	store := gormrepository.New(dbConn.Gorm)

	metrics := &syncer.LogMetrics{Logger: logger}
	limiter := syncer.NewRateLimiter(cfg.Sync.RateLimitPerMin, cfg.Sync.RateLimitWindow)
	limiter.Metrics = metrics
	retry := syncer.NewExecutor(cfg.Sync.RetryMaxAttempts, cfg.Sync.RetryBaseDelay, logger)
	tokens := syncer.NewTokenManager(store, tokenClient, retry, cfg.Sync.TokenRefreshSkew, logger)
	engine := &syncer.Engine{
		Store:            store,
		Gateway:          calendarClient,
		Tokens:           tokens,
		Limiter:          limiter,
		Retry:            retry,
		Metrics:          metrics,
		Logger:           logger,
		PullWindowPast:   cfg.Sync.PullWindowPast,
		PullWindowFuture: cfg.Sync.PullWindowFuture,
		SweepEvery:       cfg.Sync.SweepEveryCycles,
	}
	orchestrator := &syncer.Orchestrator{
		Store:         store,
		Engine:        engine,
		Logger:        logger,
		Metrics:       metrics,
		BatchSize:     cfg.Sync.BatchSize,
		ShutdownGrace: cfg.Sync.ShutdownGrace,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Sync: orchestrator}
	healthHandler.Register(router)
	syncHandler := &handler.SyncHandler{
		Orchestrator: orchestrator,
		Store:        store,
		Logger:       logger,
	}
	syncHandler.Register(router)
	integrationHandler := &handler.IntegrationHandler{Store: store}
	integrationHandler.Register(router)
	appointmentHandler := &handler.AppointmentHandler{Store: store}
	appointmentHandler.Register(router)
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add(cfg.Cron.SyncSpec, func(jobCtx context.Context) {
			result, err := orchestrator.RunCycle(jobCtx)
			if err != nil {
				logger.Warn("scheduled sync cycle failed", zap.Error(err))
				return
			}
			if result.Skipped {
				logger.Info("scheduled sync cycle skipped, previous still in flight")
			}
		}); err != nil {
			logger.Fatal("register sync cron failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
