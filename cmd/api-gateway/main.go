package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/madrasoft/sms-insights-api/api/swagger"
	"github.com/madrasoft/sms-insights-api/internal/handler"
	"github.com/madrasoft/sms-insights-api/internal/middleware"
	"github.com/madrasoft/sms-insights-api/internal/repository"
	"github.com/madrasoft/sms-insights-api/internal/service"
	"github.com/madrasoft/sms-insights-api/pkg/cache"
	"github.com/madrasoft/sms-insights-api/pkg/config"
	"github.com/madrasoft/sms-insights-api/pkg/database"
	"github.com/madrasoft/sms-insights-api/pkg/export"
	"github.com/madrasoft/sms-insights-api/pkg/jobs"
	"github.com/madrasoft/sms-insights-api/pkg/logger"
	corsmiddleware "github.com/madrasoft/sms-insights-api/pkg/middleware/cors"
	reqidmiddleware "github.com/madrasoft/sms-insights-api/pkg/middleware/requestid"
	"github.com/madrasoft/sms-insights-api/pkg/storage"
)

// @title SMS Insights API
// @version 1.0.0
// @description Grade aggregation and class-comparison insights for the school management platform
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	metricsService := service.NewMetricsService()
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheService := service.NewCacheService(cacheRepo, metricsService, cfg.Insights.CacheTTL, logr, cfg.Insights.CacheEnabled)

	userRepo := repository.NewUserRepository(db)
	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	sheetRepo := repository.NewClassSheetRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	assessmentRepo := repository.NewAssessmentValueRepository(db)

	comparisonService := service.NewComparisonService(
		classRepo,
		enrollmentRepo,
		sheetRepo,
		courseRepo,
		assessmentRepo,
		cacheService,
		metricsService,
		validate,
		logr,
	)

	authHandler := handler.NewAuthHandler(authService)
	insightsHandler := handler.NewInsightsHandler(comparisonService, cacheService)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	var (
		reportService *service.ReportService
		reportQueue   *jobs.Queue
	)
	if cfg.Reports.Enabled {
		fileStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
		if err != nil {
			logr.Sugar().Fatalw("failed to init report storage", "error", err)
		}
		signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
		exportService := service.NewExportService(
			comparisonService,
			fileStore,
			signer,
			service.ExportConfig{APIPrefix: cfg.APIPrefix, ResultTTL: cfg.Reports.SignedURLTTL},
			logr,
			export.NewCSVExporter(),
			export.NewPDFExporter(),
		)

		reportRepo := repository.NewReportRepository(db)
		worker := service.NewReportWorker(reportRepo, exportService, cfg.Reports.WorkerRetries, logr)
		reportQueue = jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
			Logger:     logr,
		})
		reportQueue.Start(ctx)
		defer reportQueue.Stop()

		reportService = service.NewReportService(reportRepo, reportQueue, exportService, logr, service.ReportServiceConfig{
			ResultTTL:  cfg.Reports.SignedURLTTL,
			MaxRetries: cfg.Reports.WorkerRetries,
		})
		reportService.StartCleanup(ctx)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "database"})
			return
		}
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "component": "redis"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))
	protected.GET("/auth/me", authHandler.Me)

	insights := protected.Group("/insights")
	insights.GET("/classes-comparison", insightsHandler.ClassesComparison)
	insights.DELETE("/cache", insightsHandler.FlushCache)

	if reportService != nil {
		reportHandler := handler.NewReportHandler(reportService)
		insights.POST("/reports", reportHandler.Create)
		insights.GET("/reports", reportHandler.List)
		insights.GET("/reports/:id", reportHandler.Status)
		insights.GET("/reports/download/:token", reportHandler.Download)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
