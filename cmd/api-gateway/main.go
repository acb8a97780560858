package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/uni-timesheet-api/api/swagger"
	"github.com/noah-isme/uni-timesheet-api/internal/handler"
	"github.com/noah-isme/uni-timesheet-api/internal/middleware"
	"github.com/noah-isme/uni-timesheet-api/internal/models"
	"github.com/noah-isme/uni-timesheet-api/internal/repository"
	"github.com/noah-isme/uni-timesheet-api/internal/service"
	"github.com/noah-isme/uni-timesheet-api/pkg/cache"
	"github.com/noah-isme/uni-timesheet-api/pkg/config"
	"github.com/noah-isme/uni-timesheet-api/pkg/database"
	"github.com/noah-isme/uni-timesheet-api/pkg/jobs"
	"github.com/noah-isme/uni-timesheet-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uni-timesheet-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uni-timesheet-api/pkg/middleware/requestid"
	"github.com/noah-isme/uni-timesheet-api/pkg/storage"
)

// @title University Timesheet API
// @version 1.0.0
// @description Casual academic timesheet approval and pay calculation service
// @BasePath /api/v1
// @schemes http

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
		logr.Sugar().Warnw("redis unavailable, pending queue caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	timesheetRepo := repository.NewTimesheetRepository(db)
	approvalRepo := repository.NewApprovalRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	exportRepo := repository.NewExportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr).WithMetrics(metricsSvc)
	defer cacheRepo.Close() //nolint:errcheck

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "uni-timesheet-api",
	})

	table := service.NewTransitionTable()
	calculator := service.NewPayCalculator(cfg.Payroll, timesheetRepo, logr)
	approvalSvc := service.NewApprovalService(table, timesheetRepo, approvalRepo, courseRepo, logr,
		service.WithApprovalCache(cacheRepo, cfg.Approvals.PendingCacheTTL),
		service.WithTransitionObserver(metricsSvc),
	)
	timesheetSvc := service.NewTimesheetService(timesheetRepo, calculator, approvalSvc, table, courseRepo, userRepo, logr)

	exportStorage, err := storage.NewLocalStorage(cfg.Export.Dir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init export storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Export.SigningSecret, cfg.Export.ResultTTL)
	payrollExporter := service.NewPayrollExportService(timesheetRepo, exportStorage, signer, service.PayrollExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Export.ResultTTL,
	}, logr, nil, nil)

	exportWorker := service.NewExportWorker(exportRepo, payrollExporter, cfg.Export.MaxRetries, logr)
	exportQueue := jobs.NewQueue("payroll-exports", exportWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Export.Workers,
		MaxRetries: cfg.Export.MaxRetries,
		Logger:     logr,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	exportQueue.Start(ctx)
	defer exportQueue.Stop()

	exportJobSvc := service.NewExportJobService(exportRepo, exportQueue, payrollExporter, userRepo, logr, service.ExportJobConfig{
		ResultTTL:       cfg.Export.ResultTTL,
		CleanupInterval: cfg.Export.CleanupInterval,
		MaxRetries:      cfg.Export.MaxRetries,
	})
	exportJobSvc.RecoverPendingJobs(ctx)
	exportJobSvc.StartCleanup(ctx)

	authHandler := handler.NewAuthHandler(authSvc)
	timesheetHandler := handler.NewTimesheetHandler(timesheetSvc)
	approvalHandler := handler.NewApprovalHandler(approvalSvc)
	payrollHandler := handler.NewPayrollHandler(exportJobSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	timesheets := api.Group("/timesheets", middleware.JWT(authSvc))
	{
		timesheets.POST("", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), timesheetHandler.Create)
		timesheets.GET("", timesheetHandler.List)
		timesheets.GET("/config", timesheetHandler.Config)
		timesheets.POST("/quote", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), timesheetHandler.Quote)
		timesheets.GET("/:id", timesheetHandler.Get)
		timesheets.PUT("/:id", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), timesheetHandler.Update)
		timesheets.DELETE("/:id", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), timesheetHandler.Delete)
		timesheets.POST("/:id/actions", approvalHandler.Act)
		timesheets.GET("/:id/actions", approvalHandler.ValidActions)
		timesheets.GET("/:id/history", approvalHandler.History)
	}

	approvals := api.Group("/approvals", middleware.JWT(authSvc))
	{
		approvals.GET("/pending", approvalHandler.Pending)
	}

	payroll := api.Group("/payroll")
	{
		payroll.POST("/exports", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), payrollHandler.CreateExport)
		payroll.GET("/exports/:id", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), payrollHandler.ExportStatus)
		payroll.GET("/export/:token", payrollHandler.Download)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
