package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/balikbayani/portal-api/api/swagger"
	"github.com/balikbayani/portal-api/internal/handler"
	"github.com/balikbayani/portal-api/internal/middleware"
	"github.com/balikbayani/portal-api/internal/models"
	"github.com/balikbayani/portal-api/internal/repository"
	"github.com/balikbayani/portal-api/internal/service"
	"github.com/balikbayani/portal-api/pkg/cache"
	"github.com/balikbayani/portal-api/pkg/config"
	"github.com/balikbayani/portal-api/pkg/database"
	"github.com/balikbayani/portal-api/pkg/jobs"
	"github.com/balikbayani/portal-api/pkg/logger"
	corsmiddleware "github.com/balikbayani/portal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/balikbayani/portal-api/pkg/middleware/requestid"
	"github.com/balikbayani/portal-api/pkg/storage"
)

// @title BalikBayani Portal API
// @version 1.0.0
// @description Case management API for overseas-worker applications
// @BasePath /api/v1
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
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Notifications.UnreadCacheTTL, logr)
		}
	}

	fileStore, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	cleanupQueue := jobs.NewCleanupQueue(fileStore, jobs.CleanupConfig{Logger: logr})
	cleanupQueue.Start(context.Background())
	defer cleanupQueue.Stop()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	appRepo := repository.NewApplicationRepository(db)
	correctionRepo := repository.NewCorrectionRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	auditSvc := service.NewAuditService(auditRepo, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, cacheSvc, logr)
	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	applicationSvc := service.NewApplicationService(appRepo, cacheSvc, auditSvc, validate, logr)
	correctionSvc := service.NewCorrectionService(correctionRepo, appRepo, documentRepo, fileStore, cleanupQueue, notificationSvc, auditSvc, cacheSvc, validate, logr)
	documentSvc := service.NewDocumentService(documentRepo, appRepo, fileStore, signer, logr)
	exportSvc := service.NewExportService(appRepo, logr)
	reconcileSvc := service.NewReconcileService(appRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	applicationHandler := handler.NewApplicationHandler(applicationSvc)
	correctionHandler := handler.NewCorrectionHandler(correctionSvc)
	documentHandler := handler.NewDocumentHandler(documentSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
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

	v1 := r.Group(cfg.APIPrefix)
	{
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/files/*token", documentHandler.ServeFile)

		authed := v1.Group("")
		authed.Use(middleware.JWT(authSvc))
		{
			authed.GET("/auth/me", authHandler.Me)

			authed.GET("/applications", applicationHandler.List)
			authed.POST("/applications", applicationHandler.Create)
			if cfg.Exports.Enabled {
				authed.GET("/applications/export",
					middleware.RequireStaff(),
					middleware.Audit(auditSvc, models.AuditActionApplicationExport, "applications"),
					exportHandler.Export)
			}
			authed.GET("/applications/:id", applicationHandler.Get)
			authed.PUT("/applications/:id", middleware.RequireStaff(), applicationHandler.Update)
			authed.DELETE("/applications/:id",
				middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
				applicationHandler.Delete)

			authed.POST("/applications/:id/corrections", middleware.RequireStaff(), correctionHandler.Flag)
			authed.GET("/applications/:id/corrections", correctionHandler.List)
			authed.PATCH("/applications/:id/corrections", middleware.RequireStaff(), correctionHandler.Resolve)
			authed.POST("/applications/:id/corrections/submit",
				middleware.RequireRoles(models.RoleApplicant),
				correctionHandler.Submit)

			authed.GET("/applications/:id/documents", documentHandler.ListForApplication)
			authed.GET("/documents/:id/download", documentHandler.Download)

			authed.GET("/notifications", notificationHandler.List)
			authed.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			authed.PATCH("/notifications/:id/read", notificationHandler.MarkRead)

			authed.GET("/audit-logs",
				middleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
				auditHandler.List)
			authed.DELETE("/audit-logs",
				middleware.RequireRoles(models.RoleSuperAdmin),
				auditHandler.Purge)
		}
	}

	if cfg.Reconcile.Enabled {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.Reconcile.Schedule, func() {
			if _, err := reconcileSvc.Run(context.Background()); err != nil {
				logr.Sugar().Warnw("reconciliation sweep failed", "error", err)
			}
		}); err != nil {
			logr.Sugar().Fatalw("invalid reconcile schedule", "schedule", cfg.Reconcile.Schedule, "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
