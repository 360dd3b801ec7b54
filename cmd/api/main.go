package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/FezAmir/projectfinal-api/api/swagger"
	"github.com/FezAmir/projectfinal-api/internal/handler"
	"github.com/FezAmir/projectfinal-api/internal/middleware"
	"github.com/FezAmir/projectfinal-api/internal/models"
	"github.com/FezAmir/projectfinal-api/internal/repository"
	"github.com/FezAmir/projectfinal-api/internal/service"
	"github.com/FezAmir/projectfinal-api/pkg/cache"
	"github.com/FezAmir/projectfinal-api/pkg/config"
	"github.com/FezAmir/projectfinal-api/pkg/database"
	"github.com/FezAmir/projectfinal-api/pkg/export"
	"github.com/FezAmir/projectfinal-api/pkg/logger"
	corsmiddleware "github.com/FezAmir/projectfinal-api/pkg/middleware/cors"
	reqidmiddleware "github.com/FezAmir/projectfinal-api/pkg/middleware/requestid"
)

// @title Competition Portal API
// @version 1.0.0
// @description REST API for the student competition portal
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
		logr.Sugar().Fatalw("failed to connect database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Cache is an optimization. Listings fall back to the database.
		logr.Sugar().Warnw("redis unavailable, listing cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	competitionRepo := repository.NewCompetitionRepository(db)
	participationRepo := repository.NewParticipationRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	adminLogRepo := repository.NewAdminLogRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, adminLogRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	categorySvc := service.NewCategoryService(categoryRepo)
	competitionSvc := service.NewCompetitionService(
		competitionRepo, categoryRepo, notificationRepo, adminLogRepo,
		cacheRepo, cfg.Competitions.ListingCacheTTL, validate, logr, metricsSvc,
	)
	participationSvc := service.NewParticipationService(
		participationRepo, competitionRepo, notificationRepo, adminLogRepo,
		validate, logr, metricsSvc,
	)
	notificationSvc := service.NewNotificationService(notificationRepo, logr)
	auditSvc := service.NewAuditService(adminLogRepo, logr)
	exportSvc := service.NewExportService(
		participationSvc, export.NewCSVExporter(), export.NewPDFExporter(),
		cfg.Exports.MaxRows, logr,
	)

	authHandler := handler.NewAuthHandler(authSvc, userSvc)
	competitionHandler := handler.NewCompetitionHandler(competitionSvc)
	participationHandler := handler.NewParticipationHandler(participationSvc, exportSvc)
	categoryHandler := handler.NewCategoryHandler(categorySvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	adminHandler := handler.NewAdminHandler(auditSvc)
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

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.GET("/me", authHandler.Me)
		authed.PUT("/me", authHandler.UpdateProfile)
		authed.PUT("/password", authHandler.ChangePassword)
	}

	api.GET("/categories", categoryHandler.List)

	competitions := api.Group("/competitions")
	{
		competitions.GET("", competitionHandler.List)
		competitions.GET("/:id", competitionHandler.Get)

		creators := competitions.Group("", middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleAdmin, models.RoleOrganizer))
		creators.POST("", competitionHandler.Create)
		creators.PUT("/:id", competitionHandler.Update)
		creators.DELETE("/:id", competitionHandler.Delete)
		creators.GET("/:id/participants", participationHandler.ListByCompetition)
		creators.POST("/:id/participants/:studentId/approve", participationHandler.Approve)
		creators.POST("/:id/participants/:studentId/reject", participationHandler.Reject)
		creators.POST("/:id/participants/approve-all", participationHandler.ApproveAll)
		if cfg.Exports.Enabled {
			creators.GET("/:id/participants/export", participationHandler.ExportRoster)
		}

		students := competitions.Group("", middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleStudent))
		students.POST("/:id/join", participationHandler.Join)
		students.DELETE("/:id/join", participationHandler.Cancel)

		moderators := competitions.Group("", middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleAdmin))
		moderators.POST("/:id/approve", competitionHandler.Approve)
		moderators.POST("/:id/reject", competitionHandler.Reject)
	}

	organizer := api.Group("/organizer", middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleOrganizer))
	{
		organizer.GET("/competitions", competitionHandler.ListMine)
	}

	student := api.Group("/student", middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleStudent))
	{
		student.GET("/participations", participationHandler.ListMine)
	}

	admin := api.Group("/admin", middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin))
	{
		admin.GET("/competitions", competitionHandler.ListAll)
		admin.GET("/logs", adminHandler.ListLogs)
	}

	notifications := api.Group("/notifications", middleware.JWT(authSvc))
	{
		notifications.GET("", notificationHandler.List)
		notifications.DELETE("", notificationHandler.Clear)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
