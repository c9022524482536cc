package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/rackcentre/incident-logger/docs"
	"github.com/rackcentre/incident-logger/internal/api/handler"
	"github.com/rackcentre/incident-logger/internal/api/middleware"
	"github.com/rackcentre/incident-logger/internal/core/service"
	"github.com/rackcentre/incident-logger/internal/infrastructure/config"
	mongodb "github.com/rackcentre/incident-logger/internal/infrastructure/db/mongo"
	redisdb "github.com/rackcentre/incident-logger/internal/infrastructure/db/redis"
	"github.com/rackcentre/incident-logger/internal/infrastructure/storage"
)

// NewRouter builds and returns the Echo instance with all routes registered.
// rdb may be nil; the stats cache is simply skipped then.
func NewRouter(db *mongo.Database, rdb *redis.Client, files *storage.DiskStore, cfg *config.Config, log zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("incident_logger"))

	// --- Dependencies ---
	userRepo := mongodb.NewUserRepository(db)
	incidentRepo := mongodb.NewIncidentRepository(db)

	var statsCache service.StatsCache
	if rdb != nil {
		statsCache = redisdb.NewStatsCache(rdb, cfg.Redis.StatsTTL)
	}

	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	authService := service.NewAuthService(userRepo, tokenService, files, log)
	incidentService := service.NewIncidentService(incidentRepo, userRepo, files, statsCache, log)

	authHandler := handler.NewAuthHandler(authService)
	incidentHandler := handler.NewIncidentHandler(incidentService)
	adminHandler := handler.NewAdminHandler(incidentService)

	authMW := middleware.Auth(tokenService, userRepo)
	adminMW := middleware.RequireAdmin()

	// --- Auth routes ---
	e.POST("/api/users/register", authHandler.Register)
	e.POST("/api/users/login", authHandler.Login)
	e.PUT("/api/users/:id/profile-pic", authHandler.UpdateProfilePic, authMW)

	// --- Incident routes (owner-scoped) ---
	incidents := e.Group("/api/incidents", authMW)
	incidents.GET("", incidentHandler.List)
	incidents.GET("/stats", incidentHandler.Stats)
	incidents.POST("", incidentHandler.Create)
	incidents.PUT("/:id", incidentHandler.Update)
	incidents.DELETE("/:id", incidentHandler.Delete)

	// --- Admin routes ---
	admin := e.Group("/api/admin", authMW, adminMW)
	admin.GET("/incidents", adminHandler.ListIncidents)
	admin.DELETE("/incidents/:id", adminHandler.DeleteIncident)
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/users", adminHandler.ListUsers)

	// --- Attachments are served straight off the file store directory ---
	e.Static("/uploads", files.Dir())

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(db, rdb)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
