package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nebari-dev/rolestore/internal/api/handlers"
	"github.com/nebari-dev/rolestore/internal/api/middleware"
	"github.com/nebari-dev/rolestore/internal/config"
	"github.com/nebari-dev/rolestore/internal/rbac"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// NewRouter creates and configures the Gin router. enforcer may be nil.
func NewRouter(cfg *config.Config, db *gorm.DB, enforcer *rbac.Enforcer) *gin.Engine {
	// Set Gin mode
	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware())
	router.Use(corsMiddleware())
	router.Use(middleware.Actor())

	roleHandler := handlers.NewRoleHandler(db, enforcer)
	userHandler := handlers.NewUserHandler(db, enforcer)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck)
		v1.GET("/version", handlers.GetVersion)
		v1.GET("/info", handlers.NewInfoHandler(cfg).GetInfo)

		// Role endpoints
		v1.GET("/roles", roleHandler.ListRoles)
		v1.POST("/roles", roleHandler.CreateRole)
		v1.GET("/roles/suggest-name", roleHandler.SuggestName)
		v1.GET("/roles/by-name/:name", roleHandler.GetRoleByName)
		v1.GET("/roles/:id", roleHandler.GetRole)
		v1.PATCH("/roles/:id", roleHandler.UpdateRole)
		v1.DELETE("/roles/:id", roleHandler.DeleteRole)

		// User endpoints
		v1.GET("/users", userHandler.ListUsers)
		v1.POST("/users", userHandler.CreateUser)
		v1.GET("/users/:id", userHandler.GetUser)
		v1.PUT("/users/:id/role", userHandler.AttachRole)
		v1.GET("/users/:id/roles", middleware.RequireRBAC(enforcer != nil), userHandler.GetUserRoles)
	}

	// Swagger documentation
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	slog.Info("API router initialized", "mode", cfg.Server.Mode, "rbac", enforcer != nil)
	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		slog.Info("HTTP request",
			"method", method,
			"path", path,
			"status", status,
			"latency", latency.String(),
			"ip", c.ClientIP(),
		)
	}
}

// corsMiddleware adds CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+middleware.ActorHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
