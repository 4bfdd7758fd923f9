package v1

import (
	"promptlab/api/v1/auth"
	"promptlab/api/v1/collections"
	"promptlab/api/v1/middleware"
	"promptlab/api/v1/prompts"
	"promptlab/api/v1/versions"
	"promptlab/internal/cache"
	collectionsvc "promptlab/internal/collection"
	"promptlab/internal/config"
	"promptlab/internal/httpx"
	promptsvc "promptlab/internal/prompt"
	"promptlab/internal/version"
	"promptlab/internal/ws"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const serviceVersion = "1.0.0"

// Services bundles the service layer the routes are built on
type Services struct {
	Prompts     *promptsvc.Service
	Collections *collectionsvc.Service
	Versions    *version.Manager
}

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, db *gorm.DB, cfg *config.Config, svc *Services) {
	v1 := r.Group("/api/v1")
	{
		// Public routes (no authentication required)
		v1.GET("/ping", pingHandler)
		v1.GET("/health", healthHandler(db))

		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/login", auth.LoginHandler(db, cfg))
		}

		// Protected routes (authentication required)
		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.GET("/me", meHandler)

			// Prompts routes
			promptsHandler := prompts.NewHandler(svc.Prompts, svc.Versions)
			promptsGroup := protected.Group("/prompts")
			{
				promptsGroup.GET("", promptsHandler.List)
				promptsGroup.POST("", promptsHandler.Create)
				promptsGroup.GET("/:id", promptsHandler.Get)
				promptsGroup.PUT("/:id", promptsHandler.Update)
				promptsGroup.PATCH("/:id", promptsHandler.Patch)
				promptsGroup.DELETE("/:id", promptsHandler.Delete)

				// Version routes
				versionsHandler := versions.NewHandler(svc.Versions)
				promptsGroup.POST("/:id/versions", versionsHandler.Create)
				promptsGroup.GET("/:id/versions", versionsHandler.List)
				promptsGroup.GET("/:id/versions/:versionId", versionsHandler.Get)
				promptsGroup.POST("/:id/versions/:versionId/rollback", versionsHandler.Rollback)
				promptsGroup.POST("/:id/versions/:versionId/unarchive", versionsHandler.Unarchive)
			}

			// Collections routes
			collectionsHandler := collections.NewHandler(svc.Collections)
			collectionsGroup := protected.Group("/collections")
			{
				collectionsGroup.GET("", collectionsHandler.List)
				collectionsGroup.POST("", collectionsHandler.Create)
				collectionsGroup.GET("/:id", collectionsHandler.Get)
				collectionsGroup.PUT("/:id", collectionsHandler.Update)
				collectionsGroup.DELETE("/:id", collectionsHandler.Delete)
			}
		}
	}

	// Socket.IO endpoint (JWT checked during handshake)
	if ws.Server != nil {
		wsHandler := ws.WrapWithAuth(ws.Server)
		r.GET("/socket.io/*any", gin.WrapH(wsHandler))
		r.POST("/socket.io/*any", gin.WrapH(wsHandler))
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// healthHandler reports service health including its dependencies
func healthHandler(gormDB *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		dbStatus := "ok"
		if gormDB == nil {
			dbStatus = "unavailable"
		} else if sqlDB, err := gormDB.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			dbStatus = "unavailable"
		}

		redisStatus := "ok"
		if cache.Client == nil || cache.Client.Ping(c.Request.Context()).Err() != nil {
			redisStatus = "unavailable"
		}

		status := "healthy"
		if dbStatus != "ok" || redisStatus != "ok" {
			status = "degraded"
		}

		httpx.OK(c, gin.H{
			"status":  status,
			"version": serviceVersion,
			"mysql":   dbStatus,
			"redis":   redisStatus,
		})
	}
}

// meHandler returns current user information
func meHandler(c *gin.Context) {
	uid, _ := c.Get("uid")
	username, _ := c.Get("username")
	role, _ := c.Get("role")

	httpx.OK(c, gin.H{
		"uid":      uid,
		"username": username,
		"role":     role,
	})
}
