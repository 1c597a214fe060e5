package main

import (
	"github.com/gin-gonic/gin"
	"github.com/teamtrackhq/teamtrack/internal/config"
	"github.com/teamtrackhq/teamtrack/internal/handlers"
	"github.com/teamtrackhq/teamtrack/internal/middleware"
	"github.com/teamtrackhq/teamtrack/internal/models"
	"github.com/teamtrackhq/teamtrack/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices, cfg *config.Config) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins...))

	// Rate limiter for credential endpoints
	authLimiter := middleware.NewRateLimiter(5, 10)

	// Health check
	healthHandler := handlers.NewHealthHandler()
	r.GET("/health", healthHandler.CheckHealth)

	authHandler := handlers.NewAuthHandler(models.GetDB(), cfg)

	// API routes
	api := r.Group("/api")
	{
		// Auth routes (public, rate limited)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/info", authHandler.AuthInfo)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), middleware.AuditLog())
		{
			// Auth
			protected.GET("/auth/me", authHandler.Me)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			// Users (self view/update; admin checks live in the service)
			userHandler := handlers.NewUserHandler(models.GetDB())
			protected.GET("/users/:id", userHandler.GetByID)
			protected.PUT("/users/:id", userHandler.Update)

			// Teams
			teamHandler := handlers.NewTeamHandler(models.GetDB())
			protected.GET("/teams", teamHandler.List)
			protected.GET("/teams/:id", teamHandler.GetByID)
			protected.PUT("/teams/:id", teamHandler.Update)
			protected.PUT("/teams/:id/leader", teamHandler.ReassignLeader)
			protected.POST("/teams/:id/members", teamHandler.AddMember)
			protected.DELETE("/teams/:id/members/:userId", teamHandler.RemoveMember)

			// Projects
			projectHandler := handlers.NewProjectHandler(models.GetDB())
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/stats", projectHandler.Stats)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", projectHandler.Create)
			protected.PUT("/projects/:id", projectHandler.Update)
			protected.DELETE("/projects/:id", projectHandler.Delete)
			protected.POST("/projects/:id/members", projectHandler.AddMember)
			protected.DELETE("/projects/:id/members/:userId", projectHandler.RemoveMember)

			// Tasks
			taskHandler := handlers.NewTaskHandler(models.GetDB())
			protected.GET("/tasks", taskHandler.List)
			protected.GET("/tasks/my", taskHandler.MyTasks)
			protected.GET("/tasks/stats", taskHandler.Stats)
			protected.GET("/tasks/:id", taskHandler.GetByID)
			protected.POST("/tasks", taskHandler.Create)
			protected.PUT("/tasks/:id", taskHandler.Update)
			protected.DELETE("/tasks/:id", taskHandler.Delete)
			protected.POST("/tasks/:id/progress", taskHandler.RecordProgress)
			protected.GET("/tasks/:id/progress", taskHandler.ProgressHistory)
			protected.POST("/tasks/:id/comments", taskHandler.AddComment)
			protected.GET("/tasks/:id/comments", taskHandler.Comments)

			// Notifications
			notificationHandler := handlers.NewNotificationHandler(models.GetDB())
			protected.GET("/notifications", notificationHandler.List)
			protected.GET("/notifications/unread", notificationHandler.UnreadCount)
			protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
		}

		// Admin only routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Users (administration)
			userHandler := handlers.NewUserHandler(models.GetDB())
			admin.GET("/users", userHandler.List)
			admin.POST("/users", userHandler.Create)
			admin.PUT("/users/:id/role", userHandler.ChangeRole)
			admin.DELETE("/users/:id", userHandler.Delete)

			// Teams (creation and deletion)
			teamHandler := handlers.NewTeamHandler(models.GetDB())
			admin.POST("/teams", teamHandler.Create)
			admin.DELETE("/teams/:id", teamHandler.Delete)

			// Activity log
			activityHandler := handlers.NewActivityLogHandler(models.GetDB())
			admin.GET("/activity", activityHandler.List)
			admin.DELETE("/activity/cleanup", activityHandler.Cleanup)
		}
	}

	logger.Infof("Routes registered")
}
