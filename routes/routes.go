package routes

import (
	"profile-hub-api/controllers"
	"profile-hub-api/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Profile Hub API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Invitations
			protected.POST("/invitations/confirm", controllers.ConfirmInvitation)

			// Batch tasks
			tasks := protected.Group("/tasks")
			{
				tasks.GET("", controllers.GetTasks)
				tasks.GET("/:id", controllers.GetTask)
				tasks.GET("/:id/records", controllers.GetTaskRecords)
				tasks.GET("/:id/export", controllers.ExportTask)

				// Only organisation admins can load and drive batches
				tasks.POST("", middleware.RequireAdmin(), controllers.UploadTask)
				tasks.DELETE("/:id", middleware.RequireAdmin(), controllers.DeleteTask)
				tasks.POST("/:id/activate", middleware.RequireAdmin(), controllers.ActivateRecords)
				tasks.POST("/:id/reset", middleware.RequireAdmin(), controllers.ResetRecords)
				tasks.POST("/:id/process", middleware.RequireAdmin(), controllers.ProcessTask)
				tasks.DELETE("/:id/records", middleware.RequireAdmin(), controllers.DeleteRecords)
			}
		}
	}
}
