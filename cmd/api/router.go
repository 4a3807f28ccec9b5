package main

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-backend/internal/shared/middleware"
	"marketplace-backend/pkg/container"
)

func SetupRouter(c *container.Container) *gin.Engine {
	router := gin.New()

	router.Use(
		middleware.Recovery(),
		middleware.Logger(),
		middleware.CORS(),
	)

	auth := middleware.AuthMiddleware(c.JWTManager)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", healthCheckHandler(c))

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", c.UserHandler.Register)
			authGroup.POST("/login", c.UserHandler.Login)
			authGroup.GET("/me", auth, c.UserHandler.Me)
		}

		posts := v1.Group("/posts")
		{
			posts.GET("", c.PublicationHandler.ListActive)
			posts.GET("/user/myposts", auth, c.PublicationHandler.ListMine)
			posts.GET("/:id", c.PublicationHandler.GetByID)
			posts.POST("", auth, c.PublicationHandler.Create)
			posts.PUT("/:id", auth, c.PublicationHandler.Update)
			posts.DELETE("/:id", auth, c.PublicationHandler.Delete)
			posts.PATCH("/:id/state", auth, c.PublicationHandler.SetState)
		}
	}

	return router
}

func healthCheckHandler(c *container.Container) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		status := http.StatusOK
		checks := gin.H{"database": "ok", "cache": "ok"}

		if err := c.DB.Ping(ctx.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checks["database"] = err.Error()
		}
		if err := c.Cache.Ping(ctx.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			checks["cache"] = err.Error()
		}

		ctx.JSON(status, gin.H{"status": http.StatusText(status), "checks": checks})
	}
}
