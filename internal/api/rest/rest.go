package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Middlewares carries the per-route middleware chain pieces
type Middlewares struct {
	Session   gin.HandlerFunc
	RateLimit gin.HandlerFunc
	Auth      gin.HandlerFunc
}

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, mw Middlewares, staticDir string) {
	// Health check endpoint (no auth)
	router.GET("/_health", handler.HealthCheck)

	// Session and wallet endpoints; wallet creation is funding-sensitive and
	// therefore rate limited
	router.POST("/session", mw.Session, handler.EnsureSession)
	router.POST("/wallet", mw.Session, mw.RateLimit, handler.CreateWallet)
	router.GET("/wallet", mw.Session, handler.GetWallet)

	// Flag endpoints (bearer token required)
	flags := router.Group("/flags", mw.Auth)
	{
		flags.GET("/count", handler.GetFlagCount)
		flags.GET("/peek/:id", handler.GetFlag)
		flags.GET("/:id", handler.GetFlag)
		flags.POST("", handler.PutFlags)
		flags.DELETE("/:id", handler.DeleteFlag)
	}

	// Public challenge state
	router.GET("/isSolved", handler.IsSolved)
	router.GET("/deployment", handler.GetDeployment)

	// Challenge front page
	if staticDir != "" {
		router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, "/index.html")
		})
		router.NoRoute(gin.WrapH(http.FileServer(http.Dir(staticDir))))
	}
}
