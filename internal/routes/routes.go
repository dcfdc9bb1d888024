package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/boostlyhq/boostly-golang/internal/handlers"
	"github.com/boostlyhq/boostly-golang/internal/middleware"
)

// CORSMiddleware allows the dashboard frontend to call us with its JWT.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		// Preflight requests get an empty 204.
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware())

	// --- Operational ---
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// --- Short-Link Redirects (Public) ---
	router.GET("/s/:code", h.RedirectShortLink)

	// --- Vendor & Platform Webhooks (Public) ---
	api := router.Group("/api")
	{
		api.POST("/appsumo-license", h.HandleAppSumoWebhook)
		api.POST("/lemon-drops", h.HandleLemonWebhook)

		api.GET("/instagram/webhook", h.VerifyInstagramWebhook)
		api.POST("/instagram/webhook", h.HandleInstagramWebhook)

		// --- Mini Tools (Public) ---
		tools := api.Group("/tools")
		{
			tools.POST("/meta-tag-generator", h.GenerateMetaTags)
			tools.POST("/joke-generator", h.GenerateJoke)
			tools.POST("/pun-generator", h.GeneratePun)
			tools.POST("/insult-generator", h.GenerateInsult)
			tools.POST("/logo-generator", h.GenerateLogo)
			tools.POST("/link-shortener", h.ShortenLink)
		}

		// --- Admin Analytics ---
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h.Tokens, h.DB))
		admin.Use(middleware.AdminMiddleware())
		{
			admin.GET("/analytics/:type", h.GetAnalyticsReport)
			admin.GET("/analytics-export", h.ExportAnalytics)
		}
	}

	v1 := router.Group("/v1")
	{
		// --- Auth Routes (Public) ---
		v1.POST("/signup", h.Signup)
		v1.POST("/login", h.Login)

		// --- Protected Routes (Login Required) ---
		auth := v1.Group("/")
		auth.Use(middleware.AuthMiddleware(h.Tokens, h.DB))
		{
			auth.GET("/profile/me", h.GetMyProfile)
			auth.GET("/dashboard", h.GetDashboard)

			// --- Licenses & Seats ---
			auth.GET("/licenses", h.GetMyLicenses)
			auth.POST("/licenses/redeem", h.RedeemLicense)
			auth.POST("/licenses/:key/sublicenses/assign", h.AssignSeat)
			auth.POST("/licenses/:key/sublicenses/revoke", h.RevokeSeat)

			// --- Credits ---
			auth.GET("/credits", h.GetMyCredits)

			// --- Notifications ---
			auth.GET("/notifications", h.GetMyNotifications)
			auth.PATCH("/notifications/:id/read", h.MarkNotificationAsRead)

			// --- Instagram DM Automations ---
			instagram := auth.Group("/instagram/automations")
			{
				instagram.POST("", h.CreateAutomation)
				instagram.GET("", h.GetMyAutomations)
				instagram.PUT("/:id", h.UpdateAutomation)
				instagram.DELETE("/:id", h.DeleteAutomation)
				instagram.GET("/:id/history", h.GetCommentHistory)
			}
		}
	}

	return router
}
