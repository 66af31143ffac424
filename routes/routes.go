package routes

import (
	"net/http"
	"time"

	"mindease/handlers"
	"mindease/middleware"
	"mindease/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterBookingRoutes registers the student-facing booking endpoints.
func RegisterBookingRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/counselors", hb.ListCounselors)
	r.GET("/availability", hb.GetAvailability)

	bookingGroup := r.Group("/bookings")
	{
		bookingGroup.POST("", hb.CreateBooking)
		bookingGroup.GET("/:id", hb.GetBooking)
		bookingGroup.DELETE("/:id", hb.CancelBooking)
		bookingGroup.POST("/:id/payment-callback", hb.PaymentCallback)
	}
}

// RegisterWebhookRoutes registers processor webhooks that are configured.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	if hb.StripeWebhook != nil {
		r.POST("/webhooks/stripe", hb.StripeWebhook)
	}
}

// RegisterAdminRoutes sets up endpoints for admin operations.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	adminGroup := r.Group("/admin")
	{
		adminGroup.Use(middleware.AdminKeyMiddleware(hb.AdminKey))
		adminGroup.GET("/bookings", hb.AdminListBookings)
	}
}

// RegisterHealthRoute registers the health-check endpoint. It reports the last
// snapshot taken by the health monitor.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		status := utils.GetHealthStatus()
		code := http.StatusOK
		if !status.Healthy && !status.CheckedAt.IsZero() {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "message": "Hi, I'm MindEase"})
	})
}

func RegisterMetricsRoute(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "x-admin-key", "X-Callback-Secret"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterMetricsRoute(r)
	RegisterBookingRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
