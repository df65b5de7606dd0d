package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tricycle/internal/handler"
	"tricycle/internal/middleware"
	"tricycle/internal/ws"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	RideHandler    *handler.RideHandler
	PaymentHandler *handler.PaymentHandler
	Hub            *ws.Hub
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	JWTSecret      string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.Idempotency(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// WebSocket endpoint. Parties identify themselves with a register
	// message after the upgrade, so no token middleware here.
	router.GET("/v1/ws", deps.Hub.ServeWS)

	driverOnly := middleware.RequireRole(deps.JWTSecret, middleware.RoleDriver)
	adminOnly := middleware.RequireRole(deps.JWTSecret, middleware.RoleAdmin)

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Ride routes.
		rides := v1.Group("/rides")
		{
			rides.POST("", deps.RideHandler.CreateRide)
			rides.GET("", adminOnly, deps.RideHandler.GetAll)
			rides.GET("/unassigned", deps.RideHandler.GetUnassigned)
			rides.GET("/stats", adminOnly, deps.RideHandler.GetStats)
			rides.GET("/trends", adminOnly, deps.RideHandler.GetPaymentTrends)
			rides.GET("/driver/:driverId", driverOnly, deps.RideHandler.GetDriverRides)
			rides.GET("/customer/:customerId/recent", deps.RideHandler.GetRecent)
			rides.GET("/:id", deps.RideHandler.GetRide)
			rides.GET("/:id/track", deps.RideHandler.TrackRide)
			rides.PATCH("/:id/assign", driverOnly, deps.RideHandler.AssignRide)
			rides.PATCH("/:id/start", driverOnly, deps.RideHandler.StartTrip)
			rides.PATCH("/:id/cancel-assign", driverOnly, deps.RideHandler.CancelAssignment)
			rides.PATCH("/:id/complete", deps.RideHandler.CompleteRide)
			rides.DELETE("/:id", deps.RideHandler.CancelRide)
		}

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("/initialize", deps.PaymentHandler.InitializePayment)
			payments.GET("/verify/:reference", deps.PaymentHandler.VerifyPayment)
		}
	}

	return router
}
