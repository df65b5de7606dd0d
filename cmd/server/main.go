package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"tricycle/internal/app"
	"tricycle/internal/config"
	"tricycle/internal/events"
	"tricycle/internal/handler"
	"tricycle/internal/presence"
	internalRedis "tricycle/internal/redis"
	"tricycle/internal/repository/postgres"
	"tricycle/internal/service"
	"tricycle/internal/ws"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s (with DB instrumentation)", cfg.NewRelic.AppName)
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Wire dependencies.
	server, dispatcher := wireServer(db, redisClient, nrApp, cfg)

	// Start the event dispatcher before the HTTP server so no transition
	// event published during startup is lost.
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()
	if err := dispatcher.Start(dispatcherCtx); err != nil {
		log.Fatalf("failed to start event dispatcher: %v", err)
	}

	// Start server in goroutine.
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server and the
// event dispatcher, which the caller must start.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, cfg *config.Config) (*http.Server, *events.Dispatcher) {
	// Live driver locations.
	locationStore := internalRedis.NewLocationStore(redisClient)

	// Real-time plumbing: in-process pub/sub fans transition events out to
	// the WebSocket hub and the presence registry.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	bus := events.NewBus(pubSub)
	registry := presence.NewRegistry()
	hub := ws.NewHub(registry, locationStore)
	dispatcher := events.NewDispatcher(pubSub, hub, registry)

	// Initialize repositories.
	rideRepo := postgres.NewRideRepository(db)
	partyRepo := postgres.NewPartyRepository(db)

	// Initialize services.
	notificationService := service.NewNotificationService()
	rideService := service.NewRideService(rideRepo, partyRepo, locationStore, bus, notificationService)

	var provider service.Provider
	if cfg.Paystack.SecretKey != "" {
		provider = service.NewPaystackProvider(cfg.Paystack.BaseURL, cfg.Paystack.SecretKey, cfg.Paystack.CallbackURL)
	} else {
		log.Println("PAYSTACK_SECRET_KEY not set, using mock payment provider")
		provider = service.NewMockProvider()
	}
	paymentService := service.NewPaymentService(rideService, rideRepo, provider, notificationService)

	// Initialize handlers.
	rideHandler := handler.NewRideHandler(rideService)
	paymentHandler := handler.NewPaymentHandler(paymentService)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		RideHandler:    rideHandler,
		PaymentHandler: paymentHandler,
		Hub:            hub,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
		JWTSecret:      cfg.Auth.JWTSecret,
	})

	// Create HTTP server.
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return server, dispatcher
}
