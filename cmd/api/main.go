package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/giftnotify/push-api/internal/config"
	"github.com/giftnotify/push-api/internal/handler"
	authHandler "github.com/giftnotify/push-api/internal/handler/auth"
	pushHandler "github.com/giftnotify/push-api/internal/handler/push"
	subscriptionHandler "github.com/giftnotify/push-api/internal/handler/subscription"
	"github.com/giftnotify/push-api/internal/middleware"
	"github.com/giftnotify/push-api/internal/repository/postgres"
	"github.com/giftnotify/push-api/internal/router"
	authService "github.com/giftnotify/push-api/internal/service/auth"
	dispatchService "github.com/giftnotify/push-api/internal/service/dispatch"
	"github.com/giftnotify/push-api/internal/service/geoip"
	subscriberService "github.com/giftnotify/push-api/internal/service/subscriber"
	"github.com/giftnotify/push-api/pkg/auth"
	"github.com/giftnotify/push-api/pkg/metrics"
	"github.com/giftnotify/push-api/pkg/webpush"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if err := handler.RegisterValidations(); err != nil {
		log.Fatal().Err(err).Msg("failed to register validations")
	}

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Initialize repositories
	subscriptionRepo := postgres.NewSubscriptionRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)

	// Initialize push authentication and transport
	authenticator, err := webpush.NewAuthenticator(
		cfg.VAPID.Subscriber,
		cfg.VAPID.PrivateKey,
		cfg.VAPID.PublicKey,
		12*time.Hour,
		webpush.DefaultAudienceOverrides,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load VAPID keys")
	}
	pushClient := webpush.NewClient(
		authenticator,
		time.Duration(cfg.Dispatch.TimeoutSeconds)*time.Second,
		cfg.Dispatch.TTLSeconds,
	)

	// Initialize services
	m := metrics.NewMetrics("push_api", "core")
	resolver := geoip.NewResolver(
		cfg.GeoIP.BaseURL,
		time.Duration(cfg.GeoIP.TimeoutSeconds)*time.Second,
		time.Duration(cfg.GeoIP.CacheTTLMinutes)*time.Minute,
	)
	subscriberSvc := subscriberService.NewService(subscriptionRepo, resolver, m)
	dispatchSvc := dispatchService.NewService(subscriptionRepo, historyRepo, pushClient, cfg.Dispatch.Workers, m)

	tokenSvc := auth.NewJWTService(cfg.Admin.JWTSecret, time.Duration(cfg.Admin.TokenExpiryHours)*time.Hour)
	authSvc := authService.NewService(cfg.Admin.Username, cfg.Admin.PasswordHash, tokenSvc)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(tokenSvc)

	// Initialize handlers
	h := handler.NewHandler(db)
	subscriptionH := subscriptionHandler.NewHandler(subscriberSvc, authenticator.PublicKey())
	authH := authHandler.NewHandler(authSvc)
	pushH := pushHandler.NewHandler(dispatchSvc, subscriberSvc, historyRepo)

	// Setup router
	r := router.NewRouter(
		authMiddleware,
		subscriptionH,
		authH,
		pushH,
		h,
		router.RouterConfig{
			LoginRateLimit: rate.Limit(1),
			LoginRateBurst: 5,
			RequestTimeout: time.Duration(cfg.Server.TimeoutSeconds) * time.Second,
			CORSConfig:     middleware.DefaultCORSConfig(),
			MetricsPrefix:  "push_api",
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	// Start server
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
