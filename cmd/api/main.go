package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"rentals/internal/config"
	"rentals/internal/database"
	"rentals/internal/domain"
	"rentals/internal/middleware"
	"rentals/internal/modules/auth"
	"rentals/internal/modules/booking"
	"rentals/internal/modules/interaction"
	"rentals/internal/modules/notification"
	"rentals/internal/modules/payment"
	"rentals/internal/modules/property"
	"rentals/internal/pkg/events"
	"rentals/internal/pkg/gateway"
	jwtsvc "rentals/internal/pkg/jwt"
	"rentals/internal/pkg/logger"
	"rentals/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Connect(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal("db connect failed", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	if cfg.Stripe.WebhookSecret == "" {
		log.Warn("STRIPE_WEBHOOK_SECRET is empty, webhook deliveries will be rejected")
	}

	// repositories
	userRepo := repository.NewUserRepository(db)
	propertyRepo := repository.NewPropertyRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	favoriteRepo := repository.NewFavoriteRepository(db)
	ratingRepo := repository.NewRatingRepository(db)
	complaintRepo := repository.NewComplaintRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	journalRepo := repository.NewWebhookEventRepository(db)

	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	hub := notification.NewHub()
	defer hub.Close()
	notifService := notification.NewService(notificationRepo, hub, log.Named("notification"))
	notifHandler := notification.NewHandler(notifService, hub, j, cfg.CORSAllowedOrigins, log.Named("notification"))

	publisher := events.New(cfg.Kafka.Brokers, cfg.Kafka.Topic, log.Named("events"))
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Warn("event publisher close failed", zap.Error(err))
		}
	}()

	gw := gateway.NewStripe(gateway.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		Timeout:    cfg.Stripe.Timeout,
		BackendURL: cfg.Stripe.APIURL,
	}, log.Named("stripe"))

	authService := auth.NewService(userRepo, j, log.Named("auth"))
	authHandler := auth.NewHandler(authService)

	propertyService := property.NewService(propertyRepo, notifService, log.Named("property"))
	propertyHandler := property.NewHandler(propertyService, log.Named("property"))

	interactionService := interaction.NewService(favoriteRepo, ratingRepo, complaintRepo, propertyRepo, notifService, log.Named("interaction"))
	interactionHandler := interaction.NewHandler(interactionService, log.Named("interaction"))

	bookingService := booking.NewService(bookingRepo, propertyRepo, notifService, cfg.PaymentCurrency, log.Named("booking"))
	bookingHandler := booking.NewHandler(bookingService, log.Named("booking"))

	paymentLog := log.Named("payment")
	machine := payment.NewStateMachine(bookingRepo, notifService, publisher, paymentLog)
	reconciler := payment.NewReconciler(cfg.Stripe.WebhookSecret, machine, journalRepo, paymentLog)
	paymentService := payment.NewService(bookingRepo, userRepo, gw, machine, cfg.PaymentCurrency, paymentLog)
	paymentHandler := payment.NewHandler(paymentService, reconciler, paymentLog)

	if cfg.IsProdLike() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Recovery(log), middleware.RequestLogger(log), middleware.CORS(cfg.CORSAllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "ws_online": hub.GetOnlineCount()})
	})
	notifHandler.RegisterWebSocketRoutes(r)

	v1 := r.Group("/api/v1")
	{
		authHandler.RegisterPublicRoutes(v1)
		paymentHandler.RegisterWebhookRoutes(v1)

		public := v1.Group("")
		public.Use(middleware.OptionalJWTAuth(j))
		propertyHandler.RegisterPublicRoutes(public)
		interactionHandler.RegisterPublicRoutes(public)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j))
		authHandler.RegisterProtectedRoutes(protected)
		notifHandler.RegisterRoutes(protected)
		bookingHandler.RegisterRoutes(protected)
		paymentHandler.RegisterProtectedRoutes(protected)
		interactionHandler.RegisterProtectedRoutes(protected)

		owner := protected.Group("")
		owner.Use(middleware.RequireRole(domain.RoleOwner))
		propertyHandler.RegisterOwnerRoutes(owner)

		admin := protected.Group("")
		admin.Use(middleware.AdminOnly())
		propertyHandler.RegisterAdminRoutes(admin)
		interactionHandler.RegisterAdminRoutes(admin)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("server starting", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
