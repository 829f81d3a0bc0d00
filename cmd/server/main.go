package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kylasweb/soulseer-session-server/internal/config"
	"github.com/kylasweb/soulseer-session-server/internal/database"
	"github.com/kylasweb/soulseer-session-server/internal/handler"
	"github.com/kylasweb/soulseer-session-server/internal/jobs"
	"github.com/kylasweb/soulseer-session-server/internal/middleware"
	"github.com/kylasweb/soulseer-session-server/internal/redis"
	"github.com/kylasweb/soulseer-session-server/internal/repository"
	"github.com/kylasweb/soulseer-session-server/internal/service"
	"github.com/kylasweb/soulseer-session-server/internal/sse"
	"github.com/kylasweb/soulseer-session-server/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), config.DBPingTimeout)
	if err := db.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ping database")
	}
	cancel()
	log.Info().Msg("database connected")

	redisClient, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected")

	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	transactionRepo := repository.NewTransactionRepository(db.DB)
	walletRepo := repository.NewWalletRepository(db.DB)
	notificationRepo := repository.NewNotificationRepository(db.DB)
	chatMessageRepo := repository.NewChatMessageRepository(db.DB)

	broker := sse.NewBroker(redisClient)
	defer broker.Close()

	hub := ws.NewHub()
	defer hub.Close()

	authService := service.NewAuthService(userRepo)
	notificationService := service.NewNotificationService(
		notificationRepo, broker, hub, cfg.BroadcastBatchSize,
	)
	sessionService := service.NewSessionService(
		db, sessionRepo, transactionRepo, walletRepo, userRepo,
		notificationService, cfg.PlatformFeePercent,
	)
	chatService := service.NewChatService(chatMessageRepo, sessionRepo, hub)
	relayService := service.NewRelayService(sessionRepo, hub)
	walletService := service.NewWalletService(db, walletRepo, transactionRepo, notificationService)

	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	rateLimitMiddleware := middleware.NewRedisRateLimitMiddleware(redisClient.Client, cfg.RateLimitPerMin)
	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(0)

	authHandler := handler.NewAuthHandler(authService, authMiddleware)
	sessionHandler := handler.NewSessionHandler(sessionService)
	chatHandler := handler.NewChatHandler(chatService)
	walletHandler := handler.NewWalletHandler(walletService)
	notificationHandler := handler.NewNotificationHandler(notificationService, authMiddleware)
	eventsHandler := handler.NewEventsHandler(broker, notificationService)
	wsHandler := handler.NewWSHandler(hub, relayService, chatService, sessionService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/v1/auth", func(r chi.Router) {
		r.Mount("/", authHandler.Routes())
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Use(rateLimitMiddleware.Handler)

		r.Mount("/sessions", sessionHandler.Routes())
		r.Mount("/chat", chatHandler.Routes())
		r.Mount("/wallet", walletHandler.Routes())
		r.Mount("/notifications", notificationHandler.Routes())
		r.Get("/events", eventsHandler.ServeHTTP)
		r.Get("/ws", wsHandler.ServeHTTP)
	})

	schedulerJob := jobs.NewSchedulerJob(
		sessionRepo, notificationService,
		config.ReminderJobInterval, cfg.ReminderLead(), cfg.NoShowGrace(),
	)
	schedulerJob.Start()
	defer schedulerJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: 0,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
