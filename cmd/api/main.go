package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/ogevents/server/internal/auth"
	"github.com/ogevents/server/internal/cache"
	"github.com/ogevents/server/internal/config"
	"github.com/ogevents/server/internal/db"
	httphandler "github.com/ogevents/server/internal/http"
	"github.com/ogevents/server/internal/http/handlers"
	"github.com/ogevents/server/internal/logging"
	"github.com/ogevents/server/internal/middleware"
	"github.com/ogevents/server/internal/notify"
	"github.com/ogevents/server/internal/profile"
	"github.com/ogevents/server/internal/repo"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	// Load .env from CWD; real env vars take precedence
	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(database, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	userRepo := repo.NewUserRepo(database)
	otpRepo := repo.NewOtpRepo(database)

	var limiter auth.RequestLimiter = auth.NewStoreRequestLimiter(otpRepo, cfg.OTPMaxRequests, cfg.OTPRequestWindow)
	if cfg.RedisURL != "" {
		redisClient, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		limiter = auth.NewRedisRequestLimiter(redisClient, cfg.OTPMaxRequests, cfg.OTPRequestWindow, logger)
	}

	var dispatcher notify.Dispatcher = notify.NewLogDispatcher(logger)
	if cfg.AMQPURL != "" {
		conn, err := amqp.Dial(cfg.AMQPURL)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer conn.Close()
		dispatcher, err = notify.NewAMQPDispatcher(conn)
		if err != nil {
			logger.Fatal("failed to set up otp dispatcher", zap.Error(err))
		}
	}

	sessions := auth.NewSessionIssuer(auth.SessionConfig{
		Secret:     cfg.JWTSecret,
		TTL:        cfg.SessionTTL,
		CookieName: cfg.SessionCookieName,
		Secure:     cfg.IsProduction(),
	})
	otpAuth := auth.NewOtpAuthenticator(otpRepo, userRepo, limiter, dispatcher, logger, cfg.OTPSalt, cfg.OTPTTL)

	var bridge *auth.OAuthBridge
	if cfg.GoogleEnabled() {
		provider := auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		bridge = auth.NewOAuthBridge(provider, userRepo, cfg.IsProduction(), logger)
	} else {
		logger.Info("google login disabled: GOOGLE_CLIENT_ID not set")
	}
	authService := auth.NewAuthService(otpAuth, sessions, bridge)

	// Per-IP limits; the per-mobile limit is enforced by the OTP authenticator
	sendLimiter := middleware.NewRateLimiter(10*time.Minute, 10)
	defer sendLimiter.Stop()
	verifyLimiter := middleware.NewRateLimiter(10*time.Minute, 20)
	defer verifyLimiter.Stop()

	router := httphandler.NewRouter(httphandler.RouterDeps{
		AuthHandler: handlers.NewAuthHandler(authService, sessions, logger, handlers.AuthHandlerOptions{
			EchoCode:  cfg.OTPEchoCode,
			ClientURL: cfg.ClientURL,
		}),
		ProfileHandler:  handlers.NewProfileHandler(profile.NewService(userRepo), sessions, logger),
		HealthHandler:   handlers.NewHealthHandler(database),
		Sessions:        sessions,
		SendIPLimiter:   sendLimiter,
		VerifyIPLimiter: verifyLimiter,
		CORSOrigins:     strings.Split(cfg.CORSOrigin, ","),
		TrustProxy:      cfg.TrustProxy,
		Logger:          logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
		return
	}

	logger.Info("server exited")
}
