package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azamatbayne/user-service/config"
	"github.com/azamatbayne/user-service/internal/authz"
	"github.com/azamatbayne/user-service/internal/email"
	"github.com/azamatbayne/user-service/internal/health"
	"github.com/azamatbayne/user-service/internal/infrastructure/memory"
	"github.com/azamatbayne/user-service/internal/infrastructure/postgres"
	ctxlog "github.com/azamatbayne/user-service/internal/log"
	"github.com/azamatbayne/user-service/internal/metrics"
	"github.com/azamatbayne/user-service/internal/password"
	"github.com/azamatbayne/user-service/internal/repository"
	"github.com/azamatbayne/user-service/internal/retention"
	"github.com/azamatbayne/user-service/internal/signer"
	"github.com/azamatbayne/user-service/internal/token"
	httptransport "github.com/azamatbayne/user-service/internal/transport/http"
	"github.com/azamatbayne/user-service/internal/transport/http/handler"
	"github.com/azamatbayne/user-service/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Storage: postgres normally, in-memory for DATABASE_URL-less local runs.
	var (
		users  repository.UserRepository
		pinger health.Pinger
	)
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
		pinger = pool
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory store")
		mem := memory.NewUserRepository()
		users = mem
		pinger = mem
	}

	// Outbound email
	sender := email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger)
	mailer := email.NewMailer(sender, cfg.AppBaseURL, map[string]string{
		email.RouteReset: "/reset",
		email.RouteLogin: "/login",
	})
	notifier := email.NewAsyncNotifier(mailer, cfg.MailQueueSize, logger)
	notifier.Start()
	defer notifier.Close()

	jwtSigner := signer.New([]byte(cfg.JWTSecret), cfg.JWTTTL)

	accounts := usecase.NewAccountUsecase(
		users,
		notifier,
		jwtSigner,
		password.NewHasher(),
		token.NewGenerator(),
		authz.NewPolicy(authz.DefaultHierarchy()),
		usecase.Options{
			RegistrationsEnabled: cfg.RegistrationsEnabled,
			ConfirmRegistrations: cfg.ConfirmRegistrations,
			InviteEnabled:        cfg.InviteEnabled,
			ForgetEnabled:        cfg.ForgetEnabled,
			ResetTokenTTL:        cfg.ResetTokenTTL,
			UsernameRequired:     cfg.UsernameRequired,
			DevMode:              cfg.DevMode,
			WelcomeEmail:         cfg.WelcomeEmail,
		},
		logger,
	)
	accountHandler := handler.NewAccountHandler(accounts, cfg.Language, logger)

	metrics.Register()
	checker := health.NewChecker(pinger, logger, prometheus.DefaultRegisterer)

	sweeper := retention.NewSweeper(users, cfg.ResetTokenTTL, cfg.SweepSchedule, logger)
	if err := sweeper.Start(ctx); err != nil {
		stop()
		log.Fatalf("retention sweeper: %v", err)
	}
	defer sweeper.Stop()

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, accountHandler, jwtSigner),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
