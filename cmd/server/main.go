package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gdg-garage/ecsnova-registration-api/internal/auth"
	"github.com/gdg-garage/ecsnova-registration-api/internal/config"
	"github.com/gdg-garage/ecsnova-registration-api/internal/database"
	"github.com/gdg-garage/ecsnova-registration-api/internal/handlers"
	"github.com/gdg-garage/ecsnova-registration-api/internal/metrics"
	"github.com/gdg-garage/ecsnova-registration-api/internal/notifier"
	"github.com/gdg-garage/ecsnova-registration-api/internal/registration"
	"github.com/gdg-garage/ecsnova-registration-api/internal/uploads"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	// Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	// Connect to Database
	db, err := database.Connect(cfg)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	store, err := uploads.NewStore(cfg.UploadsDir, db, m, logger)
	if err != nil {
		return err
	}

	n, cleanup := buildNotifier(cfg, logger)
	defer cleanup()

	authHandler := auth.NewAuthHandler(cfg, logger)
	service := registration.NewService(db, store, n, m, logger)
	registrationHandler := handlers.NewRegistrationHandler(service, logger)
	uploadHandler := handlers.NewUploadHandler(store, cfg.PublicBaseURL, logger)

	// Initialize Router
	r := chi.NewRouter()
	handlers.RegisterRoutes(r, cfg, authHandler, registrationHandler, uploadHandler, promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return store.RunSweeper(ctx, cfg.UploadSweepInterval, cfg.UploadRetention)
	})

	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}

// buildNotifier returns the configured notifiers, or nil when none are set
// up. Failing to reach Discord or RabbitMQ never stops the server.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (notifier.Notifier, func()) {
	var (
		notifiers notifier.Multi
		closers   []func()
	)

	if cfg.DiscordBotToken != "" && cfg.DiscordNotificationsChannelID != "" {
		session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
		if err != nil {
			logger.Warn("discord notifier not initialized", "error", err)
		} else {
			notifiers = append(notifiers, notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID))
		}
	}

	if cfg.RabbitMQURL != "" {
		publisher, err := notifier.NewRabbitMQPublisher(cfg.RabbitMQURL)
		if err != nil {
			logger.Warn("rabbitmq notifier not initialized", "error", err)
		} else {
			notifiers = append(notifiers, publisher)
			closers = append(closers, publisher.Close)
		}
	}

	cleanup := func() {
		for _, c := range closers {
			c()
		}
	}
	if len(notifiers) == 0 {
		return nil, cleanup
	}
	return notifiers, cleanup
}
