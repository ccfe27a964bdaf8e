package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"guestlist/config"
	_ "guestlist/docs"
	"guestlist/internal/adapters/auth"
	"guestlist/internal/adapters/email"
	"guestlist/internal/adapters/realtime"
	delivery "guestlist/internal/delivery/http"
	"guestlist/internal/delivery/http/controllers"
	"guestlist/internal/domain"
	"guestlist/internal/metrics"
	"guestlist/internal/repository/postgres"
	"guestlist/internal/repository/redisdb"
	"guestlist/internal/services"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var autoMigrate bool

func init() {
	serveCmd.Flags().BoolVar(&autoMigrate, "migrate", false, "Apply migrations before serving")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := config.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DBUrl)
	if err != nil {
		return err
	}
	defer db.Close()
	if autoMigrate {
		if _, err := postgres.Migrate(ctx, db); err != nil {
			return err
		}
	}

	rdb, err := redisdb.Open(ctx, cfg.RedisURL, cfg.RedisPassword)
	if err != nil {
		return err
	}
	defer rdb.Close()

	var feed domain.ChangeFeed
	switch cfg.RealtimeDriver {
	case "memory":
		feed = realtime.NewMemoryBroker(logger)
	case "redis":
		feed = realtime.NewRedisFeed(rdb, logger)
	default:
		return fmt.Errorf("unknown REALTIME_DRIVER %q", cfg.RealtimeDriver)
	}

	m := metrics.New()

	eventRepo := postgres.NewEventRepository(db)
	userRepo := postgres.NewUserRepository(db)
	templateRepo := postgres.NewTemplateRepository(db)

	renderer, err := email.NewTemplateRenderer()
	if err != nil {
		return err
	}
	mailer := email.NewMailer(email.MailerConfig{
		Provider:    cfg.MailerProvider,
		FromAddress: cfg.MailFromAddress,
		FromName:    cfg.MailFromName,
		SES: email.SESConfig{
			Region:             cfg.AWSRegion,
			AccessKeyID:        cfg.AWSAccessKeyID,
			SecretAccessKey:    cfg.AWSSecretAccessKey,
			InsecureSkipVerify: cfg.SESInsecureSkipVerify,
		},
	}, logger)
	emailService := services.NewEmailService(mailer, renderer, logger)

	notifier := services.NewNotifier(eventRepo, templateRepo, userRepo, mailer, emailService, m, logger, services.NotifierConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		Workers:       cfg.NotifyWorkers,
		Timeout:       cfg.RequestTimeout,
	})
	eventService := services.NewEventService(eventRepo, userRepo, feed, notifier, m, logger, services.EventServiceConfig{
		PublicBaseURL: cfg.PublicBaseURL,
		MaxAttempts:   cfg.MutationMaxAttempts,
		Timeout:       cfg.RequestTimeout,
	})
	jwt := auth.NewJWT(cfg.JWTSecret)
	authService := services.NewAuthService(
		userRepo,
		auth.NewBcryptHasher(0),
		jwt,
		jwt,
		redisdb.NewSessionStore(rdb),
		emailService,
		feed,
		logger,
		cfg.JWTExpiry,
		cfg.RequestTimeout,
	)

	userService := services.NewUserService(userRepo, cfg.RequestTimeout)
	router := delivery.NewRouter(delivery.Controllers{
		Auth:      controllers.NewAuthController(logger, authService),
		Users:     controllers.NewUserController(logger, userService),
		Events:    controllers.NewEventController(logger, eventService, notifier),
		Collect:   controllers.NewCollectController(logger, eventService),
		Templates: controllers.NewTemplateController(logger, services.NewTemplateService(templateRepo, cfg.RequestTimeout)),
		Dashboard: controllers.NewDashboardController(logger,
			services.NewDashboardService(eventRepo, cfg.RequestTimeout),
			userService),
		Stream: controllers.NewStreamController(logger, eventService, feed, m, cfg.CORSAllowedOrigins),
	}, delivery.RouterDeps{
		Auth:    authService,
		Logger:  logger,
		Metrics: m,
		Health: func(ctx context.Context) error {
			if err := db.PingContext(ctx); err != nil {
				return fmt.Errorf("postgres: %w", err)
			}
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		},
	})

	// Change streams are hijacked connections that Shutdown does not wait for;
	// they end when this base context is cancelled.
	baseCtx, cancelStreams := context.WithCancel(context.Background())
	defer cancelStreams()
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           delivery.NewHandler(router, logger, m, cfg.CORSAllowedOrigins),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.Port, "env", cfg.Environment, "realtime", cfg.RealtimeDriver, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	cancelStreams()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Error("notification pool did not drain", "error", err)
	}
	logger.Info("stopped")
	return nil
}
