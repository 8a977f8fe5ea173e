package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/config"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/location"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	appHTTP "github.com/cmlabs-hris/hris-portal-go/internal/handler/http"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/hub"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/metrics"
	"github.com/cmlabs-hris/hris-portal-go/internal/repository/postgresql"
	notificationService "github.com/cmlabs-hris/hris-portal-go/internal/service/notification"
	relayService "github.com/cmlabs-hris/hris-portal-go/internal/service/relay"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Println("Portal error:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidatePortal(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo location.Repository
	if cfg.Database.URL != "" {
		db, err := database.NewPostgreSQLDB(ctx, database.PoolConfig{
			DSN:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer db.Close()

		if err := postgresql.EnsurePresenceSchema(ctx, db, time.Now()); err != nil {
			return err
		}
		repo = postgresql.NewPresenceRepository(db)
	} else {
		slog.Info("DATABASE_URL not set, presence is kept in memory only")
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration, cfg.JWT.ChannelTokenTTL)

	reg := metrics.NewRegistry()
	relaySvc := relayService.NewService(hub.NewHub(), repo, relayService.Config{
		ObserversOnly: cfg.Channel.ObserversOnly,
		Metrics:       metrics.NewRelay(reg),
	})
	defer relaySvc.Stop()
	if err := relaySvc.Restore(ctx); err != nil {
		slog.Warn("Failed to restore latest locations", "error", err)
	}

	paths := cfg.Paths()
	var metricsHandler http.Handler
	if cfg.App.MetricsEnabled {
		metricsHandler = metrics.Handler(reg)
	}
	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Screens:        route.DefaultScreens(paths),
			Paths:          paths,
			Logger:         logger,
			RateLimit:      cfg.App.RateLimit,
			Metrics:        metricsHandler,
		},
		JWTService,
		appHTTP.NewScreenHandler(),
		appHTTP.NewChannelHandler(relaySvc, JWTService, appHTTP.ChannelConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			PingInterval:   cfg.Channel.PingInterval,
			WriteTimeout:   cfg.Channel.WriteTimeout,
			QueueSize:      cfg.Channel.QueueSize,
		}),
		appHTTP.NewNotificationHandler(notificationService.NewSender(relaySvc)),
		appHTTP.NewLocationHandler(relaySvc),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
