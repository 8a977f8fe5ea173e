package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/hris-portal-go/internal/config"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/route"
	"github.com/cmlabs-hris/hris-portal-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/api"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/channel"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/cron"
	"github.com/cmlabs-hris/hris-portal-go/internal/pkg/geo"
	appSignal "github.com/cmlabs-hris/hris-portal-go/internal/pkg/signal"
	"github.com/cmlabs-hris/hris-portal-go/internal/service/navigation"
	notificationService "github.com/cmlabs-hris/hris-portal-go/internal/service/notification"
	"github.com/cmlabs-hris/hris-portal-go/internal/service/presence"
	sessionService "github.com/cmlabs-hris/hris-portal-go/internal/service/session"
	"github.com/cmlabs-hris/hris-portal-go/internal/service/tracking"
	"github.com/go-chi/httplog/v3"
	"golang.org/x/sync/errgroup"
)

var errNoSession = errors.New("no authenticated session: set API_TOKEN or API_EMAIL and API_PASSWORD")

func main() {
	screen := flag.String("screen", "", "screen to open after login (default: the role's dashboard)")
	action := flag.String("attendance", "", "attendance action to perform on start: check-in or check-out")
	report := flag.Duration("report", time.Minute, "interval between status reports")
	flag.Parse()

	if err := run(*screen, *action, *report); err != nil {
		fmt.Println("Agent error:", err)
		os.Exit(1)
	}
}

func run(screen, action string, report time.Duration) error {
	if report <= 0 {
		return fmt.Errorf("-report must be a positive duration, got %s", report)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateAgent(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(true)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", cfg.App.Name+"-agent"),
		slog.String("version", cfg.App.Version),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient, err := api.NewClient(api.Config{
		BaseURL: cfg.API.BaseURL,
		Timeout: cfg.API.Timeout,
		Token:   cfg.API.Token,
	})
	if err != nil {
		return err
	}

	store := sessionService.NewStore(apiClient, logger)
	sess := store.Bootstrap(ctx)
	if !sess.IsAuthenticated && cfg.API.Email != "" {
		sess, err = store.Login(ctx, user.LoginRequest{Email: cfg.API.Email, Password: cfg.API.Password})
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
	}
	if !sess.IsAuthenticated {
		return errNoSession
	}

	chClient := channel.NewClient(&channel.WebsocketDialer{
		URL:          cfg.Channel.URL,
		WriteTimeout: cfg.Channel.WriteTimeout,
		HeaderFunc: func() http.Header {
			header := http.Header{}
			if token := apiClient.Token(); token != "" {
				header.Set("Authorization", "Bearer "+token)
			}
			return header
		},
	}, channel.Config{ReconnectDelay: cfg.Channel.ReconnectDelay}, logger)
	defer chClient.Close()

	if err := chClient.Join(sess.UserID()); err != nil {
		return err
	}
	if err := chClient.Connect(ctx); err != nil {
		return err
	}

	warnings := notificationService.NewWarnings(logger, 20)
	inbox := notificationService.NewInbox(chClient, logger)
	defer inbox.Close()

	var board *presence.Board
	if sess.User.CanObserve() {
		board = presence.NewBoard(chClient, logger)
		defer board.Close()
	}

	bus := appSignal.NewBus()
	agent := tracking.NewAgent(tracking.Deps{
		Identity:   store,
		Status:     apiClient,
		Geolocator: geo.NewPollingGeolocator(positionProvider(cfg.Tracking), geo.PollingConfig{
			Interval:    cfg.Tracking.Interval,
			Timeout:     cfg.Tracking.Timeout,
			MinDistance: cfg.Tracking.MinDistance,
		}),
		Emitter:  chClient,
		Signals:  bus,
		Warnings: warnings,
		Logger:   logger,
	})

	paths := cfg.Paths()
	nav := navigation.NewNavigator(store, route.DefaultScreens(paths), paths, agent, logger)
	nav.OnChange(func(v navigation.View) {
		slog.Info("Screen shown",
			"screen", v.Screen.Name,
			"path", v.Screen.Path,
			"redirects", len(v.Redirects),
			"tracking_agent", v.Composition.TrackingAgent,
		)
	})

	recorder := api.NewAttendanceRecorder(apiClient, bus)

	scheduler := cron.NewScheduler(logger)
	if err := scheduler.AddJob(cron.Job{
		Name:        "status_report",
		Interval:    report,
		SkipInitial: true,
		Fn: func(context.Context) error {
			attrs := []any{
				"screen", nav.Current().Screen.Name,
				"tracking", agent.State().String(),
				"channel_connected", chClient.Connected(),
				"channel_dials", chClient.Connections(),
				"notifications", inbox.Len(),
				"warnings", len(warnings.Recent()),
			}
			if board != nil {
				attrs = append(attrs, "online", len(board.Online()), "located", len(board.Latest()))
			}
			slog.Info("Agent status", attrs...)
			return nil
		},
	}); err != nil {
		return err
	}
	if err := scheduler.AddJob(cron.Job{
		Name:     "attendance_rollover",
		Interval: time.Minute,
		Fn:       agent.RolloverJob(),
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := nav.Start(gctx); err != nil {
			return err
		}
		defer nav.Close()

		if screen == "" {
			screen = paths.Landing
		}
		if _, err := nav.Navigate(screen); err != nil {
			return fmt.Errorf("open %s: %w", screen, err)
		}

		if err := attend(gctx, recorder, action, store.Current().UserID()); err != nil {
			warnings.Warn(err.Error())
		}

		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		return scheduler.Run(gctx)
	})

	err = g.Wait()
	slog.Info("Agent stopped")
	return err
}

func attend(ctx context.Context, recorder *api.AttendanceRecorder, action, employeeID string) error {
	switch action {
	case "":
		return nil
	case "check-in":
		_, err := recorder.CheckIn(ctx, employeeID)
		return err
	case "check-out":
		_, err := recorder.CheckOut(ctx, employeeID)
		return err
	default:
		return fmt.Errorf("unknown attendance action %q", action)
	}
}

func positionProvider(cfg config.TrackingConfig) geo.PositionProvider {
	if cfg.Source == "file" {
		return geo.FileProvider{Path: cfg.PositionFile}
	}
	return geo.StaticProvider{Position: geo.Position{Latitude: cfg.Latitude, Longitude: cfg.Longitude}}
}
