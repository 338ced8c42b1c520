package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/session-scheduler/internal/application"
	"github.com/example/session-scheduler/internal/calendar"
	"github.com/example/session-scheduler/internal/config"
	httptransport "github.com/example/session-scheduler/internal/http"
	"github.com/example/session-scheduler/internal/lifecycle"
	"github.com/example/session-scheduler/internal/logging"
	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/persistence/memory"
	"github.com/example/session-scheduler/internal/persistence/sqlite"
	"github.com/example/session-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/session-scheduler/internal/realtime"
	"github.com/example/session-scheduler/internal/sweeper"
	"github.com/example/session-scheduler/internal/telemetry"
	"github.com/example/session-scheduler/internal/timezone"
)

const serviceName = "session-scheduler"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	configPath := flags.String("config", os.Getenv(config.EnvPrefix+"CONFIG"), "path to a YAML configuration file")
	addr := flags.String("addr", "", "listen address, overriding the configured port")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logger := logging.New(stdout, cfg.Level(), serviceName)

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: serviceName,
		Endpoint:    cfg.OTELEndpoint,
		Enabled:     cfg.OTELEnabled,
	})
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Error("failed to flush telemetry", "error", err)
		}
	}()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	app, err := buildApp(cfg, store, logger, time.Now)
	if err != nil {
		return err
	}
	if err := app.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer app.sweeper.Stop()

	listenAddr := cfg.Addr()
	if *addr != "" {
		listenAddr = *addr
	}
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("scheduler API listening", "addr", server.Addr, "store", cfg.Store)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	logger.Info("scheduler API stopped")
	return nil
}

// backend is the storage selected by configuration.
type backend struct {
	sessions persistence.SessionRepository
	users    persistence.UserRepository
	ping     func(context.Context) error
	close    func() error
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.New()
		logger.Warn("using in-memory storage; sessions are lost on restart")
		return backend{sessions: store, users: store, ping: store.Ping, close: store.Close}, nil
	default:
		store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(cfg.SQLiteDSN), logger)
		if err != nil {
			return backend{}, fmt.Errorf("open storage: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return backend{}, fmt.Errorf("apply migrations: %w", err)
		}
		return backend{sessions: store.Sessions, users: store.Users, ping: store.Ping, close: store.Close}, nil
	}
}

type app struct {
	handler http.Handler
	hub     *realtime.Hub
	sweeper *sweeper.Sweeper
}

// buildApp wires services, handlers and background jobs over store.
func buildApp(cfg config.Config, store backend, logger *slog.Logger, now func() time.Time) (*app, error) {
	hub := realtime.NewHub(logger, realtime.DefaultBuffer)
	converter := timezone.NewConverter(logger)
	sessions := newSessionStoreAdapter(store.sessions, now)
	directory := newUserDirectoryAdapter(store.users, logger)

	bookings := application.NewBookingServiceWithLogger(sessions, converter, hub, uuid.NewString, now, logger)
	bookings.SetDefaultCount(cfg.DefaultRecurrenceCount)
	meetings := application.NewMeetingServiceWithLogger(sessions, lifecycle.NewManager(now, cfg.EarlyJoin), hub, now, logger)
	calendars := application.NewCalendarServiceWithLogger(sessions, calendar.NewProjector(converter, directory), now, logger)

	sw, err := sweeper.New(sessions, hub, sweeper.Config{
		Spec:           cfg.SweepCron,
		ReminderLead:   cfg.ReminderLead,
		NoShowLookback: cfg.NoShowLookback,
	}, now, logger)
	if err != nil {
		return nil, err
	}

	handler, err := httptransport.NewRouter(httptransport.RouterConfig{
		Bookings:   httptransport.NewBookingHandler(bookings, cfg.DefaultTimezone, logger),
		Meetings:   httptransport.NewMeetingHandler(meetings, logger),
		Calendar:   httptransport.NewCalendarHandler(calendars, cfg.DefaultTimezone, logger),
		Events:     httptransport.NewEventsHandler(hub, httptransport.DefaultHeartbeat, logger),
		Health:     store.ping,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.CORS},
	})
	if err != nil {
		return nil, fmt.Errorf("build router: %w", err)
	}

	return &app{handler: handler, hub: hub, sweeper: sw}, nil
}
