package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/xvierd/focusos/internal/adapters/git"
	"github.com/xvierd/focusos/internal/adapters/notification"
	"github.com/xvierd/focusos/internal/adapters/postgres"
	"github.com/xvierd/focusos/internal/adapters/storage"
	"github.com/xvierd/focusos/internal/config"
	"github.com/xvierd/focusos/internal/domain"
	"github.com/xvierd/focusos/internal/ports"
	"github.com/xvierd/focusos/internal/services"
)

// shutdownTimeout bounds how long exit waits for background persistence.
const shutdownTimeout = 10 * time.Second

// appDeps groups all service-layer dependencies initialized at startup.
type appDeps struct {
	config   *config.Config
	logger   *slog.Logger
	storage  ports.Storage
	identity ports.IdentityProvider
	engine   *services.SessionEngine
	stats    *services.StatsService
	habits   *services.HabitService
	state    *services.StateService
	queue    *services.SyncQueue
	notifier *notification.Notifier
	git      ports.GitDetector
}

// app holds all initialized service dependencies.
// Populated by initializeServices() and accessible to all commands.
var app appDeps

// initializeServices sets up all the required services and adapters.
func initializeServices() error {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v; using default configuration\n", err)
		cfg = config.DefaultConfig()
	}

	logger := newLogger(os.Stderr, cfg.Log.Level, debugMode)

	store, err := openStorage(context.Background(), cfg)
	if err != nil {
		return err
	}

	deps, err := buildApp(cfg, store, logger)
	if err != nil {
		_ = store.Close()
		return err
	}
	app = deps
	return nil
}

// openStorage opens the gateway selected by storage.driver.
func openStorage(ctx context.Context, cfg *config.Config) (ports.Storage, error) {
	if cfg.Storage.Driver == config.DriverPostgres {
		store, err := postgres.New(ctx, cfg.Storage.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		return store, nil
	}

	path := dbPath
	if path == "" {
		path = config.GetDBPath(cfg)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return store, nil
}

// buildApp wires services over an open storage.
func buildApp(cfg *config.Config, store ports.Storage, logger *slog.Logger) (appDeps, error) {
	attribution, err := services.ParseAttribution(cfg.Stats.Attribution)
	if err != nil {
		return appDeps{}, err
	}

	deps := appDeps{
		config:   cfg,
		logger:   logger,
		storage:  store,
		identity: services.StaticIdentity(cfg.User.ID),
		notifier: notification.New(&cfg.Notifications),
		git:      git.NewDetector(),
	}

	deps.engine = services.NewSessionEngine(
		nil,
		notification.NewAlarm(deps.notifier, logger),
		deps.identity,
		services.EngineOptions{
			TickInterval: time.Duration(cfg.Session.TickInterval),
			Logger:       logger,
		},
	)
	deps.stats = services.NewStatsService(store, deps.identity, nil, attribution, logger)
	deps.habits = services.NewHabitService(store, deps.identity)
	deps.state = services.NewStateService(store, deps.engine, deps.stats, deps.habits, deps.identity)

	deps.queue = services.NewSyncQueue(store, deps.stats, syncConfig(cfg), logger)
	deps.queue.Start(context.Background())
	deps.engine.Subscribe(deps.queue.HandleEvent)
	deps.engine.Subscribe(notifyOnEnd(deps.notifier, logger))

	return deps, nil
}

// syncConfig maps the sync.* settings onto the queue's policy.
func syncConfig(cfg *config.Config) services.SyncConfig {
	sc := services.DefaultSyncConfig()
	if cfg.Sync.MaxAttempts > 0 {
		sc.MaxAttempts = cfg.Sync.MaxAttempts
	}
	if cfg.Sync.BackoffBase > 0 {
		sc.BackoffBase = time.Duration(cfg.Sync.BackoffBase)
	}
	if cfg.Sync.BackoffMax > 0 {
		sc.BackoffMax = time.Duration(cfg.Sync.BackoffMax)
	}
	if cfg.Sync.QueueSize > 0 {
		sc.QueueSize = cfg.Sync.QueueSize
	}
	if cfg.Sync.BreakerFailures > 0 {
		sc.BreakerFailures = uint32(cfg.Sync.BreakerFailures)
	}
	if cfg.Sync.BreakerTimeout > 0 {
		sc.BreakerTimeout = time.Duration(cfg.Sync.BreakerTimeout)
	}
	return sc
}

// sessionNotifier announces completed sessions.
type sessionNotifier interface {
	NotifySessionEnded(session domain.FocusSession) error
}

// notifyOnEnd returns an engine subscriber announcing completed sessions.
// Subscribers run inside End, so delivery happens on its own goroutine.
func notifyOnEnd(notifier sessionNotifier, logger *slog.Logger) func(domain.Event) {
	return func(ev domain.Event) {
		if ev.Type != domain.EventSessionEnded {
			return
		}
		session := ev.Session
		go func() {
			if err := notifier.NotifySessionEnded(session); err != nil {
				logger.Warn("notification failed", "session_id", session.ID, "error", err)
			}
		}()
	}
}

// cleanupServices ends any session still running, waits for background
// persistence and closes storage.
func cleanupServices() error {
	if app.engine != nil {
		app.engine.End()
	}
	if app.queue != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.queue.Close(ctx); err != nil {
			app.logger.Error("pending sessions were not persisted", "error", err)
		}
	}
	var err error
	if app.storage != nil {
		err = app.storage.Close()
	}
	app = appDeps{}
	return err
}

// setupSignalHandler sets up a context that cancels on interrupt signals.
func setupSignalHandler() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
