package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/pharmacy-notifier/classifier"
	"github.com/giygas/pharmacy-notifier/config"
	"github.com/giygas/pharmacy-notifier/data"
	"github.com/giygas/pharmacy-notifier/dismissal"
	"github.com/giygas/pharmacy-notifier/events"
	"github.com/giygas/pharmacy-notifier/handlers"
	"github.com/giygas/pharmacy-notifier/health"
	"github.com/giygas/pharmacy-notifier/kvstore"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines"
	"github.com/giygas/pharmacy-notifier/notifier"
	"github.com/giygas/pharmacy-notifier/scheduler"
	"github.com/giygas/pharmacy-notifier/server"
	"github.com/giygas/pharmacy-notifier/session"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

const (
	logDir          = "logs"
	shutdownTimeout = 30 * time.Second
)

func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	// If failed, try loading from executable directory
	ex, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to get executable path:", err)
		os.Exit(1)
	}
	if err := os.Chdir(filepath.Dir(ex)); err != nil {
		fmt.Fprintln(os.Stderr, "Failed to change directory:", err)
		os.Exit(1)
	}
	// A missing .env is fine, the environment may carry everything
	_ = godotenv.Load()
}

// openStore opens the dismissal storage backend selected by STORE_DRIVER
func openStore(ctx context.Context, cfg *config.Config) (kvstore.KeyValueStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logging.Warn("Using in-memory dismissal storage, dismissals are lost on restart")
		return kvstore.NewMemoryStore(), nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.RedisAddr, err)
		}
		return kvstore.NewRedisStore(client), nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
		return kvstore.NewSQLiteStore(cfg.SQLitePath)
	}
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            logDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() { _ = logging.DefaultLoggingService.Close() }()

	logging.Info("Starting pharmacy notifier",
		"env", cfg.Env.String(),
		"backend", cfg.BackendURL,
		"poll_interval", cfg.PollInterval.String(),
		"store", cfg.StoreDriver,
	)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	kv, err := openStore(startCtx, cfg)
	cancelStart()
	if err != nil {
		logging.Error("Failed to open dismissal storage", "error", err)
		os.Exit(1)
	}

	bus := events.NewBus()
	sess := session.New(bus)
	dismissals := dismissal.NewStore(kv, bus)
	container := data.NewDataContainer()
	provider := medicines.NewClient(cfg.BackendURL, cfg.BackendToken, cfg.BackendTimeout)
	sched := scheduler.NewScheduler(container, provider, bus, cfg.PollInterval)

	svc := notifier.New(notifier.Deps{
		Data:       container,
		Dismissals: dismissals,
		Session:    sess,
		Scheduler:  sched,
		Bus:        bus,
	}, notifier.Horizons{
		Badge:  classifier.Months(cfg.BadgeHorizonMonths),
		Alerts: classifier.Months(cfg.AlertsHorizonMonths),
		Report: classifier.Days(cfg.ReportHorizonDays),
	})
	svc.Start()

	if err := sched.Start(); err != nil {
		logging.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(cfg, handlers.NewHTTPHandler(handlers.Deps{
		Notifier:  svc,
		Session:   sess,
		Scheduler: sched,
		DataStore: container,
		Health:    health.NewHealthChecker(container, sched, kv, cfg.PollInterval),
	}))

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	exitCode := 0
	select {
	case sig := <-quit:
		logging.Info("Received signal", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
			exitCode = 1
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		exitCode = 1
	}
	sched.Stop()
	svc.Close()
	dismissals.Close()
	if err := kv.Close(); err != nil {
		logging.Warn("Failed to close dismissal storage", "error", err)
	}

	logging.Info("Shutdown complete")
	if exitCode != 0 {
		_ = logging.DefaultLoggingService.Close()
		os.Exit(exitCode)
	}
}
