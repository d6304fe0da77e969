package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contre95/posxchange/src/exchange"
	"github.com/contre95/posxchange/src/features/config"
	"github.com/contre95/posxchange/src/features/hosting"
	"github.com/contre95/posxchange/src/features/importing"
	"github.com/contre95/posxchange/src/features/jobs"
	"github.com/contre95/posxchange/src/features/logging"
	"github.com/contre95/posxchange/src/features/metrics"
	"github.com/contre95/posxchange/src/features/notify"
	"github.com/contre95/posxchange/src/features/watching"
	"github.com/contre95/posxchange/src/infra/database"
	"github.com/contre95/posxchange/src/infra/files"
	"github.com/contre95/posxchange/src/infra/naxml"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	jobCleanupInterval = time.Hour
	jobMaxAge          = 24 * time.Hour
	shutdownTimeout    = 30 * time.Second
)

// app holds the wired services.
type app struct {
	cfg      *config.Manager
	logger   *slog.Logger
	db       *database.Database
	jobs     *jobs.Service
	watching *watching.Service
}

func newApp() (*app, error) {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	if err := cfgManager.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	db, err := database.NewSqliteDatabase(cfgManager.Get().Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	processor := importing.NewProcessor(
		naxml.NewValidator(),
		naxml.NewRecordCounter(logger),
		db.FileLog(),
		db.Audit(),
		files.NewArchiver(logger),
		logger,
	)

	w := cfgManager.Get().Watching
	watchingService := watching.NewService(processor, watching.NewEventBus(logger), watching.Options{
		DedupCacheSize: w.DedupCacheSize,
		FSNotify:       w.FSNotify,
		Debounce:       time.Duration(w.DebounceMs) * time.Millisecond,
	}, logger)

	jobService := jobs.NewService(&cfgManager.Get().Jobs)
	jobService.RegisterHandler(watching.ManualImportJobType, jobs.NewBaseTaskHandler(watching.NewManualImportTask(watchingService)))

	return &app{cfg: cfgManager, logger: logger, db: db, jobs: jobService, watching: watchingService}, nil
}

// startStores starts every configured store. Stores that fail to start are logged and skipped.
func (a *app) startStores(ctx context.Context) {
	for _, store := range a.cfg.Get().Stores {
		if !a.cfg.Get().Watching.AutoStart {
			if err := a.watching.UpdateConfig(store.WatcherConfig); err != nil {
				a.logger.Error("app.startStores: invalid store config", "store_id", store.StoreID, "error", err)
				continue
			}
			if err := a.watching.SetContext(store.Context()); err != nil {
				a.logger.Error("app.startStores: invalid store context", "store_id", store.StoreID, "error", err)
			}
			continue
		}
		if err := a.watching.StartWatching(ctx, store.WatcherConfig, store.Context()); err != nil {
			a.logger.Error("app.startStores: failed to start watcher", "store_id", store.StoreID, "code", exchange.CodeOf(err), "error", err)
		}
	}
}

func runServe() error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var gatherer prometheus.Gatherer
	if a.cfg.Get().Metrics.Enabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		collector := metrics.NewCollector()
		if err := collector.Register(registry); err != nil {
			return fmt.Errorf("failed to register metrics: %w", err)
		}
		collector.Subscribe(a.watching.Events())
		gatherer = registry
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if a.cfg.Get().Telegram.Enabled {
		telegramBot, err = hosting.NewTelegramBot(a.cfg, a.jobs, a.watching)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			notify.NewNotifier(telegramBot.API(), a.cfg.Get().Telegram.ChatID, a.logger).Subscribe(a.watching.Events())
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	go a.jobs.RunCleanup(ctx, jobCleanupInterval, jobMaxAge)
	a.startStores(ctx)

	server := hosting.NewServer(a.cfg, a.watching, a.jobs, a.db.FileLog(), gatherer)
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", a.cfg.Get().Server.Port)

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			slog.Error("Server stopped", "error", err)
		}
	}
	slog.Info("Shutting down...")

	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}
	if err := server.Shutdown(); err != nil {
		slog.Error("Failed to shutdown server", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.watching.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Watchers did not stop in time", "error", err)
	}
	a.jobs.Wait()
	slog.Info("Server gracefully shut down.")
	return nil
}

func runImport(ctx context.Context, storeID, path, hint string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.db.Close()

	var docType exchange.DocumentType
	if hint != "" {
		dt, ok := exchange.ParseDocumentType(hint)
		if !ok {
			return fmt.Errorf("unknown document type %q", hint)
		}
		docType = dt
	}

	if store, ok := a.cfg.Store(storeID); ok {
		if err := a.watching.UpdateConfig(store.WatcherConfig); err != nil {
			return err
		}
		if err := a.watching.SetContext(store.Context()); err != nil {
			return err
		}
	}

	result, err := a.watching.QueueManualImport(ctx, storeID, path, docType, nil)
	if err != nil {
		return fmt.Errorf("import failed [%s]: %w", exchange.CodeOf(err), err)
	}
	fmt.Printf("%s %s type=%s records=%d", result.Status, result.FileName, result.DocumentType, result.RecordCount)
	if result.MovedTo != "" {
		fmt.Printf(" moved_to=%s", result.MovedTo)
	}
	if result.ErrorMessage != "" {
		fmt.Printf(" error=%q", result.ErrorMessage)
	}
	fmt.Println()
	if result.Status == exchange.StatusFailed {
		return fmt.Errorf("document failed: %s", result.ErrorMessage)
	}
	return nil
}
