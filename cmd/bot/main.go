package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"vpnstore/internal/config"
	"vpnstore/internal/conversation"
	"vpnstore/internal/handler"
	"vpnstore/internal/httpapi"
	"vpnstore/internal/metrics"
	"vpnstore/internal/middleware"
	"vpnstore/internal/provisioner"
	"vpnstore/internal/repository/sqlite"
	"vpnstore/internal/service"
	"vpnstore/internal/session"
)

const scriptTimeout = 90 * time.Second

func main() {
	// Load bootstrap configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting VPN store bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configs, err := config.NewStore(cfg.ConfigPath)
	if err != nil {
		logger.Fatal("Failed to load app config", zap.Error(err))
	}

	metrics.MustRegister()

	// The HTTP surface comes up first so /setup can create the config
	api := httpapi.NewServer(configs, logger)
	httpServer := httpapi.NewHTTPServer(cfg.HTTPAddr, api.Router())
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if !configs.Ready() {
		logger.Warn("App config missing or invalid, waiting for /setup", zap.String("path", cfg.ConfigPath))
	}
	appCfg, err := configs.Wait(ctx)
	if err != nil {
		logger.Info("Shutdown before configuration was completed")
		shutdownHTTP(httpServer, logger)
		return
	}

	logger.Info("Configuration loaded successfully", zap.Int("admins", len(appCfg.AdminIDs)))

	// Open database and run migrations
	db, err := sqlite.Open(cfg.DBPath, nil)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := sqlite.Migrate(db.DB(), logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	logger.Info("Database ready", zap.String("path", db.Path()))

	// Initialize Telegram bot
	bot, err := tele.NewBot(tele.Settings{
		Token:  appCfg.BotToken,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			var userID int64
			if c != nil && c.Sender() != nil {
				userID = c.Sender().ID
			}
			logger.Error("Unhandled bot error", zap.Int64("user_id", userID), zap.Error(err))
		},
	})
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	logger.Info("Telegram bot initialized", zap.String("username", bot.Me.Username))

	// Initialize repositories and services
	store := sqlite.NewStore(db)
	notifier := handler.NewNotifier(bot)
	prov := provisioner.NewBundle(provisioner.NewScriptRunner(cfg.ScriptsDir, scriptTimeout, nil, logger), logger)
	sessions := session.NewStore()

	userService := service.NewUserService(store, notifier, logger)
	serverService := service.NewServerService(store.Servers(), logger)
	purchaseService := service.NewPurchaseService(store, prov, notifier, configs, logger)
	resellerService := service.NewResellerService(store.Users(), notifier, logger)
	depositService := service.NewDepositService(store, notifier, configs, logger)
	broadcastService := service.NewBroadcastService(store.Users(), notifier, cfg.BroadcastRate, logger)
	trialService := service.NewTrialService(store, prov, configs, logger)
	backupService := service.NewBackupService(db, cfg.BackupDir, logger)
	statsService := service.NewStatsService(store, sessions.Len, logger)

	restart := make(chan struct{}, 1)
	if cfg.RestartOnRestore {
		backupService.OnRestored = func() {
			select {
			case restart <- struct{}{}:
			default:
			}
		}
	}

	api.AttachDeposits(depositService)

	engine := conversation.New(sessions, conversation.Deps{
		Purchases:   purchaseService,
		Servers:     serverService,
		Users:       userService,
		Resellers:   resellerService,
		Deposits:    depositService,
		Broadcaster: broadcastService,
		Restorer:    backupService,
		Files:       handler.NewFiles(bot),
		Notifier:    notifier,
		Settings:    configs,
	}, logger)

	// Initialize handler
	bot.Use(
		middleware.Recover(logger),
		middleware.RateLimit(middleware.NewLimiter(3, 10), logger),
		middleware.EnsureUser(userService, logger),
	)
	h := handler.NewHandler(bot, engine, handler.Services{
		Users:    userService,
		Servers:  serverService,
		Deposits: depositService,
		Trials:   trialService,
		Backups:  backupService,
		Stats:    statsService,
	}, configs, logger)
	h.RegisterHandlers()

	logger.Info("Handlers registered")

	// Start cleanup job in background
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	go runCleanupJob(jobCtx, statsService, logger)

	// Start bot in background
	go func() {
		logger.Info("Bot started successfully")
		bot.Start()
	}()

	restarting := false
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received, stopping bot...")
	case <-restart:
		logger.Info("Database restored, restarting...")
		restarting = true
	}

	// Graceful shutdown
	bot.Stop()
	cancel()
	shutdownHTTP(httpServer, logger)

	if restarting {
		if err := db.Close(); err != nil {
			logger.Warn("Failed to close database before restart", zap.Error(err))
		}
		logger.Sync()
		if err := reexec(); err != nil {
			logger.Fatal("Failed to restart", zap.Error(err))
		}
	}

	logger.Info("Bot stopped gracefully")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func shutdownHTTP(srv *http.Server, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("HTTP server shutdown failed", zap.Error(err))
	}
}

// reexec replaces the process with a fresh copy of itself
func reexec() error {
	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locate executable: %w", err)
	}
	return syscall.Exec(exe, os.Args, os.Environ())
}

// runCleanupJob runs periodic cleanup of stale deposits
func runCleanupJob(ctx context.Context, statsService *service.StatsService, logger *zap.Logger) {
	// Run cleanup once at startup
	if err := statsService.CleanupOldData(ctx); err != nil {
		logger.Error("Failed to run initial cleanup", zap.Error(err))
	}

	// Then run every hour
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Cleanup job stopped")
			return
		case <-ticker.C:
			logger.Info("Running scheduled cleanup")
			if err := statsService.CleanupOldData(ctx); err != nil {
				logger.Error("Failed to run scheduled cleanup", zap.Error(err))
			}
		}
	}
}
