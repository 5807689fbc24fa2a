package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"qualifier-bot/internal/config"
	"qualifier-bot/internal/health"
	"qualifier-bot/internal/interviewer"
	"qualifier-bot/internal/logger"
	"qualifier-bot/internal/metrics"
	"qualifier-bot/internal/settings"
	"qualifier-bot/internal/slip"
	"qualifier-bot/internal/storage"
	"qualifier-bot/internal/telegram"
	"qualifier-bot/internal/worker"
)

const adminNotifyTimeout = 10 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start Telegram polling and the health endpoint",
	Run: func(cmd *cobra.Command, _ []string) {
		run(cmd)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("storage-driver", "", "storage backend: memory, redis, postgres or sqlite")
	runCmd.Flags().Bool("no-health", false, "do not start the health endpoint")

	viper.BindPFlag("storage.driver", runCmd.Flags().Lookup("storage-driver"))
}

func run(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	cfg, err := config.LoadAppConfig(viper.GetViper())
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	script, err := config.LoadScript(cfg.ScriptFile)
	if err != nil {
		logger.Fatal("loading the interview script", zap.Error(err))
	}

	logger.Info("starting the qualifier bot",
		zap.String("version", version),
		zap.Int("questions", script.GetTotalQuestions()),
		zap.String("storage", cfg.Storage.Driver))

	admins, invalid := config.ParseAdminIDs(cfg.Telegram.AdminIDs)
	if len(invalid) > 0 {
		logger.Warn("skipping invalid admin ids", zap.Strings("invalid", invalid))
	}
	if len(admins) == 0 {
		logger.Warn("no admin ids configured, slips will reach candidates only")
	}

	var groupChatID int64
	if raw := strings.TrimSpace(cfg.Telegram.GroupChatID); raw != "" {
		groupChatID, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("ignoring invalid group chat id", zap.String("group_chat_id", raw))
			groupChatID = 0
		}
	}

	store := openStore(ctx, cfg.Storage, logger)
	defer store.Close()

	pool := worker.NewPool(cfg.Workers.PoolSize, cfg.Workers.QueueSize, cfg.Storage.Timeout, logger.Named("jobs"))
	defer pool.Close()

	cache := settings.NewCache(store, pool, logger.Named("settings"))
	loadCtx, cancel := context.WithTimeout(ctx, cfg.Storage.Timeout)
	// Ошибка уже залогирована, бот работает на значениях по умолчанию
	_ = cache.Load(loadCtx)
	cancel()

	stats := metrics.NewMetrics(store, pool, logger.Named("metrics"))

	bot := telegram.New(cfg.Telegram.Token,
		telegram.WithBaseURL(cfg.Telegram.BaseURL),
		telegram.WithLogger(logger.Named("telegram")))

	handler := telegram.NewHandler(telegram.Deps{
		Bot:      bot,
		Machine:  interviewer.New(script, cache),
		Store:    store,
		Settings: cache,
		Metrics:  stats,
		Notifier: slip.NewNotifier(bot, admins, script.Messages.AdminPrefix, adminNotifyTimeout, logger.Named("slip")),
		Archive:  storage.NewArchive(cfg.ResultsDir),
		Jobs:     pool,
		Logger:   logger.Named("handler"),

		Admins:         admins,
		GroupChatID:    groupChatID,
		RateLimit:      cfg.Telegram.RateLimit,
		StorageTimeout: cfg.Storage.Timeout,
	})

	noHealth, _ := cmd.Flags().GetBool("no-health")
	if cfg.Server.Enabled && !noHealth {
		server := health.New(cfg.Server.Port, logger.Named("health"))
		go func() {
			if err := server.Run(ctx); err != nil {
				logger.Error("health server stopped", zap.Error(err))
			}
		}()
	}

	go cleanupRateLimiter(ctx, handler.RateLimiter())

	dispatcher := worker.NewDispatcher(cfg.Workers.Shards, cfg.Workers.QueueSize)
	defer dispatcher.Close()

	logger.Info("polling for updates", zap.Int("admins", len(admins)))

	err = bot.StartPolling(ctx, cfg.Telegram.PollTimeout, func(update telegram.Update) {
		err := dispatcher.Dispatch(ctx, telegram.KeyOf(update), func() {
			handler.HandleUpdate(ctx, update)
		})
		if err != nil {
			logger.Warn("update dropped", zap.Int("update_id", update.UpdateID), zap.Error(err))
		}
	})
	if err != nil {
		logger.Error("polling stopped", zap.Error(err))
	}

	logger.Info("shutting down")
}

func cleanupRateLimiter(ctx context.Context, limiter *telegram.RateLimiter) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			limiter.Cleanup()
		}
	}
}
