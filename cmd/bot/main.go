package main

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"technews-bot/internal/config"
	"technews-bot/internal/infra/blob"
	providerInfra "technews-bot/internal/infra/provider"
	"technews-bot/internal/infra/telegram"
	"technews-bot/internal/infra/worker"
	"technews-bot/internal/usecase/digest"
	"technews-bot/internal/usecase/notify"
	providerUC "technews-bot/internal/usecase/provider"
	"technews-bot/internal/usecase/subscriber"
)

// jobTimeout bounds one scheduled run end to end, on top of the
// per-provider timeouts inside it.
const jobTimeout = 10 * time.Minute

// task is one scheduled unit of work. The list is assembled in main and
// handed to the scheduler, so tests and future jobs only touch buildTasks.
type task struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
}

func main() {
	_ = godotenv.Load()
	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := worker.NewMetrics()
	workerCfg, err := worker.LoadConfigFromEnv(logger, metrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("update_schedule", workerCfg.UpdateSchedule),
		slog.String("digest_schedule", workerCfg.DigestSchedule),
		slog.Bool("blacklist_reset_enabled", workerCfg.BlacklistResetEnabled),
		slog.String("timezone", workerCfg.Timezone),
		slog.Duration("provider_timeout", workerCfg.ProviderTimeout))

	configPath := os.Getenv("BOT_CONFIG")
	if configPath == "" {
		configPath = config.DefaultPath
	}
	botCfg, err := config.Load(configPath)
	if err != nil {
		logger.Error("failed to load bot configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, err := blob.NewFileStore(botCfg.DataDir)
	if err != nil {
		logger.Error("failed to open data directory",
			slog.String("dir", botCfg.DataDir),
			slog.Any("error", err))
		os.Exit(1)
	}

	providers := buildProviders(logger, botCfg, store)
	if len(providers) == 0 {
		logger.Error("no providers configured")
		os.Exit(1)
	}
	digests := digest.NewService(providers, workerCfg.ProviderTimeout)

	registry, err := subscriber.NewRegistry(ctx, store)
	if err != nil {
		logger.Error("failed to load subscribers", slog.Any("error", err))
		os.Exit(1)
	}

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		logger.Error("TELEGRAM_BOT_TOKEN is required")
		os.Exit(1)
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		logger.Error("failed to authorize bot", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("bot authorized", slog.String("username", api.Self.UserName))

	client := telegram.NewClient(api)
	broadcaster := notify.NewService(client, registry, workerCfg.BroadcastMaxConcurrent)
	bot := telegram.NewBot(api, client, registry, digests, telegram.AccessConfig{
		AllowlistEnabled: botCfg.Telegram.AllowlistEnabled,
		Allowed:          botCfg.Telegram.AllowedUsers,
		OpenSubscribe:    botCfg.Telegram.OpenSubscribe,
	})

	startMetricsServer(ctx, logger, workerCfg.MetricsPort)

	healthServer := worker.NewHealthServer(fmt.Sprintf(":%d", workerCfg.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	scheduler, err := startScheduler(logger, workerCfg, metrics, buildTasks(workerCfg, digests, broadcaster))
	if err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	healthServer.SetReady(true)

	go func() {
		if err := bot.Run(ctx); err != nil && err != context.Canceled {
			logger.Error("command loop stopped", slog.Any("error", err))
		}
	}()

	logger.Info("bot started",
		slog.Int("providers", len(providers)),
		slog.Int("subscribers", subscriberCount(ctx, registry)))

	<-ctx.Done()
	logger.Info("shutting down")
	healthServer.SetReady(false)

	// Let a running job finish before exiting.
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(30 * time.Second):
		logger.Warn("scheduler did not drain in time")
	}
	logger.Info("shutdown complete")
}

func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// buildProviders assembles the provider list from the config file. The
// slice order is the digest order: HackerNews first, then RSS feeds as
// configured.
func buildProviders(logger *slog.Logger, cfg config.BotConfig, store *blob.FileStore) []providerUC.Provider {
	client := newHTTPClient()
	var providers []providerUC.Provider

	if cfg.Providers.HackerNews.Enabled {
		hn, err := providerInfra.NewHackerNews(providerInfra.HackerNewsConfig{
			DefaultCategory: cfg.Providers.HackerNews.DefaultCategory,
			Selection:       providerUC.Selection(cfg.Providers.HackerNews.Selection),
		}, client, store)
		if err != nil {
			logger.Error("skipping HackerNews provider", slog.Any("error", err))
		} else {
			providers = append(providers, hn)
		}
	}

	for _, feed := range cfg.Providers.RSS {
		rss, err := providerInfra.NewRSS(providerInfra.RSSConfig{
			Name:      feed.Name,
			FeedURL:   feed.FeedURL,
			UserAgent: feed.UserAgent,
			MaxItems:  feed.MaxItems,
		}, client, store)
		if err != nil {
			logger.Error("skipping RSS provider",
				slog.String("name", feed.Name),
				slog.Any("error", err))
			continue
		}
		providers = append(providers, rss)
	}

	for _, p := range providers {
		logger.Info("provider registered", slog.String("provider", p.Name()))
	}
	return providers
}

// buildTasks is the injected schedule: what runs, and when.
func buildTasks(cfg *worker.Config, digests *digest.Service, broadcaster *notify.Service) []task {
	tasks := []task{
		{
			name:     "update",
			schedule: cfg.UpdateSchedule,
			run: func(ctx context.Context) error {
				digests.UpdateAll(ctx)
				return nil
			},
		},
		{
			name:     "digest",
			schedule: cfg.DigestSchedule,
			run: func(ctx context.Context) error {
				text := digests.Collect(ctx)
				return broadcaster.Broadcast(ctx, text, true)
			},
		},
	}
	if cfg.BlacklistResetEnabled {
		tasks = append(tasks, task{
			name:     "blacklist_reset",
			schedule: cfg.BlacklistResetSchedule,
			run: func(ctx context.Context) error {
				digests.CleanAll(ctx)
				return nil
			},
		})
	}
	return tasks
}

// startScheduler registers the task list with a cron runner in the
// configured timezone and starts it.
func startScheduler(logger *slog.Logger, cfg *worker.Config, metrics *worker.Metrics, tasks []task) (*cron.Cron, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC",
			slog.String("timezone", cfg.Timezone),
			slog.Any("error", err))
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))
	for _, t := range tasks {
		t := t
		_, err := c.AddFunc(t.schedule, func() {
			runJob(logger, metrics, t)
		})
		if err != nil {
			return nil, fmt.Errorf("schedule %s (%s): %w", t.name, t.schedule, err)
		}
		logger.Info("job scheduled",
			slog.String("job", t.name),
			slog.String("schedule", t.schedule))
	}
	c.Start()
	return c, nil
}

func runJob(logger *slog.Logger, metrics *worker.Metrics, t task) {
	start := time.Now()
	logger.Info("job started", slog.String("job", t.name))

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	err := t.run(ctx)
	metrics.RecordJob(t.name, start, err)
	if err != nil {
		logger.Error("job failed",
			slog.String("job", t.name),
			slog.Duration("duration", time.Since(start)),
			slog.Any("error", err))
		return
	}
	logger.Info("job completed",
		slog.String("job", t.name),
		slog.Duration("duration", time.Since(start)))
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

func subscriberCount(ctx context.Context, registry *subscriber.Registry) int {
	ids, err := registry.List(ctx)
	if err != nil {
		return 0
	}
	return len(ids)
}
