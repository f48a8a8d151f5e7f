package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/wb-tariffs/internal/bot"
	"github.com/Spok95/wb-tariffs/internal/config"
	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
	"github.com/Spok95/wb-tariffs/internal/infra/db"
	httpx "github.com/Spok95/wb-tariffs/internal/infra/http"
	"github.com/Spok95/wb-tariffs/internal/infra/lock"
	"github.com/Spok95/wb-tariffs/internal/infra/logger"
	"github.com/Spok95/wb-tariffs/internal/infra/metrics"
	"github.com/Spok95/wb-tariffs/internal/sheets"
	"github.com/Spok95/wb-tariffs/internal/tariffsync"
	"github.com/Spok95/wb-tariffs/internal/wb"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("config load failed", "err", err)
		return err
	}

	log := logger.New(cfg.App.Env, cfg.App.LogFormat)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dsn := cfg.PostgresDSN()
	if err := db.Migrate(dsn, log); err != nil {
		log.Error("migrations failed", "err", err)
		return err
	}

	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Error("db connect failed", "err", err)
		return err
	}
	defer pool.Close()
	log.Info("db connected")

	repo := tariffs.NewRepo(pool)

	sheet, err := sheets.New(ctx, cfg.Sheets.CredentialsFile)
	if err != nil {
		log.Error("google sheets init failed", "err", err, "credentials", cfg.Sheets.CredentialsFile)
		return err
	}

	policy := tariffs.PolicyLenient
	if cfg.WB.StrictNumbers {
		policy = tariffs.PolicyStrict
	}
	client := wb.NewClient(wb.Options{
		Primary: wb.Endpoint{
			BaseURL: cfg.WB.APIHost,
			APIKey:  cfg.WB.APIKey,
			Policy:  wb.Policy{Retries: cfg.WB.Retries, Delay: cfg.WB.RetryDelay, Timeout: cfg.WB.PrimaryTimeout},
		},
		Fallback: wb.Endpoint{
			BaseURL: cfg.WB.MockHost,
			Policy:  wb.Policy{Retries: cfg.WB.Retries, Delay: cfg.WB.RetryDelay, Timeout: cfg.WB.FallbackTimeout},
		},
		Policy: policy,
		Log:    log,
		Observe: func(src wb.Source, attempts int, err error) {
			metrics.ObserveFetch(string(src), attempts, err)
		},
	})

	var locker tariffsync.Locker = lock.NewLocal()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			log.Error("redis connect failed", "err", err, "addr", cfg.Redis.Addr)
			return err
		}
		defer func() { _ = rdb.Close() }()
		locker = lock.NewRedis(rdb, cfg.Redis.LockKey, cfg.Redis.LockTTL)
		log.Info("using redis run lock", "addr", cfg.Redis.Addr, "key", cfg.Redis.LockKey)
	}

	var tg *bot.Bot
	var notifier tariffsync.Notifier
	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			log.Error("telegram init failed", "err", err)
			return err
		}
		tg = bot.New(api, log, cfg.Telegram.AdminChatID, repo, nil)
		notifier = tg
		log.Info("telegram bot authorized", "username", api.Self.UserName)
	}

	svc := tariffsync.NewService(tariffsync.Deps{
		Fetcher:       client,
		Store:         repo,
		Mirror:        sheet,
		Notifier:      notifier,
		Locker:        locker,
		SpreadsheetID: cfg.Sheets.SpreadsheetID,
		Log:           log,
	})

	sched, err := tariffsync.NewScheduler(svc, cfg.Sync.Cron, cfg.Location(), log)
	if err != nil {
		log.Error("scheduler init failed", "err", err)
		return err
	}

	// планировщик стартует до HTTP и бота: ручной /sync идёт уже на ctx процесса
	sched.Start(ctx)
	log.Info("app initialized", "cron", cfg.Sync.Cron, "timezone", cfg.App.Timezone)

	srv := httpx.New(cfg.HTTPAddr(), cfg.Metrics.Enabled, httpx.Deps{Store: repo, Sync: sched, Log: log})
	go func() {
		if err := srv.Start(); err != nil && !httpx.IsServerClosed(err) {
			log.Error("http server error", "err", err)
		}
	}()
	log.Info("HTTP server started", "addr", cfg.HTTPAddr())

	if tg != nil {
		tg.SetTrigger(sched)
		go func() {
			if err := tg.Run(ctx, 60); err != nil && ctx.Err() == nil {
				log.Error("telegram bot stopped", "err", err)
			}
		}()
	}

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	sched.Stop()
	log.Info("graceful shutdown complete")
	return nil
}
