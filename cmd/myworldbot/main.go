package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"myworld-planner/internal/bot"
	"myworld-planner/internal/config"
	"myworld-planner/internal/gateway"
	"myworld-planner/internal/httpserver"
	"myworld-planner/internal/logger"
	"myworld-planner/internal/repository"
	"myworld-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	zl := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	defer func() { _ = zl.Sync() }()

	zl.Info("starting", zap.String("env", cfg.Env), zap.String("api", cfg.APIBaseURL))

	db, err := repository.NewDB(cfg.DatabaseURL, zl)
	if err != nil {
		zl.Fatal("db", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err == nil {
		defer sqlDB.Close()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gw, err := gateway.New(
		gateway.Config{BaseURL: cfg.APIBaseURL, Timeout: cfg.RequestTimeout, AITimeout: cfg.AIRequestTimeout},
		gateway.WithLogger(zl.Named("gateway")),
		gateway.WithMetrics(gateway.NewMetrics(reg)),
	)
	if err != nil {
		zl.Fatal("gateway", zap.Error(err))
	}

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		zl.Fatal("telegram", zap.Error(err))
	}

	telegramBot, err := bot.New(api, bot.Deps{
		Gateway:  gw,
		Chats:    repository.NewChatRepository(db),
		Digest:   service.NewDigestService(),
		Logger:   zl.Named("bot"),
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		zl.Fatal("bot", zap.Error(err))
	}

	scheduler := service.NewSchedulerService(time.Local, zl.Named("scheduler"), 5*time.Minute)
	switch {
	case cfg.DigestAt != "":
		if _, err := scheduler.ScheduleDaily("digest", cfg.DigestAt, telegramBot.SendDigests); err != nil {
			zl.Fatal("schedule digest", zap.Error(err))
		}
	case cfg.DigestInterval > 0:
		if _, err := scheduler.ScheduleInterval("digest", cfg.DigestInterval, telegramBot.SendDigests); err != nil {
			zl.Fatal("schedule digest", zap.Error(err))
		}
	}
	if cfg.RefreshInterval > 0 {
		if _, err := scheduler.ScheduleInterval("token-refresh", cfg.RefreshInterval, telegramBot.RefreshTokens); err != nil {
			zl.Fatal("schedule token refresh", zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	if cfg.MetricsAddr != "" {
		ops := httpserver.New(cfg.MetricsAddr, reg, zl.Named("ops"))
		if err := ops.Start(); err != nil {
			zl.Fatal("ops server", zap.Error(err))
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ops.Shutdown(shutdownCtx); err != nil {
				zl.Warn("ops server shutdown", zap.Error(err))
			}
		}()
	}

	zl.Info("MyWorld planner bot started", zap.Int("jobs", scheduler.Entries()))
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error("bot stopped with error", zap.Error(err))
	}
	zl.Info("shutdown complete")
}
