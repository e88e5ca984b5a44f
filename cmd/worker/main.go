// Command worker runs the notification consumer: it drains the linking
// queue, resolves telegram handles, and sends welcome messages. It shares
// nothing with the HTTP service except the queue.
package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/loomery/identity-system/internal/core/ports"
	"github.com/loomery/identity-system/internal/core/service"
	"github.com/loomery/identity-system/internal/infrastructure/config"
	"github.com/loomery/identity-system/internal/infrastructure/queue"
	"github.com/loomery/identity-system/internal/infrastructure/telegram"
	"github.com/loomery/identity-system/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb, err := queue.Connect(ctx, queue.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	messenger := telegram.NewClient(telegram.Config{BotToken: cfg.Telegram.BotToken})
	notifier := service.NewNotificationService(messenger, ports.NoRetry, log)
	consumer := queue.NewConsumer(rdb, cfg.Queue.Stream, cfg.Queue.Group, notifier, log)

	if err := consumer.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("consumer failed")
	}
	log.Info().Msg("worker stopped")
}
