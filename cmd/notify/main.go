package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tazhibayda/event-service/internal/config"
	"github.com/tazhibayda/event-service/internal/log"
	"github.com/tazhibayda/event-service/internal/mail"
	"github.com/tazhibayda/event-service/internal/metrics"
	"github.com/tazhibayda/event-service/internal/notify"
	"github.com/tazhibayda/event-service/internal/queue"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := log.Init(cfg.LogProd)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.MustRegister()

	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required")
	}
	cons, err := queue.NewConsumer(cfg.RabbitURL, cfg.RabbitExchange, cfg.RabbitQueue, queue.KeyMailSend)
	if err != nil {
		logger.Fatal("rabbit consumer init failed", zap.Error(err))
	}
	defer cons.Close()

	var sender mail.Sender
	if cfg.MailTransport == "log" {
		sender = &mail.LogSender{Log: logger.Named("mail")}
	} else {
		sender = mail.NewSMTP(mail.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("notify worker up",
		zap.String("exchange", cfg.RabbitExchange),
		zap.String("queue", cfg.RabbitQueue),
		zap.String("key", queue.KeyMailSend),
		zap.Int("workers", cfg.RabbitConcurrency))

	if err := cons.Consume(ctx, cfg.RabbitConcurrency, notify.MailHandler(sender, logger.Named("notify"))); err != nil {
		logger.Fatal("consumer stopped", zap.Error(err))
	}
}
