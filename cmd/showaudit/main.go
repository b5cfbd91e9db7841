package main // Entry point of the show event audit consumer

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/iliyamo/showdesk/internal/config"
	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/queue"
)

func main() {
	config.LoadDotEnv()
	cfg := config.LoadAudit()
	log := logging.New(cfg.Common, "showaudit")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := &queue.AuditConsumer{URL: cfg.AMQPURL, Dir: cfg.Dir, Log: log}
	log.WithField("dir", cfg.Dir).Info("audit consumer starting")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("audit consumer stopped")
	}
}
