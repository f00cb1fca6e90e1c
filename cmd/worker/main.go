// cmd/worker/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/unclebandit/newsletter-backoffice/internal/config"
	"github.com/unclebandit/newsletter-backoffice/internal/journal"
	"github.com/unclebandit/newsletter-backoffice/internal/logging"
	"github.com/unclebandit/newsletter-backoffice/internal/queue"
	"github.com/unclebandit/newsletter-backoffice/internal/service"
)

// consumer is a queue whose deliveries are pulled by Consume.
type consumer interface {
	queue.Queue
	Consume(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.Exitf("config: %v", err)
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		config.Exitf("%v", err)
	}
	if cfg.AMQPURL == "" {
		config.Exitf("AMQP_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	j, closeJournal, err := journal.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		logrus.Fatalf("failed to open journal: %v", err)
	}
	defer closeJournal()

	q, err := queue.DialAMQP(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		logrus.Fatalf("failed to connect to broker: %v", err)
	}
	defer q.Close()

	logrus.Infof("Worker running, waiting for events on %s", cfg.AMQPQueue)
	if err := run(ctx, q, j); err != nil {
		logrus.Fatalf("worker: %v", err)
	}
	logrus.Info("Worker stopped")
}

// run records every dispatch event delivered by c until ctx is done.
func run(ctx context.Context, c consumer, j journal.Journal) error {
	if err := service.NewWorker(j).Start(c); err != nil {
		return err
	}
	return c.Consume(ctx)
}
