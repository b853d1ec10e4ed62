package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)
	if cfg.AMQPURL == "" {
		log.Fatal("AMQP_URL is required for the worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	q, err := queue.NewAMQPQueue(cfg.AMQPURL, log)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer q.Close()

	worker := service.NewWorker(a.Campaigns, log)
	if err := q.Subscribe(queue.TopicOutreachRuns, func(payload []byte) error {
		return worker.HandleJob(ctx, payload)
	}); err != nil {
		log.Fatal("failed to register consumer", zap.Error(err))
	}

	log.Info("worker running, waiting for outreach runs")
	<-ctx.Done()
	log.Info("worker stopping")
}
