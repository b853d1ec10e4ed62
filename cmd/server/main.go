// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/app"
	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/handler"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", zap.Error(err))
	}
	defer a.Close()

	// Runs go to the broker when one is configured, otherwise they run here.
	var inMemory *queue.InMemoryQueue
	if cfg.AMQPURL != "" {
		q, err := queue.NewAMQPQueue(cfg.AMQPURL, log)
		if err != nil {
			log.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer q.Close()
		a.Campaigns.Queue = q
	} else {
		inMemory = queue.NewInMemoryQueue(log)
		worker := service.NewWorker(a.Campaigns, log)
		if err := inMemory.Subscribe(queue.TopicOutreachRuns, func(payload []byte) error {
			return worker.HandleJob(ctx, payload)
		}); err != nil {
			log.Fatal("failed to subscribe", zap.Error(err))
		}
		a.Campaigns.Queue = inMemory
		log.Info("AMQP_URL is not set, outreach runs execute in-process")
	}

	router := handler.NewRouter(handler.Handlers{
		Campaigns: &controller.CampaignController{CampaignService: a.Campaigns, Log: log},
		Prospects: &handler.ProspectHandler{Service: a.Prospects, Log: log},
		Accounts:  &handler.AccountHandler{Service: a.Accounts, Log: log},
		Messages:  &handler.MessageHandler{Repo: a.MessageRepo, Log: log},
		Auth: &handler.AuthHandler{
			Username:   cfg.AdminUsername,
			Password:   cfg.AdminPassword,
			Secret:     cfg.JWTSecret,
			Expiration: cfg.JWTExpiration,
			Log:        log,
		},
		DB:    a.DB,
		Redis: a.Redis,
	}, handler.RouterConfig{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimit,
	}, log)

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if inMemory != nil {
		if err := inMemory.Wait(shutdownCtx); err != nil {
			log.Warn("outreach runs still in flight at exit", zap.Error(err))
		}
	}
}
