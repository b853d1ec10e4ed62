// Package app wires configuration into the services shared by every binary.
package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/lock"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/transport"
)

type App struct {
	DB    *sql.DB
	Redis *redis.Client

	CampaignRepo *repository.CampaignRepository
	ProspectRepo *repository.ProspectRepository
	AccountRepo  *repository.AccountRepository
	MessageRepo  *repository.MessageRepository

	Quota     *service.QuotaManager
	Templates *service.MessageTemplates
	Campaigns *service.CampaignService
	Prospects *service.ProspectService
	Accounts  *service.AccountService
}

// New connects to postgres, and to redis when configured, and builds the
// services. Without redis, account locks only cover this process.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	conn, err := db.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, conn, log); err != nil {
		conn.Close()
		return nil, err
	}

	a := &App{DB: conn}

	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			conn.Close()
			return nil, err
		}
		a.Redis = rdb
		locker = lock.NewRedisLocker(rdb, cfg.LockTTL, log)
	}

	var tr transport.Transport
	if cfg.ActorAPIToken != "" {
		tr = transport.NewActorClient(cfg.ActorAPIURL, cfg.ActorAPIToken, cfg.ActorID, cfg.MessageDelay, log)
	} else {
		tr = transport.NewMockTransport(cfg.MockSendSuccessPct, time.Now().UnixNano())
	}

	templates, err := service.NewMessageTemplates(nil)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Templates = templates

	a.CampaignRepo = &repository.CampaignRepository{DB: conn}
	a.ProspectRepo = &repository.ProspectRepository{DB: conn}
	a.AccountRepo = &repository.AccountRepository{DB: conn}
	a.MessageRepo = &repository.MessageRepository{DB: conn}

	a.Quota = service.NewQuotaManager(
		repository.NewOutreachRepository(conn),
		templates,
		tr,
		locker,
		service.QuotaManagerConfig{MessageDelay: cfg.MessageDelay, BatchSize: cfg.BatchSize},
		log,
	)

	a.Campaigns = &service.CampaignService{
		CampaignRepo:      a.CampaignRepo,
		ProspectRepo:      a.ProspectRepo,
		Quota:             a.Quota,
		Templates:         templates,
		Log:               log,
		DefaultDailyLimit: cfg.DefaultDailyLimit,
		BatchSize:         cfg.BatchSize,
	}
	a.Prospects = &service.ProspectService{ProspectRepo: a.ProspectRepo}
	a.Accounts = &service.AccountService{AccountRepo: a.AccountRepo, DefaultDailyLimit: cfg.AccountDailyLimit}

	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		a.Redis.Close()
	}
	a.DB.Close()
}
