package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// OutreachJob is the queue payload asking for one outreach run.
type OutreachJob struct {
	CampaignID int       `json:"campaign_id"`
	QueuedAt   time.Time `json:"queued_at"`
}

// CampaignRunner runs outreach for a campaign.
type CampaignRunner interface {
	RunCampaign(ctx context.Context, campaignID int) (*OutreachResult, error)
}

// Worker processes outreach jobs taken from the queue.
type Worker struct {
	Runner CampaignRunner
	Log    *zap.Logger
}

func NewWorker(runner CampaignRunner, log *zap.Logger) *Worker {
	return &Worker{Runner: runner, Log: log}
}

// HandleJob runs one job. Only failures that happened before anything was
// sent are returned, so a queue retry can never double-send. Everything else
// is logged and acknowledged.
func (w *Worker) HandleJob(ctx context.Context, payload []byte) error {
	var job OutreachJob
	if err := json.Unmarshal(payload, &job); err != nil || job.CampaignID <= 0 {
		w.Log.Warn("invalid outreach job, dropping", zap.ByteString("payload", payload))
		return nil
	}
	log := w.Log.With(zap.Int("campaign_id", job.CampaignID))

	result, err := w.Runner.RunCampaign(ctx, job.CampaignID)
	if err == nil {
		log.Info("outreach job done", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed),
			zap.Int("account_id", result.AccountID))
		return nil
	}

	var perr *appErrors.PersistenceError
	switch {
	case errors.As(err, &perr):
		log.Error("outreach job stopped, delivered messages not recorded",
			zap.Strings("unrecorded", perr.Unrecorded), zap.Error(err))
		return nil
	case errors.Is(err, appErrors.ErrNoAccountAvailable),
		errors.Is(err, appErrors.ErrAccountUnavailable),
		errors.Is(err, appErrors.ErrCampaignNotActive),
		appErrors.IsNotFound(err):
		log.Warn("outreach job skipped", zap.Error(err))
		return nil
	case result != nil:
		log.Warn("outreach job interrupted", zap.Int("sent", result.Sent), zap.Error(err))
		return nil
	}

	log.Warn("outreach job failed before sending", zap.Error(err))
	return err
}
