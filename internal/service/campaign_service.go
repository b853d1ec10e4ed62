// internal/service/campaign_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	ProspectRepo repository.ProspectRepositoryInterface
	Quota        *QuotaManager
	Templates    *MessageTemplates
	Queue        queue.Queue
	Log          *zap.Logger

	DefaultDailyLimit int
	BatchSize         int
}

type CreateCampaignInput struct {
	Name             string `json:"name"`
	Description      string `json:"description"`
	Hashtags         string `json:"hashtags"`
	TargetAccounts   string `json:"target_accounts"`
	SendingAccountID *int   `json:"sending_account_id,omitempty"`
	DailyLimit       int    `json:"daily_limit"`
	Status           string `json:"status"`
}

type SendCampaignResult struct {
	CampaignID int    `json:"campaign_id"`
	Status     string `json:"status"`
}

type QuotaInfo struct {
	CampaignID      int    `json:"campaign_id"`
	AccountID       int    `json:"account_id,omitempty"`
	AccountUsername string `json:"account_username,omitempty"`
	Remaining       int    `json:"remaining"`
	Reason          string `json:"reason,omitempty"`
}

type CampaignDetails struct {
	model.Campaign
	Stats map[string]int `json:"stats"`
	Quota *QuotaInfo     `json:"quota"`
}

func (s *CampaignService) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s *CampaignService) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", appErrors.ErrInvalidInput)
	}
	c := &model.Campaign{
		Name:             in.Name,
		Description:      in.Description,
		Hashtags:         in.Hashtags,
		TargetAccounts:   in.TargetAccounts,
		SendingAccountID: in.SendingAccountID,
		DailyLimit:       in.DailyLimit,
		Status:           model.CampaignStatus(in.Status),
	}
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	if !c.Status.Valid() {
		return nil, fmt.Errorf("%w: campaign status %q", appErrors.ErrInvalidInput, in.Status)
	}
	if c.DailyLimit <= 0 {
		c.DailyLimit = s.DefaultDailyLimit
	}

	if err := s.CampaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(ctx context.Context, page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(ctx, offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(ctx context.Context, id int) (*model.Campaign, error) {
	return s.CampaignRepo.GetByID(ctx, id)
}

func (s *CampaignService) GetCampaignDetailsWithStats(ctx context.Context, campaignID int) (*CampaignDetails, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	stats, err := s.CampaignRepo.GetCampaignStats(ctx, campaignID, s.Quota.Now())
	if err != nil {
		return nil, err
	}

	quota, err := s.quotaFor(ctx, campaign)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{Campaign: *campaign, Stats: stats, Quota: quota}, nil
}

func (s *CampaignService) UpdateStatus(ctx context.Context, campaignID int, status string) error {
	st := model.CampaignStatus(status)
	if !st.Valid() {
		return fmt.Errorf("%w: campaign status %q", appErrors.ErrInvalidInput, status)
	}
	return s.CampaignRepo.UpdateStatus(ctx, campaignID, st)
}

// QuotaReport reports which account the next run would use and how many messages
// it may send.
func (s *CampaignService) QuotaReport(ctx context.Context, campaignID int) (*QuotaInfo, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return s.quotaFor(ctx, campaign)
}

func (s *CampaignService) quotaFor(ctx context.Context, campaign *model.Campaign) (*QuotaInfo, error) {
	info := &QuotaInfo{CampaignID: campaign.ID}

	acct, err := s.Quota.SelectAccount(ctx, campaign)
	switch {
	case errors.Is(err, appErrors.ErrNoAccountAvailable), errors.Is(err, appErrors.ErrAccountUnavailable):
		info.Reason = err.Error()
		return info, nil
	case err != nil:
		return nil, err
	}

	remaining, err := s.Quota.RemainingQuota(ctx, acct, campaign)
	if err != nil {
		return nil, err
	}
	info.AccountID = acct.ID
	info.AccountUsername = acct.Username
	info.Remaining = remaining
	return info, nil
}

// RenderPreview renders the message a prospect would receive.
func (s *CampaignService) RenderPreview(ctx context.Context, campaignID, prospectID int, messageType string) (string, error) {
	if _, err := s.CampaignRepo.GetByID(ctx, campaignID); err != nil {
		return "", err
	}

	prospect, err := s.ProspectRepo.GetByID(ctx, prospectID)
	if err != nil {
		return "", err
	}

	kind := model.MessageInitial
	if messageType == string(model.MessageFollowUp) {
		kind = model.MessageFollowUp
	}
	return s.Templates.GenerateOfType(ProfileOf(prospect), kind), nil
}

// SendCampaign queues an outreach run for the campaign.
func (s *CampaignService) SendCampaign(ctx context.Context, campaignID int) (*SendCampaignResult, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignActive {
		return nil, fmt.Errorf("%w: campaign %d is %s", appErrors.ErrCampaignNotActive, campaign.ID, campaign.Status)
	}

	payload, err := json.Marshal(OutreachJob{CampaignID: campaignID, QueuedAt: time.Now().UTC()})
	if err != nil {
		return nil, err
	}
	if err := s.Queue.Publish(queue.TopicOutreachRuns, payload); err != nil {
		return nil, fmt.Errorf("enqueue outreach run: %w", err)
	}

	s.logger().Info("outreach run queued", zap.Int("campaign_id", campaignID))
	return &SendCampaignResult{CampaignID: campaignID, Status: "queued"}, nil
}

// RunCampaign runs outreach for the campaign right away over the qualified
// prospects that were never messaged, oldest first.
func (s *CampaignService) RunCampaign(ctx context.Context, campaignID int) (*OutreachResult, error) {
	campaign, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.Status != model.CampaignActive {
		return nil, fmt.Errorf("%w: campaign %d is %s", appErrors.ErrCampaignNotActive, campaign.ID, campaign.Status)
	}

	// The quota never exceeds the campaign cap, so that bounds the candidates.
	candidates, err := s.ProspectRepo.ListEligible(ctx, campaign.DailyLimit)
	if err != nil {
		return nil, err
	}

	return s.Quota.RunOutreachBatch(ctx, campaign, candidates, s.BatchSize)
}
