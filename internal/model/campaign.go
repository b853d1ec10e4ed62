// internal/model/campaign.go
package model

import "time"

type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
)

func (s CampaignStatus) Valid() bool {
	switch s {
	case CampaignDraft, CampaignActive, CampaignPaused, CampaignCompleted:
		return true
	}
	return false
}

type Campaign struct {
	ID                int            `db:"id" json:"id"`
	Name              string         `db:"name" json:"name"`
	Description       string         `db:"description" json:"description"`
	Hashtags          string         `db:"hashtags" json:"hashtags"`
	TargetAccounts    string         `db:"target_accounts" json:"target_accounts"`
	SendingAccountID  *int           `db:"sending_account_id" json:"sending_account_id,omitempty"`
	Status            CampaignStatus `db:"status" json:"status"`
	DailyLimit        int            `db:"daily_limit" json:"daily_limit"`
	MessagesSent      int            `db:"messages_sent" json:"messages_sent"`
	ResponsesReceived int            `db:"responses_received" json:"responses_received"`
	Conversions       int            `db:"conversions" json:"conversions"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         *time.Time     `db:"updated_at" json:"updated_at,omitempty"`
}
