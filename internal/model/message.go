package model

import "time"

type MessageType string

const (
	MessageInitial  MessageType = "initial"
	MessageFollowUp MessageType = "follow_up"
)

// Message is the append-only record of one delivered direct message.
type Message struct {
	ID              int         `db:"id" json:"id"`
	ProspectID      int         `db:"prospect_id" json:"prospect_id"`
	CampaignID      int         `db:"campaign_id" json:"campaign_id"`
	Content         string      `db:"content" json:"content"`
	MessageType     MessageType `db:"message_type" json:"message_type"`
	SentAt          time.Time   `db:"sent_at" json:"sent_at"`
	ResponseAt      *time.Time  `db:"response_at" json:"response_at,omitempty"`
	ResponseContent string      `db:"response_content" json:"response_content,omitempty"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}
