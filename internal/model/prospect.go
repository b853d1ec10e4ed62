package model

import "time"

type ProspectStatus string

const (
	ProspectDiscovered ProspectStatus = "discovered"
	ProspectQualified  ProspectStatus = "qualified"
	ProspectMessaged   ProspectStatus = "messaged"
	ProspectResponded  ProspectStatus = "responded"
	ProspectConverted  ProspectStatus = "converted"
	ProspectRejected   ProspectStatus = "rejected"
)

func (s ProspectStatus) Valid() bool {
	switch s {
	case ProspectDiscovered, ProspectQualified, ProspectMessaged,
		ProspectResponded, ProspectConverted, ProspectRejected:
		return true
	}
	return false
}

type Prospect struct {
	ID                 int            `db:"id" json:"id"`
	Username           string         `db:"username" json:"username"`
	FullName           string         `db:"full_name" json:"full_name"`
	Followers          int            `db:"followers" json:"followers"`
	Following          int            `db:"following" json:"following"`
	PostsCount         int            `db:"posts_count" json:"posts_count"`
	EngagementRate     float64        `db:"engagement_rate" json:"engagement_rate"`
	Bio                string         `db:"bio" json:"bio"`
	CoachScore         float64        `db:"coach_score" json:"coach_score"`
	ValueScore         float64        `db:"value_score" json:"value_score"`
	Niche              string         `db:"niche" json:"niche"`
	Status             ProspectStatus `db:"status" json:"status"`
	DMSent             bool           `db:"dm_sent" json:"dm_sent"`
	DMSentAt           *time.Time     `db:"dm_sent_at" json:"dm_sent_at,omitempty"`
	ResponseReceived   bool           `db:"response_received" json:"response_received"`
	ResponseReceivedAt *time.Time     `db:"response_received_at" json:"response_received_at,omitempty"`
	ProfileURL         string         `db:"profile_url" json:"profile_url"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time      `db:"updated_at" json:"updated_at"`
}

// Eligible reports whether the prospect may still receive a first message.
func (p *Prospect) Eligible() bool {
	return p.Status == ProspectQualified && !p.DMSent
}
