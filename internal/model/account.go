package model

import "time"

type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountSuspended AccountStatus = "suspended"
	AccountLimited   AccountStatus = "limited"
)

func (s AccountStatus) Valid() bool {
	switch s {
	case AccountActive, AccountSuspended, AccountLimited:
		return true
	}
	return false
}

// SendingAccount is a social network identity used to deliver outreach.
type SendingAccount struct {
	ID                int           `db:"id" json:"id"`
	Username          string        `db:"username" json:"username"`
	SessionID         string        `db:"session_id" json:"-"`
	IsActive          bool          `db:"is_active" json:"is_active"`
	Status            AccountStatus `db:"account_status" json:"account_status"`
	DailyMessagesSent int           `db:"daily_messages_sent" json:"daily_messages_sent"`
	DailyLimit        int           `db:"daily_limit" json:"daily_limit"`
	LastResetDate     time.Time     `db:"last_reset_date" json:"last_reset_date"`
	LastActivity      *time.Time    `db:"last_activity" json:"last_activity,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
}

// ResetIfNewDay zeroes the daily counter when the last reset happened on an
// earlier calendar day than today. It reports whether anything changed.
func (a *SendingAccount) ResetIfNewDay(today time.Time) bool {
	day := Day(today)
	if !Day(a.LastResetDate).Before(day) {
		return false
	}
	a.DailyMessagesSent = 0
	a.LastResetDate = day
	return true
}

// Remaining is the number of sends left today. Callers apply ResetIfNewDay first.
func (a *SendingAccount) Remaining() int {
	n := a.DailyLimit - a.DailyMessagesSent
	if n < 0 {
		return 0
	}
	return n
}

// Usable reports whether the account may be used when explicitly bound to a campaign.
func (a *SendingAccount) Usable() bool {
	return a.IsActive && a.Status != AccountSuspended
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
