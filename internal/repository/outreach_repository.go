package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/unclebandit/outreach-backend/internal/model"
)

const dateLayout = "2006-01-02"

// SendRecord is the bookkeeping for one delivered group.
type SendRecord struct {
	AccountID   int
	CampaignID  int
	ProspectIDs []int
	Content     string
	SentAt      time.Time
}

// OutreachRepository is the store behind the quota manager.
type OutreachRepository struct {
	DB        *sql.DB
	Accounts  AccountRepositoryInterface
	Campaigns CampaignRepositoryInterface
}

func NewOutreachRepository(db *sql.DB) *OutreachRepository {
	return &OutreachRepository{
		DB:        db,
		Accounts:  &AccountRepository{DB: db},
		Campaigns: &CampaignRepository{DB: db},
	}
}

func (r *OutreachRepository) GetAccount(ctx context.Context, id int) (*model.SendingAccount, error) {
	return r.Accounts.GetByID(ctx, id)
}

func (r *OutreachRepository) ListActiveAccounts(ctx context.Context) ([]*model.SendingAccount, error) {
	return r.Accounts.ListActive(ctx)
}

func (r *OutreachRepository) CountCampaignMessages(ctx context.Context, campaignID int, day time.Time) (int, error) {
	from := model.Day(day)
	return r.Campaigns.CountMessagesBetween(ctx, campaignID, from, from.AddDate(0, 0, 1))
}

// SentProspectIDs returns which of ids are already flagged as messaged.
func (r *OutreachRepository) SentProspectIDs(ctx context.Context, ids []int) (map[int]bool, error) {
	sent := map[int]bool{}
	if len(ids) == 0 {
		return sent, nil
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id FROM prospects WHERE id = ANY($1) AND dm_sent = TRUE`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		sent[id] = true
	}
	return sent, rows.Err()
}

// RecordSends applies the bookkeeping for one group in a single transaction:
// prospects flagged as messaged, one message row each, campaign and account
// counters incremented. Prospects already flagged are left alone and not
// counted. It returns the ids that were recorded.
func (r *OutreachRepository) RecordSends(ctx context.Context, rec SendRecord) ([]int, error) {
	if len(rec.ProspectIDs) == 0 {
		return nil, nil
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
        UPDATE prospects
        SET dm_sent = TRUE, dm_sent_at = $1, status = 'messaged', updated_at = $1
        WHERE id = ANY($2) AND dm_sent = FALSE
        RETURNING id
    `, rec.SentAt, pq.Array(rec.ProspectIDs))
	if err != nil {
		return nil, fmt.Errorf("mark prospects: %w", err)
	}
	recorded := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		recorded = append(recorded, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(recorded) == 0 {
		return recorded, tx.Commit()
	}

	for _, id := range recorded {
		_, err := tx.ExecContext(ctx, `
            INSERT INTO messages (prospect_id, campaign_id, content, message_type, sent_at, created_at)
            VALUES ($1, $2, $3, 'initial', $4, $4)
        `, id, rec.CampaignID, rec.Content, rec.SentAt)
		if err != nil {
			return nil, fmt.Errorf("insert message for prospect %d: %w", id, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE campaigns SET messages_sent = messages_sent + $1, updated_at = $2 WHERE id = $3
    `, len(recorded), rec.SentAt, rec.CampaignID)
	if err != nil {
		return nil, fmt.Errorf("update campaign counters: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE sending_accounts
        SET daily_messages_sent = CASE WHEN last_reset_date < $2::date THEN $1 ELSE daily_messages_sent + $1 END,
            last_reset_date = GREATEST(last_reset_date, $2::date),
            last_activity = $3
        WHERE id = $4
    `, len(recorded), rec.SentAt.Format(dateLayout), rec.SentAt, rec.AccountID)
	if err != nil {
		return nil, fmt.Errorf("update account counters: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return recorded, nil
}
