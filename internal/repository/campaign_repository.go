package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error)
	GetByID(ctx context.Context, id int) (*model.Campaign, error)
	UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error
	Update(ctx context.Context, c *model.Campaign) error
	Create(ctx context.Context, c *model.Campaign) error

	// Messages recorded against the campaign
	CountMessagesBetween(ctx context.Context, campaignID int, from, to time.Time) (int, error)
	GetCampaignStats(ctx context.Context, campaignID int, today time.Time) (map[string]int, error)
}

type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, description, hashtags, target_accounts, sending_account_id, status,
        daily_limit, messages_sent, responses_received, conversions, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (*model.Campaign, error) {
	var c model.Campaign
	var accountID sql.NullInt64
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Hashtags, &c.TargetAccounts, &accountID, &c.Status,
		&c.DailyLimit, &c.MessagesSent, &c.ResponsesReceived, &c.Conversions, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if accountID.Valid {
		id := int(accountID.Int64)
		c.SendingAccountID = &id
	}
	return &c, nil
}

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignDraft
	}
	query := `
        INSERT INTO campaigns (name, description, hashtags, target_accounts, sending_account_id, status, daily_limit, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, c.Name, c.Description, c.Hashtags, c.TargetAccounts,
		c.SendingAccountID, c.Status, c.DailyLimit, c.CreatedAt).Scan(&c.ID)
}

func (r *CampaignRepository) Update(ctx context.Context, c *model.Campaign) error {
	query := `
        UPDATE campaigns
        SET name=$1, description=$2, hashtags=$3, target_accounts=$4, sending_account_id=$5,
            status=$6, daily_limit=$7, updated_at=NOW()
        WHERE id=$8
    `
	res, err := r.DB.ExecContext(ctx, query, c.Name, c.Description, c.Hashtags, c.TargetAccounts,
		c.SendingAccountID, c.Status, c.DailyLimit, c.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res, appErrors.NewCampaignNotFound(c.ID))
}

func (r *CampaignRepository) UpdateStatus(ctx context.Context, campaignID int, status model.CampaignStatus) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, status, time.Now(), campaignID)
	if err != nil {
		return err
	}
	return expectOneRow(res, appErrors.NewCampaignNotFound(campaignID))
}

func (r *CampaignRepository) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	where := ` WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var total int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

// ====================== Messages ======================

// CountMessagesBetween counts messages recorded for the campaign with from <= sent_at < to.
func (r *CampaignRepository) CountMessagesBetween(ctx context.Context, campaignID int, from, to time.Time) (int, error) {
	query := `SELECT COUNT(*) FROM messages WHERE campaign_id=$1 AND sent_at >= $2 AND sent_at < $3`
	var n int
	if err := r.DB.QueryRowContext(ctx, query, campaignID, from, to).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *CampaignRepository) GetCampaignStats(ctx context.Context, campaignID int, today time.Time) (map[string]int, error) {
	query := `
        SELECT COUNT(*),
               COUNT(*) FILTER (WHERE sent_at >= $2 AND sent_at < $3),
               COUNT(*) FILTER (WHERE response_at IS NOT NULL)
        FROM messages WHERE campaign_id=$1
    `
	day := model.Day(today)
	var total, sentToday, responded int
	if err := r.DB.QueryRowContext(ctx, query, campaignID, day, day.AddDate(0, 0, 1)).Scan(&total, &sentToday, &responded); err != nil {
		return nil, err
	}
	return map[string]int{
		"total":      total,
		"sent_today": sentToday,
		"responded":  responded,
	}, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
