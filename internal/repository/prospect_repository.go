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

// ProspectRepositoryInterface defines methods used by the services
type ProspectRepositoryInterface interface {
	Create(ctx context.Context, p *model.Prospect) error
	GetByID(ctx context.Context, id int) (*model.Prospect, error)
	List(ctx context.Context, offset, limit int, status string) ([]*model.Prospect, error)
	ListEligible(ctx context.Context, limit int) ([]*model.Prospect, error)
	UpdateStatus(ctx context.Context, id int, status model.ProspectStatus) error
}

type ProspectRepository struct {
	DB *sql.DB
}

const prospectColumns = `id, username, full_name, followers, following, posts_count, engagement_rate, bio,
        coach_score, value_score, niche, status, dm_sent, dm_sent_at, response_received,
        response_received_at, profile_url, created_at, updated_at`

func scanProspect(row rowScanner) (*model.Prospect, error) {
	var p model.Prospect
	err := row.Scan(&p.ID, &p.Username, &p.FullName, &p.Followers, &p.Following, &p.PostsCount,
		&p.EngagementRate, &p.Bio, &p.CoachScore, &p.ValueScore, &p.Niche, &p.Status, &p.DMSent,
		&p.DMSentAt, &p.ResponseReceived, &p.ResponseReceivedAt, &p.ProfileURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *ProspectRepository) Create(ctx context.Context, p *model.Prospect) error {
	now := time.Now()
	p.CreatedAt = now
	p.UpdatedAt = now
	if p.Status == "" {
		p.Status = model.ProspectDiscovered
	}
	query := `
        INSERT INTO prospects (username, full_name, followers, following, posts_count, engagement_rate, bio,
            coach_score, value_score, niche, status, profile_url, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, p.Username, p.FullName, p.Followers, p.Following, p.PostsCount,
		p.EngagementRate, p.Bio, p.CoachScore, p.ValueScore, p.Niche, p.Status, p.ProfileURL,
		p.CreatedAt, p.UpdatedAt).Scan(&p.ID)
}

func (r *ProspectRepository) GetByID(ctx context.Context, id int) (*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects WHERE id = $1`
	p, err := scanProspect(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewProspectNotFound(id)
		}
		return nil, err
	}
	return p, nil
}

func (r *ProspectRepository) List(ctx context.Context, offset, limit int, status string) ([]*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects`
	args := []any{}
	argPos := 1
	if status != "" {
		query += fmt.Sprintf(" WHERE status = $%d", argPos)
		args = append(args, status)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	return r.query(ctx, query, append(args, limit, offset)...)
}

// ListEligible returns qualified prospects that were never messaged, oldest first.
func (r *ProspectRepository) ListEligible(ctx context.Context, limit int) ([]*model.Prospect, error) {
	query := `SELECT ` + prospectColumns + ` FROM prospects
        WHERE status = 'qualified' AND dm_sent = FALSE ORDER BY id LIMIT $1`
	return r.query(ctx, query, limit)
}

func (r *ProspectRepository) query(ctx context.Context, query string, args ...any) ([]*model.Prospect, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prospects := []*model.Prospect{}
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		prospects = append(prospects, p)
	}
	return prospects, rows.Err()
}

// UpdateStatus changes the prospect status. Moving to responded or converted
// also marks the response on the latest message and bumps the counters of the
// campaign that message belongs to.
func (r *ProspectRepository) UpdateStatus(ctx context.Context, id int, status model.ProspectStatus) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()
	var previous model.ProspectStatus
	err = tx.QueryRowContext(ctx, `SELECT status FROM prospects WHERE id = $1 FOR UPDATE`, id).Scan(&previous)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewProspectNotFound(id)
		}
		return err
	}

	_, err = tx.ExecContext(ctx, `
        UPDATE prospects
        SET status = $1,
            response_received = response_received OR $2,
            response_received_at = CASE WHEN $2 AND response_received_at IS NULL THEN $3 ELSE response_received_at END,
            updated_at = $3
        WHERE id = $4
    `, status, isResponse(status), now, id)
	if err != nil {
		return err
	}

	if status != previous && isResponse(status) {
		var campaignID int
		err = tx.QueryRowContext(ctx, `
            UPDATE messages SET response_at = COALESCE(response_at, $2)
            WHERE id = (SELECT id FROM messages WHERE prospect_id = $1 ORDER BY sent_at DESC LIMIT 1)
            RETURNING campaign_id
        `, id, now).Scan(&campaignID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// never messaged through a campaign
		case err != nil:
			return err
		default:
			responded, converted := 0, 0
			if !isResponse(previous) {
				responded = 1
			}
			if status == model.ProspectConverted {
				converted = 1
			}
			_, err = tx.ExecContext(ctx, `
                UPDATE campaigns
                SET responses_received = responses_received + $1, conversions = conversions + $2, updated_at = $3
                WHERE id = $4
            `, responded, converted, now, campaignID)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

func isResponse(s model.ProspectStatus) bool {
	return s == model.ProspectResponded || s == model.ProspectConverted
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
