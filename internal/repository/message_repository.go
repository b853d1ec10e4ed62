package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/unclebandit/outreach-backend/internal/model"
)

type MessageRepository struct {
	DB *sql.DB
}

// List returns messages newest first. campaignID 0 means every campaign.
func (r *MessageRepository) List(ctx context.Context, campaignID, offset, limit int) ([]*model.Message, error) {
	query := `
        SELECT id, prospect_id, campaign_id, content, message_type, sent_at, response_at, response_content, created_at
        FROM messages
    `
	args := []any{}
	argPos := 1
	if campaignID > 0 {
		query += fmt.Sprintf(" WHERE campaign_id = $%d", argPos)
		args = append(args, campaignID)
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY sent_at DESC, id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)

	rows, err := r.DB.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []*model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.ProspectID, &m.CampaignID, &m.Content, &m.MessageType,
			&m.SentAt, &m.ResponseAt, &m.ResponseContent, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
