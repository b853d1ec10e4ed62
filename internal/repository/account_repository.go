package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type AccountRepositoryInterface interface {
	Create(ctx context.Context, a *model.SendingAccount) error
	GetByID(ctx context.Context, id int) (*model.SendingAccount, error)
	List(ctx context.Context, offset, limit int) ([]*model.SendingAccount, error)
	ListActive(ctx context.Context) ([]*model.SendingAccount, error)
	UpdateStatus(ctx context.Context, id int, isActive bool, status model.AccountStatus) error
	ResetDailyCounter(ctx context.Context, id int, today time.Time) error
	Delete(ctx context.Context, id int) error
}

type AccountRepository struct {
	DB *sql.DB
}

const accountColumns = `id, username, session_id, is_active, account_status, daily_messages_sent,
        daily_limit, last_reset_date, last_activity, created_at`

func scanAccount(row rowScanner) (*model.SendingAccount, error) {
	var a model.SendingAccount
	err := row.Scan(&a.ID, &a.Username, &a.SessionID, &a.IsActive, &a.Status, &a.DailyMessagesSent,
		&a.DailyLimit, &a.LastResetDate, &a.LastActivity, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *model.SendingAccount) error {
	a.CreatedAt = time.Now()
	if a.Status == "" {
		a.Status = model.AccountActive
	}
	if a.LastResetDate.IsZero() {
		a.LastResetDate = model.Day(a.CreatedAt)
	}
	query := `
        INSERT INTO sending_accounts (username, session_id, is_active, account_status, daily_limit, last_reset_date, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRowContext(ctx, query, a.Username, a.SessionID, a.IsActive, a.Status,
		a.DailyLimit, a.LastResetDate.Format(dateLayout), a.CreatedAt).Scan(&a.ID)
}

func (r *AccountRepository) GetByID(ctx context.Context, id int) (*model.SendingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM sending_accounts WHERE id=$1`
	a, err := scanAccount(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewAccountNotFound(id)
		}
		return nil, err
	}
	return a, nil
}

func (r *AccountRepository) List(ctx context.Context, offset, limit int) ([]*model.SendingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM sending_accounts ORDER BY id LIMIT $1 OFFSET $2`
	return r.query(ctx, query, limit, offset)
}

// ListActive returns accounts flagged active with status "active", lowest id first.
func (r *AccountRepository) ListActive(ctx context.Context) ([]*model.SendingAccount, error) {
	query := `SELECT ` + accountColumns + ` FROM sending_accounts
        WHERE is_active = TRUE AND account_status = 'active' ORDER BY id`
	return r.query(ctx, query)
}

func (r *AccountRepository) query(ctx context.Context, query string, args ...any) ([]*model.SendingAccount, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []*model.SendingAccount{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *AccountRepository) UpdateStatus(ctx context.Context, id int, isActive bool, status model.AccountStatus) error {
	query := `UPDATE sending_accounts SET is_active=$1, account_status=$2 WHERE id=$3`
	res, err := r.DB.ExecContext(ctx, query, isActive, status, id)
	if err != nil {
		return err
	}
	return expectOneRow(res, appErrors.NewAccountNotFound(id))
}

// ResetDailyCounter zeroes the counter of an account last reset before today.
// A counter already reset today, for example by a send, is left alone.
func (r *AccountRepository) ResetDailyCounter(ctx context.Context, id int, today time.Time) error {
	query := `
        UPDATE sending_accounts SET daily_messages_sent = 0, last_reset_date = $2::date
        WHERE id = $1 AND last_reset_date < $2::date
    `
	_, err := r.DB.ExecContext(ctx, query, id, model.Day(today).Format(dateLayout))
	return err
}

// Delete removes the account unless an active campaign is bound to it. The
// check and the delete run as a single statement.
func (r *AccountRepository) Delete(ctx context.Context, id int) error {
	query := `
        DELETE FROM sending_accounts
        WHERE id=$1 AND NOT EXISTS (
            SELECT 1 FROM campaigns WHERE sending_account_id=$1 AND status='active'
        )
    `
	res, err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}
	return appErrors.ErrAccountInUse
}

var _ AccountRepositoryInterface = (*AccountRepository)(nil)
