package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type AccountService struct {
	AccountRepo       repository.AccountRepositoryInterface
	DefaultDailyLimit int
	Now               func() time.Time
}

type CreateAccountInput struct {
	Username   string `json:"username"`
	SessionID  string `json:"session_id"`
	DailyLimit int    `json:"daily_limit"`
}

func (s *AccountService) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now()
}

func (s *AccountService) Create(ctx context.Context, in CreateAccountInput) (*model.SendingAccount, error) {
	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.SessionID) == "" {
		return nil, fmt.Errorf("%w: username and session_id are required", appErrors.ErrInvalidInput)
	}
	a := &model.SendingAccount{
		Username:      strings.TrimPrefix(strings.TrimSpace(in.Username), "@"),
		SessionID:     in.SessionID,
		IsActive:      true,
		Status:        model.AccountActive,
		DailyLimit:    in.DailyLimit,
		LastResetDate: model.Day(s.now()),
	}
	if a.DailyLimit <= 0 {
		a.DailyLimit = s.DefaultDailyLimit
	}
	if err := s.AccountRepo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns the account. A counter left over from an earlier day is reset
// and the reset is saved.
func (s *AccountService) Get(ctx context.Context, id int) (*model.SendingAccount, error) {
	a, err := s.AccountRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.resetIfNewDay(ctx, a, s.now()); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AccountService) List(ctx context.Context, skip, limit int) ([]*model.SendingAccount, error) {
	accounts, err := s.AccountRepo.List(ctx, skip, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	today := s.now()
	for _, a := range accounts {
		if err := s.resetIfNewDay(ctx, a, today); err != nil {
			return nil, err
		}
	}
	return accounts, nil
}

func (s *AccountService) resetIfNewDay(ctx context.Context, a *model.SendingAccount, today time.Time) error {
	if !a.ResetIfNewDay(today) {
		return nil
	}
	if err := s.AccountRepo.ResetDailyCounter(ctx, a.ID, today); err != nil {
		return fmt.Errorf("reset daily counter of account %d: %w", a.ID, err)
	}
	return nil
}

func (s *AccountService) UpdateStatus(ctx context.Context, id int, isActive bool, status string) error {
	st := model.AccountStatus(status)
	if !st.Valid() {
		return fmt.Errorf("%w: account status %q", appErrors.ErrInvalidInput, status)
	}
	return s.AccountRepo.UpdateStatus(ctx, id, isActive, st)
}

// Delete refuses with ErrAccountInUse while an active campaign is bound to the account.
func (s *AccountService) Delete(ctx context.Context, id int) error {
	return s.AccountRepo.Delete(ctx, id)
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 500 {
		return 500
	}
	return limit
}
