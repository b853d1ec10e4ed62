package service

import (
	"context"
	"fmt"
	"strings"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type ProspectService struct {
	ProspectRepo repository.ProspectRepositoryInterface
}

func (s *ProspectService) Create(ctx context.Context, p *model.Prospect) error {
	p.Username = strings.TrimPrefix(strings.TrimSpace(p.Username), "@")
	if p.Username == "" {
		return fmt.Errorf("%w: username is required", appErrors.ErrInvalidInput)
	}
	if p.Status == "" {
		p.Status = model.ProspectDiscovered
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: prospect status %q", appErrors.ErrInvalidInput, p.Status)
	}
	// sent state is only ever set by outreach runs
	if p.Status == model.ProspectMessaged {
		return fmt.Errorf("%w: prospects cannot be created as messaged", appErrors.ErrInvalidInput)
	}
	p.DMSent = false
	p.DMSentAt = nil
	return s.ProspectRepo.Create(ctx, p)
}

func (s *ProspectService) Get(ctx context.Context, id int) (*model.Prospect, error) {
	return s.ProspectRepo.GetByID(ctx, id)
}

func (s *ProspectService) List(ctx context.Context, skip, limit int, status string) ([]*model.Prospect, error) {
	if status != "" && !model.ProspectStatus(status).Valid() {
		return nil, fmt.Errorf("%w: prospect status %q", appErrors.ErrInvalidInput, status)
	}
	return s.ProspectRepo.List(ctx, skip, clampLimit(limit), status)
}

// UpdateStatus moves a prospect through qualification. Marking a prospect as
// messaged by hand is refused: only a recorded send does that.
func (s *ProspectService) UpdateStatus(ctx context.Context, id int, status string) error {
	st := model.ProspectStatus(status)
	if !st.Valid() {
		return fmt.Errorf("%w: prospect status %q", appErrors.ErrInvalidInput, status)
	}
	if st == model.ProspectMessaged {
		return fmt.Errorf("%w: messaged is set by outreach runs", appErrors.ErrInvalidInput)
	}

	current, err := s.ProspectRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	// a sent prospect stays at messaged or beyond
	if current.DMSent && (st == model.ProspectDiscovered || st == model.ProspectQualified) {
		return fmt.Errorf("%w: prospect %d was already messaged", appErrors.ErrInvalidInput, id)
	}
	return s.ProspectRepo.UpdateStatus(ctx, id, st)
}
