package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func TestProspectServiceCreate(t *testing.T) {
	repo := newMockProspectRepo()
	svc := &service.ProspectService{ProspectRepo: repo}
	ctx := context.Background()

	sentAt := time.Now()
	p := &model.Prospect{Username: " @calm.mind.jo ", DMSent: true, DMSentAt: &sentAt}
	require.NoError(t, svc.Create(ctx, p))
	assert.Equal(t, "calm.mind.jo", p.Username)
	assert.Equal(t, model.ProspectDiscovered, p.Status)
	assert.False(t, p.DMSent, "sent state comes from outreach runs only")
	assert.Nil(t, p.DMSentAt)

	assert.ErrorIs(t, svc.Create(ctx, &model.Prospect{}), appErrors.ErrInvalidInput)
	assert.ErrorIs(t, svc.Create(ctx, &model.Prospect{Username: "a", Status: "vip"}), appErrors.ErrInvalidInput)
	assert.ErrorIs(t, svc.Create(ctx, &model.Prospect{Username: "a", Status: model.ProspectMessaged}), appErrors.ErrInvalidInput)
}

func TestProspectServiceUpdateStatus(t *testing.T) {
	sent := qualified(2, "sent")
	sent.DMSent = true
	sent.Status = model.ProspectMessaged
	repo := newMockProspectRepo(qualified(1, "fresh"), sent)
	svc := &service.ProspectService{ProspectRepo: repo}
	ctx := context.Background()

	require.NoError(t, svc.UpdateStatus(ctx, 1, "rejected"))
	require.NoError(t, svc.UpdateStatus(ctx, 2, "responded"))
	assert.Equal(t, model.ProspectRejected, repo.updated[1])
	assert.Equal(t, model.ProspectResponded, repo.updated[2])

	assert.ErrorIs(t, svc.UpdateStatus(ctx, 1, "messaged"), appErrors.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 2, "qualified"), appErrors.ErrInvalidInput)
	assert.ErrorIs(t, svc.UpdateStatus(ctx, 1, "unknown"), appErrors.ErrInvalidInput)
	assert.True(t, appErrors.IsNotFound(svc.UpdateStatus(ctx, 9, "qualified")))
}

func TestProspectServiceList(t *testing.T) {
	d := qualified(2, "d")
	d.Status = model.ProspectDiscovered
	svc := &service.ProspectService{ProspectRepo: newMockProspectRepo(qualified(1, "q"), d)}

	got, err := svc.List(context.Background(), 0, 0, "qualified")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q", got[0].Username)

	_, err = svc.List(context.Background(), 0, 10, "vip")
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}
