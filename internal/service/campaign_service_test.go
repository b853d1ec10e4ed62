package service_test

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type recordingQueue struct {
	topics   []string
	payloads [][]byte
	err      error
}

func (q *recordingQueue) Publish(topic string, payload []byte) error {
	if q.err != nil {
		return q.err
	}
	q.topics = append(q.topics, topic)
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *recordingQueue) Subscribe(topic string, handler queue.Handler) error { return nil }

type fixture struct {
	svc       *service.CampaignService
	campaigns *mockCampaignRepo
	prospects *mockProspectRepo
	store     *memStore
	transport *fakeTransport
	queue     *recordingQueue
}

func newFixture(t *testing.T, campaigns []*model.Campaign, ps []*model.Prospect, accounts ...*model.SendingAccount) *fixture {
	t.Helper()
	f := &fixture{
		campaigns: newMockCampaignRepo(campaigns...),
		prospects: newMockProspectRepo(ps...),
		store:     newMemStore(accounts...),
		transport: &fakeTransport{},
		queue:     &recordingQueue{},
	}
	tmpl, err := service.NewMessageTemplates(rand.New(rand.NewSource(7)))
	require.NoError(t, err)

	m, _ := newManager(f.store, f.transport)
	f.svc = &service.CampaignService{
		CampaignRepo:      f.campaigns,
		ProspectRepo:      f.prospects,
		Quota:             m,
		Templates:         tmpl,
		Queue:             f.queue,
		Log:               zap.NewNop(),
		DefaultDailyLimit: 50,
		BatchSize:         5,
	}
	return f
}

func TestCreateCampaign(t *testing.T) {
	f := newFixture(t, nil, nil)
	ctx := context.Background()

	c, err := f.svc.CreateCampaign(ctx, service.CreateCampaignInput{Name: "Coaches Q4"})
	require.NoError(t, err)
	assert.Equal(t, model.CampaignDraft, c.Status)
	assert.Equal(t, 50, c.DailyLimit)
	assert.NotZero(t, c.ID)

	_, err = f.svc.CreateCampaign(ctx, service.CreateCampaignInput{Name: "  "})
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)

	_, err = f.svc.CreateCampaign(ctx, service.CreateCampaignInput{Name: "x", Status: "running"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidInput)
}

func TestPagination(t *testing.T) {
	cs := []*model.Campaign{}
	for i := 1; i <= 5; i++ {
		cs = append(cs, &model.Campaign{ID: i, Name: "C", Status: model.CampaignDraft})
	}
	f := newFixture(t, cs, nil)

	campaigns, pagination, err := f.svc.ListCampaigns(context.Background(), 2, 2, "")
	require.NoError(t, err)

	require.Len(t, campaigns, 2)
	assert.Equal(t, 3, campaigns[0].ID)
	assert.Equal(t, 2, campaigns[1].ID)
	assert.Equal(t, map[string]int{"page": 2, "page_size": 2, "total_count": 5, "total_pages": 3}, pagination)

	campaigns, pagination, err = f.svc.ListCampaigns(context.Background(), 0, 1000, "")
	require.NoError(t, err)
	assert.Len(t, campaigns, 5)
	assert.Equal(t, 100, pagination["page_size"])
}

func TestRunCampaign(t *testing.T) {
	sent := qualified(3, "done")
	sent.DMSent = true
	f := newFixture(t,
		[]*model.Campaign{activeCampaign(1, 50, nil)},
		[]*model.Prospect{qualified(1, "ana"), qualified(2, "marc"), sent},
		account(1, 0, 40, now),
	)

	res, err := f.svc.RunCampaign(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, [][]string{{"ana", "marc"}}, f.transport.calls)
}

func TestRunCampaignErrors(t *testing.T) {
	paused := activeCampaign(2, 50, nil)
	paused.Status = model.CampaignPaused
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil), paused}, nil)
	ctx := context.Background()

	_, err := f.svc.RunCampaign(ctx, 2)
	assert.ErrorIs(t, err, appErrors.ErrCampaignNotActive)

	_, err = f.svc.RunCampaign(ctx, 9)
	assert.True(t, appErrors.IsNotFound(err))

	f.prospects.listErr = errors.New("db down")
	_, err = f.svc.RunCampaign(ctx, 1)
	assert.EqualError(t, err, "db down")
}

func TestSendCampaignQueuesJob(t *testing.T) {
	paused := activeCampaign(2, 50, nil)
	paused.Status = model.CampaignPaused
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil), paused}, nil)
	ctx := context.Background()

	res, err := f.svc.SendCampaign(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Status)

	require.Equal(t, []string{queue.TopicOutreachRuns}, f.queue.topics)
	var job service.OutreachJob
	require.NoError(t, json.Unmarshal(f.queue.payloads[0], &job))
	assert.Equal(t, 1, job.CampaignID)
	assert.False(t, job.QueuedAt.IsZero())

	_, err = f.svc.SendCampaign(ctx, 2)
	assert.ErrorIs(t, err, appErrors.ErrCampaignNotActive)
	assert.Len(t, f.queue.topics, 1)

	f.queue.err = errors.New("broker closed")
	_, err = f.svc.SendCampaign(ctx, 1)
	assert.ErrorContains(t, err, "broker closed")
}

func TestQuotaReport(t *testing.T) {
	f := newFixture(t,
		[]*model.Campaign{activeCampaign(1, 50, nil), activeCampaign(2, 50, intPtr(7))},
		nil,
		account(1, 38, 40, now),
	)
	f.store.campaignSent[1] = 10
	ctx := context.Background()

	info, err := f.svc.QuotaReport(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, info.AccountID)
	assert.Equal(t, "sender1", info.AccountUsername)
	assert.Equal(t, 2, info.Remaining)

	// a bound account that does not exist is a not-found, not a zero quota
	_, err = f.svc.QuotaReport(ctx, 2)
	assert.True(t, appErrors.IsNotFound(err))
}

func TestQuotaNoAccount(t *testing.T) {
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil)}, nil, account(1, 40, 40, now))

	info, err := f.svc.QuotaReport(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, info.Remaining)
	assert.Equal(t, appErrors.ErrNoAccountAvailable.Error(), info.Reason)
}

func TestGetCampaignDetailsWithStats(t *testing.T) {
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil)}, nil, account(1, 0, 40, now))
	f.campaigns.stats = map[string]int{"total": 12, "sent_today": 4, "responded": 1}

	details, err := f.svc.GetCampaignDetailsWithStats(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, details.ID)
	assert.Equal(t, 4, details.Stats["sent_today"])
	require.NotNil(t, details.Quota)
	assert.Equal(t, 40, details.Quota.Remaining)
}

func TestRenderPreview(t *testing.T) {
	p := qualified(5, "liftwithmarc")
	p.FullName = "Marc Dubois"
	p.Niche = "fitness"
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil)}, []*model.Prospect{p})
	ctx := context.Background()

	msg, err := f.svc.RenderPreview(ctx, 1, 5, "")
	require.NoError(t, err)
	assert.Contains(t, msg, "Marc")
	assert.NotContains(t, msg, "{")

	_, err = f.svc.RenderPreview(ctx, 1, 6, "")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestUpdateCampaignStatus(t *testing.T) {
	f := newFixture(t, []*model.Campaign{activeCampaign(1, 50, nil)}, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.UpdateStatus(ctx, 1, "paused"))
	assert.Equal(t, model.CampaignPaused, f.campaigns.campaigns[1].Status)

	assert.ErrorIs(t, f.svc.UpdateStatus(ctx, 1, "archived"), appErrors.ErrInvalidInput)
}
