package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// memStore is an in-memory OutreachStore.
type memStore struct {
	mu           sync.Mutex
	accounts     map[int]*model.SendingAccount
	campaignSent map[int]int
	sent         map[int]bool
	records      []repository.SendRecord
	recordErr    error
}

func newMemStore(accounts ...*model.SendingAccount) *memStore {
	s := &memStore{
		accounts:     map[int]*model.SendingAccount{},
		campaignSent: map[int]int{},
		sent:         map[int]bool{},
	}
	for _, a := range accounts {
		s.accounts[a.ID] = a
	}
	return s
}

func (s *memStore) GetAccount(ctx context.Context, id int) (*model.SendingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, appErrors.NewAccountNotFound(id)
	}
	cp := *a
	return &cp, nil
}

func (s *memStore) ListActiveAccounts(ctx context.Context) ([]*model.SendingAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.SendingAccount{}
	for _, a := range s.accounts {
		if a.IsActive && a.Status == model.AccountActive {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) CountCampaignMessages(ctx context.Context, campaignID int, day time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.campaignSent[campaignID], nil
}

func (s *memStore) SentProspectIDs(ctx context.Context, ids []int) (map[int]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int]bool{}
	for _, id := range ids {
		if s.sent[id] {
			out[id] = true
		}
	}
	return out, nil
}

func (s *memStore) RecordSends(ctx context.Context, rec repository.SendRecord) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	recorded := []int{}
	for _, id := range rec.ProspectIDs {
		if s.sent[id] {
			continue
		}
		s.sent[id] = true
		recorded = append(recorded, id)
	}
	a := s.accounts[rec.AccountID]
	a.ResetIfNewDay(rec.SentAt)
	a.DailyMessagesSent += len(recorded)
	at := rec.SentAt
	a.LastActivity = &at
	s.campaignSent[rec.CampaignID] += len(recorded)
	s.records = append(s.records, rec)
	return recorded, nil
}

func (s *memStore) account(id int) model.SendingAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.accounts[id]
}

// fakeTransport delivers to everyone unless fail or err say otherwise.
type fakeTransport struct {
	mu       sync.Mutex
	calls    [][]string
	bodies   []string
	fail     map[string]bool
	err      error
	errCalls map[int]bool // 1-based call numbers that fail wholesale
	inFlight int
	maxSeen  int
	delay    time.Duration
}

func (f *fakeTransport) SendBatch(ctx context.Context, sessionID string, usernames []string, body string) (map[string]bool, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), usernames...))
	f.bodies = append(f.bodies, body)
	n := len(f.calls)
	f.inFlight++
	f.maxSeen = max(f.maxSeen, f.inFlight)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inFlight--
	if f.err != nil || f.errCalls[n] {
		return nil, fmt.Errorf("actor unreachable")
	}
	out := make(map[string]bool, len(usernames))
	for _, u := range usernames {
		out[u] = !f.fail[u]
	}
	return out, nil
}

func (f *fakeTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type stubContent struct{}

func (stubContent) Generate(p service.ProspectProfile) string {
	return "hello " + p.Username
}

// mockCampaignRepo keeps campaigns in memory.
type mockCampaignRepo struct {
	campaigns map[int]*model.Campaign
	nextID    int
	stats     map[string]int
}

func newMockCampaignRepo(cs ...*model.Campaign) *mockCampaignRepo {
	r := &mockCampaignRepo{campaigns: map[int]*model.Campaign{}, nextID: 100}
	for _, c := range cs {
		r.campaigns[c.ID] = c
	}
	return r
}

func (m *mockCampaignRepo) ListCampaigns(ctx context.Context, offset, limit int, status string) ([]*model.Campaign, int, error) {
	all := []*model.Campaign{}
	for _, c := range m.campaigns {
		if status == "" || string(c.Status) == status {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	if offset >= len(all) {
		return []*model.Campaign{}, len(all), nil
	}
	return all[offset:min(offset+limit, len(all))], len(all), nil
}

func (m *mockCampaignRepo) GetByID(ctx context.Context, id int) (*model.Campaign, error) {
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (m *mockCampaignRepo) UpdateStatus(ctx context.Context, id int, status model.CampaignStatus) error {
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	c.Status = status
	return nil
}

func (m *mockCampaignRepo) Update(ctx context.Context, c *model.Campaign) error {
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) Create(ctx context.Context, c *model.Campaign) error {
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = c
	return nil
}

func (m *mockCampaignRepo) CountMessagesBetween(ctx context.Context, campaignID int, from, to time.Time) (int, error) {
	return 0, nil
}

func (m *mockCampaignRepo) GetCampaignStats(ctx context.Context, campaignID int, today time.Time) (map[string]int, error) {
	if m.stats != nil {
		return m.stats, nil
	}
	return map[string]int{"total": 0, "sent_today": 0, "responded": 0}, nil
}

// mockProspectRepo keeps prospects in memory.
type mockProspectRepo struct {
	prospects map[int]*model.Prospect
	updated   map[int]model.ProspectStatus
	listErr   error
}

func newMockProspectRepo(ps ...*model.Prospect) *mockProspectRepo {
	r := &mockProspectRepo{prospects: map[int]*model.Prospect{}, updated: map[int]model.ProspectStatus{}}
	for _, p := range ps {
		r.prospects[p.ID] = p
	}
	return r
}

func (m *mockProspectRepo) Create(ctx context.Context, p *model.Prospect) error {
	p.ID = len(m.prospects) + 1
	m.prospects[p.ID] = p
	return nil
}

func (m *mockProspectRepo) GetByID(ctx context.Context, id int) (*model.Prospect, error) {
	p, ok := m.prospects[id]
	if !ok {
		return nil, appErrors.NewProspectNotFound(id)
	}
	cp := *p
	return &cp, nil
}

func (m *mockProspectRepo) List(ctx context.Context, offset, limit int, status string) ([]*model.Prospect, error) {
	return m.sorted(func(p *model.Prospect) bool { return status == "" || string(p.Status) == status }, limit), nil
}

func (m *mockProspectRepo) ListEligible(ctx context.Context, limit int) ([]*model.Prospect, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.sorted((*model.Prospect).Eligible, limit), nil
}

func (m *mockProspectRepo) sorted(keep func(*model.Prospect) bool, limit int) []*model.Prospect {
	out := []*model.Prospect{}
	for _, p := range m.prospects {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *mockProspectRepo) UpdateStatus(ctx context.Context, id int, status model.ProspectStatus) error {
	if _, ok := m.prospects[id]; !ok {
		return appErrors.NewProspectNotFound(id)
	}
	m.updated[id] = status
	return nil
}

// mockAccountRepo keeps accounts in memory.
type mockAccountRepo struct {
	accounts map[int]*model.SendingAccount
	inUse    map[int]bool
	resets   int
}

func newMockAccountRepo(as ...*model.SendingAccount) *mockAccountRepo {
	r := &mockAccountRepo{accounts: map[int]*model.SendingAccount{}, inUse: map[int]bool{}}
	for _, a := range as {
		r.accounts[a.ID] = a
	}
	return r
}

func (m *mockAccountRepo) Create(ctx context.Context, a *model.SendingAccount) error {
	a.ID = len(m.accounts) + 1
	m.accounts[a.ID] = a
	return nil
}

func (m *mockAccountRepo) GetByID(ctx context.Context, id int) (*model.SendingAccount, error) {
	a, ok := m.accounts[id]
	if !ok {
		return nil, appErrors.NewAccountNotFound(id)
	}
	cp := *a
	return &cp, nil
}

func (m *mockAccountRepo) List(ctx context.Context, offset, limit int) ([]*model.SendingAccount, error) {
	out := []*model.SendingAccount{}
	for _, a := range m.accounts {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockAccountRepo) ListActive(ctx context.Context) ([]*model.SendingAccount, error) {
	return m.List(ctx, 0, 0)
}

func (m *mockAccountRepo) UpdateStatus(ctx context.Context, id int, isActive bool, status model.AccountStatus) error {
	a, ok := m.accounts[id]
	if !ok {
		return appErrors.NewAccountNotFound(id)
	}
	a.IsActive, a.Status = isActive, status
	return nil
}

func (m *mockAccountRepo) ResetDailyCounter(ctx context.Context, id int, today time.Time) error {
	a, ok := m.accounts[id]
	if !ok {
		return appErrors.NewAccountNotFound(id)
	}
	m.resets++
	a.ResetIfNewDay(today)
	return nil
}

func (m *mockAccountRepo) Delete(ctx context.Context, id int) error {
	if _, ok := m.accounts[id]; !ok {
		return appErrors.NewAccountNotFound(id)
	}
	if m.inUse[id] {
		return appErrors.ErrAccountInUse
	}
	delete(m.accounts, id)
	return nil
}

func qualified(id int, username string) *model.Prospect {
	return &model.Prospect{ID: id, Username: username, Status: model.ProspectQualified}
}

func intPtr(i int) *int { return &i }
