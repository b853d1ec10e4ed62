package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/lock"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/transport"
)

const DefaultBatchSize = 5

// OutreachStore is the persistence the quota manager needs.
type OutreachStore interface {
	GetAccount(ctx context.Context, id int) (*model.SendingAccount, error)
	ListActiveAccounts(ctx context.Context) ([]*model.SendingAccount, error)
	CountCampaignMessages(ctx context.Context, campaignID int, day time.Time) (int, error)
	SentProspectIDs(ctx context.Context, ids []int) (map[int]bool, error)
	RecordSends(ctx context.Context, rec repository.SendRecord) ([]int, error)
}

type ContentGenerator interface {
	Generate(p ProspectProfile) string
}

type QuotaManagerConfig struct {
	// MessageDelay is the per-message delay of the transport. Groups are
	// separated by a random pause in [2*MessageDelay, 3*MessageDelay].
	MessageDelay time.Duration
	BatchSize    int
}

// OutreachResult describes one run.
type OutreachResult struct {
	CampaignID      int    `json:"campaign_id"`
	AccountID       int    `json:"account_id"`
	AccountUsername string `json:"account_username"`
	Quota           int    `json:"quota"`
	Attempted       int    `json:"attempted"`
	Sent            int    `json:"sent"`
	Failed          int    `json:"failed"`
	Groups          int    `json:"groups"`
}

// QuotaManager gates outreach so that no account and no campaign exceeds its
// daily cap and every prospect is contacted at most once.
type QuotaManager struct {
	store     OutreachStore
	content   ContentGenerator
	transport transport.Transport
	locker    lock.Locker
	log       *zap.Logger

	messageDelay time.Duration
	batchSize    int

	// Now and Sleep are replaced in tests.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewQuotaManager(
	store OutreachStore,
	content ContentGenerator,
	tr transport.Transport,
	locker lock.Locker,
	cfg QuotaManagerConfig,
	log *zap.Logger,
) *QuotaManager {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &QuotaManager{
		store:        store,
		content:      content,
		transport:    tr,
		locker:       locker,
		log:          log,
		messageDelay: cfg.MessageDelay,
		batchSize:    cfg.BatchSize,
		Now:          func() time.Time { return time.Now().UTC() },
		Sleep:        sleepContext,
		rng:          rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *QuotaManager) today() time.Time {
	return model.Day(m.Now())
}

// SelectAccount picks the account a run of campaign will use. A bound account
// is used as is unless it is inactive or suspended, even when it has no
// capacity left today; the run then sends nothing. Otherwise the active
// account with capacity left and the fewest sends today wins, lowest id on
// ties. Counters from earlier days are treated as zero. Nothing is written.
func (m *QuotaManager) SelectAccount(ctx context.Context, campaign *model.Campaign) (*model.SendingAccount, error) {
	today := m.today()

	if campaign.SendingAccountID != nil {
		acct, err := m.store.GetAccount(ctx, *campaign.SendingAccountID)
		if err != nil {
			return nil, err
		}
		if !acct.Usable() {
			return nil, fmt.Errorf("%w: account %d (active=%t, status=%s)",
				appErrors.ErrAccountUnavailable, acct.ID, acct.IsActive, acct.Status)
		}
		acct.ResetIfNewDay(today)
		return acct, nil
	}

	accounts, err := m.store.ListActiveAccounts(ctx)
	if err != nil {
		return nil, err
	}

	var best *model.SendingAccount
	for _, a := range accounts {
		if !a.IsActive || a.Status != model.AccountActive {
			continue
		}
		a.ResetIfNewDay(today)
		if a.Remaining() == 0 {
			continue
		}
		if best == nil ||
			a.DailyMessagesSent < best.DailyMessagesSent ||
			(a.DailyMessagesSent == best.DailyMessagesSent && a.ID < best.ID) {
			best = a
		}
	}
	if best == nil {
		return nil, appErrors.ErrNoAccountAvailable
	}
	return best, nil
}

// RemainingQuota is the number of messages that may still be sent today
// through account for campaign. It is never negative.
func (m *QuotaManager) RemainingQuota(ctx context.Context, account *model.SendingAccount, campaign *model.Campaign) (int, error) {
	today := m.today()

	acct := *account
	acct.ResetIfNewDay(today)

	sentToday, err := m.store.CountCampaignMessages(ctx, campaign.ID, today)
	if err != nil {
		return 0, err
	}

	remaining := min(acct.Remaining(), campaign.DailyLimit-sentToday)
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}

// RunOutreachBatch sends to up to quota prospects from candidates, in order,
// in groups of batchSize. Runs of the same campaign and runs on the same
// account never overlap; a second run waits for the first to finish. The
// quota and the sent state of the next group are checked again before every
// group goes out.
func (m *QuotaManager) RunOutreachBatch(ctx context.Context, campaign *model.Campaign, candidates []*model.Prospect, batchSize int) (*OutreachResult, error) {
	if campaign.Status != model.CampaignActive {
		return nil, fmt.Errorf("%w: campaign %d is %s", appErrors.ErrCampaignNotActive, campaign.ID, campaign.Status)
	}
	if batchSize <= 0 {
		batchSize = m.batchSize
	}

	// campaign first, then account, in every run
	releaseCampaign, err := m.locker.Lock(ctx, lock.CampaignKey(campaign.ID))
	if err != nil {
		return nil, fmt.Errorf("lock campaign %d: %w", campaign.ID, err)
	}
	defer releaseCampaign()

	selected, err := m.SelectAccount(ctx, campaign)
	if err != nil {
		return nil, err
	}

	release, err := m.locker.Lock(ctx, lock.AccountKey(selected.ID))
	if err != nil {
		return nil, fmt.Errorf("lock account %d: %w", selected.ID, err)
	}
	defer release()

	// Counters may have moved while waiting for the lock.
	acct, err := m.store.GetAccount(ctx, selected.ID)
	if err != nil {
		return nil, err
	}
	if !acct.Usable() {
		return nil, fmt.Errorf("%w: account %d changed while waiting", appErrors.ErrAccountUnavailable, acct.ID)
	}
	acct.ResetIfNewDay(m.today())

	quota, err := m.RemainingQuota(ctx, acct, campaign)
	if err != nil {
		return nil, err
	}

	result := &OutreachResult{
		CampaignID:      campaign.ID,
		AccountID:       acct.ID,
		AccountUsername: acct.Username,
		Quota:           quota,
	}
	log := m.log.With(zap.Int("campaign_id", campaign.ID), zap.Int("account_id", acct.ID))

	if quota == 0 {
		log.Info("daily limit reached, nothing to send")
		return result, nil
	}

	pending, err := m.unsent(ctx, takeEligible(candidates, len(candidates)), quota)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		log.Info("no qualified prospects to message")
		return result, nil
	}
	log.Info("starting outreach run", zap.Int("prospects", len(pending)), zap.Int("quota", quota))

	for len(pending) > 0 {
		if result.Groups > 0 {
			delay := m.groupDelay()
			log.Debug("waiting before next group", zap.Duration("delay", delay))
			if err := m.Sleep(ctx, delay); err != nil {
				return result, err
			}
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		remaining, err := m.RemainingQuota(ctx, acct, campaign)
		if err != nil {
			return result, err
		}
		if remaining == 0 {
			log.Info("daily limit reached during run", zap.Int("left_unsent", len(pending)))
			break
		}
		pending, err = m.unsent(ctx, pending, len(pending))
		if err != nil {
			return result, err
		}
		if len(pending) == 0 {
			break
		}

		size := min(batchSize, remaining, len(pending))
		group := pending[:size:size]
		pending = pending[size:]

		result.Groups++
		result.Attempted += len(group)

		sent, err := m.sendGroup(ctx, log, acct, campaign, group)
		result.Sent += sent
		result.Failed += len(group) - sent
		if err != nil {
			return result, err
		}
	}

	log.Info("outreach run completed", zap.Int("sent", result.Sent), zap.Int("failed", result.Failed))
	return result, nil
}

// sendGroup delivers one body, generated from the first prospect, to the whole
// group and records the successful recipients atomically.
func (m *QuotaManager) sendGroup(ctx context.Context, log *zap.Logger, acct *model.SendingAccount, campaign *model.Campaign, group []*model.Prospect) (int, error) {
	body := m.content.Generate(ProfileOf(group[0]))

	usernames := make([]string, len(group))
	for i, p := range group {
		usernames[i] = p.Username
	}

	results, err := m.transport.SendBatch(ctx, acct.SessionID, usernames, body)
	if err != nil {
		terr := &appErrors.TransportError{Recipients: len(group), Err: err}
		log.Warn("transport failure, group skipped", zap.Error(terr))
		return 0, nil
	}

	delivered := make([]*model.Prospect, 0, len(group))
	ids := make([]int, 0, len(group))
	for _, p := range group {
		if results[p.Username] {
			delivered = append(delivered, p)
			ids = append(ids, p.ID)
		} else {
			log.Info("delivery failed", zap.String("username", p.Username))
		}
	}
	if len(delivered) == 0 {
		return 0, nil
	}

	// Messages are already out; record them even if the run is being cancelled.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	sentAt := m.Now()
	recorded, err := m.store.RecordSends(recordCtx, repository.SendRecord{
		AccountID:   acct.ID,
		CampaignID:  campaign.ID,
		ProspectIDs: ids,
		Content:     body,
		SentAt:      sentAt,
	})
	if err != nil {
		unrecorded := make([]string, len(delivered))
		for i, p := range delivered {
			unrecorded[i] = p.Username
		}
		perr := &appErrors.PersistenceError{Unrecorded: unrecorded, Err: err}
		log.Error("delivered messages not recorded", zap.Strings("usernames", unrecorded), zap.Error(err))
		return 0, perr
	}

	done := make(map[int]bool, len(recorded))
	for _, id := range recorded {
		done[id] = true
	}
	for _, p := range delivered {
		if !done[p.ID] {
			log.Warn("prospect was already recorded as messaged", zap.Int("prospect_id", p.ID))
			continue
		}
		at := sentAt
		p.DMSent = true
		p.DMSentAt = &at
		p.Status = model.ProspectMessaged
	}
	acct.DailyMessagesSent += len(recorded)

	return len(recorded), nil
}

func (m *QuotaManager) groupDelay() time.Duration {
	if m.messageDelay <= 0 {
		return 0
	}
	m.rngMu.Lock()
	defer m.rngMu.Unlock()
	return 2*m.messageDelay + time.Duration(m.rng.Int63n(int64(m.messageDelay)+1))
}

// unsent drops prospects the store already has as messaged, which happens
// when another run recorded them while we waited or between our groups.
func (m *QuotaManager) unsent(ctx context.Context, prospects []*model.Prospect, limit int) ([]*model.Prospect, error) {
	ids := make([]int, len(prospects))
	for i, p := range prospects {
		ids[i] = p.ID
	}
	sent, err := m.store.SentProspectIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Prospect, 0, min(limit, len(prospects)))
	for _, p := range prospects {
		if len(out) == limit {
			break
		}
		if !sent[p.ID] {
			out = append(out, p)
		}
	}
	return out, nil
}

// takeEligible keeps input order, skips prospects already messaged or not
// qualified, and stops at limit.
func takeEligible(candidates []*model.Prospect, limit int) []*model.Prospect {
	out := make([]*model.Prospect, 0, min(limit, len(candidates)))
	seen := make(map[int]bool, len(candidates))
	for _, p := range candidates {
		if len(out) == limit {
			break
		}
		if p == nil || !p.Eligible() || seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}
