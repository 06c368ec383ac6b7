package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kursadbilgin/salon-crm/internal/domain"
	"github.com/kursadbilgin/salon-crm/internal/provider"
	"github.com/kursadbilgin/salon-crm/internal/queue"
	"github.com/kursadbilgin/salon-crm/internal/repository"
)

type fakeCustomerRepo struct {
	createFn            func(ctx context.Context, c *domain.Customer) error
	getByIDFn           func(ctx context.Context, salonID string, id string) (*domain.Customer, error)
	listFn              func(ctx context.Context, salonID string, params repository.CustomerListParams) ([]domain.Customer, int64, error)
	findByBirthdayFn    func(ctx context.Context, salonID string, day int, month int) ([]domain.Customer, error)
	findInactiveSinceFn func(ctx context.Context, salonID string, cutoff time.Time) ([]domain.Customer, error)
	findByIDsFn         func(ctx context.Context, salonID string, ids []string) ([]domain.Customer, error)
	findAllByBirthdayFn func(ctx context.Context, day int, month int) ([]domain.Customer, error)
	recordVisitFn       func(ctx context.Context, v *domain.Visit) (int, error)
}

func (f *fakeCustomerRepo) Create(ctx context.Context, c *domain.Customer) error {
	if f.createFn != nil {
		return f.createFn(ctx, c)
	}
	return nil
}

func (f *fakeCustomerRepo) GetByID(ctx context.Context, salonID string, id string) (*domain.Customer, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, salonID, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeCustomerRepo) List(ctx context.Context, salonID string, params repository.CustomerListParams) ([]domain.Customer, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, salonID, params)
	}
	return nil, 0, nil
}

func (f *fakeCustomerRepo) FindByBirthday(ctx context.Context, salonID string, day int, month int) ([]domain.Customer, error) {
	if f.findByBirthdayFn != nil {
		return f.findByBirthdayFn(ctx, salonID, day, month)
	}
	return nil, nil
}

func (f *fakeCustomerRepo) FindInactiveSince(ctx context.Context, salonID string, cutoff time.Time) ([]domain.Customer, error) {
	if f.findInactiveSinceFn != nil {
		return f.findInactiveSinceFn(ctx, salonID, cutoff)
	}
	return nil, nil
}

func (f *fakeCustomerRepo) FindByIDs(ctx context.Context, salonID string, ids []string) ([]domain.Customer, error) {
	if f.findByIDsFn != nil {
		return f.findByIDsFn(ctx, salonID, ids)
	}
	return nil, nil
}

func (f *fakeCustomerRepo) FindAllByBirthday(ctx context.Context, day int, month int) ([]domain.Customer, error) {
	if f.findAllByBirthdayFn != nil {
		return f.findAllByBirthdayFn(ctx, day, month)
	}
	return nil, nil
}

func (f *fakeCustomerRepo) RecordVisit(ctx context.Context, v *domain.Visit) (int, error) {
	if f.recordVisitFn != nil {
		return f.recordVisitFn(ctx, v)
	}
	return 1, nil
}

type fakeSalonRepo struct {
	createFn                 func(ctx context.Context, s *domain.Salon) error
	getByIDFn                func(ctx context.Context, id string) (*domain.Salon, error)
	updateBirthdayTemplateFn func(ctx context.Context, id string, template string) error
}

func (f *fakeSalonRepo) Create(ctx context.Context, s *domain.Salon) error {
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeSalonRepo) GetByID(ctx context.Context, id string) (*domain.Salon, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeSalonRepo) UpdateBirthdayTemplate(ctx context.Context, id string, template string) error {
	if f.updateBirthdayTemplateFn != nil {
		return f.updateBirthdayTemplateFn(ctx, id, template)
	}
	return nil
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []provider.Message
	sendFn func(ctx context.Context, msg provider.Message) (*provider.Response, error)
}

func (f *fakeMessenger) Send(ctx context.Context, msg provider.Message) (*provider.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.Response{StatusCode: 201, MessageID: "SM" + msg.To}, nil
}

func (f *fakeMessenger) messages() []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Message(nil), f.sent...)
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, key string) (bool, error)
	waitFn  func(ctx context.Context, key string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, key)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, key string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, key)
	}
	return nil
}

type fakeResolver struct {
	resolveFn func(ctx context.Context, tenantID string, rule domain.SelectionRule, now time.Time) ([]domain.Customer, error)
}

func (f *fakeResolver) Resolve(ctx context.Context, tenantID string, rule domain.SelectionRule, now time.Time) ([]domain.Customer, error) {
	if f.resolveFn != nil {
		return f.resolveFn(ctx, tenantID, rule, now)
	}
	return nil, nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	<-ctx.Done()
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeDispatcher struct {
	initiateFn    func(ctx context.Context, tenantID string, req CampaignRequest) (*domain.Campaign, domain.DispatchResult, error)
	sendPendingFn func(ctx context.Context, tenantID string) (PendingResult, error)
}

func (f *fakeDispatcher) Initiate(ctx context.Context, tenantID string, req CampaignRequest) (*domain.Campaign, domain.DispatchResult, error) {
	if f.initiateFn != nil {
		return f.initiateFn(ctx, tenantID, req)
	}
	return &domain.Campaign{ID: "campaign-" + tenantID, SalonID: tenantID}, domain.DispatchResult{CampaignID: "campaign-" + tenantID}, nil
}

func (f *fakeDispatcher) SendPending(ctx context.Context, tenantID string) (PendingResult, error) {
	if f.sendPendingFn != nil {
		return f.sendPendingFn(ctx, tenantID)
	}
	return PendingResult{}, nil
}

type fakeTriggerRunner struct {
	birthdayFn  func(ctx context.Context, now time.Time) (TriggerResult, error)
	scheduledFn func(ctx context.Context, now time.Time) (TriggerResult, error)
}

func (f *fakeTriggerRunner) BirthdayDispatch(ctx context.Context, now time.Time) (TriggerResult, error) {
	if f.birthdayFn != nil {
		return f.birthdayFn(ctx, now)
	}
	return TriggerResult{}, nil
}

func (f *fakeTriggerRunner) ScheduledDispatch(ctx context.Context, now time.Time) (TriggerResult, error) {
	if f.scheduledFn != nil {
		return f.scheduledFn(ctx, now)
	}
	return TriggerResult{}, nil
}

// campaignStore is an in-memory campaign and recipient store that enforces the same conditional
// transitions as the SQL repositories. Use campaigns() and recipients() to get the two ports.
type campaignStore struct {
	mu         sync.Mutex
	campaigns  map[string]*domain.Campaign
	recipients map[string]*domain.CampaignRecipient
	order      []string

	createErr      error
	listPendingErr error
	claimHook      func(id string)

	// campaignSentErr and recipientSentErr, when set, run before the matching MarkSent and
	// fail it with a non-nil return.
	campaignSentErr  func(id string) error
	recipientSentErr func(id string) error
}

func newCampaignStore() *campaignStore {
	return &campaignStore{
		campaigns:  make(map[string]*domain.Campaign),
		recipients: make(map[string]*domain.CampaignRecipient),
	}
}

func (s *campaignStore) campaignRepo() repository.CampaignRepository {
	return storeCampaigns{s}
}

func (s *campaignStore) recipientRepo() repository.RecipientRepository {
	return storeRecipients{s}
}

func (s *campaignStore) put(c domain.Campaign, recipients ...domain.CampaignRecipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := c
	s.campaigns[c.ID] = &cp
	for i := range recipients {
		r := recipients[i]
		r.CampaignID = c.ID
		s.recipients[r.ID] = &r
		s.order = append(s.order, r.ID)
	}
}

func (s *campaignStore) campaign(id string) domain.Campaign {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[id]; ok {
		return *c
	}
	return domain.Campaign{}
}

func (s *campaignStore) recipientsOf(campaignID string) []domain.CampaignRecipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CampaignRecipient, 0)
	for _, id := range s.order {
		if r := s.recipients[id]; r.CampaignID == campaignID {
			out = append(out, *r)
		}
	}
	return out
}

type storeCampaigns struct{ s *campaignStore }

func (r storeCampaigns) CreateWithRecipients(ctx context.Context, c *domain.Campaign, recipients []*domain.CampaignRecipient) error {
	if r.s.createErr != nil {
		return r.s.createErr
	}
	rows := make([]domain.CampaignRecipient, 0, len(recipients))
	for _, rec := range recipients {
		rows = append(rows, *rec)
	}
	r.s.put(*c, rows...)
	return nil
}

func (r storeCampaigns) GetByID(ctx context.Context, salonID string, id string) (*domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.SalonID != salonID {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r storeCampaigns) List(ctx context.Context, salonID string, params repository.CampaignListParams) ([]domain.Campaign, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range r.s.campaigns {
		if c.SalonID == salonID {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

func (r storeCampaigns) Claim(ctx context.Context, salonID string, id string) (bool, error) {
	if r.s.claimHook != nil {
		r.s.claimHook(id)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.SalonID != salonID || !c.Status.Claimable() {
		return false, nil
	}
	c.Status = domain.CampaignStatusSending
	return true, nil
}

func (r storeCampaigns) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if r.s.campaignSentErr != nil {
		if err := r.s.campaignSentErr(id); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.Status != domain.CampaignStatusSending {
		return domain.ErrConflict
	}
	c.Status = domain.CampaignStatusSent
	c.SentAt = &sentAt
	return nil
}

func (r storeCampaigns) RevertToScheduled(ctx context.Context, id string, now time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok || c.Status != domain.CampaignStatusSending {
		return domain.ErrConflict
	}
	c.Status = domain.CampaignStatusScheduled
	if c.ScheduledAt == nil {
		c.ScheduledAt = &now
	}
	return nil
}

func (r storeCampaigns) GetDueScheduled(ctx context.Context, salonID string, now time.Time, limit int) ([]domain.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []domain.Campaign
	for _, c := range r.s.campaigns {
		if c.SalonID != salonID || c.Status != domain.CampaignStatusScheduled || c.ScheduledAt == nil || c.ScheduledAt.After(now) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(*out[j].ScheduledAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r storeCampaigns) ListTenantsWithDue(ctx context.Context, now time.Time) ([]string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	seen := make(map[string]struct{})
	var out []string
	for _, c := range r.s.campaigns {
		if c.Status != domain.CampaignStatusScheduled || c.ScheduledAt == nil || c.ScheduledAt.After(now) {
			continue
		}
		if _, ok := seen[c.SalonID]; ok {
			continue
		}
		seen[c.SalonID] = struct{}{}
		out = append(out, c.SalonID)
	}
	sort.Strings(out)
	return out, nil
}

type storeRecipients struct{ s *campaignStore }

func (r storeRecipients) ListPending(ctx context.Context, campaignID string) ([]domain.CampaignRecipient, error) {
	if r.s.listPendingErr != nil {
		return nil, r.s.listPendingErr
	}
	var out []domain.CampaignRecipient
	for _, rec := range r.s.recipientsOf(campaignID) {
		if rec.Status == domain.RecipientStatusPending {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r storeRecipients) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	if r.s.recipientSentErr != nil {
		if err := r.s.recipientSentErr(id); err != nil {
			return err
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recipients[id]
	if !ok || rec.Status != domain.RecipientStatusPending {
		return domain.ErrConflict
	}
	rec.Status = domain.RecipientStatusSent
	rec.SentAt = &sentAt
	return nil
}

func (r storeRecipients) MarkFailed(ctx context.Context, id string, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.recipients[id]
	if !ok || rec.Status != domain.RecipientStatusPending {
		return domain.ErrConflict
	}
	rec.Status = domain.RecipientStatusFailed
	rec.Error = &reason
	return nil
}

func (r storeRecipients) CountByStatus(ctx context.Context, campaignID string) (map[domain.RecipientStatus]int, error) {
	counts := make(map[domain.RecipientStatus]int)
	for _, rec := range r.s.recipientsOf(campaignID) {
		counts[rec.Status]++
	}
	return counts, nil
}

// failTimes returns a hook that fails its first n calls with err.
func failTimes(n int, err error) func(id string) error {
	var mu sync.Mutex
	calls := 0
	return func(string) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= n {
			return err
		}
		return nil
	}
}

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }
