package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type fakeRepo struct {
	mu       sync.Mutex
	notifs   map[string]*domain.ScheduledNotification
	outcomes map[string]domain.DispatchResult
	errMsgs  map[string]string
	errAt    map[string]time.Time
	getErr   error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		notifs:   make(map[string]*domain.ScheduledNotification),
		outcomes: make(map[string]domain.DispatchResult),
		errMsgs:  make(map[string]string),
		errAt:    make(map[string]time.Time),
	}
}

func (r *fakeRepo) Create(ctx context.Context, notif *domain.ScheduledNotification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *notif
	r.notifs[notif.ID] = &cp
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	notif, ok := r.notifs[id]
	if !ok {
		return nil, nil
	}
	cp := *notif
	return &cp, nil
}

func (r *fakeRepo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ScheduledNotification
	for _, n := range r.notifs {
		switch filter.SentState {
		case domain.SentStatePending:
			if n.Sent {
				continue
			}
		case domain.SentStateSent:
			if !n.Sent {
				continue
			}
		}
		if filter.Type != "" && n.Type != filter.Type {
			continue
		}
		cp := *n
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) Due(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.ScheduledNotification
	for _, n := range r.notifs {
		if !n.Sent && !n.ScheduledFor.After(now) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	notif, ok := r.notifs[id]
	if !ok || notif.Sent {
		return false, nil
	}
	notif.Sent = true
	return true, nil
}

func (r *fakeRepo) RecordOutcome(ctx context.Context, id string, sentAt time.Time, result domain.DispatchResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notif, ok := r.notifs[id]; ok {
		t := sentAt
		notif.SentAt = &t
		notif.TotalSent = result.Sent
		notif.TotalFailed = result.Failed
		notif.TotalSkipped = result.Skipped
	}
	r.outcomes[id] = result
	return nil
}

func (r *fakeRepo) RecordError(ctx context.Context, id string, msg string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if notif, ok := r.notifs[id]; ok {
		notif.ErrorMessage = msg
		notif.UpdatedAt = at
	}
	r.errMsgs[id] = msg
	r.errAt[id] = at
	return nil
}

type fakeAudience struct {
	byUser     []domain.RecipientCandidate
	byRole     []domain.RecipientCandidate
	favoriters []domain.RecipientCandidate
	broadcast  []domain.RecipientCandidate
	err        error

	lastUserIDs []string
	lastRole    domain.Role
	lastMotelID string
	lastGuests  bool
}

func (a *fakeAudience) DevicesForUsers(ctx context.Context, userIDs []string) ([]domain.RecipientCandidate, error) {
	a.lastUserIDs = userIDs
	return a.byUser, a.err
}

func (a *fakeAudience) DevicesByRole(ctx context.Context, role domain.Role) ([]domain.RecipientCandidate, error) {
	a.lastRole = role
	return a.byRole, a.err
}

func (a *fakeAudience) DevicesForMotelFavoriters(ctx context.Context, motelID string) ([]domain.RecipientCandidate, error) {
	a.lastMotelID = motelID
	return a.favoriters, a.err
}

func (a *fakeAudience) AllActiveDevices(ctx context.Context, includeGuests bool) ([]domain.RecipientCandidate, error) {
	a.lastGuests = includeGuests
	return a.broadcast, a.err
}

type fakePrefs struct {
	byUser map[string]domain.Preferences
	err    error
}

func (p *fakePrefs) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	if p.err != nil {
		return domain.DefaultPreferences(), p.err
	}
	if prefs, ok := p.byUser[userID]; ok {
		return prefs, nil
	}
	return domain.DefaultPreferences(), nil
}

type sentPush struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type fakePush struct {
	mu      sync.Mutex
	sent    []sentPush
	failFor map[string]bool
}

func (p *fakePush) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor[token] {
		return errors.New("transport rejected")
	}
	p.sent = append(p.sent, sentPush{Token: token, Title: title, Body: body, Data: data})
	return nil
}

func (p *fakePush) sentTokens() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	tokens := make([]string, len(p.sent))
	for i, s := range p.sent {
		tokens[i] = s.Token
	}
	return tokens
}

type fakeBroker struct {
	mu    sync.Mutex
	ticks []string
}

func (b *fakeBroker) PublishDispatchTick(ctx context.Context, id string, delay time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ticks = append(b.ticks, id)
	return nil
}

type fakeAlerter struct {
	mu      sync.Mutex
	reasons []string
}

func (a *fakeAlerter) DispatchFailed(ctx context.Context, notificationID, reason string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reasons = append(a.reasons, reason)
	return nil
}

func newTestUsecase(repo *fakeRepo, audience *fakeAudience, prefs *fakePrefs, push *fakePush, broker *fakeBroker, alerter *fakeAlerter) *notificationUsecase {
	return NewNotificationUsecase(
		repo,
		NewAudienceResolver(audience),
		NewPreferenceGate(prefs),
		push,
		broker,
		alerter,
		4,
	)
}
