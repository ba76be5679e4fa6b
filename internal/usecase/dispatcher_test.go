package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

func pendingNotif(id string, target domain.Target) *domain.ScheduledNotification {
	return &domain.ScheduledNotification{
		ID:           id,
		Title:        "Title",
		Body:         "Body",
		Type:         domain.TypeAnnouncement,
		Target:       target,
		ScheduledFor: time.Now().Add(-time.Minute),
	}
}

func TestDispatch_SecondCallIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleUser))
	audience := &fakeAudience{byRole: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
	}}
	push := &fakePush{}
	uc := newTestUsecase(repo, audience, &fakePrefs{}, push, &fakeBroker{}, &fakeAlerter{})

	first, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("first Dispatch() error: %v", err)
	}
	if first == nil || first.Sent != 1 {
		t.Fatalf("first Dispatch() = %+v, want 1 sent", first)
	}

	second, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("second Dispatch() error: %v", err)
	}
	if second != nil {
		t.Errorf("second Dispatch() = %+v, want nil no-op", second)
	}
	if len(push.sentTokens()) != 1 {
		t.Errorf("transport saw %d sends, want exactly 1", len(push.sentTokens()))
	}
	if got := repo.outcomes["n1"]; got.Sent != 1 {
		t.Errorf("ledger = %+v, want identical to a single dispatch", got)
	}
}

func TestDispatch_ConcurrentCallersSingleClaim(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleUser))
	audience := &fakeAudience{byRole: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
		{Token: "ExponentPushToken[bbb]", UserID: "u2"},
	}}
	push := &fakePush{}
	uc := newTestUsecase(repo, audience, &fakePrefs{}, push, &fakeBroker{}, &fakeAlerter{})

	const racers = 8
	results := make([]*domain.DispatchResult, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := uc.Dispatch(context.Background(), "n1")
			if err != nil {
				t.Errorf("Dispatch() error: %v", err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, res := range results {
		if res != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Errorf("%d dispatchers claimed the record, want exactly 1", winners)
	}
	if len(push.sentTokens()) != 2 {
		t.Errorf("transport saw %d sends, want 2 (one per candidate, once)", len(push.sentTokens()))
	}
}

// ctxBoundPush fails every send whose context has been cancelled, the way a
// real HTTP client would.
type ctxBoundPush struct {
	mu   sync.Mutex
	sent int
}

func (p *ctxBoundPush) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent++
	return nil
}

func TestDispatch_ClaimedDispatchSurvivesCallerCancel(t *testing.T) {
	// A client disconnect or shutdown after the claim must not abort the
	// fan-out or the outcome write; the record would otherwise be stuck
	// sent with an empty ledger.
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleUser))
	audience := &fakeAudience{byRole: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
		{Token: "ExponentPushToken[bbb]", UserID: "u2"},
	}}
	push := &ctxBoundPush{}
	uc := NewNotificationUsecase(
		repo,
		NewAudienceResolver(audience),
		NewPreferenceGate(&fakePrefs{}),
		push,
		&fakeBroker{},
		&fakeAlerter{},
		4,
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := uc.Dispatch(ctx, "n1")
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if res == nil || res.Sent != 2 || res.Failed != 0 {
		t.Fatalf("Dispatch() = %+v, want both sends to complete despite cancellation", res)
	}
	if push.sent != 2 {
		t.Errorf("transport saw %d sends, want 2", push.sent)
	}
	if repo.notifs["n1"].SentAt == nil {
		t.Error("outcome not recorded after caller cancellation")
	}
	if got := repo.outcomes["n1"]; got.Sent != 2 {
		t.Errorf("ledger = %+v, want {2 0 0}", got)
	}
}

func TestDispatch_LedgerConservation(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleUser))
	audience := &fakeAudience{byRole: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[ok1]", UserID: "u1"},
		{Token: "ExponentPushToken[bad]", UserID: "u2"},
		{Token: "ExponentPushToken[off]", UserID: "u3"},
		{Token: "ExponentPushToken[ok2]", UserID: "u4"},
	}}
	push := &fakePush{failFor: map[string]bool{"ExponentPushToken[bad]": true}}
	prefs := &fakePrefs{byUser: map[string]domain.Preferences{
		"u3": {EnableNotifications: true, EnablePush: false},
	}}
	uc := newTestUsecase(repo, audience, prefs, push, &fakeBroker{}, &fakeAlerter{})

	res, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if res.Sent != 2 || res.Failed != 1 || res.Skipped != 1 {
		t.Errorf("Dispatch() = %+v, want {2 1 1}", res)
	}
	if res.Total() != 4 {
		t.Errorf("ledger total = %d, want resolved candidate count 4", res.Total())
	}
}

func TestDispatch_PromoToFavoritesScenario(t *testing.T) {
	// Three favoriters of m1, one with push disabled.
	repo := newFakeRepo()
	notif := pendingNotif("n1", domain.MotelFavoritesTarget("m1"))
	notif.Type = domain.TypePromo
	notif.Category = domain.CategoryAdvertising
	notif.RelatedEntityID = "promo1"
	repo.notifs["n1"] = notif

	audience := &fakeAudience{favoriters: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
		{Token: "ExponentPushToken[bbb]", UserID: "u2"},
		{Token: "ExponentPushToken[ccc]", UserID: "u3"},
	}}
	prefs := &fakePrefs{byUser: map[string]domain.Preferences{
		"u2": {EnableNotifications: true, EnablePush: false},
	}}
	push := &fakePush{}
	uc := newTestUsecase(repo, audience, prefs, push, &fakeBroker{}, &fakeAlerter{})

	res, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if res.Sent != 2 || res.Failed != 0 || res.Skipped != 1 {
		t.Errorf("Dispatch() = %+v, want {2 0 1}", res)
	}
	for _, s := range push.sent {
		if s.Data["relatedEntityId"] != "promo1" {
			t.Errorf("payload missing correlation id: %v", s.Data)
		}
		if s.Data["motelId"] != "m1" {
			t.Errorf("favorites payload missing motel id: %v", s.Data)
		}
	}
}

func TestDispatch_EmptyAudienceStillTerminal(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleSuperadmin))
	uc := newTestUsecase(repo, &fakeAudience{}, &fakePrefs{}, &fakePush{}, &fakeBroker{}, &fakeAlerter{})

	res, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if res.Sent != 0 || res.Failed != 0 || res.Skipped != 0 {
		t.Errorf("Dispatch() = %+v, want all zeros", res)
	}
	if !repo.notifs["n1"].Sent {
		t.Error("record must transition to sent even with an empty audience")
	}
	if repo.notifs["n1"].SentAt == nil {
		t.Error("sent_at must be set after dispatch")
	}
}

func TestDispatch_TokenlessCandidateCountsSkipped(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.ExplicitUsersTarget([]string{"u1", "u2"}))
	audience := &fakeAudience{byUser: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
	}}
	uc := newTestUsecase(repo, audience, &fakePrefs{}, &fakePush{}, &fakeBroker{}, &fakeAlerter{})

	res, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("Dispatch() error: %v", err)
	}
	if res.Sent != 1 || res.Skipped != 1 {
		t.Errorf("Dispatch() = %+v, want tokenless user counted skipped", res)
	}
}

func TestDispatch_ResolutionFailureIsTerminal(t *testing.T) {
	repo := newFakeRepo()
	repo.notifs["n1"] = pendingNotif("n1", domain.RoleTarget(domain.RoleUser))
	audience := &fakeAudience{err: errors.New("membership store down")}
	alerter := &fakeAlerter{}
	uc := newTestUsecase(repo, audience, &fakePrefs{}, &fakePush{}, &fakeBroker{}, alerter)
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	uc.now = func() time.Time { return now }

	_, err := uc.Dispatch(context.Background(), "n1")
	if err == nil {
		t.Fatal("Dispatch() expected error on resolution failure")
	}
	if !repo.notifs["n1"].Sent {
		t.Error("claimed record must stay terminal after a resolution failure")
	}
	if repo.errMsgs["n1"] == "" {
		t.Error("error message not recorded")
	}
	if !repo.errAt["n1"].Equal(now) {
		t.Errorf("error recorded at %v, want the injected clock %v", repo.errAt["n1"], now)
	}
	if len(alerter.reasons) != 1 {
		t.Errorf("ops alert not sent, reasons=%v", alerter.reasons)
	}

	// A retried tick must not double-send.
	res, err := uc.Dispatch(context.Background(), "n1")
	if err != nil {
		t.Fatalf("retry Dispatch() error: %v", err)
	}
	if res != nil {
		t.Error("retry after terminal failure must be a no-op")
	}
}

func TestDispatch_UnknownID(t *testing.T) {
	uc := newTestUsecase(newFakeRepo(), &fakeAudience{}, &fakePrefs{}, &fakePush{}, &fakeBroker{}, &fakeAlerter{})
	_, err := uc.Dispatch(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Dispatch() = %v, want ErrNotFound", err)
	}
}

func TestSendPromoToFavorites(t *testing.T) {
	audience := &fakeAudience{favoriters: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
		{Token: "ExponentPushToken[bbb]", UserID: "u2"},
	}}
	push := &fakePush{failFor: map[string]bool{"ExponentPushToken[bbb]": true}}
	repo := newFakeRepo()
	uc := newTestUsecase(repo, audience, &fakePrefs{}, push, &fakeBroker{}, &fakeAlerter{})

	res, err := uc.SendPromoToFavorites(context.Background(), &domain.PromoBlast{
		MotelID: "m1",
		Title:   "Promo",
		Body:    "50% off",
		PromoID: "promo1",
	})
	if err != nil {
		t.Fatalf("SendPromoToFavorites() error: %v", err)
	}
	if res.Sent != 1 || res.Failed != 1 || res.Skipped != 0 {
		t.Errorf("SendPromoToFavorites() = %+v, want {1 1 0}", res)
	}
	if len(repo.notifs) != 0 {
		t.Error("promo blast must not persist a record")
	}
	if len(push.sent) != 1 || push.sent[0].Data["relatedEntityId"] != "promo1" {
		t.Errorf("payload missing promo correlation id: %+v", push.sent)
	}
}

func TestDispatchDue_SweepsPendingRecords(t *testing.T) {
	repo := newFakeRepo()
	now := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	due := pendingNotif("due", domain.RoleTarget(domain.RoleUser))
	due.ScheduledFor = now.Add(-time.Minute)
	future := pendingNotif("future", domain.RoleTarget(domain.RoleUser))
	future.ScheduledFor = now.Add(time.Hour)
	repo.notifs["due"] = due
	repo.notifs["future"] = future

	audience := &fakeAudience{byRole: []domain.RecipientCandidate{
		{Token: "ExponentPushToken[aaa]", UserID: "u1"},
	}}
	uc := newTestUsecase(repo, audience, &fakePrefs{}, &fakePush{}, &fakeBroker{}, &fakeAlerter{})
	uc.now = func() time.Time { return now }

	n, err := uc.DispatchDue(context.Background())
	if err != nil {
		t.Fatalf("DispatchDue() error: %v", err)
	}
	if n != 1 {
		t.Errorf("DispatchDue() = %d, want 1", n)
	}
	if !repo.notifs["due"].Sent {
		t.Error("due record not dispatched")
	}
	if repo.notifs["future"].Sent {
		t.Error("future record must stay pending")
	}
}
