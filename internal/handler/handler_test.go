package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type fakeService struct {
	scheduled  *domain.CreateNotification
	dispatched []string
	dispatch   *domain.DispatchResult
	schedErr   error
}

func (s *fakeService) Schedule(ctx context.Context, in *domain.CreateNotification) (*domain.ScheduledNotification, error) {
	if s.schedErr != nil {
		return nil, s.schedErr
	}
	s.scheduled = in
	return &domain.ScheduledNotification{ID: "n1", Target: in.Target}, nil
}

func (s *fakeService) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	return nil, domain.ErrNotFound
}

func (s *fakeService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error) {
	return nil, nil
}

func (s *fakeService) Dispatch(ctx context.Context, id string) (*domain.DispatchResult, error) {
	s.dispatched = append(s.dispatched, id)
	return s.dispatch, nil
}

func (s *fakeService) SendPromoToFavorites(ctx context.Context, blast *domain.PromoBlast) (*domain.DispatchResult, error) {
	return &domain.DispatchResult{Sent: 1}, nil
}

func TestCreateNotification_SendNowReturnsCounts(t *testing.T) {
	svc := &fakeService{dispatch: &domain.DispatchResult{Sent: 2, Skipped: 1}}
	h := NewHandler(svc)
	mux := SetupRouter(h)

	body := `{"title":"Promo","body":"50% off","type":"promo","send_now":true,"target_motel_id":"m1","related_entity_id":"promo1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		ID      string `json:"id"`
		Sent    *int   `json:"sent"`
		Failed  *int   `json:"failed"`
		Skipped *int   `json:"skipped"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "n1" || resp.Sent == nil || *resp.Sent != 2 || *resp.Skipped != 1 {
		t.Errorf("response = %s", rec.Body.String())
	}
	if len(svc.dispatched) != 1 || svc.dispatched[0] != "n1" {
		t.Errorf("inline dispatch calls = %v", svc.dispatched)
	}
	if svc.scheduled.Target.Kind != domain.TargetMotelFavorites {
		t.Errorf("target kind = %q", svc.scheduled.Target.Kind)
	}
}

func TestCreateNotification_DeferredOmitsCounts(t *testing.T) {
	svc := &fakeService{}
	h := NewHandler(svc)
	mux := SetupRouter(h)

	body := `{"title":"Promo","body":"50% off","type":"promo","scheduled_for":"2030-01-01T10:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), `"sent"`) {
		t.Errorf("deferred response must not carry counters: %s", rec.Body.String())
	}
	if len(svc.dispatched) != 0 {
		t.Error("deferred submission must not dispatch inline")
	}
}

func TestCreateNotification_ValidationErrorsAre400(t *testing.T) {
	svc := &fakeService{schedErr: domain.ErrInvalidScheduleGranularity}
	h := NewHandler(svc)
	mux := SetupRouter(h)

	body := `{"title":"Promo","body":"50% off","type":"promo","scheduled_for":"2030-01-01T10:15:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestCreateNotification_BadEnumRejectedByValidator(t *testing.T) {
	h := NewHandler(&fakeService{})
	mux := SetupRouter(h)

	body := `{"title":"Promo","body":"50% off","type":"newsletter","send_now":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications", strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestDispatchNotification_AlreadySent(t *testing.T) {
	svc := &fakeService{dispatch: nil}
	h := NewHandler(svc)
	mux := SetupRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/n1/dispatch", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"dispatched":false`) {
		t.Errorf("response = %s", rec.Body.String())
	}
}
