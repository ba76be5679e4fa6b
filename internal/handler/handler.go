package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
	"github.com/jahatelomain/jahatelo-sub002/internal/handler/dto"

	"github.com/go-playground/validator/v10"
	"github.com/wb-go/wbf/zlog"
)

type Handler struct {
	service  NotificationService
	validate *validator.Validate
}

func NewHandler(service NotificationService) *Handler {
	validate := validator.New()
	validate.RegisterValidation("datetime", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(time.RFC3339, fl.Field().String())
		return err == nil
	})
	return &Handler{
		service:  service,
		validate: validate,
	}
}

// CreateNotification schedules a notification. With send_now it also
// dispatches inline and the response carries the outcome counters.
func (h *Handler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	in, err := dto.ToDomain(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	ctx := r.Context()
	created, err := h.service.Schedule(ctx, in)
	if err != nil {
		if domain.IsValidationError(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		zlog.Logger.Error().Err(err).Msg("Failed to schedule notification")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := dto.SubmitResponse{ID: created.ID}
	if in.SendNow {
		result, err := h.service.Dispatch(ctx, created.ID)
		if err != nil {
			zlog.Logger.Error().Err(err).Str("id", created.ID).Msg("Inline dispatch failed")
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if result != nil {
			resp.Sent = &result.Sent
			resp.Failed = &result.Failed
			resp.Skipped = &result.Skipped
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(resp)
}

func (h *Handler) GetNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "ID is required", http.StatusBadRequest)
		return
	}
	notif, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		zlog.Logger.Error().Err(err).Str("id", id).Msg("Failed to get notification")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.FromDomain(notif))
}

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ListFilter{
		SentState: dto.ParseSentState(q.Get("sent")),
		Type:      domain.NotificationType(q.Get("type")),
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		filter.Limit = n
	}
	if filter.Type != "" && !filter.Type.Valid() {
		http.Error(w, domain.ErrInvalidType.Error(), http.StatusBadRequest)
		return
	}

	notifications, err := h.service.List(r.Context(), filter)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("Failed to list notifications")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	resp := make([]dto.NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		resp = append(resp, dto.FromDomain(n))
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// DispatchNotification is the manual "send now" trigger for an existing
// record. An already-sent record yields 200 with dispatched=false instead of
// an error.
func (h *Handler) DispatchNotification(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		http.Error(w, "ID is required", http.StatusBadRequest)
		return
	}
	result, err := h.service.Dispatch(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		zlog.Logger.Error().Err(err).Str("id", id).Msg("Failed to dispatch notification")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if result == nil {
		json.NewEncoder(w).Encode(map[string]any{"id": id, "dispatched": false})
		return
	}
	json.NewEncoder(w).Encode(dto.DispatchResponse{
		ID:      id,
		Sent:    result.Sent,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	})
}

func (h *Handler) SendPromoBlast(w http.ResponseWriter, r *http.Request) {
	motelID := r.PathValue("motelId")
	if motelID == "" {
		http.Error(w, "motel ID is required", http.StatusBadRequest)
		return
	}
	var req dto.PromoBlastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	defer r.Body.Close()
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	result, err := h.service.SendPromoToFavorites(r.Context(), &domain.PromoBlast{
		MotelID: motelID,
		Title:   req.Title,
		Body:    req.Body,
		PromoID: req.PromoID,
		Data:    req.Data,
	})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("motel_id", motelID).Msg("Failed to send promo blast")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(dto.DispatchResponse{
		ID:      motelID,
		Sent:    result.Sent,
		Failed:  result.Failed,
		Skipped: result.Skipped,
	})
}
