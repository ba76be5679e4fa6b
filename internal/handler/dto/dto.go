package dto

import (
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type CreateNotificationRequest struct {
	Title           string            `json:"title" validate:"required,max=65"`
	Body            string            `json:"body" validate:"required,max=240"`
	Category        string            `json:"category" validate:"omitempty,oneof=advertising security maintenance"`
	Type            string            `json:"type" validate:"required,oneof=promo reminder announcement"`
	ScheduledFor    string            `json:"scheduled_for" validate:"omitempty,datetime"`
	SendNow         bool              `json:"send_now"`
	TargetUserIDs   []string          `json:"target_user_ids"`
	TargetRole      string            `json:"target_role" validate:"omitempty,oneof=SUPERADMIN MOTEL_ADMIN USER"`
	TargetMotelID   string            `json:"target_motel_id"`
	RelatedEntityID string            `json:"related_entity_id"`
	Data            map[string]string `json:"data"`
}

type PromoBlastRequest struct {
	Title   string            `json:"title" validate:"required,max=65"`
	Body    string            `json:"body" validate:"required,max=240"`
	PromoID string            `json:"promo_id"`
	Data    map[string]string `json:"data"`
}

type NotificationResponse struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Body            string            `json:"body"`
	Category        string            `json:"category,omitempty"`
	Type            string            `json:"type"`
	Data            map[string]string `json:"data,omitempty"`
	TargetKind      string            `json:"target_kind"`
	TargetUserIDs   []string          `json:"target_user_ids,omitempty"`
	TargetRole      string            `json:"target_role,omitempty"`
	TargetMotelID   string            `json:"target_motel_id,omitempty"`
	IncludeGuests   bool              `json:"include_guests,omitempty"`
	RelatedEntityID string            `json:"related_entity_id,omitempty"`
	ScheduledFor    time.Time         `json:"scheduled_for"`
	Sent            bool              `json:"sent"`
	SentAt          *time.Time        `json:"sent_at,omitempty"`
	TotalSent       int               `json:"total_sent"`
	TotalFailed     int               `json:"total_failed"`
	TotalSkipped    int               `json:"total_skipped"`
	ErrorMessage    string            `json:"error_message,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// SubmitResponse reports the schedule result. The counters are present only
// when the notification was dispatched inline.
type SubmitResponse struct {
	ID      string `json:"id"`
	Sent    *int   `json:"sent,omitempty"`
	Failed  *int   `json:"failed,omitempty"`
	Skipped *int   `json:"skipped,omitempty"`
}

type DispatchResponse struct {
	ID      string `json:"id"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
	Skipped int    `json:"skipped"`
}

func FromDomain(n *domain.ScheduledNotification) NotificationResponse {
	return NotificationResponse{
		ID:              n.ID,
		Title:           n.Title,
		Body:            n.Body,
		Category:        string(n.Category),
		Type:            string(n.Type),
		Data:            n.Data,
		TargetKind:      string(n.Target.Kind),
		TargetUserIDs:   n.Target.UserIDs,
		TargetRole:      string(n.Target.Role),
		TargetMotelID:   n.Target.MotelID,
		IncludeGuests:   n.Target.IncludeGuests,
		RelatedEntityID: n.RelatedEntityID,
		ScheduledFor:    n.ScheduledFor,
		Sent:            n.Sent,
		SentAt:          n.SentAt,
		TotalSent:       n.TotalSent,
		TotalFailed:     n.TotalFailed,
		TotalSkipped:    n.TotalSkipped,
		ErrorMessage:    n.ErrorMessage,
		CreatedAt:       n.CreatedAt,
	}
}

func ToDomain(req CreateNotificationRequest) (*domain.CreateNotification, error) {
	var scheduledFor time.Time
	if req.ScheduledFor != "" {
		t, err := time.Parse(time.RFC3339, req.ScheduledFor)
		if err != nil {
			return nil, err
		}
		scheduledFor = t
	}
	includeGuests := req.Data["includeGuests"] == "true"
	return &domain.CreateNotification{
		Title:           req.Title,
		Body:            req.Body,
		Category:        domain.Category(req.Category),
		Type:            domain.NotificationType(req.Type),
		Data:            req.Data,
		Target:          domain.NewTarget(req.TargetUserIDs, domain.Role(req.TargetRole), req.TargetMotelID, includeGuests),
		RelatedEntityID: req.RelatedEntityID,
		ScheduledFor:    scheduledFor,
		SendNow:         req.SendNow,
	}, nil
}

// ParseSentState maps the `sent` query param onto a list filter state.
// Anything unrecognized falls back to all.
func ParseSentState(s string) domain.SentState {
	switch s {
	case "false", "pending":
		return domain.SentStatePending
	case "true", "sent":
		return domain.SentStateSent
	}
	return domain.SentStateAll
}
