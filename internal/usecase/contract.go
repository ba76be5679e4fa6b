package usecase

import (
	"context"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.ScheduledNotification) error
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error)
	Due(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error)
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	RecordOutcome(ctx context.Context, id string, sentAt time.Time, result domain.DispatchResult) error
	RecordError(ctx context.Context, id string, msg string, at time.Time) error
}

// AudienceRepository reads externally-owned membership data. Every method is
// side-effect-free and safe to call repeatedly during retries.
type AudienceRepository interface {
	DevicesForUsers(ctx context.Context, userIDs []string) ([]domain.RecipientCandidate, error)
	DevicesByRole(ctx context.Context, role domain.Role) ([]domain.RecipientCandidate, error)
	DevicesForMotelFavoriters(ctx context.Context, motelID string) ([]domain.RecipientCandidate, error)
	AllActiveDevices(ctx context.Context, includeGuests bool) ([]domain.RecipientCandidate, error)
}

type PreferenceRepository interface {
	Get(ctx context.Context, userID string) (domain.Preferences, error)
}

// PushSender delivers one message to one device. A returned error is a
// per-recipient failure, never fatal for the batch.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

type DispatchScheduler interface {
	PublishDispatchTick(ctx context.Context, id string, delay time.Duration) error
}

type Alerter interface {
	DispatchFailed(ctx context.Context, notificationID, reason string) error
}
