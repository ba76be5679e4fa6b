package repository

import (
	"context"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type Cache interface {
	Set(ctx context.Context, id string, notif *domain.ScheduledNotification, ttl time.Duration) error
	Del(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notif *domain.ScheduledNotification) error
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error)
	Due(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error)
	Claim(ctx context.Context, id string, at time.Time) (bool, error)
	RecordOutcome(ctx context.Context, id string, sentAt time.Time, result domain.DispatchResult) error
	RecordError(ctx context.Context, id string, msg string, at time.Time) error
}
