package handler

import (
	"context"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

type NotificationService interface {
	Schedule(ctx context.Context, in *domain.CreateNotification) (*domain.ScheduledNotification, error)
	Get(ctx context.Context, id string) (*domain.ScheduledNotification, error)
	List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error)
	Dispatch(ctx context.Context, id string) (*domain.DispatchResult, error)
	SendPromoToFavorites(ctx context.Context, blast *domain.PromoBlast) (*domain.DispatchResult, error)
}
