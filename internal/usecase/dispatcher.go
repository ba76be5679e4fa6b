package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
	"github.com/jahatelomain/jahatelo-sub002/internal/metrics"

	"github.com/wb-go/wbf/zlog"
)

// Dispatch sends a scheduled notification to its resolved audience exactly
// once. The nil, nil return means the record was already sent (or claimed by
// a concurrent dispatch) and nothing was done.
//
// The claim happens before any network fan-out. Once claimed, the record is
// terminal: a resolver failure after the claim records an error message but
// never reverts sent, so a later retry can never double-send.
func (u *notificationUsecase) Dispatch(ctx context.Context, id string) (*domain.DispatchResult, error) {
	notif, err := u.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if notif == nil {
		return nil, domain.ErrNotFound
	}
	if notif.Sent {
		zlog.Logger.Info().Str("id", id).Msg("Notification already sent, skipping dispatch")
		return nil, nil
	}

	claimed, err := u.repo.Claim(ctx, id, u.now())
	if err != nil {
		return nil, fmt.Errorf("claim notification: %w", err)
	}
	if !claimed {
		zlog.Logger.Info().Str("id", id).Msg("Notification claimed by another dispatcher")
		return nil, nil
	}

	// Past the claim the record is already marked sent; aborting now would
	// strand it with an empty ledger. Detach from the caller so a client
	// disconnect or shutdown cannot cancel the fan-out or the outcome write.
	// The push client timeout still bounds every send.
	ctx = context.WithoutCancel(ctx)

	candidates, err := u.resolver.Resolve(ctx, notif.Target)
	if err != nil {
		msg := fmt.Sprintf("audience resolution failed: %v", err)
		if recErr := u.repo.RecordError(ctx, id, msg, u.now()); recErr != nil {
			zlog.Logger.Error().Err(recErr).Str("id", id).Msg("Failed to record dispatch error")
		}
		if u.alerter != nil {
			if alertErr := u.alerter.DispatchFailed(ctx, id, msg); alertErr != nil {
				zlog.Logger.Warn().Err(alertErr).Str("id", id).Msg("Failed to send ops alert")
			}
		}
		return nil, fmt.Errorf("resolve audience: %w", err)
	}

	result := u.fanOut(ctx, payloadFor(notif), notif.Title, notif.Body, notif.Category, candidates)

	sentAt := u.now()
	if err := u.repo.RecordOutcome(ctx, id, sentAt, *result); err != nil {
		zlog.Logger.Error().Err(err).Str("id", id).Msg("Dispatch completed but outcome write failed")
		return result, fmt.Errorf("record outcome: %w", err)
	}

	metrics.DispatchesTotal.WithLabelValues("scheduled").Inc()
	zlog.Logger.Info().
		Str("id", id).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Dispatch complete")
	return result, nil
}

// SendPromoToFavorites is the immediate favorites-of-a-motel blast: same
// resolve/gate/fan-out pipeline, no persisted record.
func (u *notificationUsecase) SendPromoToFavorites(ctx context.Context, blast *domain.PromoBlast) (*domain.DispatchResult, error) {
	candidates, err := u.resolver.Resolve(ctx, domain.MotelFavoritesTarget(blast.MotelID))
	if err != nil {
		return nil, fmt.Errorf("resolve favoriters: %w", err)
	}

	data := make(map[string]string, len(blast.Data)+2)
	for k, v := range blast.Data {
		data[k] = v
	}
	data["motelId"] = blast.MotelID
	if blast.PromoID != "" {
		data["relatedEntityId"] = blast.PromoID
	}

	result := u.fanOut(ctx, data, blast.Title, blast.Body, domain.CategoryAdvertising, candidates)
	metrics.DispatchesTotal.WithLabelValues("promo_blast").Inc()
	zlog.Logger.Info().
		Str("motel_id", blast.MotelID).
		Int("sent", result.Sent).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Msg("Promo blast complete")
	return result, nil
}

// fanOut gates and sends to every candidate with bounded concurrency.
// Per-recipient failures only bump the counter; the batch always runs to
// completion. Sent+Failed+Skipped always equals len(candidates).
func (u *notificationUsecase) fanOut(
	ctx context.Context,
	data map[string]string,
	title, body string,
	category domain.Category,
	candidates []domain.RecipientCandidate,
) *domain.DispatchResult {
	result := &domain.DispatchResult{}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, u.fanoutWorkers)

	for _, c := range candidates {
		if !c.HasDevice() {
			result.Skipped++
			metrics.DispatchOutcomesTotal.WithLabelValues("skipped").Inc()
			continue
		}
		if !u.gate.Allows(ctx, c, category) {
			result.Skipped++
			metrics.DispatchOutcomesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(c domain.RecipientCandidate) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			err := u.push.Send(ctx, c.Token, title, body, data)
			outcome := "sent"
			if err != nil {
				outcome = "failed"
				zlog.Logger.Warn().Err(err).Str("user_id", c.UserID).Msg("Push send failed")
			}
			metrics.PushSendDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
			metrics.DispatchOutcomesTotal.WithLabelValues(outcome).Inc()

			mu.Lock()
			if err != nil {
				result.Failed++
			} else {
				result.Sent++
			}
			mu.Unlock()
		}(c)
	}
	wg.Wait()
	return result
}

// payloadFor builds the opaque client payload. The stored data map passes
// through verbatim; the record id and correlation id ride along for the
// client to route on.
func payloadFor(notif *domain.ScheduledNotification) map[string]string {
	data := make(map[string]string, len(notif.Data)+3)
	for k, v := range notif.Data {
		data[k] = v
	}
	data["notificationId"] = notif.ID
	data["type"] = string(notif.Type)
	if notif.RelatedEntityID != "" {
		data["relatedEntityId"] = notif.RelatedEntityID
	}
	if notif.Target.Kind == domain.TargetMotelFavorites {
		data["motelId"] = notif.Target.MotelID
	}
	return data
}
