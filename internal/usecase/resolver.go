package usecase

import (
	"context"
	"fmt"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
)

// AudienceResolver expands a target into concrete recipient candidates.
// Resolution is read-only; the same target resolves the same way on every
// retry, modulo membership changes in the underlying store.
type AudienceResolver struct {
	audience AudienceRepository
}

func NewAudienceResolver(audience AudienceRepository) *AudienceResolver {
	return &AudienceResolver{audience: audience}
}

// Resolve returns the de-duplicated candidate set for a target. For explicit
// user targets, users without any registered device still yield one
// tokenless candidate so the dispatch ledger can account for them as
// skipped.
func (r *AudienceResolver) Resolve(ctx context.Context, target domain.Target) ([]domain.RecipientCandidate, error) {
	switch target.Kind {
	case domain.TargetExplicitUsers:
		return r.resolveExplicit(ctx, target.UserIDs)
	case domain.TargetRole:
		devices, err := r.audience.DevicesByRole(ctx, target.Role)
		if err != nil {
			return nil, err
		}
		return dedupe(devices), nil
	case domain.TargetMotelFavorites:
		devices, err := r.audience.DevicesForMotelFavoriters(ctx, target.MotelID)
		if err != nil {
			return nil, err
		}
		return dedupe(devices), nil
	case domain.TargetBroadcast:
		devices, err := r.audience.AllActiveDevices(ctx, target.IncludeGuests)
		if err != nil {
			return nil, err
		}
		return dedupe(devices), nil
	}
	return nil, fmt.Errorf("unknown target kind %q", target.Kind)
}

func (r *AudienceResolver) resolveExplicit(ctx context.Context, userIDs []string) ([]domain.RecipientCandidate, error) {
	unique := make([]string, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	devices, err := r.audience.DevicesForUsers(ctx, unique)
	if err != nil {
		return nil, err
	}
	candidates := dedupe(devices)

	covered := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		covered[c.UserID] = struct{}{}
	}
	// Targeted users with no device stay in the set as tokenless
	// placeholders; the dispatcher counts them skipped.
	for _, id := range unique {
		if _, ok := covered[id]; !ok {
			candidates = append(candidates, domain.RecipientCandidate{UserID: id})
		}
	}
	return candidates, nil
}

// dedupe keeps the first occurrence of each device token.
func dedupe(candidates []domain.RecipientCandidate) []domain.RecipientCandidate {
	seen := make(map[string]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c.Token == "" {
			out = append(out, c)
			continue
		}
		if _, ok := seen[c.Token]; ok {
			continue
		}
		seen[c.Token] = struct{}{}
		out = append(out, c)
	}
	return out
}
