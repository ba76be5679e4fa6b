package usecase

import (
	"context"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"

	"github.com/wb-go/wbf/zlog"
)

// PreferenceGate answers whether a candidate may receive a notification of a
// given category. Guests have no preference record and are always allowed.
// A lookup failure defaults to allow: a down preference store must not block
// a security notice, and a spurious extra push is the cheaper mistake.
type PreferenceGate struct {
	prefs PreferenceRepository
}

func NewPreferenceGate(prefs PreferenceRepository) *PreferenceGate {
	return &PreferenceGate{prefs: prefs}
}

func (g *PreferenceGate) Allows(ctx context.Context, candidate domain.RecipientCandidate, category domain.Category) bool {
	if candidate.Guest() {
		return true
	}
	prefs, err := g.prefs.Get(ctx, candidate.UserID)
	if err != nil {
		zlog.Logger.Warn().Err(err).Str("user_id", candidate.UserID).Msg("Preference lookup failed, allowing")
		return true
	}
	return prefs.AllowsPush(category)
}
