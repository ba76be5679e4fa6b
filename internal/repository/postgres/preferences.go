package postgres

import (
	"context"
	"database/sql"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

// PreferenceRepository looks up per-user delivery toggles. Users without a
// stored row get the allow-everything defaults.
type PreferenceRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewPreferenceRepository(db *dbpg.DB, retries retry.Strategy) *PreferenceRepository {
	return &PreferenceRepository{db: db, retries: retries}
}

func (r *PreferenceRepository) Get(ctx context.Context, userID string) (domain.Preferences, error) {
	row, err := r.db.QueryRowWithRetry(ctx, r.retries,
		`SELECT enable_notifications, enable_push,
			enable_advertising_push, enable_security_push, enable_maintenance_push
		FROM notification_preferences WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return domain.DefaultPreferences(), err
	}
	var p domain.Preferences
	err = row.Scan(
		&p.EnableNotifications, &p.EnablePush,
		&p.EnableAdvertisingPush, &p.EnableSecurityPush, &p.EnableMaintenancePush,
	)
	if err == sql.ErrNoRows {
		return domain.DefaultPreferences(), nil
	}
	if err != nil {
		return domain.DefaultPreferences(), err
	}
	return p, nil
}
