package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"
	"github.com/jahatelomain/jahatelo-sub002/internal/repository"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

const notificationColumns = `id, title, body, category, type, data,
	target_kind, target_user_ids, target_role, target_motel_id, include_guests,
	related_entity_id, scheduled_for, sent, sent_at,
	total_sent, total_failed, total_skipped, error_message, created_at, updated_at`

type NotificationRepository struct {
	db      *dbpg.DB
	cache   repository.Cache
	retries retry.Strategy
	ttl     time.Duration
}

func NewNotificationRepository(
	db *dbpg.DB,
	cache repository.Cache,
	retries retry.Strategy,
	ttl time.Duration,
) *NotificationRepository {
	r := &NotificationRepository{
		db:      db,
		cache:   cache,
		retries: retries,
		ttl:     ttl,
	}
	r.initSchema()
	return r
}

// initSchema creates the table this service owns. Audience tables (users,
// devices, favorites, notification_preferences) belong to the main product
// and are only read here.
func (r *NotificationRepository) initSchema() {
	_, err := r.db.ExecWithRetry(context.Background(), r.retries,
		`CREATE TABLE IF NOT EXISTS scheduled_notifications (
			id VARCHAR(36) PRIMARY KEY,
			title VARCHAR(65) NOT NULL,
			body VARCHAR(240) NOT NULL,
			category VARCHAR(20) NOT NULL DEFAULT '',
			type VARCHAR(20) NOT NULL,
			data JSONB NOT NULL DEFAULT '{}',
			target_kind VARCHAR(20) NOT NULL,
			target_user_ids JSONB NOT NULL DEFAULT '[]',
			target_role VARCHAR(20) NOT NULL DEFAULT '',
			target_motel_id VARCHAR(36) NOT NULL DEFAULT '',
			include_guests BOOLEAN NOT NULL DEFAULT FALSE,
			related_entity_id VARCHAR(64) NOT NULL DEFAULT '',
			scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
			sent BOOLEAN NOT NULL DEFAULT FALSE,
			sent_at TIMESTAMP WITH TIME ZONE,
			total_sent INTEGER NOT NULL DEFAULT 0,
			total_failed INTEGER NOT NULL DEFAULT 0,
			total_skipped INTEGER NOT NULL DEFAULT 0,
			error_message TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to create scheduled_notifications table")
	}
	_, err = r.db.ExecWithRetry(context.Background(), r.retries,
		`CREATE INDEX IF NOT EXISTS idx_scheduled_notifications_due
			ON scheduled_notifications (scheduled_for) WHERE NOT sent`)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("Failed to create due index")
	}
}

func (r *NotificationRepository) Create(ctx context.Context, notif *domain.ScheduledNotification) error {
	data, err := json.Marshal(notif.Data)
	if err != nil {
		return fmt.Errorf("marshal data payload: %w", err)
	}
	userIDs, err := json.Marshal(notif.Target.UserIDs)
	if err != nil {
		return fmt.Errorf("marshal target user ids: %w", err)
	}
	_, err = r.db.ExecWithRetry(ctx, r.retries,
		`INSERT INTO scheduled_notifications (
			id, title, body, category, type, data,
			target_kind, target_user_ids, target_role, target_motel_id, include_guests,
			related_entity_id, scheduled_for, sent, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		notif.ID, notif.Title, notif.Body, string(notif.Category), string(notif.Type), data,
		string(notif.Target.Kind), userIDs, string(notif.Target.Role), notif.Target.MotelID, notif.Target.IncludeGuests,
		notif.RelatedEntityID, notif.ScheduledFor, notif.Sent, notif.CreatedAt, notif.UpdatedAt,
	)
	if err == nil {
		r.cache.Set(ctx, notif.ID, notif, r.ttl)
	}
	return err
}

func (r *NotificationRepository) Get(ctx context.Context, id string) (*domain.ScheduledNotification, error) {
	cached, err := r.cache.Get(ctx, id)
	if err == nil && cached != nil {
		return cached, nil
	}

	row, err := r.db.QueryRowWithRetry(ctx, r.retries,
		`SELECT `+notificationColumns+` FROM scheduled_notifications WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}

	notif, err := scanNotification(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, id, notif, r.ttl)
	return notif, nil
}

// Claim is the single-writer gate: it flips sent only when the record is
// still pending. Zero rows affected means another dispatcher got here first.
func (r *NotificationRepository) Claim(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecWithRetry(ctx, r.retries,
		`UPDATE scheduled_notifications SET sent = TRUE, updated_at = $1 WHERE id = $2 AND sent = FALSE`,
		at, id,
	)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	r.cache.Del(ctx, id)
	return rows == 1, nil
}

func (r *NotificationRepository) RecordOutcome(ctx context.Context, id string, sentAt time.Time, result domain.DispatchResult) error {
	_, err := r.db.ExecWithRetry(ctx, r.retries,
		`UPDATE scheduled_notifications
		SET sent_at = $1, total_sent = $2, total_failed = $3, total_skipped = $4, updated_at = $1
		WHERE id = $5`,
		sentAt, result.Sent, result.Failed, result.Skipped, id,
	)
	if err == nil {
		r.cache.Del(ctx, id)
	}
	return err
}

func (r *NotificationRepository) RecordError(ctx context.Context, id string, msg string, at time.Time) error {
	_, err := r.db.ExecWithRetry(ctx, r.retries,
		`UPDATE scheduled_notifications SET error_message = $1, updated_at = $2 WHERE id = $3`,
		msg, at, id,
	)
	if err == nil {
		r.cache.Del(ctx, id)
	}
	return err
}

func (r *NotificationRepository) List(ctx context.Context, filter domain.ListFilter) ([]*domain.ScheduledNotification, error) {
	var conds []string
	var args []any
	switch filter.SentState {
	case domain.SentStatePending:
		conds = append(conds, "sent = FALSE")
	case domain.SentStateSent:
		conds = append(conds, "sent = TRUE")
	}
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + notificationColumns + ` FROM scheduled_notifications`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY scheduled_for DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// Due returns pending records whose time has come, oldest first. The sweep
// that consumes this is a safety net for lost broker ticks; the claim makes
// overlap with tick-driven dispatch harmless.
func (r *NotificationRepository) Due(ctx context.Context, now time.Time) ([]*domain.ScheduledNotification, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries,
		`SELECT `+notificationColumns+`
		FROM scheduled_notifications
		WHERE sent = FALSE AND scheduled_for <= $1
		ORDER BY scheduled_for ASC
		LIMIT 50`,
		now,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (r *NotificationRepository) Close() error {
	return r.db.Master.Close()
}

func scanNotification(scan func(dest ...any) error) (*domain.ScheduledNotification, error) {
	var (
		notif     domain.ScheduledNotification
		data      []byte
		userIDs   []byte
		kind      string
		role      string
		category  string
		notifType string
		sentAt    sql.NullTime
	)
	err := scan(
		&notif.ID, &notif.Title, &notif.Body, &category, &notifType, &data,
		&kind, &userIDs, &role, &notif.Target.MotelID, &notif.Target.IncludeGuests,
		&notif.RelatedEntityID, &notif.ScheduledFor, &notif.Sent, &sentAt,
		&notif.TotalSent, &notif.TotalFailed, &notif.TotalSkipped,
		&notif.ErrorMessage, &notif.CreatedAt, &notif.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	notif.Category = domain.Category(category)
	notif.Type = domain.NotificationType(notifType)
	notif.Target.Kind = domain.TargetKind(kind)
	notif.Target.Role = domain.Role(role)
	if sentAt.Valid {
		t := sentAt.Time
		notif.SentAt = &t
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &notif.Data); err != nil {
			return nil, fmt.Errorf("unmarshal data payload: %w", err)
		}
	}
	if len(userIDs) > 0 {
		if err := json.Unmarshal(userIDs, &notif.Target.UserIDs); err != nil {
			return nil, fmt.Errorf("unmarshal target user ids: %w", err)
		}
	}
	return &notif, nil
}

func collectNotifications(rows *sql.Rows) ([]*domain.ScheduledNotification, error) {
	var notifs []*domain.ScheduledNotification
	for rows.Next() {
		notif, err := scanNotification(rows.Scan)
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, notif)
	}
	return notifs, rows.Err()
}
