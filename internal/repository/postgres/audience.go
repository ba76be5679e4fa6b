package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jahatelomain/jahatelo-sub002/internal/domain"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/retry"
)

// AudienceRepository reads the product-owned membership tables (users,
// devices, favorites). All queries are read-only; device rows must be active
// to count.
type AudienceRepository struct {
	db      *dbpg.DB
	retries retry.Strategy
}

func NewAudienceRepository(db *dbpg.DB, retries retry.Strategy) *AudienceRepository {
	return &AudienceRepository{db: db, retries: retries}
}

func (r *AudienceRepository) DevicesForUsers(ctx context.Context, userIDs []string) ([]domain.RecipientCandidate, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(userIDs))
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(
		`SELECT d.push_token, d.platform, d.user_id
		FROM devices d
		WHERE d.active AND d.user_id IN (%s)`,
		strings.Join(placeholders, ", "),
	)
	rows, err := r.db.QueryWithRetry(ctx, r.retries, query, args...)
	if err != nil {
		return nil, fmt.Errorf("devices for users: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func (r *AudienceRepository) DevicesByRole(ctx context.Context, role domain.Role) ([]domain.RecipientCandidate, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries,
		`SELECT d.push_token, d.platform, d.user_id
		FROM devices d
		JOIN users u ON u.id = d.user_id
		WHERE d.active AND u.active AND u.role = $1`,
		string(role),
	)
	if err != nil {
		return nil, fmt.Errorf("devices by role: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func (r *AudienceRepository) DevicesForMotelFavoriters(ctx context.Context, motelID string) ([]domain.RecipientCandidate, error) {
	rows, err := r.db.QueryWithRetry(ctx, r.retries,
		`SELECT d.push_token, d.platform, d.user_id
		FROM devices d
		JOIN users u ON u.id = d.user_id
		JOIN favorites f ON f.user_id = u.id
		WHERE d.active AND u.active AND f.motel_id = $1`,
		motelID,
	)
	if err != nil {
		return nil, fmt.Errorf("devices for motel favoriters: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func (r *AudienceRepository) AllActiveDevices(ctx context.Context, includeGuests bool) ([]domain.RecipientCandidate, error) {
	query := `SELECT d.push_token, d.platform, d.user_id
		FROM devices d
		LEFT JOIN users u ON u.id = d.user_id
		WHERE d.active AND (u.id IS NULL OR u.active)`
	if !includeGuests {
		query += ` AND d.user_id IS NOT NULL`
	}
	rows, err := r.db.QueryWithRetry(ctx, r.retries, query)
	if err != nil {
		return nil, fmt.Errorf("all active devices: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

func collectCandidates(rows *sql.Rows) ([]domain.RecipientCandidate, error) {
	var candidates []domain.RecipientCandidate
	for rows.Next() {
		var (
			c      domain.RecipientCandidate
			userID sql.NullString
		)
		if err := rows.Scan(&c.Token, &c.Platform, &userID); err != nil {
			return nil, err
		}
		c.UserID = userID.String
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}
