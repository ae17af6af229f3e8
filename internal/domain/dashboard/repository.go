package dashboard

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// Stats aggregates marketplace KPIs for the admin overview
type Stats struct {
	UsersByType       map[string]int `json:"users_by_type"`
	ActiveVendors     int            `json:"active_vendors"`
	VerificationQueue map[string]int `json:"verification_queue"`
	ActiveGrants      int            `json:"active_grants"`
	ExpiredGrants     int            `json:"expired_grants"`
	DeniedChecks24h   int            `json:"denied_checks_24h"`
}

// Repository defines dashboard data access
type Repository interface {
	Collect(ctx context.Context) (*Stats, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates dashboard repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (r *repository) Collect(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		UsersByType:       make(map[string]int),
		VerificationQueue: make(map[string]int),
	}

	var rows []countRow
	err := r.db.SelectContext(ctx, &rows, `
		SELECT user_type AS key, COUNT(*) AS count FROM users GROUP BY user_type
	`)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.UsersByType[row.Key] = row.Count
	}

	err = r.db.GetContext(ctx, &stats.ActiveVendors, `
		SELECT COUNT(*) FROM users WHERE user_type = 'VENDOR' AND is_active = true
	`)
	if err != nil {
		return nil, err
	}

	rows = rows[:0]
	err = r.db.SelectContext(ctx, &rows, `
		SELECT status AS key, COUNT(*) AS count FROM product_verifications GROUP BY status
	`)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.VerificationQueue[row.Key] = row.Count
	}

	err = r.db.GetContext(ctx, &stats.ActiveGrants, `
		SELECT COUNT(*) FROM permission_grants
		WHERE is_active = true AND (expires_at IS NULL OR expires_at > NOW())
	`)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.ExpiredGrants, `
		SELECT COUNT(*) FROM permission_grants
		WHERE is_active = true AND expires_at IS NOT NULL AND expires_at <= NOW()
	`)
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &stats.DeniedChecks24h, `
		SELECT COUNT(*) FROM audit_records
		WHERE action = 'permission.check' AND outcome = 'denied'
		  AND created_at > NOW() - INTERVAL '24 hours'
	`)
	if err != nil {
		return nil, err
	}

	return stats, nil
}
