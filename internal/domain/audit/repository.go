package audit

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repository defines audit log data access
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	List(ctx context.Context, filter Filter) ([]*Record, int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates audit repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO audit_records (id, actor_id, actor_email, action, resource_type, resource_id, outcome, reason, detail, ip_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID,
		rec.ActorID,
		rec.ActorEmail,
		rec.Action,
		rec.ResourceType,
		rec.ResourceID,
		rec.Outcome,
		rec.Reason,
		rec.Detail,
		rec.IPAddress,
		rec.CreatedAt,
	)
	return err
}

func (r *repository) List(ctx context.Context, filter Filter) ([]*Record, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.ActorID != nil {
		args = append(args, *filter.ActorID)
		where += fmt.Sprintf(` AND actor_id = $%d`, len(args))
	}
	if filter.Action != nil {
		args = append(args, *filter.Action)
		where += fmt.Sprintf(` AND action = $%d`, len(args))
	}
	if filter.Outcome != nil {
		args = append(args, *filter.Outcome)
		where += fmt.Sprintf(` AND outcome = $%d`, len(args))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		where += fmt.Sprintf(` AND created_at >= $%d`, len(args))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		where += fmt.Sprintf(` AND created_at < $%d`, len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM audit_records`+where, args...); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	args = append(args, limit, offset)
	query := `SELECT * FROM audit_records` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var records []*Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
