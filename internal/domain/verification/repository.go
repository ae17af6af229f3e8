package verification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Filter narrows List results
type Filter struct {
	Status       *Status
	DepartmentID *string
	AssignedTo   *uuid.UUID
	Limit        int
	Offset       int
}

// Repository defines verification data access
type Repository interface {
	Create(ctx context.Context, v *Verification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Verification, error)
	List(ctx context.Context, filter Filter) ([]*Verification, int, error)
	Transition(ctx context.Context, id uuid.UUID, next Status, assignedTo uuid.NullUUID, notes string) (*Verification, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates verification repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, v *Verification) error {
	query := `
		INSERT INTO product_verifications (id, product_id, vendor_id, department_id, status, assigned_to, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		v.ID,
		v.ProductID,
		v.VendorID,
		v.DepartmentID,
		v.Status,
		v.AssignedTo,
		v.Notes,
		v.CreatedAt,
		v.UpdatedAt,
	)
	return err
}

func (r *repository) GetByID(ctx context.Context, id uuid.UUID) (*Verification, error) {
	query := `SELECT * FROM product_verifications WHERE id = $1`
	var v Verification
	err := r.db.GetContext(ctx, &v, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]*Verification, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		where += fmt.Sprintf(` AND status = $%d`, len(args))
	}
	if filter.DepartmentID != nil {
		args = append(args, *filter.DepartmentID)
		where += fmt.Sprintf(` AND department_id = $%d`, len(args))
	}
	if filter.AssignedTo != nil {
		args = append(args, *filter.AssignedTo)
		where += fmt.Sprintf(` AND assigned_to = $%d`, len(args))
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM product_verifications`+where, args...); err != nil {
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
	query := `SELECT * FROM product_verifications` + where +
		fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	var items []*Verification
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Transition moves the record to next under a row lock so concurrent
// transitions on the same record serialize.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, next Status, assignedTo uuid.NullUUID, notes string) (*Verification, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var v Verification
	if err := tx.GetContext(ctx, &v, `SELECT * FROM product_verifications WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if !v.Status.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	query := `
		UPDATE product_verifications
		SET status = $2, assigned_to = $3, notes = $4, updated_at = NOW()
		WHERE id = $1
	`
	newNotes := v.Notes
	if notes != "" {
		newNotes = sql.NullString{String: notes, Valid: true}
	}
	newAssigned := v.AssignedTo
	if assignedTo.Valid {
		newAssigned = assignedTo
	}

	if _, err := tx.ExecContext(ctx, query, id, next, newAssigned, newNotes); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	v.Status = next
	v.AssignedTo = newAssigned
	v.Notes = newNotes
	return &v, nil
}
