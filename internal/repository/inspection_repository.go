// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for inspection records. CRUD here is
// deliberately ownership-agnostic: handlers run every request through the
// guard package first, so queries never need to re-check owner_id except
// where the owner scopes the result set (ListByOwner).
package repository

import (
	"context"      // context allows passing deadlines and cancellation signals to DB operations
	"database/sql" // sql provides generic database operations and drivers
	"errors"       // errors is used to match sentinel error values

	"github.com/iliyamo/property-inspection-api/internal/model"
)

// InspectionRepo encapsulates all database queries related to inspections.
// It depends on a sql.DB connection which should be configured elsewhere.
type InspectionRepo struct {
	db *sql.DB // db is the underlying database connection pool
}

// NewInspectionRepo constructs an InspectionRepo with the provided DB handle.
// This function allows dependency injection of the database in tests and at
// startup.  There is no initialization logic beyond assigning the field.
func NewInspectionRepo(db *sql.DB) *InspectionRepo {
	return &InspectionRepo{db: db}
}

// Create inserts a new inspection into the database.  On success the
// inspection's ID field will be populated with the auto‑generated value.
// After the insert, a SELECT is executed to populate the CreatedAt and
// UpdatedAt fields so that callers receive a fully populated record.
func (r *InspectionRepo) Create(ctx context.Context, i *model.Inspection) error {
	const qInsert = "INSERT INTO inspections (owner_id, address, notes) VALUES (?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, i.OwnerID, i.Address, i.Notes)
	if err != nil {
		return err // propagate DB errors to the caller
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	i.ID = uint64(id)

	// Perform a follow‑up SELECT to populate default timestamp fields (created_at, updated_at).
	const qSelect = "SELECT owner_id, address, notes, created_at, updated_at FROM inspections WHERE id = ?"
	if err := r.db.QueryRowContext(ctx, qSelect, i.ID).Scan(&i.OwnerID, &i.Address, &i.Notes, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return err
	}
	return nil
}

// GetByID fetches an inspection by its ID regardless of owner.  It returns
// ErrInspectionNotFound if no row is found.  The guard compares the
// returned OwnerID against the acting principal.
func (r *InspectionRepo) GetByID(ctx context.Context, id uint64) (*model.Inspection, error) {
	const q = "SELECT id, owner_id, address, notes, created_at, updated_at FROM inspections WHERE id = ?"
	var i model.Inspection
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&i.ID, &i.OwnerID, &i.Address, &i.Notes, &i.CreatedAt, &i.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInspectionNotFound
		}
		return nil, err
	}
	return &i, nil
}

// ListByOwner returns all inspections for a specific owner ordered by id.
// The ordering is stable so list responses and report inputs are
// reproducible across calls.
func (r *InspectionRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Inspection, error) {
	const q = `SELECT id, owner_id, address, notes, created_at, updated_at
	           FROM inspections WHERE owner_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Inspection
	for rows.Next() {
		i := new(model.Inspection)
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Address, &i.Notes, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the address and notes of an inspection.  Callers compose
// partial patches over the current row before calling, so the statement
// always writes both columns.  It returns sql.ErrNoRows when no row is
// affected (already deleted).
func (r *InspectionRepo) Update(ctx context.Context, id uint64, address string, notes *string) error {
	const q = `UPDATE inspections
	           SET address = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, address, notes, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteCascade removes an inspection and all of its photos inside a single
// transaction so no orphaned photo rows can survive. If the inspection does
// not exist, sql.ErrNoRows is returned and nothing is deleted.
func (r *InspectionRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	// Rollback is a no-op after a successful Commit.
	defer func() { _ = tx.Rollback() }()

	// Verify the inspection exists before touching children.
	var existingID uint64
	if err := tx.QueryRowContext(ctx, `SELECT id FROM inspections WHERE id = ?`, id).Scan(&existingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.ErrNoRows
		}
		return err
	}
	// Cascade delete: photos first, then the inspection itself.
	if _, err := tx.ExecContext(ctx, `DELETE FROM inspection_photos WHERE inspection_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inspections WHERE id = ?`, id); err != nil {
		return err
	}
	// A failed commit means nothing was deleted; surface it instead of
	// answering success.
	return tx.Commit()
}
