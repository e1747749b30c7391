package repository // repository holds data access logic for domain entities

import (
	"context"      // context is used to manage deadlines and cancellation
	"database/sql" // sql provides DB primitives
	"errors"       // errors package allows sentinel error matching

	"github.com/iliyamo/property-inspection-api/internal/model"
)

// PhotoRepo provides methods to create and retrieve inspection photos.  It
// embeds a database handle to perform queries and commands.
type PhotoRepo struct {
	db *sql.DB // db is the underlying database connection
}

// NewPhotoRepo constructs a PhotoRepo with the given DB handle.
func NewPhotoRepo(db *sql.DB) *PhotoRepo {
	return &PhotoRepo{db: db}
}

// Create inserts a new photo under an inspection.  The parent inspection
// must exist; ErrInspectionNotFound is returned otherwise so handlers can
// answer 404 for dangling inspection ids.  After insert the ID and
// CreatedAt fields of the photo are populated.
func (r *PhotoRepo) Create(ctx context.Context, p *model.Photo) error {
	// Check the parent row first.  The FK constraint would also reject the
	// insert, but the explicit lookup gives a typed error instead of a
	// driver-specific one.
	var parentID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT id FROM inspections WHERE id = ?`, p.InspectionID).Scan(&parentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInspectionNotFound
		}
		return err
	}

	const qInsert = `INSERT INTO inspection_photos (inspection_id, url, label) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, p.InspectionID, p.URL, p.Label)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)

	const qSelect = `SELECT inspection_id, url, label, created_at FROM inspection_photos WHERE id = ?`
	if err := r.db.QueryRowContext(ctx, qSelect, p.ID).Scan(&p.InspectionID, &p.URL, &p.Label, &p.CreatedAt); err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a photo by its ID.  It returns ErrPhotoNotFound when no
// row is found.  Ownership is resolved by the guard through the parent
// inspection, so no owner column exists on photo rows.
func (r *PhotoRepo) GetByID(ctx context.Context, id uint64) (*model.Photo, error) {
	const q = `SELECT id, inspection_id, url, label, created_at FROM inspection_photos WHERE id = ?`
	var p model.Photo
	err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.InspectionID, &p.URL, &p.Label, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPhotoNotFound
		}
		return nil, err
	}
	return &p, nil
}

// ListByInspection returns all photos of an inspection ordered by id, which
// matches insertion order. The report renderer relies on this ordering to
// paginate the same inspection identically every time.
func (r *PhotoRepo) ListByInspection(ctx context.Context, inspectionID uint64) ([]*model.Photo, error) {
	const q = `SELECT id, inspection_id, url, label, created_at
	           FROM inspection_photos
	           WHERE inspection_id = ?
	           ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, inspectionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Photo
	for rows.Next() {
		p := new(model.Photo)
		if err := rows.Scan(&p.ID, &p.InspectionID, &p.URL, &p.Label, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update writes the url and label of a photo.  Handlers compose partial
// patches over the current row before calling.  Returns sql.ErrNoRows when
// no row is affected.
func (r *PhotoRepo) Update(ctx context.Context, id uint64, url string, label *string) error {
	const q = `UPDATE inspection_photos SET url = ?, label = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, url, label, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a single photo row.  Returns sql.ErrNoRows when the photo
// is already gone.
func (r *PhotoRepo) Delete(ctx context.Context, id uint64) error {
	const q = `DELETE FROM inspection_photos WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
