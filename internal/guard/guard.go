// Package guard centralizes ownership authorization for inspections and
// photos.  Every handler that reads or mutates a resource resolves it
// through the guard instead of comparing owner ids inline, so the 404
// versus 403 behaviour is decided in exactly one place: a missing target
// yields the repository not-found sentinel, an existing target owned by a
// different user yields repository.ErrForbidden.  Photos have no owner
// column of their own; their ownership is always derived from the parent
// inspection.
package guard

import (
	"context"

	"github.com/iliyamo/property-inspection-api/internal/model"
	"github.com/iliyamo/property-inspection-api/internal/repository"
)

// Guard bundles the repositories needed to resolve ownership.
type Guard struct {
	Inspections *repository.InspectionRepo
	Photos      *repository.PhotoRepo
}

// New constructs a Guard and panics if any dependency is nil.
func New(inspections *repository.InspectionRepo, photos *repository.PhotoRepo) *Guard {
	if inspections == nil || photos == nil {
		panic("nil repository passed to guard.New")
	}
	return &Guard{Inspections: inspections, Photos: photos}
}

// Inspection loads an inspection and authorizes the principal against it.
// Returns repository.ErrInspectionNotFound when the record is absent and
// repository.ErrForbidden when it belongs to a different owner.  On
// success the loaded record is returned so callers never fetch twice.
func (g *Guard) Inspection(ctx context.Context, principalID, inspectionID uint64) (*model.Inspection, error) {
	insp, err := g.Inspections.GetByID(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if insp.OwnerID != principalID {
		return nil, repository.ErrForbidden
	}
	return insp, nil
}

// Photo loads a photo, resolves its parent inspection and authorizes the
// principal against the parent's owner.  Both records are returned on
// success.  A missing photo yields repository.ErrPhotoNotFound; a parent
// owned by someone else yields repository.ErrForbidden.
func (g *Guard) Photo(ctx context.Context, principalID, photoID uint64) (*model.Photo, *model.Inspection, error) {
	photo, err := g.Photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, nil, err
	}
	insp, err := g.Inspections.GetByID(ctx, photo.InspectionID)
	if err != nil {
		// A photo whose parent vanished should not happen given the
		// cascade delete; surface it as the photo being gone.
		return nil, nil, repository.ErrPhotoNotFound
	}
	if insp.OwnerID != principalID {
		return nil, nil, repository.ErrForbidden
	}
	return photo, insp, nil
}
