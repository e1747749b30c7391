package guard

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/property-inspection-api/internal/model"
	"github.com/iliyamo/property-inspection-api/internal/repository"
)

const guardSchema = `
CREATE TABLE inspections (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id   INTEGER NOT NULL,
    address    TEXT NOT NULL,
    notes      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE inspection_photos (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    inspection_id INTEGER NOT NULL,
    url           TEXT NOT NULL,
    label         TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

func newGuard(t *testing.T) (*Guard, *repository.InspectionRepo, *repository.PhotoRepo, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// In-memory sqlite gives each connection its own database.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(guardSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	inspections := repository.NewInspectionRepo(db)
	photos := repository.NewPhotoRepo(db)
	return New(inspections, photos), inspections, photos, db
}

func TestGuardInspection(t *testing.T) {
	g, inspections, _, _ := newGuard(t)
	ctx := context.Background()

	insp := &model.Inspection{OwnerID: 7, Address: "1 Main St"}
	if err := inspections.Create(ctx, insp); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := g.Inspection(ctx, 7, insp.ID)
	if err != nil {
		t.Fatalf("owner access: %v", err)
	}
	if got.Address != "1 Main St" {
		t.Errorf("address = %q", got.Address)
	}

	if _, err := g.Inspection(ctx, 8, insp.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Errorf("foreign owner: got %v, want ErrForbidden", err)
	}
	if _, err := g.Inspection(ctx, 7, insp.ID+50); !errors.Is(err, repository.ErrInspectionNotFound) {
		t.Errorf("missing: got %v, want ErrInspectionNotFound", err)
	}
}

func TestGuardPhoto(t *testing.T) {
	g, inspections, photos, _ := newGuard(t)
	ctx := context.Background()

	insp := &model.Inspection{OwnerID: 7, Address: "1 Main St"}
	if err := inspections.Create(ctx, insp); err != nil {
		t.Fatalf("create inspection: %v", err)
	}
	photo := &model.Photo{InspectionID: insp.ID, URL: "https://x/a.jpg"}
	if err := photos.Create(ctx, photo); err != nil {
		t.Fatalf("create photo: %v", err)
	}

	gotPhoto, gotInsp, err := g.Photo(ctx, 7, photo.ID)
	if err != nil {
		t.Fatalf("owner access: %v", err)
	}
	if gotPhoto.URL != "https://x/a.jpg" || gotInsp.ID != insp.ID {
		t.Errorf("resolved photo=%+v inspection=%+v", gotPhoto, gotInsp)
	}

	if _, _, err := g.Photo(ctx, 8, photo.ID); !errors.Is(err, repository.ErrForbidden) {
		t.Errorf("foreign owner: got %v, want ErrForbidden", err)
	}
	if _, _, err := g.Photo(ctx, 7, photo.ID+50); !errors.Is(err, repository.ErrPhotoNotFound) {
		t.Errorf("missing: got %v, want ErrPhotoNotFound", err)
	}
}

func TestGuardPhotoOrphaned(t *testing.T) {
	g, _, _, db := newGuard(t)
	ctx := context.Background()

	// Insert a photo whose parent inspection does not exist by writing
	// the row directly; Create would reject it.
	res, err := db.ExecContext(ctx,
		"INSERT INTO inspection_photos (inspection_id, url) VALUES (999, 'https://x/b.jpg')")
	if err != nil {
		t.Fatalf("insert orphan: %v", err)
	}
	id, _ := res.LastInsertId()

	if _, _, err := g.Photo(ctx, 7, uint64(id)); !errors.Is(err, repository.ErrPhotoNotFound) {
		t.Errorf("orphaned photo: got %v, want ErrPhotoNotFound", err)
	}
}

func TestGuardNewPanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	New(nil, nil)
}
