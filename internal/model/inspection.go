package model

import "time"

// Inspection represents one property-inspection record in the
// `inspections` table.  An inspection belongs to exactly one user
// and the owner never changes after creation; all authorization for
// inspections and their photos is resolved through OwnerID.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the inspection owner (inspections.owner_id).
//  Address   – property address; required and non-empty.
//  Notes     – optional free-text notes (nil when not provided).
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Inspection struct {
    ID        uint64    // inspections.id
    OwnerID   uint64    // inspections.owner_id
    Address   string    // inspections.address
    Notes     *string   // inspections.notes (nullable)
    CreatedAt time.Time // inspections.created_at
    UpdatedAt time.Time // inspections.updated_at
}
