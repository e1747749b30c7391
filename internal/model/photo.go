package model

import "time"

// Photo represents a row in the `inspection_photos` table.  A photo
// belongs to its parent inspection and carries the https URL returned
// by the external blob store; the service never stores image bytes.
// Ownership is always derived from the parent inspection's owner_id,
// never duplicated on the photo row.
//
// Fields:
//  ID           – primary key identifier.
//  InspectionID – parent inspection (inspection_photos.inspection_id).
//  URL          – remote image location; required.
//  Label        – optional caption shown next to the image in reports.
//  CreatedAt    – creation timestamp; listing order follows insertion.
type Photo struct {
    ID           uint64    // inspection_photos.id
    InspectionID uint64    // inspection_photos.inspection_id
    URL          string    // inspection_photos.url
    Label        *string   // inspection_photos.label (nullable)
    CreatedAt    time.Time // inspection_photos.created_at
}
