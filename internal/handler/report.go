package handler // handler package contains the report download endpoint

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-inspection-api/internal/guard"
    "github.com/iliyamo/property-inspection-api/internal/queue"
    "github.com/iliyamo/property-inspection-api/internal/report"
    "github.com/iliyamo/property-inspection-api/internal/repository"
    queue_publisher "github.com/iliyamo/property-inspection-api/internal/service"
)

// ReportHandler bundles the dependencies for rendering inspection reports.
type ReportHandler struct {
    Inspections *repository.InspectionRepo
    Photos      *repository.PhotoRepo
    Guard       *guard.Guard
    Renderer    *report.Renderer
}

// NewReportHandler constructs a ReportHandler and panics if any dependency is nil
func NewReportHandler(inspections *repository.InspectionRepo, photos *repository.PhotoRepo, g *guard.Guard, r *report.Renderer) *ReportHandler {
    if inspections == nil || photos == nil || g == nil || r == nil {
        panic("nil dependency passed to NewReportHandler")
    }
    return &ReportHandler{Inspections: inspections, Photos: photos, Guard: g, Renderer: r}
}

// DownloadReport handles GET /v1/inspections/:id/pdf.  The guard runs
// before any rendering starts, so a missing or foreign inspection answers
// 404/403 without a partial document.  Photo fetch failures inside the
// renderer degrade to placeholder lines; only a PDF engine failure is a
// server error.  The finished document is returned as an attachment and a
// report.generated event is published best-effort.
func (h *ReportHandler) DownloadReport(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid id")
    }
    insp, err := h.Guard.Inspection(c.Request().Context(), ownerID, id)
    if err != nil {
        return guardFail(c, err)
    }
    photos, err := h.Photos.ListByInspection(c.Request().Context(), insp.ID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "internal", "db error")
    }

    doc, err := h.Renderer.Render(c.Request().Context(), insp, photos)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "internal", "report rendering failed")
    }

    // Publishing is synchronous but never blocks the download on broker
    // trouble; failures are logged inside the publisher and dropped.
    _ = queue_publisher.PublishReportGenerated(c.Request().Context(), queue.ReportGeneratedEvent{
        InspectionID:  insp.ID,
        OwnerID:       insp.OwnerID,
        Address:       insp.Address,
        PhotoCount:    len(photos),
        FailedFetches: doc.FailedFetches,
        Pages:         doc.Pages,
        SizeBytes:     len(doc.Bytes),
        GeneratedAt:   time.Now().UTC().Format(time.RFC3339),
    })

    c.Response().Header().Set(echo.HeaderContentDisposition,
        fmt.Sprintf("attachment; filename=%s", report.Filename(insp.ID)))
    return c.Blob(http.StatusOK, "application/pdf", doc.Bytes)
}
