package handler // handler package contains inspection CRUD handlers

import (
    "database/sql" // sql is imported for sentinel errors like sql.ErrNoRows
    "errors"       // errors.Is for sentinel matching
    "net/http"     // http provides status code constants
    "strconv"      // strconv parses string identifiers to numeric types
    "strings"      // strings offers trimming utilities
    "time"         // timestamps in response DTOs

    "github.com/labstack/echo/v4" // echo is the web framework used for handlers

    "github.com/iliyamo/property-inspection-api/internal/model"
)

// inspectionResp is the JSON shape returned for a single inspection.  The
// Photos field carries the child photo URLs in insertion order.
type inspectionResp struct {
    ID        uint64    `json:"id"`
    Address   string    `json:"address"`
    Notes     *string   `json:"notes"`
    CreatedAt time.Time `json:"created_at"`
    Photos    []string  `json:"photos"`
}

// inspectionListItem is the richer shape used by the list endpoint, where
// clients need labels to build gallery previews.
type inspectionListItem struct {
    ID      uint64          `json:"id"`
    Address string          `json:"address"`
    Notes   *string         `json:"notes"`
    Photos  []photoListItem `json:"photos"`
}

type photoListItem struct {
    URL   string  `json:"url"`
    Label *string `json:"label"`
}

// CreateInspection handles POST /v1/inspections.
func (h *InspectionHandler) CreateInspection(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    var body struct {
        Address string  `json:"address"`
        Notes   *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
    }
    address := strings.TrimSpace(body.Address)
    if address == "" {
        return fail(c, http.StatusBadRequest, "validation_error", "address is required")
    }
    insp := &model.Inspection{
        OwnerID: ownerID,
        Address: address,
        Notes:   body.Notes,
    }
    if err := h.Inspections.Create(c.Request().Context(), insp); err != nil {
        return fail(c, http.StatusInternalServerError, "internal", "could not create inspection")
    }
    return c.JSON(http.StatusCreated, inspectionResp{
        ID:        insp.ID,
        Address:   insp.Address,
        Notes:     insp.Notes,
        CreatedAt: insp.CreatedAt,
        Photos:    []string{},
    })
}

// GetInspection handles GET /v1/inspections/:id.  The guard decides 404
// versus 403 before any photo rows are read.
func (h *InspectionHandler) GetInspection(c echo.Context) error {
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
    urls := make([]string, 0, len(photos))
    for _, p := range photos {
        urls = append(urls, p.URL)
    }
    return c.JSON(http.StatusOK, inspectionResp{
        ID:        insp.ID,
        Address:   insp.Address,
        Notes:     insp.Notes,
        CreatedAt: insp.CreatedAt,
        Photos:    urls,
    })
}

// ListInspections handles GET /v1/inspections and returns all inspections
// owned by the authenticated user, ordered by id.
func (h *InspectionHandler) ListInspections(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    items, err := h.Inspections.ListByOwner(c.Request().Context(), ownerID)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "internal", "db error")
    }
    out := make([]inspectionListItem, 0, len(items))
    for _, insp := range items {
        photos, err := h.Photos.ListByInspection(c.Request().Context(), insp.ID)
        if err != nil {
            return fail(c, http.StatusInternalServerError, "internal", "db error")
        }
        pl := make([]photoListItem, 0, len(photos))
        for _, p := range photos {
            pl = append(pl, photoListItem{URL: p.URL, Label: p.Label})
        }
        out = append(out, inspectionListItem{
            ID:      insp.ID,
            Address: insp.Address,
            Notes:   insp.Notes,
            Photos:  pl,
        })
    }
    return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// UpdateInspection handles PUT/PATCH /v1/inspections/:id.  Only provided
// fields change; the patch is composed over the current row so repeating
// the same call leaves the same stored state.
func (h *InspectionHandler) UpdateInspection(c echo.Context) error {
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
    var body struct {
        Address *string `json:"address"`
        Notes   *string `json:"notes"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
    }
    address := insp.Address
    if body.Address != nil {
        address = strings.TrimSpace(*body.Address)
        if address == "" {
            return fail(c, http.StatusBadRequest, "validation_error", "address is required")
        }
    }
    notes := insp.Notes
    if body.Notes != nil {
        notes = body.Notes
    }
    if err := h.Inspections.Update(c.Request().Context(), id, address, notes); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return fail(c, http.StatusNotFound, "not_found", "inspection not found")
        }
        return fail(c, http.StatusInternalServerError, "internal", "update failed")
    }
    updated, err := h.Inspections.GetByID(c.Request().Context(), id)
    if err != nil {
        return fail(c, http.StatusInternalServerError, "internal", "db error")
    }
    return c.JSON(http.StatusOK, inspectionResp{
        ID:        updated.ID,
        Address:   updated.Address,
        Notes:     updated.Notes,
        CreatedAt: updated.CreatedAt,
    })
}

// DeleteInspection handles DELETE /v1/inspections/:id.  The repository
// removes the inspection and all of its photos in one transaction so no
// orphaned photo rows can remain.  Returns 204 on success, 404 if absent
// and 403 when owned by another user.
func (h *InspectionHandler) DeleteInspection(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid id")
    }
    if _, err := h.Guard.Inspection(c.Request().Context(), ownerID, id); err != nil {
        return guardFail(c, err)
    }
    if err := h.Inspections.DeleteCascade(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return fail(c, http.StatusNotFound, "not_found", "inspection not found")
        }
        return guardFail(c, err)
    }
    return c.NoContent(http.StatusNoContent)
}
