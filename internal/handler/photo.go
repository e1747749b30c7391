package handler // handler package contains photo CRUD handlers

import (
    "database/sql"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/property-inspection-api/internal/model"
)

// photoResp is the JSON shape returned for a single photo.
type photoResp struct {
    ID           uint64    `json:"id"`
    InspectionID uint64    `json:"inspection_id"`
    URL          string    `json:"url"`
    Label        *string   `json:"label"`
    CreatedAt    time.Time `json:"created_at"`
}

// CreatePhoto handles POST /v1/photos.  The image itself was already
// uploaded to the external blob store; this endpoint only records the
// returned URL under a parent inspection the caller owns.
func (h *InspectionHandler) CreatePhoto(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    var body struct {
        InspectionID uint64  `json:"inspection_id"`
        URL          string  `json:"url"`
        Label        *string `json:"label"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
    }
    url := strings.TrimSpace(body.URL)
    if body.InspectionID == 0 || url == "" {
        return fail(c, http.StatusBadRequest, "validation_error", "inspection_id and url are required")
    }
    // The parent must exist and belong to the caller before a child row is
    // created; a dangling inspection id answers 404, a foreign one 403.
    if _, err := h.Guard.Inspection(c.Request().Context(), ownerID, body.InspectionID); err != nil {
        return guardFail(c, err)
    }
    photo := &model.Photo{
        InspectionID: body.InspectionID,
        URL:          url,
        Label:        body.Label,
    }
    if err := h.Photos.Create(c.Request().Context(), photo); err != nil {
        return guardFail(c, err)
    }
    return c.JSON(http.StatusCreated, photoResp{
        ID:           photo.ID,
        InspectionID: photo.InspectionID,
        URL:          photo.URL,
        Label:        photo.Label,
        CreatedAt:    photo.CreatedAt,
    })
}

// UpdatePhoto handles PUT/PATCH /v1/photos/:id.  Ownership resolves
// through the parent inspection; only provided fields change.
func (h *InspectionHandler) UpdatePhoto(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid id")
    }
    photo, _, err := h.Guard.Photo(c.Request().Context(), ownerID, id)
    if err != nil {
        return guardFail(c, err)
    }
    var body struct {
        URL   *string `json:"url"`
        Label *string `json:"label"`
    }
    if err := c.Bind(&body); err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid request body")
    }
    url := photo.URL
    if body.URL != nil {
        url = strings.TrimSpace(*body.URL)
        if url == "" {
            return fail(c, http.StatusBadRequest, "validation_error", "url is required")
        }
    }
    label := photo.Label
    if body.Label != nil {
        label = body.Label
    }
    if err := h.Photos.Update(c.Request().Context(), id, url, label); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return fail(c, http.StatusNotFound, "not_found", "photo not found")
        }
        return fail(c, http.StatusInternalServerError, "internal", "update failed")
    }
    updated, err := h.Photos.GetByID(c.Request().Context(), id)
    if err != nil {
        return guardFail(c, err)
    }
    return c.JSON(http.StatusOK, photoResp{
        ID:           updated.ID,
        InspectionID: updated.InspectionID,
        URL:          updated.URL,
        Label:        updated.Label,
        CreatedAt:    updated.CreatedAt,
    })
}

// DeletePhoto handles DELETE /v1/photos/:id.  Returns 204 on success, 404
// if the photo is absent and 403 when the parent inspection belongs to
// another user.
func (h *InspectionHandler) DeletePhoto(c echo.Context) error {
    ownerID, err := getUserID(c)
    if err != nil {
        return fail(c, http.StatusUnauthorized, "unauthenticated", "unauthorized")
    }
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil {
        return fail(c, http.StatusBadRequest, "validation_error", "invalid id")
    }
    if _, _, err := h.Guard.Photo(c.Request().Context(), ownerID, id); err != nil {
        return guardFail(c, err)
    }
    if err := h.Photos.Delete(c.Request().Context(), id); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return fail(c, http.StatusNotFound, "not_found", "photo not found")
        }
        return fail(c, http.StatusInternalServerError, "internal", "delete failed")
    }
    return c.NoContent(http.StatusNoContent)
}
