package handler // handler defines http handlers

import (
    "errors"  // errors provides sentinel values used in getUserID
    "strconv" // strconv converts strings to numeric types

    "github.com/labstack/echo/v4" // echo defines request context types

    "github.com/iliyamo/property-inspection-api/internal/guard"      // centralized ownership checks
    "github.com/iliyamo/property-inspection-api/internal/repository" // repository holds data access layer
)

// InspectionHandler bundles the repositories and guard backing the
// inspection and photo endpoints.
type InspectionHandler struct {
    Inspections *repository.InspectionRepo // inspection persistence
    Photos      *repository.PhotoRepo      // photo persistence
    Guard       *guard.Guard               // ownership authorization
}

// NewInspectionHandler constructs a new InspectionHandler and panics if any dependency is nil
func NewInspectionHandler(inspections *repository.InspectionRepo, photos *repository.PhotoRepo, g *guard.Guard) *InspectionHandler {
    if inspections == nil || photos == nil || g == nil {
        panic("nil dependency passed to NewInspectionHandler")
    }
    return &InspectionHandler{
        Inspections: inspections,
        Photos:      photos,
        Guard:       g,
    }
}

// getUserID extracts the user_id from echo.Context and converts it to uint64
func getUserID(c echo.Context) (uint64, error) {
    v := c.Get("user_id") // fetch user_id from context
    switch t := v.(type) { // perform type switch on the value
    case uint64:
        return t, nil
    case int:
        return uint64(t), nil
    case int64:
        return uint64(t), nil
    case float64:
        return uint64(t), nil
    case string:
        if n, err := strconv.ParseUint(t, 10, 64); err == nil {
            return n, nil
        }
    }
    return 0, errors.New("invalid user_id in context")
}

// fail writes the structured error body used across the API: a short
// machine-readable kind plus a human-readable message.  No internals or
// stack traces ever reach the client.
func fail(c echo.Context, status int, kind, msg string) error {
    return c.JSON(status, echo.Map{"error": kind, "message": msg})
}

// guardFail translates guard/repository sentinels into HTTP responses.
// Absent targets answer 404 and foreign-owned targets answer 403; the
// distinction leaks existence by status code, which this API keeps on
// purpose (clients treat both as "no access").
func guardFail(c echo.Context, err error) error {
    switch {
    case errors.Is(err, repository.ErrInspectionNotFound):
        return fail(c, 404, "not_found", "inspection not found")
    case errors.Is(err, repository.ErrPhotoNotFound):
        return fail(c, 404, "not_found", "photo not found")
    case errors.Is(err, repository.ErrForbidden):
        return fail(c, 403, "forbidden", "forbidden")
    case errors.Is(err, repository.ErrConflict):
        return fail(c, 409, "conflict", "conflicting state")
    }
    return fail(c, 500, "internal", "db error")
}
