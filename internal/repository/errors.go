// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on an inspection owned by
// someone else.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation
// on an inspection (or a photo of an inspection) they do not own.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a write cannot be performed because
// of conflicting state. Handlers translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrInspectionNotFound is returned when an inspection lookup fails.
var ErrInspectionNotFound = errors.New("inspection not found")

// ErrPhotoNotFound is returned when a photo lookup fails.
var ErrPhotoNotFound = errors.New("photo not found")
