package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/property-inspection-api/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/property-inspection-api/internal/middleware" // import middleware for identity resolution
	"github.com/iliyamo/property-inspection-api/internal/repository" // user repository backing the identity middleware
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes.  Unauthenticated
// credential operations live under /v1/auth, while /v1/me requires a valid
// access token and therefore carries the identity middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, users *repository.UserRepo) {
	// Operations that do not require an existing session: register, login,
	// refresh and logout all authenticate through the credential carried in
	// their request body.
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	// /v1/me proves that a presented access token resolves to a live user.
	auth := e.Group("/v1", middleware.Identity(jwtSecret, users))
	auth.GET("/me", a.Me)
}

// RegisterInspections registers the owner-scoped inspection and photo
// endpoints plus the report download.  Every route runs through the
// identity middleware; ownership itself is decided per-request by the
// guard inside the handlers, never here.
func RegisterInspections(e *echo.Echo, h *handler.InspectionHandler, r *handler.ReportHandler, jwtSecret string, users *repository.UserRepo) {
	g := e.Group(
		"/v1",
		middleware.Identity(jwtSecret, users),
	)

	// ---- Inspections ----
	g.POST("/inspections", h.CreateInspection)
	g.GET("/inspections", h.ListInspections)
	g.GET("/inspections/:id", h.GetInspection)
	g.PUT("/inspections/:id", h.UpdateInspection)
	g.PATCH("/inspections/:id", h.UpdateInspection) // allow partial updates via PATCH as well
	g.DELETE("/inspections/:id", h.DeleteInspection)

	// ---- Photos ----
	g.POST("/photos", h.CreatePhoto)
	g.PUT("/photos/:id", h.UpdatePhoto)
	g.PATCH("/photos/:id", h.UpdatePhoto) // alias for clients that use PATCH
	g.DELETE("/photos/:id", h.DeletePhoto)

	// ---- Reports ----
	// The renderer fetches each photo with its own timeout and substitutes
	// placeholders for unreachable images, so this route stays synchronous.
	g.GET("/inspections/:id/pdf", r.DownloadReport)
}
