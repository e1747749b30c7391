package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strconv"  // numeric parsing for string subjects
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/property-inspection-api/internal/repository" // user lookup for fail-closed identity
)

// Identity returns an Echo middleware that resolves the acting principal
// from a Bearer access token.  The token is parsed and validated with the
// provided secret, the subject claim is converted to a numeric user id and
// the id is confirmed against the users table.  Only then is "user_id"
// stored in the request context for handlers.  Any missing, malformed or
// stale credential is rejected with 401 before a handler runs: the
// middleware fails closed.
func Identity(secret string, users *repository.UserRepo) echo.MiddlewareFunc {
    // The outer function returns a middleware function.  Echo executes this
    // once when registering the middleware.
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        // The returned handler is invoked for each incoming HTTP request.
        return func(c echo.Context) error {
            // Read the Authorization header.  A valid header starts with
            // "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return unauthenticated(c, "missing bearer token")
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            // Parse the token using the HS256 signing method and our secret.
            // The callback supplies the signing key and rejects any token
            // signed with a different algorithm.
            tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
                if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
                    return nil, echo.ErrUnauthorized
                }
                return []byte(secret), nil
            })
            if err != nil || !tok.Valid {
                return unauthenticated(c, "invalid token")
            }

            claims, ok := tok.Claims.(jwt.MapClaims)
            if !ok {
                return unauthenticated(c, "invalid claims")
            }
            uid, ok := subjectID(claims)
            if !ok {
                return unauthenticated(c, "invalid subject")
            }

            // The subject must still refer to a live account.  Tokens for
            // deleted users keep verifying cryptographically, so the lookup
            // is what actually closes the door.
            exists, err := users.Exists(c.Request().Context(), uid)
            if err != nil {
                return c.JSON(http.StatusInternalServerError, echo.Map{
                    "error": "internal", "message": "identity lookup failed",
                })
            }
            if !exists {
                return unauthenticated(c, "unknown user")
            }

            // Store the principal id in the context.  Handlers read it via
            // c.Get("user_id"); the value is always a uint64 here.
            c.Set("user_id", uid)
            return next(c)
        }
    }
}

// subjectID converts the sub claim to a uint64 user id.  JWT numeric
// values decode as float64; string subjects are also accepted because some
// issuers stringify ids.
func subjectID(claims jwt.MapClaims) (uint64, bool) {
    switch v := claims["sub"].(type) {
    case float64:
        if v < 0 {
            return 0, false
        }
        return uint64(v), true
    case string:
        if n, err := strconv.ParseUint(v, 10, 64); err == nil {
            return n, true
        }
    }
    return 0, false
}

// unauthenticated writes the structured 401 body shared by every identity
// failure mode.
func unauthenticated(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{
        "error":   "unauthenticated",
        "message": msg,
    })
}
