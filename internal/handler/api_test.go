package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	_ "github.com/mattn/go-sqlite3"

	"github.com/iliyamo/property-inspection-api/internal/config"
	"github.com/iliyamo/property-inspection-api/internal/guard"
	"github.com/iliyamo/property-inspection-api/internal/handler"
	"github.com/iliyamo/property-inspection-api/internal/report"
	"github.com/iliyamo/property-inspection-api/internal/repository"
	"github.com/iliyamo/property-inspection-api/internal/router"
	"github.com/iliyamo/property-inspection-api/internal/utils"
)

const apiSchema = `
CREATE TABLE users (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    is_active     BOOLEAN NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE refresh_tokens (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id    INTEGER NOT NULL REFERENCES users(id),
    token_hash TEXT NOT NULL,
    expires_at DATETIME NOT NULL,
    revoked_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE inspections (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    owner_id   INTEGER NOT NULL REFERENCES users(id),
    address    TEXT NOT NULL,
    notes      TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE inspection_photos (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,
    inspection_id INTEGER NOT NULL REFERENCES inspections(id),
    url           TEXT NOT NULL,
    label         TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

// testApp wires the full HTTP surface over an in-memory database, the way
// main does it minus Redis and the queue consumer.
type testApp struct {
	e     *echo.Echo
	users *repository.UserRepo
	cfg   config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(apiSchema); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     4,
		FetchTimeout:   2 * time.Second,
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	inspections := repository.NewInspectionRepo(db)
	photos := repository.NewPhotoRepo(db)
	g := guard.New(inspections, photos)

	auth := handler.NewAuthHandler(cfg, users, tokens)
	insp := handler.NewInspectionHandler(inspections, photos, g)
	rep := handler.NewReportHandler(inspections, photos, g, report.NewRenderer(cfg.FetchTimeout))

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, auth, cfg.JWTSecret, users)
	router.RegisterInspections(e, insp, rep, cfg.JWTSecret, users)
	return &testApp{e: e, users: users, cfg: cfg}
}

// newUser registers an account directly and returns its id plus a signed
// access token, skipping the HTTP round trip for tests that are not about
// the auth endpoints.
func (a *testApp) newUser(t *testing.T, email string) (uint64, string) {
	t.Helper()
	uid, err := a.users.Create(context.Background(), email, "pw", a.cfg.BcryptCost)
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	access, err := utils.NewAccessToken(a.cfg.JWTSecret, uid, a.cfg.AccessTTLMin)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return uid, access.Token
}

func (a *testApp) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func TestRegisterLoginRefreshLogout(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodPost, "/v1/auth/register", "",
		map[string]string{"email": "dana@example.com", "password": "hunter2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register = %d: %s", rec.Code, rec.Body.String())
	}
	var reg struct {
		User    struct{ ID uint64 }
		Access  struct{ Token string }
		Refresh struct{ Token string }
	}
	decode(t, rec, &reg)
	if reg.User.ID == 0 || reg.Access.Token == "" || reg.Refresh.Token == "" {
		t.Fatalf("incomplete register response: %s", rec.Body.String())
	}

	// Duplicate registration conflicts.
	rec = app.do(http.MethodPost, "/v1/auth/register", "",
		map[string]string{"email": "dana@example.com", "password": "other"})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate register = %d, want 409", rec.Code)
	}

	// Wrong password is rejected without leaking which part failed.
	rec = app.do(http.MethodPost, "/v1/auth/login", "",
		map[string]string{"email": "dana@example.com", "password": "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad login = %d, want 401", rec.Code)
	}

	rec = app.do(http.MethodPost, "/v1/auth/login", "",
		map[string]string{"email": "dana@example.com", "password": "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login = %d: %s", rec.Code, rec.Body.String())
	}

	// The access token resolves to the account.
	rec = app.do(http.MethodGet, "/v1/me", reg.Access.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me = %d: %s", rec.Code, rec.Body.String())
	}
	var me struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
	}
	decode(t, rec, &me)
	if me.Email != "dana@example.com" {
		t.Errorf("me email = %q", me.Email)
	}

	// Refresh rotates: the old token stops working.
	rec = app.do(http.MethodPost, "/v1/auth/refresh", "",
		map[string]string{"refresh_token": reg.Refresh.Token})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh = %d: %s", rec.Code, rec.Body.String())
	}
	var rotated struct {
		Refresh struct{ Token string }
	}
	decode(t, rec, &rotated)
	rec = app.do(http.MethodPost, "/v1/auth/refresh", "",
		map[string]string{"refresh_token": reg.Refresh.Token})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("reused refresh = %d, want 401", rec.Code)
	}

	// Logout revokes the rotated token.
	rec = app.do(http.MethodPost, "/v1/auth/logout", "",
		map[string]string{"refresh_token": rotated.Refresh.Token})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout = %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.do(http.MethodPost, "/v1/auth/refresh", "",
		map[string]string{"refresh_token": rotated.Refresh.Token})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout = %d, want 401", rec.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	rec := app.do(http.MethodGet, "/v1/inspections", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", rec.Code)
	}
	rec = app.do(http.MethodGet, "/v1/inspections", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d, want 401", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	if body.Error != "unauthenticated" {
		t.Errorf("error kind = %q, want unauthenticated", body.Error)
	}

	// A well-formed token whose subject no longer exists is also rejected.
	ghost, err := utils.NewAccessToken("test-secret", 9999, 15)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	rec = app.do(http.MethodGet, "/v1/inspections", ghost.Token, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("deleted subject = %d, want 401", rec.Code)
	}
}

func TestOwnershipIsolation(t *testing.T) {
	app := newTestApp(t)
	_, tokenA := app.newUser(t, "a@example.com")
	_, tokenB := app.newUser(t, "b@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", tokenA,
		map[string]any{"address": "1 Main St", "notes": "roof ok"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d: %s", rec.Code, rec.Body.String())
	}
	var created struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &created)

	rec = app.do(http.MethodPost, "/v1/photos", tokenA,
		map[string]any{"inspection_id": created.ID, "url": "https://x/a.jpg", "label": "roof"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create photo = %d: %s", rec.Code, rec.Body.String())
	}

	// Another user's read of an existing inspection is forbidden, while a
	// nonexistent one is plainly not found.
	path := fmt.Sprintf("/v1/inspections/%d", created.ID)
	rec = app.do(http.MethodGet, path, tokenB, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign get = %d, want 403", rec.Code)
	}
	rec = app.do(http.MethodGet, "/v1/inspections/424242", tokenB, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing get = %d, want 404", rec.Code)
	}

	// The owner sees the photo URLs inline.
	rec = app.do(http.MethodGet, path, tokenA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner get = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Address string   `json:"address"`
		Notes   *string  `json:"notes"`
		Photos  []string `json:"photos"`
	}
	decode(t, rec, &got)
	if got.Address != "1 Main St" || got.Notes == nil || *got.Notes != "roof ok" {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if len(got.Photos) != 1 || got.Photos[0] != "https://x/a.jpg" {
		t.Errorf("photos = %v", got.Photos)
	}

	// The list endpoint only returns the caller's own inspections.
	rec = app.do(http.MethodGet, "/v1/inspections", tokenB, nil)
	var list struct {
		Items []json.RawMessage `json:"items"`
	}
	decode(t, rec, &list)
	if len(list.Items) != 0 {
		t.Errorf("foreign list has %d items, want 0", len(list.Items))
	}

	// Mutations by the other user are forbidden too.
	rec = app.do(http.MethodPatch, path, tokenB, map[string]any{"address": "2 Oak Ave"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign patch = %d, want 403", rec.Code)
	}
	rec = app.do(http.MethodDelete, path, tokenB, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign delete = %d, want 403", rec.Code)
	}
	rec = app.do(http.MethodPost, "/v1/photos", tokenB,
		map[string]any{"inspection_id": created.ID, "url": "https://x/b.jpg"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign photo create = %d, want 403", rec.Code)
	}
}

func TestValidationErrors(t *testing.T) {
	app := newTestApp(t)
	_, token := app.newUser(t, "v@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", token, map[string]any{"address": "   "})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank address = %d, want 400", rec.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	decode(t, rec, &body)
	if body.Error != "validation_error" {
		t.Errorf("error kind = %q, want validation_error", body.Error)
	}

	rec = app.do(http.MethodPost, "/v1/photos", token, map[string]any{"url": "https://x/a.jpg"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("photo without parent = %d, want 400", rec.Code)
	}
	rec = app.do(http.MethodPost, "/v1/photos", token, map[string]any{"inspection_id": 1})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("photo without url = %d, want 400", rec.Code)
	}

	rec = app.do(http.MethodGet, "/v1/inspections/abc", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id = %d, want 400", rec.Code)
	}
}

func TestPartialUpdate(t *testing.T) {
	app := newTestApp(t)
	_, token := app.newUser(t, "p@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", token,
		map[string]any{"address": "1 Main St", "notes": "roof ok"})
	var created struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &created)
	path := fmt.Sprintf("/v1/inspections/%d", created.ID)

	// Patching the address alone leaves the notes in place.
	rec = app.do(http.MethodPatch, path, token, map[string]any{"address": "2 Oak Ave"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		Address string  `json:"address"`
		Notes   *string `json:"notes"`
	}
	decode(t, rec, &got)
	if got.Address != "2 Oak Ave" {
		t.Errorf("address = %q", got.Address)
	}
	if got.Notes == nil || *got.Notes != "roof ok" {
		t.Errorf("notes lost on address patch: %v", got.Notes)
	}

	// Patching the notes alone leaves the new address in place.
	rec = app.do(http.MethodPatch, path, token, map[string]any{"notes": "gutter loose"})
	decode(t, rec, &got)
	if got.Address != "2 Oak Ave" || got.Notes == nil || *got.Notes != "gutter loose" {
		t.Errorf("after notes patch: address=%q notes=%v", got.Address, got.Notes)
	}

	// A blank address is rejected even as a partial update.
	rec = app.do(http.MethodPatch, path, token, map[string]any{"address": ""})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank address patch = %d, want 400", rec.Code)
	}
}

func TestPhotoUpdateAndDelete(t *testing.T) {
	app := newTestApp(t)
	_, token := app.newUser(t, "ph@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", token, map[string]any{"address": "1 Main St"})
	var insp struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &insp)

	rec = app.do(http.MethodPost, "/v1/photos", token,
		map[string]any{"inspection_id": insp.ID, "url": "https://x/a.jpg", "label": "roof"})
	var photo struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &photo)
	path := fmt.Sprintf("/v1/photos/%d", photo.ID)

	// Re-sending the stored values must succeed; a no-op write is not a
	// missing photo.
	rec = app.do(http.MethodPatch, path, token,
		map[string]any{"url": "https://x/a.jpg", "label": "roof"})
	if rec.Code != http.StatusOK {
		t.Fatalf("no-op patch = %d: %s", rec.Code, rec.Body.String())
	}

	rec = app.do(http.MethodPatch, path, token, map[string]any{"label": "roof, north side"})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch = %d: %s", rec.Code, rec.Body.String())
	}
	var got struct {
		URL   string  `json:"url"`
		Label *string `json:"label"`
	}
	decode(t, rec, &got)
	if got.URL != "https://x/a.jpg" || got.Label == nil || *got.Label != "roof, north side" {
		t.Errorf("after patch: %s", rec.Body.String())
	}

	rec = app.do(http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.do(http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete = %d, want 404", rec.Code)
	}
}

func TestDeleteInspectionCascades(t *testing.T) {
	app := newTestApp(t)
	_, token := app.newUser(t, "d@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", token, map[string]any{"address": "1 Main St"})
	var insp struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &insp)

	rec = app.do(http.MethodPost, "/v1/photos", token,
		map[string]any{"inspection_id": insp.ID, "url": "https://x/a.jpg"})
	var photo struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &photo)

	path := fmt.Sprintf("/v1/inspections/%d", insp.ID)
	rec = app.do(http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete = %d: %s", rec.Code, rec.Body.String())
	}
	rec = app.do(http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", rec.Code)
	}
	// The child photo is gone with its parent.
	rec = app.do(http.MethodDelete, fmt.Sprintf("/v1/photos/%d", photo.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("photo after cascade = %d, want 404", rec.Code)
	}
}

func TestDownloadReport(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 120, B: 240, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	}))
	defer srv.Close()

	app := newTestApp(t)
	_, token := app.newUser(t, "r@example.com")
	_, foreign := app.newUser(t, "r2@example.com")

	rec := app.do(http.MethodPost, "/v1/inspections", token,
		map[string]any{"address": "1 Main St", "notes": "roof ok"})
	var insp struct {
		ID uint64 `json:"id"`
	}
	decode(t, rec, &insp)
	app.do(http.MethodPost, "/v1/photos", token,
		map[string]any{"inspection_id": insp.ID, "url": srv.URL + "/a.png", "label": "roof"})
	// A dead URL degrades to a placeholder, not an error response.
	app.do(http.MethodPost, "/v1/photos", token,
		map[string]any{"inspection_id": insp.ID, "url": "http://127.0.0.1:9/dead.png"})

	path := fmt.Sprintf("/v1/inspections/%d/pdf", insp.ID)
	rec = app.do(http.MethodGet, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	want := fmt.Sprintf("attachment; filename=inspection_%d.pdf", insp.ID)
	if cd := rec.Header().Get(echo.HeaderContentDisposition); cd != want {
		t.Errorf("disposition = %q, want %q", cd, want)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF") {
		t.Error("body is not a PDF")
	}

	rec = app.do(http.MethodGet, path, foreign, nil)
	if rec.Code != http.StatusForbidden {
		t.Errorf("foreign download = %d, want 403", rec.Code)
	}
	rec = app.do(http.MethodGet, "/v1/inspections/424242/pdf", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing download = %d, want 404", rec.Code)
	}
}
