package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"storefront/internal/apperr"
	"storefront/internal/models"
	"storefront/internal/repository/memory"
	"storefront/internal/security"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Stack   string `json:"stack"`
}

func newIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()
	issuer, err := security.NewTokenIssuer(strings.Repeat("a", 32), strings.Repeat("r", 32), time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error: %v", err)
	}
	return issuer
}

func newEngine(production bool, handlers ...gin.HandlerFunc) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestID(), Errors(zerolog.Nop(), production), Recovery(zerolog.Nop()))
	engine.GET("/ping", handlers...)
	return engine
}

func do(t *testing.T, engine *gin.Engine, authorization string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var body envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode body %q: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func ok(c *gin.Context) {
	user, _ := CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"success": true, "id": user.ID})
}

func TestAuth(t *testing.T) {
	issuer := newIssuer(t)
	users := memory.New().Users()
	user, err := users.Create(context.Background(), models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleCustomer})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	pair, err := issuer.IssuePair(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("IssuePair() error: %v", err)
	}
	ghost, err := issuer.IssuePair(999, string(models.RoleCustomer))
	if err != nil {
		t.Fatalf("IssuePair() error: %v", err)
	}

	engine := newEngine(true, Auth(issuer, users), ok)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + pair.AccessToken, http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"refresh token as access", "Bearer " + pair.RefreshToken, http.StatusUnauthorized},
		{"deleted user", "Bearer " + ghost.AccessToken, http.StatusNotFound},
		{"valid", "Bearer " + pair.AccessToken, http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w, body := do(t, engine, tc.header)
			if w.Code != tc.status {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tc.status, w.Body.String())
			}
			if tc.status != http.StatusOK && body.Success {
				t.Fatalf("failure envelope has success=true")
			}
		})
	}
}

func TestRequireRoles(t *testing.T) {
	withRole := func(role models.UserRole) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.Set(currentUserKey, models.User{ID: 1, Role: role})
			c.Next()
		}
	}

	cases := []struct {
		role   models.UserRole
		status int
	}{
		{models.RoleAdmin, http.StatusOK},
		{models.RoleShopOwner, http.StatusOK},
		{models.RoleCustomer, http.StatusForbidden},
	}

	for _, tc := range cases {
		engine := newEngine(true, withRole(tc.role), RequireRoles(models.RoleAdmin, models.RoleShopOwner), ok)
		w, body := do(t, engine, "")
		if w.Code != tc.status {
			t.Fatalf("role %s: status = %d, want %d", tc.role, w.Code, tc.status)
		}
		if tc.status == http.StatusForbidden && body.Error != "You do not have permission to perform this action" {
			t.Fatalf("unexpected error message %q", body.Error)
		}
	}

	engine := newEngine(true, RequireRoles(models.RoleAdmin), ok)
	if w, _ := do(t, engine, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("status without user = %d, want 401", w.Code)
	}
}

func TestErrorsEnvelope(t *testing.T) {
	failing := func(err error) gin.HandlerFunc {
		return func(c *gin.Context) { _ = c.Error(err) }
	}

	w, body := do(t, newEngine(true, failing(apperr.Validation("Name is required"))), "")
	if w.Code != http.StatusBadRequest || body.Error != "Name is required" || body.Stack != "" {
		t.Fatalf("validation: %d %+v", w.Code, body)
	}

	w, body = do(t, newEngine(true, failing(errors.New("connection refused"))), "")
	if w.Code != http.StatusInternalServerError || body.Stack != "" {
		t.Fatalf("production internal: %d %+v", w.Code, body)
	}

	w, body = do(t, newEngine(false, failing(errors.New("connection refused"))), "")
	if w.Code != http.StatusInternalServerError || body.Stack == "" {
		t.Fatalf("development internal should carry a stack: %d %+v", w.Code, body)
	}
}

func TestRecoveryMapsPanicTo500(t *testing.T) {
	boom := func(c *gin.Context) { panic("kaboom") }

	w, body := do(t, newEngine(false, boom), "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if body.Error != "kaboom" || !strings.Contains(body.Stack, "goroutine") {
		t.Fatalf("unexpected panic envelope: %+v", body)
	}

	_, body = do(t, newEngine(true, boom), "")
	if body.Stack != "" {
		t.Fatalf("stack leaked in production: %q", body.Stack)
	}
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"http://localhost:3000"}))
	engine.GET("/ping", ok)

	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("disallowed origin echoed: %q", got)
	}
}

func TestCORSOpenModeOmitsCredentials(t *testing.T) {
	for _, origins := range [][]string{nil, {"*"}, {"*", "http://localhost:3000"}} {
		engine := gin.New()
		engine.Use(CORS(origins))
		engine.GET("/ping", ok)

		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", "http://evil.example")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
			t.Fatalf("origins %v: allow origin = %q, want *", origins, got)
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
			t.Fatalf("origins %v: credentials allowed for unlisted origin", origins)
		}
	}

	engine := gin.New()
	engine.Use(CORS([]string{"*", "http://localhost:3000"}))
	engine.GET("/ping", ok)
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("listed origin credentials = %q, want true", got)
	}
}
