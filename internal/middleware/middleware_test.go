package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EmpoweredVote/territory-backend/internal/middleware"
	"golang.org/x/crypto/bcrypt"
)

// call wraps a simple 200-OK inner handler in mw and returns the recorded
// response for a request carrying the given headers.
func call(t *testing.T, mw func(http.Handler) http.Handler, method string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(method, "/territory/reset", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	mw(inner).ServeHTTP(rec, req)
	return rec
}

func TestCORS_AllowedOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:3000"})

	rec := call(t, mw, http.MethodGet, map[string]string{"Origin": "http://localhost:3000"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:3000"})

	rec := call(t, mw, http.MethodGet, map[string]string{"Origin": "https://elsewhere.example"})
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("expected no allow-origin header, got %q", got)
	}
}

func TestCORS_Preflight(t *testing.T) {
	mw := middleware.CORS([]string{"http://localhost:3000"})

	rec := call(t, mw, http.MethodOptions, map[string]string{"Origin": "http://localhost:3000"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func hashOf(t *testing.T, token string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

// TestAdminToken_NotConfigured verifies that admin routes are closed when no
// hash is configured.
func TestAdminToken_NotConfigured(t *testing.T) {
	rec := call(t, middleware.AdminToken(""), http.MethodPost, map[string]string{"Authorization": "Bearer anything"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAdminToken_MissingToken(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashOf(t, "s3cret")), http.MethodPost, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "missing admin token") {
		t.Errorf("unexpected body %q", rec.Body.String())
	}
}

func TestAdminToken_WrongToken(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashOf(t, "s3cret")), http.MethodPost, map[string]string{"Authorization": "Bearer guess"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestAdminToken_ValidToken(t *testing.T) {
	rec := call(t, middleware.AdminToken(hashOf(t, "s3cret")), http.MethodPost, map[string]string{"Authorization": "Bearer s3cret"})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d; body: %s", rec.Code, rec.Body.String())
	}
}
