package apiapp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/config"
)

func TestAdminAuthMiddlewareRejectsMissingToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{APIToken: "secret-token"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be called without a token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuthMiddlewareRejectsWrongToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{APIToken: "secret-token"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer not-the-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be called with a wrong token")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAdminAuthMiddlewareAcceptsConfiguredToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{APIToken: "secret-token"}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAdminAuthMiddlewareClosedWithoutConfiguredToken(t *testing.T) {
	mw := AdminAuthMiddleware(config.AdminConfig{}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/dashboard", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rr := httptest.NewRecorder()

	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not be called when no token is configured")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusForbidden)
	}
}
