package integration_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thuzarw/kspvpn-bot/internal/app/apiapp"
	"github.com/thuzarw/kspvpn-bot/internal/config"
)

func newTestRouter() http.Handler {
	r := chi.NewRouter()
	apiapp.ApplyMiddlewares(r, zap.NewNop())
	apiapp.RegisterRoutes(r, apiapp.Dependencies{
		Logger: zap.NewNop(),
		Config: config.Default(),
	})
	return r
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newTestRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get health: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusOK)
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Status != "ok" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestAdminSurfaceClosedByDefault(t *testing.T) {
	ts := httptest.NewServer(newTestRouter())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/v1/admin/dashboard")
	if err != nil {
		t.Fatalf("get dashboard: %v", err)
	}
	defer resp.Body.Close()

	// Default config carries no admin token, so the surface stays closed.
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("unexpected status: got %d want %d", resp.StatusCode, http.StatusForbidden)
	}
}
