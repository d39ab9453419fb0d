package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mediflux/assistant-api/config"
	"github.com/mediflux/assistant-api/data"
	"github.com/mediflux/assistant-api/entities"
	"github.com/mediflux/assistant-api/formatter"
	"github.com/mediflux/assistant-api/handlers"
	"github.com/mediflux/assistant-api/health"
	"github.com/mediflux/assistant-api/logging"
	"github.com/mediflux/assistant-api/validation"
)

// ===== Fakes =====

type stubOrchestrator struct{}

func (stubOrchestrator) Resolve(_ context.Context, q entities.Query) entities.Result {
	return entities.Result{
		Intent:        entities.IntentGeneralQuery,
		Confidence:    0.5,
		NarrativeText: "Je peux vous aider sur les médicaments et les praticiens.",
	}
}

type stubMedications struct{}

func (stubMedications) SearchByName(context.Context, string, int) ([]entities.MedicationRecord, error) {
	return nil, nil
}

func (stubMedications) SearchBySubstance(context.Context, string, int) ([]entities.MedicationRecord, error) {
	return nil, nil
}

func (stubMedications) FetchByCIS(context.Context, int) (entities.MedicationRecord, error) {
	return entities.MedicationRecord{Cis: 60234100, Name: "DOLIPRANE 1000 mg, comprimé"}, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logging.InitLogger(t.TempDir(), 1, 1024*1024, slog.LevelError)

	store := data.NewContainer()
	store.SetServerStartTime(time.Now())
	ref, idx, err := data.Load("")
	if err != nil {
		t.Fatalf("Failed to load reference tables: %v", err)
	}
	store.UpdateReference(ref, idx)

	handler := handlers.NewHandler(
		stubOrchestrator{},
		formatter.New(),
		validation.NewQueryValidator(),
		stubMedications{},
		health.NewHealthChecker(store),
		store,
	)

	cfg := &config.Config{
		Port:           "8000",
		Address:        "127.0.0.1",
		Env:            "test",
		MaxRequestBody: 65536,
		MaxHeaderSize:  1048576,
	}

	return NewServer(cfg, handler)
}

// proxied builds a request that passes the direct-access guard.
func proxied(method, path string, body string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("X-Real-IP", "198.51.100.2")
	return req
}

// ===== Routes =====

func TestServerQueryRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("POST", "/query", `{"text": "bonjour"}`))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp entities.FormattedResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.Intent != entities.IntentGeneralQuery {
		t.Errorf("Expected general_query intent, got %s", resp.Intent)
	}
}

func TestServerMedicationRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("GET", "/medicament/60234100", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "DOLIPRANE") {
		t.Error("Expected the medication in the response body")
	}
}

func TestServerHealthRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("GET", "/health", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Expected a health status, got %s", w.Body.String())
	}
}

func TestServerMetricsRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("GET", "/metrics", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "http_request_total") {
		t.Error("Expected Prometheus metrics in the response")
	}
}

func TestServerIndexRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("GET", "/", ""))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
}

func TestServerUnknownRoute(t *testing.T) {
	srv := newTestServer(t)

	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, proxied("GET", "/nope", ""))

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestServerBlocksDirectAccess(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403 for direct access, got %d", w.Code)
	}
}

func TestServerGracefulShutdown(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Expected a clean shutdown, got %v", err)
	}
}
