package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mediflux/assistant-api/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// ===== RealIPMiddleware =====

func TestRealIPMiddlewareUsesForwardedFor(t *testing.T) {
	var seen string
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "203.0.113.7" {
		t.Errorf("Expected the first forwarded IP, got %q", seen)
	}
}

func TestRealIPMiddlewareKeepsRemoteAddrWithoutHeader(t *testing.T) {
	var seen string
	handler := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.RemoteAddr
	}))

	req := httptest.NewRequest("GET", "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen != req.RemoteAddr {
		t.Errorf("Expected the original RemoteAddr, got %q", seen)
	}
}

// ===== BlockDirectAccessMiddleware =====

func TestBlockDirectAccessBlocksWithoutProxyHeaders(t *testing.T) {
	handler := BlockDirectAccessMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
}

func TestBlockDirectAccessAllowsLocalhost(t *testing.T) {
	handler := BlockDirectAccessMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "127.0.0.1:51234"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for localhost, got %d", w.Code)
	}
}

func TestBlockDirectAccessAllowsProxiedRequests(t *testing.T) {
	handler := BlockDirectAccessMiddleware(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "203.0.113.7:51234"
	req.Header.Set("X-Real-IP", "198.51.100.2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200 for proxied request, got %d", w.Code)
	}
}

// ===== RequestSizeMiddleware =====

func testSizeConfig() *config.Config {
	return &config.Config{
		MaxRequestBody: 1024,
		MaxHeaderSize:  2048,
	}
}

func TestRequestSizeMiddlewareRejectsLargeBody(t *testing.T) {
	handler := RequestSizeMiddleware(testSizeConfig())(okHandler())

	req := httptest.NewRequest("POST", "/query", strings.NewReader(strings.Repeat("a", 2048)))
	req.Header.Set("Content-Length", "2048")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestRequestSizeMiddlewareRejectsLargeHeaders(t *testing.T) {
	handler := RequestSizeMiddleware(testSizeConfig())(okHandler())

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Big", strings.Repeat("a", 4096))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusRequestHeaderFieldsTooLarge {
		t.Errorf("Expected status 431, got %d", w.Code)
	}
}

func TestRequestSizeMiddlewareAllowsNormalRequests(t *testing.T) {
	handler := RequestSizeMiddleware(testSizeConfig())(okHandler())

	req := httptest.NewRequest("POST", "/query", strings.NewReader(`{"text": "bonjour"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

// ===== Token costs =====

func TestGetTokenCost(t *testing.T) {
	tests := []struct {
		path string
		want int64
	}{
		{"/", 0},
		{"/favicon.ico", 0},
		{"/health", 5},
		{"/metrics", 5},
		{"/query", 100},
		{"/medicament/60234100", 20},
		{"/unknown", 20},
	}

	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		if got := getTokenCost(req); got != tt.want {
			t.Errorf("getTokenCost(%s) = %d, expected %d", tt.path, got, tt.want)
		}
	}
}

// ===== RateLimitHandler =====

func TestRateLimitExhaustsBucket(t *testing.T) {
	handler := RateLimitHandler(okHandler())

	// Dedicated client: the limiter state is global
	addr := "198.51.100.77:1000"

	// 1000-token bucket at 100 tokens per query allows 10 requests
	for i := 0; i < 10; i++ {
		req := httptest.NewRequest("POST", "/query", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected request %d within budget, got %d", i+1, w.Code)
		}
	}

	req := httptest.NewRequest("POST", "/query", nil)
	req.RemoteAddr = addr
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after budget exhausted, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Expected a Retry-After header on 429")
	}
}

func TestRateLimitSetsHeaders(t *testing.T) {
	handler := RateLimitHandler(okHandler())

	req := httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "198.51.100.78:1000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Header().Get("X-RateLimit-Limit") != "1000" {
		t.Errorf("Expected X-RateLimit-Limit header, got %q", w.Header().Get("X-RateLimit-Limit"))
	}
	if w.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected X-RateLimit-Remaining header")
	}
}

func TestRateLimitIsolatesClients(t *testing.T) {
	handler := RateLimitHandler(okHandler())

	// Exhaust one client
	for i := 0; i < 11; i++ {
		req := httptest.NewRequest("POST", "/query", nil)
		req.RemoteAddr = "198.51.100.79:1000"
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	// A different client still has a full bucket
	req := httptest.NewRequest("POST", "/query", nil)
	req.RemoteAddr = "198.51.100.80:1000"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected a fresh client to pass, got %d", w.Code)
	}
}
