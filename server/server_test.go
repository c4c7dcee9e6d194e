package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/pharmacy-notifier/config"
	"github.com/giygas/pharmacy-notifier/handlers"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/go-chi/chi/v5/middleware"
)

// mockHealthChecker implements interfaces.HealthChecker for testing
type mockHealthChecker struct {
	status string
	code   int
}

func (m *mockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"medicines": 0}, m.code
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "8080",
		Address:        "127.0.0.1",
		Env:            config.EnvTest,
		LogLevel:       "info",
		MaxRequestBody: 1048576,
		MaxHeaderSize:  1048576,
		CORSOrigins:    []string{"https://pharmacy.example"},
	}
}

func newTestServer(t *testing.T, health *mockHealthChecker) *Server {
	t.Helper()
	logging.InitLogger("")

	s := NewServer(testConfig(), handlers.NewHTTPHandler(handlers.Deps{Health: health}))
	t.Cleanup(func() { s.rateLimiter.Close() })
	return s
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "healthy", code: http.StatusOK})

	if s.server.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected address 127.0.0.1:8080, got %s", s.server.Addr)
	}
	if s.profiler != nil {
		t.Error("Expected no profiling server outside development")
	}
}

func TestServerRoutesHealthThroughMiddleware(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "degraded", code: http.StatusServiceUnavailable})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"degraded"`) {
		t.Errorf("Expected degraded status in body, got %s", rr.Body.String())
	}
	if rr.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("Expected rate limit headers")
	}
}

func TestServerExposesMetrics(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "healthy", code: http.StatusOK})

	// Generate one request so the HTTP counters have a sample
	s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	for _, name := range []string{"http_request_total", "notification_streams_active", "snapshot_medicines"} {
		if !strings.Contains(rr.Body.String(), name) {
			t.Errorf("Expected %s in metrics output", name)
		}
	}
}

func TestServerCORSPreflight(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "healthy", code: http.StatusOK})

	req := httptest.NewRequest(http.MethodOptions, "/notifications/visit", nil)
	req.Header.Set("Origin", "https://pharmacy.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://pharmacy.example" {
		t.Errorf("Expected allowed origin header, got %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/notifications/visit", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rr = httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Expected no allow origin for unknown origin, got %q", got)
	}
}

func TestServerRecoversPanics(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "healthy", code: http.StatusOK})
	s.router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rr.Code)
	}
}

func TestServerRequestID(t *testing.T) {
	s := newTestServer(t, &mockHealthChecker{status: "healthy", code: http.StatusOK})

	var got string
	s.router.Get("/request-id", func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetReqID(r.Context())
	})
	s.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/request-id", nil))

	if got == "" {
		t.Error("Expected a request id in the context")
	}
}

func TestServerShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "0"
	logging.InitLogger("")
	s := NewServer(cfg, handlers.NewHTTPHandler(handlers.Deps{Health: &mockHealthChecker{status: "healthy", code: http.StatusOK}}))

	errCh := make(chan error, 1)
	go func() { errCh <- s.Start() }()

	// Give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Expected clean shutdown, got %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected Start to return nil after shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}
