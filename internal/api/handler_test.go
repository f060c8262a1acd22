package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/pubconfig/internal/config"
)

var fixedNow = time.Date(2024, 11, 1, 12, 0, 0, 0, time.UTC)

func setupTestRouter(t *testing.T, cfg *config.Configuration, env config.Env) http.Handler {
	t.Helper()

	handler := NewHandler(cfg, env, WithClock(func() time.Time { return fixedNow }))
	logger := zaptest.NewLogger(t)
	return NewRouter(handler, logger, WithLogging(false), WithRateLimit(0, 0))
}

func TestRequestIDHelpers(t *testing.T) {
	ctx := contextWithRequestID(context.Background(), "abc")
	if got := requestIDFromContext(ctx); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := requestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %s", got)
	}
}

func TestHealth(t *testing.T) {
	router := setupTestRouter(t, config.ForTest(config.TestOptions{}), config.Env{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" || !resp.Timestamp.Equal(fixedNow) {
		t.Fatalf("unexpected health response: %+v", resp)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestDeployment(t *testing.T) {
	cfg := config.FakePubServer(8080, "http://localhost:8081")
	env := config.Env{GAEService: "default", GAEVersion: "v7", GAEInstance: "i-1", FrontendCount: 3, WorkerCount: 2}
	router := setupTestRouter(t, cfg, env)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/deployment", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp deploymentResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	want := deploymentResponse{
		Service:        "default",
		Version:        "v7",
		Instance:       "i-1",
		RunningLocally: false,
		FrontendCount:  3,
		WorkerCount:    2,
		PrimaryAPIURI:  "http://localhost:8080",
		PrimarySiteURI: "http://localhost:8080",
		EmailEnabled:   false,
		BlockRobots:    false,
	}
	if resp != want {
		t.Fatalf("unexpected deployment response:\n got %+v\nwant %+v", resp, want)
	}
}

func TestRobots(t *testing.T) {
	tests := []struct {
		name       string
		block      bool
		wantBody   string
		wantHeader string
	}{
		{"blocked", true, robotsDisallowAll, "noindex, nofollow"},
		{"allowed", false, robotsAllowAll, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.ForTest(config.TestOptions{})
			cfg.BlockRobots = tt.block
			router := setupTestRouter(t, cfg, config.Env{})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/robots.txt", nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", rec.Code)
			}
			if rec.Body.String() != tt.wantBody {
				t.Fatalf("unexpected robots.txt body %q", rec.Body.String())
			}
			if got := rec.Header().Get("X-Robots-Tag"); got != tt.wantHeader {
				t.Fatalf("expected X-Robots-Tag %q, got %q", tt.wantHeader, got)
			}
			if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
				t.Fatalf("expected text/plain content type")
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	router := setupTestRouter(t, config.ForTest(config.TestOptions{}), config.Env{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/packages", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
