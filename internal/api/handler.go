package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/eugenenazirov/pubconfig/internal/config"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

const (
	robotsAllowAll    = "User-agent: *\nAllow: /\n"
	robotsDisallowAll = "User-agent: *\nDisallow: /\n"
)

// Handler serves the endpoints that expose the active deployment configuration.
type Handler struct {
	cfg *config.Configuration
	env config.Env

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler reading from cfg and env.
func NewHandler(cfg *config.Configuration, env config.Env, opts ...HandlerOption) *Handler {
	h := &Handler{
		cfg: cfg,
		env: env,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleDeployment(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := deploymentResponse{
		Service:        h.env.GAEService,
		Version:        h.env.GAEVersion,
		Instance:       h.env.GAEInstance,
		RunningLocally: h.env.IsRunningLocally(),
		FrontendCount:  int(h.env.FrontendCount),
		WorkerCount:    int(h.env.WorkerCount),
		PrimaryAPIURI:  h.cfg.APIURL(),
		PrimarySiteURI: h.cfg.SiteURL(),
		EmailEnabled:   h.cfg.EmailSenderEnabled(),
		BlockRobots:    h.cfg.BlockRobots,
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleRobots(w http.ResponseWriter, r *http.Request) {
	_ = r
	body := robotsAllowAll
	if h.cfg.BlockRobots {
		body = robotsDisallowAll
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type deploymentResponse struct {
	Service        string `json:"service,omitempty"`
	Version        string `json:"version,omitempty"`
	Instance       string `json:"instance,omitempty"`
	RunningLocally bool   `json:"runningLocally"`
	FrontendCount  int    `json:"frontendCount"`
	WorkerCount    int    `json:"workerCount"`
	PrimaryAPIURI  string `json:"primaryApiUri"`
	PrimarySiteURI string `json:"primarySiteUri"`
	EmailEnabled   bool   `json:"emailEnabled"`
	BlockRobots    bool   `json:"blockRobots"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}
