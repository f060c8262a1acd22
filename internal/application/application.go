package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eugenenazirov/pubconfig/internal/api"
	"github.com/eugenenazirov/pubconfig/internal/config"
)

const (
	defaultPort           = "8080"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Options holds the server settings taken from the command line.
type Options struct {
	Port                 string
	ShutdownGracePeriod  time.Duration
	ReadHeaderTimeout    time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	EnableRequestLogging bool
	RateLimitRPS         float64
	RateLimitBurst       int
}

// DefaultOptions returns the settings used when no flag overrides them.
func DefaultOptions() Options {
	return Options{
		Port:                 defaultPort,
		ShutdownGracePeriod:  10 * time.Second,
		ReadHeaderTimeout:    5 * time.Second,
		WriteTimeout:         15 * time.Second,
		IdleTimeout:          60 * time.Second,
		EnableRequestLogging: true,
		RateLimitRPS:         defaultRateLimitRPS,
		RateLimitBurst:       defaultRateLimitBurst,
	}
}

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg     *config.Configuration
	env     config.Env
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// New resolves the configuration active in ctx and builds the HTTP server
// around it. A configuration that cannot be loaded is returned as an error.
func New(ctx context.Context, env config.Env, opts Options, logger *zap.Logger) (*App, error) {
	cfg, err := config.Active(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	handler := api.NewHandler(cfg, env)
	router := api.NewRouter(handler, logger,
		api.WithLogging(opts.EnableRequestLogging),
		api.WithRateLimit(opts.RateLimitRPS, opts.RateLimitBurst),
	)

	return &App{
		cfg:     cfg,
		env:     env,
		handler: handler,
		router:  router,
		logger:  logger,
		server:  NewServer(opts, router),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided options.
func NewServer(opts Options, handler http.Handler) *http.Server {
	addr := opts.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
	}
}

// Start starts the HTTP server in a goroutine and logs the listening address.
func (a *App) Start() error {
	fields := []zap.Field{
		zap.String("addr", a.server.Addr),
		zap.Bool("running_locally", a.env.IsRunningLocally()),
		zap.String("primary_site_uri", a.cfg.SiteURL()),
	}
	go func() {
		a.logger.Info("server listening", fields...)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Configuration returns the configuration the app was built with.
func (a *App) Configuration() *config.Configuration {
	return a.cfg
}
