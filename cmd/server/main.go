package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/pubconfig/internal/application"
	"github.com/eugenenazirov/pubconfig/internal/config"
	"github.com/eugenenazirov/pubconfig/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	defaults := application.DefaultOptions()

	kingpinApp := kingpin.New("pub-server", "Package registry frontend serving the active deployment configuration")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file (overrides "+config.ConfigPathEnvVar+")").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").Default(defaults.Port).String()
	fakePort := kingpinApp.Flag("fake-port", "Run with the built-in fake server configuration on this port").Int()
	fakeStorage := kingpinApp.Flag("fake-storage-url", "Storage base URL used with --fake-port").Default("http://localhost:0").String()
	rateLimitRPS := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default(fmt.Sprint(defaults.RateLimitRPS)).Float64()
	rateLimitBurst := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default(fmt.Sprint(defaults.RateLimitBurst)).Int()
	requestLogging := kingpinApp.Flag("request-logging", "Emit access logs").Default("true").Bool()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	env, err := config.CurrentEnv()
	if err != nil {
		panic(fmt.Sprintf("failed to read environment: %v", err))
	}
	if *configFile != "" {
		env.ConfigPath = *configFile
	}

	logger, err := logging.New(env)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	registry, err := newRegistry(env, *fakePort, *fakeStorage, logger)
	if err != nil {
		logger.Fatal("failed to register configuration", zap.Error(err))
	}
	ctx := config.WithRegistry(context.Background(), registry)

	opts := defaults
	opts.Port = *port
	opts.RateLimitRPS = *rateLimitRPS
	opts.RateLimitBurst = *rateLimitBurst
	opts.EnableRequestLogging = *requestLogging

	app, err := application.New(ctx, env, opts, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), opts.ShutdownGracePeriod, logger)
}

// newRegistry returns the root configuration scope. With a fake port the
// fixed fake-server configuration is registered up front and no file is read.
func newRegistry(env config.Env, fakePort int, fakeStorageURL string, logger *zap.Logger) (*config.Registry, error) {
	registry := config.NewRegistry(func() (*config.Configuration, error) {
		return config.LoadFromEnv(env)
	}, config.WithLogger(logger))

	if fakePort > 0 {
		logger.Info("using fake server configuration", zap.Int("port", fakePort))
		if err := registry.Register(config.FakePubServer(fakePort, fakeStorageURL)); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
