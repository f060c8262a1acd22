package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eugenenazirov/pubconfig/internal/config"
)

// New creates a structured logger for the deployment described by env.
// App Engine deployments log JSON; local runs log human-readable console output.
func New(env config.Env) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	if env.IsRunningLocally() {
		cfg = zap.NewDevelopmentConfig()
		cfg.Encoding = "console"
	}
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.DisableStacktrace = false

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(deploymentFields(env)...), nil
}

func deploymentFields(env config.Env) []zap.Field {
	var fields []zap.Field
	if env.ProjectID != "" {
		fields = append(fields, zap.String("project", env.ProjectID))
	}
	if env.GAEService != "" {
		fields = append(fields, zap.String("service", env.GAEService))
	}
	if env.GAEVersion != "" {
		fields = append(fields, zap.String("version", env.GAEVersion))
	}
	if env.GAEInstance != "" {
		fields = append(fields, zap.String("instance", env.GAEInstance))
	}
	return fields
}
