package config

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
)

// ConfigPathEnvVar names the environment variable pointing at the YAML file.
const ConfigPathEnvVar = "PUB_CONFIG"

// ReplicaCount is a positive instance count read from the environment.
// Missing, malformed and non-positive values all decode to 1.
type ReplicaCount int

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *ReplicaCount) UnmarshalText(text []byte) error {
	n, err := strconv.Atoi(strings.TrimSpace(string(text)))
	if err != nil || n < 1 {
		*c = 1
		return nil
	}
	*c = ReplicaCount(n)
	return nil
}

// Env is the set of environment variables the service reads at startup.
type Env struct {
	ConfigPath string `env:"PUB_CONFIG"`
	ProjectID  string `env:"GCLOUD_PROJECT"`
	GCloudKey  string `env:"GCLOUD_KEY"`

	// App Engine deployment identifiers; unset when running locally.
	GAEService  string `env:"GAE_SERVICE"`
	GAEVersion  string `env:"GAE_VERSION"`
	GAEInstance string `env:"GAE_INSTANCE"`

	StableDartSDK     string `env:"TOOL_STABLE_DART_SDK"`
	StableFlutterSDK  string `env:"TOOL_STABLE_FLUTTER_SDK"`
	PreviewDartSDK    string `env:"TOOL_PREVIEW_DART_SDK"`
	PreviewFlutterSDK string `env:"TOOL_PREVIEW_FLUTTER_SDK"`

	FrontendCount ReplicaCount `env:"FRONTEND_COUNT" envDefault:"1"`
	WorkerCount   ReplicaCount `env:"WORKER_COUNT" envDefault:"1"`
}

// IsRunningLocally reports whether the process runs outside App Engine.
func (e Env) IsRunningLocally() bool {
	return e.GAEService == "" || e.GAEVersion == ""
}

// HasPreviewSDK reports whether both preview SDK paths are configured.
func (e Env) HasPreviewSDK() bool {
	return e.PreviewDartSDK != "" && e.PreviewFlutterSDK != ""
}

// LoadEnv reads the process environment.
func LoadEnv() (Env, error) {
	return parseEnv(nil)
}

// EnvFromMap reads the given variables instead of the process environment.
func EnvFromMap(vars map[string]string) (Env, error) {
	if vars == nil {
		vars = map[string]string{}
	}
	return parseEnv(vars)
}

func parseEnv(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("read environment: %w", err)
	}
	// Variables set to an empty string skip UnmarshalText.
	for _, c := range []*ReplicaCount{&e.FrontendCount, &e.WorkerCount} {
		if *c < 1 {
			*c = 1
		}
	}
	return e, nil
}

var currentEnv = sync.OnceValues(LoadEnv)

// CurrentEnv returns the process environment as captured on first call.
func CurrentEnv() (Env, error) {
	return currentEnv()
}
