package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/pubconfig/internal/config"
)

func TestNewRegistryFakePort(t *testing.T) {
	env := config.Env{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}

	registry, err := newRegistry(env, 9999, "http://localhost:9998", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newRegistry returned error: %v", err)
	}

	cfg, err := registry.Get()
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if cfg.PrimaryAPIURI.Port() != "9999" {
		t.Fatalf("expected fake configuration on port 9999, got %s", cfg.PrimaryAPIURI)
	}
	if cfg.StorageBaseURL != "http://localhost:9998" {
		t.Fatalf("unexpected storage URL %s", cfg.StorageBaseURL)
	}
}

func TestNewRegistryLoadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `packageBucketName: b1
dartdocStorageBucketName: b2
popularityDumpBucketName: b3
searchSnapshotBucketName: b4
backupSnapshotBucketName: b5
searchServicePrefix: http://localhost:8082
storageBaseUrl: http://localhost:8083
blockRobots: true
productionHosts: []
primaryApiUri: http://localhost:8080
primarySiteUri: http://localhost:8080
admins: []
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	registry, err := newRegistry(config.Env{ConfigPath: path}, 0, "", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newRegistry returned error: %v", err)
	}
	cfg, err := registry.Get()
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if cfg.PackageBucketName != "b1" || !cfg.BlockRobots {
		t.Fatalf("unexpected configuration: %+v", cfg)
	}
}

func TestNewRegistryMissingFile(t *testing.T) {
	env := config.Env{ConfigPath: filepath.Join(t.TempDir(), "missing.yaml")}

	registry, err := newRegistry(env, 0, "", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("newRegistry returned error: %v", err)
	}
	if _, err := registry.Get(); !errors.Is(err, config.ErrMissingConfigFile) {
		t.Fatalf("expected ErrMissingConfigFile, got %v", err)
	}
}
