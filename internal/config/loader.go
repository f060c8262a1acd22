package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	testStorageBaseURL = "http://localhost:0"
	fakeAdminID        = "admin-pub-dev"
	fakeAdminEmail     = "admin@pub.dev"
)

// LoadFile reads and validates the YAML configuration file at path.
func LoadFile(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfigFile, path)
		}
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse validates a YAML document. source names the document in errors.
func Parse(data []byte, source string) (*Configuration, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, source, err)
	}

	if root.Kind == 0 {
		return nil, fmt.Errorf("%w: %s: empty document", ErrParse, source)
	}
	generic, err := normalizeNode(&root)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, source, err)
	}
	if generic == nil {
		return nil, fmt.Errorf("%w: %s: empty document", ErrParse, source)
	}
	top, ok := generic.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: %w", source, typeError("", "mapping at top level", generic))
	}

	cfg, err := FromMap(top)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by the PUB_CONFIG variable of e. A missing
// variable or file is an error; there is no fallback configuration.
func LoadFromEnv(e Env) (*Configuration, error) {
	if e.ConfigPath == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrMissingConfigFile, ConfigPathEnvVar)
	}
	if _, err := os.Stat(e.ConfigPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s (set via %s)", ErrMissingConfigFile, e.ConfigPath, ConfigPathEnvVar)
		}
		return nil, fmt.Errorf("stat %s (set via %s): %w", e.ConfigPath, ConfigPathEnvVar, err)
	}
	return LoadFile(e.ConfigPath)
}

// FakePubServer returns the configuration of a local fake server listening on
// port, with every URI pointing at localhost:port.
func FakePubServer(port int, storageBaseURL string) *Configuration {
	local := &url.URL{Scheme: "http", Host: fmt.Sprintf("localhost:%d", port)}
	apiURI := *local
	siteURI := *local
	return &Configuration{
		PackageBucketName:        "fake-bucket-pub",
		DartdocStorageBucketName: "fake-bucket-dartdoc",
		PopularityDumpBucketName: "fake-bucket-popularity",
		SearchSnapshotBucketName: "fake-bucket-search",
		BackupSnapshotBucketName: "fake-bucket-backup",
		SearchServicePrefix:      local.String(),
		StorageBaseURL:           storageBaseURL,
		PubClientAudience:        "fake-client-audience",
		PubSiteAudience:          "fake-site-audience",
		AdminAudience:            "fake-admin-audience",
		BlockRobots:              false,
		ProductionHosts:          []string{"localhost"},
		PrimaryAPIURI:            &apiURI,
		PrimarySiteURI:           &siteURI,
		Admins: []AdminID{
			NewAdminID(fakeAdminID, fakeAdminEmail, AllPermissions()),
		},
	}
}

// TestOptions customise ForTest. Zero fields take defaults.
type TestOptions struct {
	StorageBaseURL string
	PrimaryAPIURI  *url.URL
	PrimarySiteURI *url.URL
}

// ForTest returns a configuration for automated tests. OAuth audiences and
// email relay are unset, and the storage URL is unreachable unless given.
func ForTest(opts TestOptions) *Configuration {
	storageBaseURL := opts.StorageBaseURL
	if storageBaseURL == "" {
		storageBaseURL = testStorageBaseURL
	}
	apiURI := opts.PrimaryAPIURI
	if apiURI == nil {
		apiURI = &url.URL{Scheme: "https", Host: "pub.dartlang.org"}
	}
	siteURI := opts.PrimarySiteURI
	if siteURI == nil {
		siteURI = &url.URL{Scheme: "https", Host: "pub.dev"}
	}
	return &Configuration{
		PackageBucketName:        "fake-bucket-pub",
		DartdocStorageBucketName: "fake-bucket-dartdoc",
		PopularityDumpBucketName: "fake-bucket-popularity",
		SearchSnapshotBucketName: "fake-bucket-search",
		BackupSnapshotBucketName: "fake-bucket-backup",
		SearchServicePrefix:      "http://localhost:0",
		StorageBaseURL:           storageBaseURL,
		BlockRobots:              true,
		ProductionHosts:          []string{"localhost"},
		PrimaryAPIURI:            apiURI,
		PrimarySiteURI:           siteURI,
		Admins: []AdminID{
			NewAdminID(fakeAdminID, fakeAdminEmail, AllPermissions()),
		},
	}
}
