// Package config holds the deployment configuration of the package registry:
// bucket names, OAuth audiences, service URLs and administrators. The
// configuration is read once from the YAML file named by PUB_CONFIG, checked
// against a closed schema (unknown keys and missing required keys are both
// errors) and handed out read-only through a scoped Registry.
package config
