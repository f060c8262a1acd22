// Command pubconfig inspects deployment configuration files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/pubconfig/internal/config"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, config.LoadEnv); err != nil {
		fmt.Fprintf(os.Stderr, "pubconfig: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer, loadEnv func() (config.Env, error)) error {
	app := kingpin.New("pubconfig", "Validate and inspect package registry deployment configuration")
	app.Terminate(func(int) {})
	app.UsageWriter(out)

	validateCmd := app.Command("validate", "Check a configuration file against the schema")
	validateFile := validateCmd.Arg("file", "YAML configuration file (defaults to $"+config.ConfigPathEnvVar+")").String()

	showCmd := app.Command("show", "Print the normalized configuration as YAML")
	showFile := showCmd.Arg("file", "YAML configuration file (defaults to $"+config.ConfigPathEnvVar+")").String()

	envCmd := app.Command("env", "Print the environment snapshot")

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	env, err := loadEnv()
	if err != nil {
		return err
	}

	switch command {
	case validateCmd.FullCommand():
		cfg, err := load(env, *validateFile)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "ok: %d admins, %d production hosts\n", len(cfg.Admins), len(cfg.ProductionHosts))
		return err
	case showCmd.FullCommand():
		cfg, err := load(env, *showFile)
		if err != nil {
			return err
		}
		return writeYAML(out, cfg.ToMap())
	case envCmd.FullCommand():
		return writeYAML(out, envMap(env))
	}
	return fmt.Errorf("unknown command %q", command)
}

func load(env config.Env, file string) (*config.Configuration, error) {
	if file != "" {
		return config.LoadFile(file)
	}
	return config.LoadFromEnv(env)
}

func envMap(env config.Env) map[string]any {
	return map[string]any{
		"configPath":        env.ConfigPath,
		"projectId":         env.ProjectID,
		"gaeService":        env.GAEService,
		"gaeVersion":        env.GAEVersion,
		"gaeInstance":       env.GAEInstance,
		"stableDartSdk":     env.StableDartSDK,
		"stableFlutterSdk":  env.StableFlutterSDK,
		"previewDartSdk":    env.PreviewDartSDK,
		"previewFlutterSdk": env.PreviewFlutterSDK,
		"frontendCount":     int(env.FrontendCount),
		"workerCount":       int(env.WorkerCount),
		"runningLocally":    env.IsRunningLocally(),
	}
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode YAML: %w", err)
	}
	return enc.Close()
}
