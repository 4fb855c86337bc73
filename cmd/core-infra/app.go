package main

import (
	"fmt"
	"io"
	"os"

	coreinfra "github.com/academic-agent/core-infra"
	"github.com/academic-agent/core-infra/internal/assembly"
	"github.com/academic-agent/core-infra/internal/config"
	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/corestack"
	corelog "github.com/academic-agent/core-infra/internal/log"
	"github.com/academic-agent/core-infra/internal/template"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	stackName  string

	// logOut receives log lines; nil means stderr.
	logOut io.Writer
}

func (f *globalFlags) options(extra config.Overrides) config.Options {
	if extra.StackName == "" {
		extra.StackName = f.stackName
	}
	if extra.LogLevel == "" {
		extra.LogLevel = f.logLevel
	}
	return config.Options{File: f.configFile, EnvFile: f.envFile, Overrides: extra}
}

// loadConfig resolves settings and initializes logging.
func (f *globalFlags) loadConfig() (config.Config, error) {
	return f.loadConfigWith(config.Overrides{})
}

// loadConfigWith resolves settings with command-specific flag overrides on
// top of the persistent flags. Logging starts at the flag or environment
// level so config loading itself can be traced, then switches to the
// resolved level.
func (f *globalFlags) loadConfigWith(extra config.Overrides) (config.Config, error) {
	out := f.logOut
	if out == nil {
		out = os.Stderr
	}
	corelog.InitLoggerTo(out, f.logLevel)

	cfg, err := config.Load(f.options(extra))
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	corelog.InitLoggerTo(out, cfg.LogLevel)
	return cfg, nil
}

// synthesized is one run of the entry point: config, app and core stack.
type synthesized struct {
	cfg      config.Config
	app      *construct.App
	stack    *corestack.CoreStack
	template *coreinfra.Template
}

// synthesize declares the core stack from the resolved config and builds
// its template.
func (f *globalFlags) synthesize() (*synthesized, error) {
	return f.synthesizeWith(config.Overrides{})
}

func (f *globalFlags) synthesizeWith(extra config.Overrides) (*synthesized, error) {
	cfg, err := f.loadConfigWith(extra)
	if err != nil {
		return nil, err
	}

	app := construct.NewApp()
	stack, err := corestack.NewCoreStack(app, cfg.StackName, cfg.StackProps())
	if err != nil {
		return nil, err
	}

	tmpl, err := stack.Template()
	if err != nil {
		return nil, fmt.Errorf("synthesizing %s: %w", cfg.StackName, err)
	}

	return &synthesized{cfg: cfg, app: app, stack: stack, template: tmpl}, nil
}

// loadTemplate reads a template file, or the configured stack's template
// when path is a cloud assembly directory.
func (f *globalFlags) loadTemplate(path string) (*coreinfra.Template, error) {
	cfg, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	var tmpl *coreinfra.Template
	if info, statErr := os.Stat(path); statErr == nil && info.IsDir() {
		tmpl, err = assembly.LoadTemplate(path, cfg.StackName)
	} else {
		tmpl, err = template.Load(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	return tmpl, nil
}
