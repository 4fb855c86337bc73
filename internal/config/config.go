// Package config resolves core-infra settings from a .env file, the process
// environment and an optional core-infra.yaml file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apex/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/academic-agent/core-infra/internal/construct"
	"github.com/academic-agent/core-infra/internal/corestack"
)

// Environment variables read by Load.
const (
	EnvAccount = "CDK_DEFAULT_ACCOUNT"
	EnvRegion  = "CDK_DEFAULT_REGION"
	EnvOutDir  = "CDK_OUTDIR"
	EnvLog     = "CORE_INFRA_LOG"
)

// Default file names, resolved against the working directory.
const (
	DefaultFile   = "core-infra.yaml"
	DefaultEnv    = ".env"
	DefaultOutDir = "cdk.out"
)

// Config holds resolved settings.
type Config struct {
	StackName   string `yaml:"stack_name"`
	OutDir      string `yaml:"out_dir"`
	Format      string `yaml:"format"`
	LogLevel    string `yaml:"log_level"`
	Description string `yaml:"description"`

	Account string `yaml:"-"`
	Region  string `yaml:"-"`

	// Source is the config file that was read, if any.
	Source string `yaml:"-"`
}

// Options locate the inputs of Load.
type Options struct {
	// File is the YAML config path. A missing default file is not an error;
	// a missing explicit file is.
	File string
	// EnvFile is the dotenv path loaded before the environment is read.
	EnvFile string
	// Overrides come from command-line flags and are applied last.
	Overrides Overrides
}

// Overrides are flag values that win over every other source. Empty fields
// leave the resolved value unchanged.
type Overrides struct {
	StackName string
	LogLevel  string
	Format    string
	OutDir    string
}

func (c *Config) apply(o Overrides) {
	if o.StackName != "" {
		c.StackName = o.StackName
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.Format != "" {
		c.Format = o.Format
	}
	if o.OutDir != "" {
		c.OutDir = o.OutDir
	}
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		StackName: corestack.DefaultStackName,
		OutDir:    DefaultOutDir,
		Format:    "json",
	}
}

// Load resolves settings. Precedence, lowest first: defaults, config file,
// dotenv file, process environment, flag overrides. The merged result is
// validated once.
func Load(opts Options) (Config, error) {
	cfg := Default()

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = DefaultEnv
	}
	dotenv, err := godotenv.Read(envFile)
	if err != nil {
		if opts.EnvFile != "" || !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		log.WithFields(log.Fields{"file": envFile, "vars": len(dotenv)}).Debug("env file loaded")
	}
	getenv := lookup(dotenv)

	file := opts.File
	if file == "" {
		file = DefaultFile
	}
	if err := cfg.readFile(file); err != nil {
		if opts.File != "" || !errors.Is(err, fs.ErrNotExist) {
			return cfg, err
		}
	}

	cfg.Account = getenv(EnvAccount)
	cfg.Region = getenv(EnvRegion)
	if v := getenv(EnvOutDir); v != "" {
		cfg.OutDir = v
	}
	if v := getenv(EnvLog); v != "" {
		cfg.LogLevel = v
	}
	cfg.apply(opts.Overrides)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// lookup returns a getter that prefers the process environment over dotenv
// values. The process environment is never modified, so a changed dotenv
// file takes effect on the next Load.
func lookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return dotenv[key]
	}
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if file.StackName != "" {
		c.StackName = file.StackName
	}
	if file.OutDir != "" {
		c.OutDir = file.OutDir
	}
	if file.Format != "" {
		c.Format = file.Format
	}
	if file.LogLevel != "" {
		c.LogLevel = file.LogLevel
	}
	if file.Description != "" {
		c.Description = file.Description
	}
	c.Source, _ = filepath.Abs(path)

	log.WithField("file", c.Source).Debug("config file loaded")
	return nil
}

// Validate checks the resolved settings. Account and region are passed
// through unchecked.
func (c Config) Validate() error {
	switch c.Format {
	case "json", "yaml", "yml":
	default:
		return fmt.Errorf("invalid format %q: must be json or yaml", c.Format)
	}
	if c.OutDir == "" {
		return errors.New("out_dir must not be empty")
	}
	return construct.ValidateStackName(c.StackName)
}

// Environment returns the deployment target of the stack.
func (c Config) Environment() construct.Environment {
	return construct.Environment{Account: c.Account, Region: c.Region}
}

// StackProps returns the props for the core stack.
func (c Config) StackProps() construct.StackProps {
	return construct.StackProps{
		Env:         c.Environment(),
		Description: c.Description,
	}
}

// WatchedFiles returns the files whose changes affect synthesis.
func (o Options) WatchedFiles() []string {
	files := []string{DefaultFile, DefaultEnv}
	if o.File != "" {
		files[0] = o.File
	}
	if o.EnvFile != "" {
		files[1] = o.EnvFile
	}
	return files
}
