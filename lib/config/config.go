// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ConfigEnvVar names the environment variable Load reads.
const ConfigEnvVar = "MEMSANDBOX_CONFIG"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Compression values accepted by worker.compression.
var compressionValues = []string{"none", "lz4", "zstd"}

// Config is the configuration shared by the memsandbox binaries.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Sandbox configures in-process sandboxes created by the CLI.
	Sandbox SandboxConfig `yaml:"sandbox"`

	// Worker configures the managed-space worker.
	Worker WorkerConfig `yaml:"worker"`

	// Per-environment overrides, applied after the base values.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides holds the fields an environment section may change.
// Zero values and nil pointers leave the base value alone.
type ConfigOverrides struct {
	Sandbox *SandboxOverrides `yaml:"sandbox,omitempty"`
	Worker  *WorkerOverrides  `yaml:"worker,omitempty"`
}

// SandboxConfig configures in-process sandboxes.
type SandboxConfig struct {
	// DefaultCapacity is the usable size in bytes of a sandbox created
	// without an explicit capacity. Default: 1 MiB.
	DefaultCapacity uint64 `yaml:"default_capacity"`

	// GuardPages surrounds the usable range with inaccessible pages.
	// Default: true.
	GuardPages bool `yaml:"guard_pages"`
}

// SandboxOverrides is the override form of SandboxConfig.
type SandboxOverrides struct {
	DefaultCapacity uint64 `yaml:"default_capacity"`
	GuardPages      *bool  `yaml:"guard_pages"`
}

// WorkerConfig configures the managed-space worker.
type WorkerConfig struct {
	// SocketPath is the worker's Unix socket.
	// Default: ${XDG_RUNTIME_DIR:-/tmp}/memsandbox/worker.sock
	SocketPath string `yaml:"socket_path"`

	// MaxSpaces caps live spaces. Default: 64.
	MaxSpaces int `yaml:"max_spaces"`

	// MaxCapacity caps the usable size of one space. Default: 256 MiB.
	MaxCapacity uint64 `yaml:"max_capacity"`

	// Compression is the preferred read-space transfer encoding:
	// none, lz4 or zstd. Default: lz4.
	Compression string `yaml:"compression"`

	// IdleTimeout releases spaces not touched for this long. Empty
	// or "0" disables reaping. Default: empty.
	IdleTimeout string `yaml:"idle_timeout"`
}

// WorkerOverrides is the override form of WorkerConfig.
type WorkerOverrides struct {
	SocketPath  string `yaml:"socket_path"`
	MaxSpaces   int    `yaml:"max_spaces"`
	MaxCapacity uint64 `yaml:"max_capacity"`
	Compression string `yaml:"compression"`
	IdleTimeout string `yaml:"idle_timeout"`
}

// Default returns the development defaults that a loaded file is
// merged over.
func Default() *Config {
	return &Config{
		Environment: Development,
		Sandbox: SandboxConfig{
			DefaultCapacity: 1 << 20,
			GuardPages:      true,
		},
		Worker: WorkerConfig{
			SocketPath:  "${XDG_RUNTIME_DIR:-/tmp}/memsandbox/worker.sock",
			MaxSpaces:   64,
			MaxCapacity: 256 << 20,
			Compression: "lz4",
		},
	}
}

// Load loads the file named by MEMSANDBOX_CONFIG. There is no search
// path: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(ConfigEnvVar)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your memsandbox.yaml config file, or use --config flag", ConfigEnvVar)
	}
	return LoadFile(configPath)
}

// Resolve loads path if it is set, then the file named by
// MEMSANDBOX_CONFIG if that is set, and otherwise returns the defaults
// with variables expanded. The binaries use it so that a bare
// invocation works without a config file.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	if os.Getenv(ConfigEnvVar) != "" {
		return Load()
	}
	cfg := Default()
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from path. Files ending in .json or
// .jsonc may contain comments and trailing commas; anything else is
// parsed as YAML.
//
// Environment variables never override config values. They are only
// expanded where a path contains ${VAR} or ${VAR:-default}.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		// Standard JSON is valid YAML, so one set of struct tags
		// serves both formats.
		data = jsonc.ToJSON(data)
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		// Production without its own section still gets a bounded
		// worker and guarded sandboxes.
		if overrides == nil {
			guarded := true
			overrides = &ConfigOverrides{
				Sandbox: &SandboxOverrides{GuardPages: &guarded},
				Worker:  &WorkerOverrides{MaxSpaces: 16},
			}
		}
	}

	if overrides == nil {
		return
	}

	if sandbox := overrides.Sandbox; sandbox != nil {
		if sandbox.DefaultCapacity != 0 {
			c.Sandbox.DefaultCapacity = sandbox.DefaultCapacity
		}
		if sandbox.GuardPages != nil {
			c.Sandbox.GuardPages = *sandbox.GuardPages
		}
	}

	if worker := overrides.Worker; worker != nil {
		if worker.SocketPath != "" {
			c.Worker.SocketPath = worker.SocketPath
		}
		if worker.MaxSpaces != 0 {
			c.Worker.MaxSpaces = worker.MaxSpaces
		}
		if worker.MaxCapacity != 0 {
			c.Worker.MaxCapacity = worker.MaxCapacity
		}
		if worker.Compression != "" {
			c.Worker.Compression = worker.Compression
		}
		if worker.IdleTimeout != "" {
			c.Worker.IdleTimeout = worker.IdleTimeout
		}
	}
}

func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Worker.SocketPath = expandVars(c.Worker.SocketPath, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Names in vars take
// precedence over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// IdleTimeoutDuration parses worker.idle_timeout. Zero means no reaping.
func (w WorkerConfig) IdleTimeoutDuration() (time.Duration, error) {
	if w.IdleTimeout == "" {
		return 0, nil
	}
	duration, err := time.ParseDuration(w.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("worker.idle_timeout: %w", err)
	}
	if duration < 0 {
		return 0, fmt.Errorf("worker.idle_timeout must not be negative, got %s", w.IdleTimeout)
	}
	return duration, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Sandbox.DefaultCapacity == 0 {
		errs = append(errs, errors.New("sandbox.default_capacity must be positive"))
	}

	if c.Worker.SocketPath == "" {
		errs = append(errs, errors.New("worker.socket_path is required"))
	}
	if c.Worker.MaxSpaces <= 0 {
		errs = append(errs, errors.New("worker.max_spaces must be positive"))
	}
	if c.Worker.MaxCapacity == 0 {
		errs = append(errs, errors.New("worker.max_capacity must be positive"))
	}
	if !slices.Contains(compressionValues, c.Worker.Compression) {
		errs = append(errs, fmt.Errorf("worker.compression must be one of: %v", compressionValues))
	}
	if _, err := c.Worker.IdleTimeoutDuration(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// EnsureSocketDir creates the directory holding the worker socket.
func (c *Config) EnsureSocketDir() error {
	directory := filepath.Dir(c.Worker.SocketPath)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}
	return nil
}
