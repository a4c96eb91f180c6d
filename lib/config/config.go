// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the config file when no flag is given.
const EnvironmentVariable = "FDPROXY_CONFIG"

// DefaultSocketPath is where the service listens unless configured.
const DefaultSocketPath = "/run/fdproxy/fileproxy.sock"

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete fdproxy configuration.
type Config struct {
	Environment Environment `yaml:"environment"`

	// Client configures consumers of the proxy.
	Client ClientConfig `yaml:"client"`

	// Service configures the privileged file proxy.
	Service ServiceConfig `yaml:"service"`

	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Client  *ClientConfig  `yaml:"client,omitempty"`
	Service *ServiceOverrides `yaml:"service,omitempty"`
}

// ServiceOverrides mirrors ServiceConfig for override sections. Digest
// is a pointer so that a section which does not mention it leaves the
// base value alone.
type ServiceOverrides struct {
	SocketPath  string `yaml:"socket_path"`
	Root        string `yaml:"root"`
	Digest      *bool  `yaml:"digest"`
	AllowedUIDs []int  `yaml:"allowed_uids"`
	LogLevel    string `yaml:"log_level"`
}

// ClientConfig configures the consumer side.
type ClientConfig struct {
	// SocketPath is the service's socket.
	// Default: /run/fdproxy/fileproxy.sock
	SocketPath string `yaml:"socket_path"`

	// DataRoot is the device-protected data root; the privileged
	// prefix is <data_root>/<user>/<package>/.
	// Default: /data/user_de
	DataRoot string `yaml:"data_root"`

	// Package is the privileged package whose storage is proxied.
	// Required.
	Package string `yaml:"package"`

	// TriggerAuthority is the content authority whose acquisition
	// activates the proxy. Empty disables trigger-based activation.
	TriggerAuthority string `yaml:"trigger_authority"`

	// ConsumersFile is a JSONC file listing eligible consumer packages.
	// Empty makes every process ineligible.
	ConsumersFile string `yaml:"consumers_file"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// ServiceConfig configures the privileged side.
type ServiceConfig struct {
	// SocketPath is where the service listens.
	// Default: /run/fdproxy/fileproxy.sock
	SocketPath string `yaml:"socket_path"`

	// Root is the directory served. Required.
	Root string `yaml:"root"`

	// Digest enables BLAKE3 content digests in responses.
	Digest bool `yaml:"digest"`

	// AllowedUIDs restricts which peers may connect. Empty allows all.
	AllowedUIDs []int `yaml:"allowed_uids"`

	// LogLevel is one of debug, info, warn, error.
	// Default: info
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration, used as the base before
// the config file is applied.
func Default() *Config {
	return &Config{
		Environment: Development,
		Client: ClientConfig{
			SocketPath: DefaultSocketPath,
			DataRoot:   "/data/user_de",
			LogLevel:   "info",
		},
		Service: ServiceConfig{
			SocketPath: DefaultSocketPath,
			LogLevel:   "info",
		},
	}
}

// Load loads configuration from the file named by FDPROXY_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your fdproxy.yaml config file, or use --config flag", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()
	return cfg, nil
}

// LoadPath loads from path when it is non-empty and from FDPROXY_CONFIG
// otherwise. Binaries pass their --config flag value.
func LoadPath(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	return Load()
}

// applyEnvironmentOverrides applies the section for the configured
// environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Client:  &ClientConfig{LogLevel: "warn"},
				Service: &ServiceOverrides{LogLevel: "warn"},
			}
		}
	}

	if overrides == nil {
		return
	}

	if client := overrides.Client; client != nil {
		overrideString(&c.Client.SocketPath, client.SocketPath)
		overrideString(&c.Client.DataRoot, client.DataRoot)
		overrideString(&c.Client.Package, client.Package)
		overrideString(&c.Client.TriggerAuthority, client.TriggerAuthority)
		overrideString(&c.Client.ConsumersFile, client.ConsumersFile)
		overrideString(&c.Client.LogLevel, client.LogLevel)
	}

	if service := overrides.Service; service != nil {
		overrideString(&c.Service.SocketPath, service.SocketPath)
		overrideString(&c.Service.Root, service.Root)
		overrideString(&c.Service.LogLevel, service.LogLevel)
		if service.Digest != nil {
			c.Service.Digest = *service.Digest
		}
		if len(service.AllowedUIDs) > 0 {
			c.Service.AllowedUIDs = service.AllowedUIDs
		}
	}
}

func overrideString(target *string, value string) {
	if value != "" {
		*target = value
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Client.SocketPath = expandVars(c.Client.SocketPath, vars)
	c.Client.DataRoot = expandVars(c.Client.DataRoot, vars)
	c.Client.ConsumersFile = expandVars(c.Client.ConsumersFile, vars)
	c.Service.SocketPath = expandVars(c.Service.SocketPath, vars)
	c.Service.Root = expandVars(c.Service.Root, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the whole configuration. Binaries that use only one
// section validate that section directly.
func (c *Config) Validate() error {
	var errs []error
	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}
	if err := c.Client.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Service.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate checks the client section.
func (c *ClientConfig) Validate() error {
	var errs []error

	if c.SocketPath == "" {
		errs = append(errs, errors.New("client.socket_path is required"))
	}
	if !filepath.IsAbs(c.DataRoot) {
		errs = append(errs, fmt.Errorf("client.data_root must be an absolute path, got %q", c.DataRoot))
	}
	if c.Package == "" {
		errs = append(errs, errors.New("client.package is required"))
	} else if strings.ContainsRune(c.Package, filepath.Separator) {
		errs = append(errs, fmt.Errorf("client.package %q must not contain a path separator", c.Package))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("client.log_level: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks the service section.
func (c *ServiceConfig) Validate() error {
	var errs []error

	if c.SocketPath == "" {
		errs = append(errs, errors.New("service.socket_path is required"))
	}
	if c.Root == "" {
		errs = append(errs, errors.New("service.root is required"))
	} else if !filepath.IsAbs(c.Root) {
		errs = append(errs, fmt.Errorf("service.root must be an absolute path, got %q", c.Root))
	}
	for _, uid := range c.AllowedUIDs {
		if uid < 0 {
			errs = append(errs, fmt.Errorf("service.allowed_uids: invalid uid %d", uid))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("service.log_level: %w", err))
	}

	return errors.Join(errs...)
}

// ParseLogLevel parses debug, info, warn or error (case-insensitive).
func ParseLogLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", value)
	}
	return level, nil
}
