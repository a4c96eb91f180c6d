// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "fdproxy.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return configPath
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Environment != Development {
		t.Errorf("expected environment=development, got %s", cfg.Environment)
	}
	if cfg.Client.SocketPath != DefaultSocketPath || cfg.Service.SocketPath != DefaultSocketPath {
		t.Errorf("expected socket paths %s, got %s and %s",
			DefaultSocketPath, cfg.Client.SocketPath, cfg.Service.SocketPath)
	}
	if cfg.Client.DataRoot != "/data/user_de" {
		t.Errorf("expected data_root=/data/user_de, got %s", cfg.Client.DataRoot)
	}
	if cfg.Service.Digest {
		t.Error("expected digest disabled by default")
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvironmentVariable, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when FDPROXY_CONFIG not set, got nil")
	}
	if !strings.HasPrefix(err.Error(), "FDPROXY_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadPath(t *testing.T) {
	fromEnvironment := writeConfig(t, "client:\n  package: com.example.env\n")
	fromFlag := writeConfig(t, "client:\n  package: com.example.flag\n")
	t.Setenv(EnvironmentVariable, fromEnvironment)

	cfg, err := LoadPath("")
	if err != nil {
		t.Fatalf("LoadPath(\"\") failed: %v", err)
	}
	if cfg.Client.Package != "com.example.env" {
		t.Errorf("expected package from FDPROXY_CONFIG, got %s", cfg.Client.Package)
	}

	cfg, err = LoadPath(fromFlag)
	if err != nil {
		t.Fatalf("LoadPath failed: %v", err)
	}
	if cfg.Client.Package != "com.example.flag" {
		t.Errorf("expected package from explicit path, got %s", cfg.Client.Package)
	}
}

func TestLoadFile(t *testing.T) {
	configPath := writeConfig(t, `
environment: staging

client:
  socket_path: /custom/fileproxy.sock
  data_root: /custom/user_de
  package: com.example.host
  trigger_authority: com.example.host.modules
  consumers_file: /etc/fdproxy/consumers.jsonc
  log_level: debug

service:
  socket_path: /custom/fileproxy.sock
  root: /custom/user_de/0/com.example.host
  digest: true
  allowed_uids: [10123, 10456]
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Environment != Staging {
		t.Errorf("expected environment=staging, got %s", cfg.Environment)
	}
	if cfg.Client.Package != "com.example.host" {
		t.Errorf("expected package=com.example.host, got %s", cfg.Client.Package)
	}
	if cfg.Client.TriggerAuthority != "com.example.host.modules" {
		t.Errorf("expected trigger_authority, got %q", cfg.Client.TriggerAuthority)
	}
	if cfg.Client.ConsumersFile != "/etc/fdproxy/consumers.jsonc" {
		t.Errorf("expected consumers_file, got %q", cfg.Client.ConsumersFile)
	}
	if cfg.Service.Root != "/custom/user_de/0/com.example.host" {
		t.Errorf("expected root, got %s", cfg.Service.Root)
	}
	if !cfg.Service.Digest {
		t.Error("expected digest=true")
	}
	if !slices.Equal(cfg.Service.AllowedUIDs, []int{10123, 10456}) {
		t.Errorf("expected allowed_uids [10123 10456], got %v", cfg.Service.AllowedUIDs)
	}
	if cfg.Service.LogLevel != "info" {
		t.Errorf("expected default service log_level=info, got %s", cfg.Service.LogLevel)
	}
}

func TestLoadFileErrors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := LoadFile(writeConfig(t, "client: [not, a, mapping]\n")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
environment: production

client:
  package: com.example.host

service:
  root: /data/user_de/0/com.example.host
  digest: false

production:
  client:
    socket_path: /run/fdproxy/prod.sock
  service:
    socket_path: /run/fdproxy/prod.sock
    digest: true
    allowed_uids: [10123]
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Client.SocketPath != "/run/fdproxy/prod.sock" || cfg.Service.SocketPath != "/run/fdproxy/prod.sock" {
		t.Errorf("expected production socket paths, got %s and %s", cfg.Client.SocketPath, cfg.Service.SocketPath)
	}
	if !cfg.Service.Digest {
		t.Error("expected digest=true from production override")
	}
	if !slices.Equal(cfg.Service.AllowedUIDs, []int{10123}) {
		t.Errorf("expected allowed_uids from override, got %v", cfg.Service.AllowedUIDs)
	}
	if cfg.Client.Package != "com.example.host" {
		t.Errorf("expected base package to survive override, got %s", cfg.Client.Package)
	}
}

func TestProductionDefaults(t *testing.T) {
	configPath := writeConfig(t, `
environment: production
client:
  package: com.example.host
service:
  root: /srv/modules
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Client.LogLevel != "warn" || cfg.Service.LogLevel != "warn" {
		t.Errorf("expected warn log levels in production, got %s and %s", cfg.Client.LogLevel, cfg.Service.LogLevel)
	}
}

func TestOverridesKeepBaseDigest(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{
			name: "production without a section",
			content: `
environment: production
service:
  root: /srv/modules
  digest: true
`,
			want: true,
		},
		{
			name: "staging section without digest",
			content: `
environment: staging
service:
  root: /srv/modules
  digest: true
staging:
  service:
    log_level: debug
`,
			want: true,
		},
		{
			name: "section disables digest",
			content: `
environment: staging
service:
  root: /srv/modules
  digest: true
staging:
  service:
    digest: false
`,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile(writeConfig(t, tt.content))
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if cfg.Service.Digest != tt.want {
				t.Errorf("expected digest=%v, got %v", tt.want, cfg.Service.Digest)
			}
		})
	}
}

func TestEnvVarsDoNotOverride(t *testing.T) {
	t.Setenv("FDPROXY_SOCKET", "/env/fileproxy.sock")
	t.Setenv("FDPROXY_ENVIRONMENT", "staging")

	configPath := writeConfig(t, `
environment: development
client:
  socket_path: /file/fileproxy.sock
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Environment != Development {
		t.Errorf("expected environment=development from file, got %s", cfg.Environment)
	}
	if cfg.Client.SocketPath != "/file/fileproxy.sock" {
		t.Errorf("expected socket_path from file, got %s", cfg.Client.SocketPath)
	}
}

func TestPathExpansion(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	configPath := writeConfig(t, `
client:
  consumers_file: ${HOME}/consumers.jsonc
service:
  root: ${MODULE_ROOT:-/srv/modules}
`)

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if cfg.Client.ConsumersFile != "/home/tester/consumers.jsonc" {
		t.Errorf("expected expanded consumers_file, got %s", cfg.Client.ConsumersFile)
	}
	if cfg.Service.Root != "/srv/modules" {
		t.Errorf("expected default-expanded root, got %s", cfg.Service.Root)
	}
}

func TestExpandVars(t *testing.T) {
	tests := []struct {
		input    string
		vars     map[string]string
		expected string
	}{
		{"${HOME}/fdproxy", map[string]string{"HOME": "/home/user"}, "/home/user/fdproxy"},
		{"${FDPROXY_TEST_MISSING:-default}", map[string]string{}, "default"},
		{"${PRESENT:-default}", map[string]string{"PRESENT": "value"}, "value"},
		{"${A}/${B}", map[string]string{"A": "first", "B": "second"}, "first/second"},
		{"no variables here", map[string]string{}, "no variables here"},
	}

	for _, tt := range tests {
		result := expandVars(tt.input, tt.vars)
		if result != tt.expected {
			t.Errorf("expandVars(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}

func validConfig() *Config {
	cfg := Default()
	cfg.Client.Package = "com.example.host"
	cfg.Service.Root = "/data/user_de/0/com.example.host"
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"valid config", func(c *Config) {}, false},
		{"invalid environment", func(c *Config) { c.Environment = "invalid" }, true},
		{"missing package", func(c *Config) { c.Client.Package = "" }, true},
		{"package with separator", func(c *Config) { c.Client.Package = "com/example" }, true},
		{"relative data root", func(c *Config) { c.Client.DataRoot = "data/user_de" }, true},
		{"empty client socket", func(c *Config) { c.Client.SocketPath = "" }, true},
		{"missing service root", func(c *Config) { c.Service.Root = "" }, true},
		{"relative service root", func(c *Config) { c.Service.Root = "modules" }, true},
		{"negative uid", func(c *Config) { c.Service.AllowedUIDs = []int{-1} }, true},
		{"bad log level", func(c *Config) { c.Service.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSectionValidationIsIndependent(t *testing.T) {
	cfg := Default()
	cfg.Service.Root = "/srv/modules"

	if err := cfg.Service.Validate(); err != nil {
		t.Errorf("service section should validate without a client package: %v", err)
	}
	if err := cfg.Client.Validate(); err == nil {
		t.Error("client section without a package should not validate")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"", slog.LevelInfo, true},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		level, err := ParseLogLevel(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && level != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.input, level, tt.want)
		}
	}
}
