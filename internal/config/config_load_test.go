package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Helper function to reset pflag.CommandLine for testing
func resetFlags() {
	pflag.CommandLine = pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	viper.Reset()
}

// Helper function to set os.Args for testing
func setArgs(args []string) {
	os.Args = args
}

var envKeys = []string{
	"MODE", "HOST", "PORT", "DIR", "WORKDIR", "SESSIONTTL", "FONT", "FONTSIZE", "XOFFSET", "YOFFSET",
	"LOCALE", "CATALOG", "CATALOGFILE", "REDISADDR", "REDISPASSWORD", "REDISDB", "POSTGRESDSN",
	"LOGLEVEL", "MAXFILESIZE",
}

// Helper function to clear environment variables
func clearEnvVars() {
	for _, k := range envKeys {
		os.Unsetenv(envPrefix + "_" + k)
	}
}

// withArgs runs LoadFromFlags with args and restores global state afterwards
func withArgs(t *testing.T, args ...string) (*Config, error) {
	t.Helper()
	originalArgs := os.Args
	t.Cleanup(func() {
		os.Args = originalArgs
		resetFlags()
		clearEnvVars()
	})

	setArgs(append([]string{"mcp-pdf-filler"}, args...))
	resetFlags()
	return LoadFromFlags()
}

func TestLoadFromFlags_DefaultConfig(t *testing.T) {
	clearEnvVars()
	dir := t.TempDir()

	cfg, err := withArgs(t, "--dir="+dir)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want %v", cfg.Mode, "stdio")
	}
	if cfg.Port != 8080 {
		t.Errorf("LoadFromFlags() Port = %v, want %v", cfg.Port, 8080)
	}
	if cfg.FontName != "Helvetica" || cfg.FontSize != 11 {
		t.Errorf("LoadFromFlags() font = %s %g, want Helvetica 11", cfg.FontName, cfg.FontSize)
	}
	if cfg.CatalogBackend != "file" {
		t.Errorf("LoadFromFlags() CatalogBackend = %v, want file", cfg.CatalogBackend)
	}
	if want := filepath.Join(dir, DefaultCatalogFile); cfg.CatalogFile != want {
		t.Errorf("LoadFromFlags() CatalogFile = %v, want %v", cfg.CatalogFile, want)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("LoadFromFlags() SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
}

func TestLoadFromFlags_ValidFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		check   func(*Config) bool
		explain string
	}{
		{
			name:    "server mode with custom host and port",
			args:    []string{"--mode=server", "--host=0.0.0.0", "--port=9090"},
			check:   func(c *Config) bool { return c.IsServerMode() && c.Address() == "0.0.0.0:9090" },
			explain: "server on 0.0.0.0:9090",
		},
		{
			name: "substitution defaults",
			args: []string{"--font=Times-Roman", "--fontsize=9.5", "--yoffset=8", "--xoffset=-2"},
			check: func(c *Config) bool {
				return c.FontName == "Times-Roman" && c.FontSize == 9.5 && c.YOffset == 8 && c.XOffset == -2
			},
			explain: "Times-Roman 9.5pt offset (-2, 8)",
		},
		{
			name: "redis catalog",
			args: []string{"--catalog=redis", "--redisaddr=cache:6379", "--redisdb=2"},
			check: func(c *Config) bool {
				return c.CatalogOptions().Redis.Addr == "cache:6379" && c.CatalogOptions().Redis.DB == 2
			},
			explain: "redis at cache:6379 db 2",
		},
		{
			name:    "debug logging and file size",
			args:    []string{"--loglevel=debug", "--maxfilesize=50000000"},
			check:   func(c *Config) bool { return c.IsDebug() && c.MaxFileSize == 50000000 },
			explain: "debug with 50MB limit",
		},
		{
			name:    "session ttl",
			args:    []string{"--sessionttl=90m"},
			check:   func(c *Config) bool { return c.SessionTTL == 90*time.Minute },
			explain: "90 minute ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			cfg, err := withArgs(t, args...)
			if err != nil {
				t.Fatalf("LoadFromFlags() unexpected error: %v", err)
			}
			if !tt.check(cfg) {
				t.Errorf("LoadFromFlags() = %s, want %s", cfg, tt.explain)
			}
		})
	}
}

func TestLoadFromFlags_EnvironmentVariables(t *testing.T) {
	clearEnvVars()
	tempDir := t.TempDir()

	t.Setenv("MCP_PDF_FILL_MODE", "server")
	t.Setenv("MCP_PDF_FILL_PORT", "3000")
	t.Setenv("MCP_PDF_FILL_DIR", tempDir)
	t.Setenv("MCP_PDF_FILL_CATALOG", "postgres")
	t.Setenv("MCP_PDF_FILL_POSTGRESDSN", "postgres://fill@localhost/templates")
	t.Setenv("MCP_PDF_FILL_YOFFSET", "8")

	cfg, err := withArgs(t)
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "server" || cfg.Port != 3000 {
		t.Errorf("LoadFromFlags() server = %s:%d, want server:3000", cfg.Mode, cfg.Port)
	}
	if cfg.TemplateDirectory != tempDir {
		t.Errorf("LoadFromFlags() TemplateDirectory = %v, want %v", cfg.TemplateDirectory, tempDir)
	}
	if cfg.CatalogBackend != "postgres" || cfg.PostgresDSN != "postgres://fill@localhost/templates" {
		t.Errorf("LoadFromFlags() catalog = %s %s", cfg.CatalogBackend, cfg.PostgresDSN)
	}
	if cfg.YOffset != 8 {
		t.Errorf("LoadFromFlags() YOffset = %v, want 8", cfg.YOffset)
	}
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	clearEnvVars()
	t.Setenv("MCP_PDF_FILL_MODE", "server")
	t.Setenv("MCP_PDF_FILL_FONTSIZE", "14")

	cfg, err := withArgs(t, "--mode=stdio", "--fontsize=10", "--dir="+t.TempDir())
	if err != nil {
		t.Fatalf("LoadFromFlags() unexpected error: %v", err)
	}

	if cfg.Mode != "stdio" {
		t.Errorf("LoadFromFlags() Mode = %v, want stdio (should override env)", cfg.Mode)
	}
	if cfg.FontSize != 10 {
		t.Errorf("LoadFromFlags() FontSize = %v, want 10 (should override env)", cfg.FontSize)
	}
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"mode", []string{"--mode=invalid"}, "mode must be either 'stdio' or 'server'"},
		{"port", []string{"--mode=server", "--port=99999"}, "port must be between 1 and 65535"},
		{"log level", []string{"--loglevel=verbose"}, "invalid log level"},
		{"font", []string{"--font=Comic-Sans"}, "unsupported font"},
		{"symbol font", []string{"--font=ZapfDingbats"}, "unsupported font"},
		{"catalog", []string{"--catalog=etcd"}, "invalid catalog backend"},
		{"postgres without dsn", []string{"--catalog=postgres"}, "postgres dsn is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()
			args := append([]string{"--dir=" + t.TempDir()}, tt.args...)
			_, err := withArgs(t, args...)
			if err == nil {
				t.Fatalf("LoadFromFlags() expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromFlags() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadFromFlags_VersionFlag(t *testing.T) {
	clearEnvVars()
	_, err := withArgs(t, "--version")
	if err == nil || err.Error() != "version requested" {
		t.Errorf("LoadFromFlags() error = %v, want 'version requested'", err)
	}
}
