package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-pdf-filler/internal/pdf/document"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf/substitute"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultCatalogFile = "catalog.yaml"
	DefaultRedisAddr   = "127.0.0.1:6379"
	DefaultSessionTTL  = 24 * time.Hour

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "MCP_PDF_FILL"
)

// Config holds all configuration for the PDF fill server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Template and scratch directories
	TemplateDirectory string
	WorkDirectory     string
	SessionTTL        time.Duration

	// Substitution defaults
	FontName string
	FontSize float64
	XOffset  float64
	YOffset  float64
	Locale   string

	// Template catalog
	CatalogBackend string // "file", "redis" or "postgres"
	CatalogFile    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	PostgresDSN    string

	// Application configuration
	Version     string
	ServerName  string
	LogLevel    string
	MaxFileSize int64 // Maximum PDF file size in bytes
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio, // Default to stdio mode for MCP compatibility
		Host:              DefaultHost,
		Port:              DefaultPort,
		TemplateDirectory: currentDir,
		WorkDirectory:     filepath.Join(os.TempDir(), "mcp-pdf-filler"),
		SessionTTL:        DefaultSessionTTL,
		FontName:          document.DefaultFont,
		FontSize:          document.DefaultFontSize,
		Locale:            "en",
		CatalogBackend:    sections.BackendFile,
		RedisAddr:         DefaultRedisAddr,
		Version:           "1.0.0",
		ServerName:        "mcp-pdf-filler",
		LogLevel:          DefaultLogLevel,
		MaxFileSize:       DefaultMaxFileSize,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	// Check for version flag before parsing
	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.TemplateDirectory)
	viper.SetDefault("workdir", cfg.WorkDirectory)
	viper.SetDefault("sessionttl", cfg.SessionTTL)
	viper.SetDefault("font", cfg.FontName)
	viper.SetDefault("fontsize", cfg.FontSize)
	viper.SetDefault("xoffset", cfg.XOffset)
	viper.SetDefault("yoffset", cfg.YOffset)
	viper.SetDefault("locale", cfg.Locale)
	viper.SetDefault("catalog", cfg.CatalogBackend)
	viper.SetDefault("catalogfile", cfg.CatalogFile)
	viper.SetDefault("redisaddr", cfg.RedisAddr)
	viper.SetDefault("redispassword", cfg.RedisPassword)
	viper.SetDefault("redisdb", cfg.RedisDB)
	viper.SetDefault("postgresdsn", cfg.PostgresDSN)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.TemplateDirectory, "Directory containing PDF templates")
	pflag.String("workdir", cfg.WorkDirectory, "Root for per-session scratch directories")
	pflag.Duration("sessionttl", cfg.SessionTTL, "Age after which abandoned session directories are removed")
	pflag.String("font", cfg.FontName, "Standard 14 font used for replacement text")
	pflag.Float64("fontsize", cfg.FontSize, "Default replacement font size in points")
	pflag.Float64("xoffset", cfg.XOffset, "Default horizontal offset of replacement text")
	pflag.Float64("yoffset", cfg.YOffset, "Default vertical offset of replacement text (positive moves down)")
	pflag.String("locale", cfg.Locale, "Locale for amount formatting")
	pflag.String("catalog", cfg.CatalogBackend, "Template catalog backend: file, redis or postgres")
	pflag.String("catalogfile", cfg.CatalogFile, "YAML catalog path (file backend, default <dir>/catalog.yaml)")
	pflag.String("redisaddr", cfg.RedisAddr, "Redis address (redis backend)")
	pflag.String("redispassword", cfg.RedisPassword, "Redis password (redis backend)")
	pflag.Int("redisdb", cfg.RedisDB, "Redis database (redis backend)")
	pflag.String("postgresdsn", cfg.PostgresDSN, "PostgreSQL connection string (postgres backend)")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, name := range []string{
		"mode", "host", "port", "dir", "workdir", "sessionttl",
		"font", "fontsize", "xoffset", "yoffset", "locale",
		"catalog", "catalogfile", "redisaddr", "redispassword", "redisdb", "postgresdsn",
		"loglevel", "maxfilesize",
	} {
		_ = viper.BindPFlag(name, pflag.Lookup(name))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP PDF Filler - A Model Context Protocol server for filling PDF templates\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/templates                        "+
			"# stdio mode, YAML catalog in the template directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/srv/templates --catalog=redis        "+
			"# catalog kept in redis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --yoffset=8 --fontsize=10                   "+
			"# shift replacements down, smaller text\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  %s_DIR          Template directory\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_WORKDIR      Session scratch root\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_CATALOG      Catalog backend\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_POSTGRESDSN  PostgreSQL connection string\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  %s_LOGLEVEL     Log level\n", envPrefix)
		fmt.Fprintf(os.Stderr, "  (every flag maps to %s_<FLAG>)\n", envPrefix)
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.TemplateDirectory = viper.GetString("dir")
	cfg.WorkDirectory = viper.GetString("workdir")
	cfg.SessionTTL = viper.GetDuration("sessionttl")
	cfg.FontName = viper.GetString("font")
	cfg.FontSize = viper.GetFloat64("fontsize")
	cfg.XOffset = viper.GetFloat64("xoffset")
	cfg.YOffset = viper.GetFloat64("yoffset")
	cfg.Locale = viper.GetString("locale")
	cfg.CatalogBackend = viper.GetString("catalog")
	cfg.CatalogFile = viper.GetString("catalogfile")
	cfg.RedisAddr = viper.GetString("redisaddr")
	cfg.RedisPassword = viper.GetString("redispassword")
	cfg.RedisDB = viper.GetInt("redisdb")
	cfg.PostgresDSN = viper.GetString("postgresdsn")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
}

func (c *Config) expandPaths() {
	for _, p := range []*string{&c.TemplateDirectory, &c.WorkDirectory, &c.CatalogFile} {
		if *p == "" {
			continue
		}
		if abs, err := filepath.Abs(*p); err == nil {
			*p = abs
		}
	}
	if c.CatalogFile == "" && c.TemplateDirectory != "" {
		c.CatalogFile = filepath.Join(c.TemplateDirectory, DefaultCatalogFile)
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.TemplateDirectory == "" {
		return errors.New("template directory cannot be empty")
	}
	if err := ensureDir(c.TemplateDirectory); err != nil {
		return err
	}
	if c.WorkDirectory == "" {
		return errors.New("work directory cannot be empty")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session ttl must be positive")
	}

	if !document.SupportedFont(c.FontName) {
		return fmt.Errorf("unsupported font: %s (must be a standard 14 text font)", c.FontName)
	}
	if c.FontSize <= 0 {
		return errors.New("font size must be positive")
	}

	switch c.CatalogBackend {
	case sections.BackendFile:
	case sections.BackendRedis:
		if c.RedisAddr == "" {
			return errors.New("redis address is required for the redis catalog")
		}
	case sections.BackendPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres dsn is required for the postgres catalog")
		}
	default:
		return fmt.Errorf("invalid catalog backend: %s (must be one of: file, redis, postgres)", c.CatalogBackend)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// ensureDir creates dir if it does not exist
func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access directory %s: %w", dir, err)
	}
	return nil
}

// CatalogOptions returns the catalog backend settings
func (c *Config) CatalogOptions() sections.Options {
	return sections.Options{
		Backend: c.CatalogBackend,
		File:    c.CatalogFile,
		Redis: sections.RedisOptions{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
		},
		PostgresDSN: c.PostgresDSN,
	}
}

// SubstituteOptions returns the substitution pass defaults
func (c *Config) SubstituteOptions() substitute.Options {
	opts := substitute.DefaultOptions()
	opts.Font = c.FontName
	opts.FontSize = c.FontSize
	opts.XOffset = c.XOffset
	opts.YOffset = c.YOffset
	return opts
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration. Secrets
// are not included.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, TemplateDirectory: %s, WorkDirectory: %s, "+
		"Catalog: %s, Font: %s %gpt, Offset: (%g, %g), LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.TemplateDirectory, c.WorkDirectory,
		c.CatalogBackend, c.FontName, c.FontSize, c.XOffset, c.YOffset, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
