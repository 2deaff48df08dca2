package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/a3tai/mcp-pdf-filler/internal/config"
	"github.com/a3tai/mcp-pdf-filler/internal/mcp"
	"github.com/a3tai/mcp-pdf-filler/internal/pdf"
	"github.com/a3tai/mcp-pdf-filler/internal/sections"
	"github.com/a3tai/mcp-pdf-filler/internal/workspace"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging configures logging based on the server mode
func setupLogging(cfg *config.Config) {
	if cfg.IsStdioMode() {
		// In stdio mode stdout carries the MCP protocol
		log.SetOutput(os.Stderr)
		if !cfg.IsDebug() {
			log.SetOutput(io.Discard)
		}
	} else {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

// hasVersionFlag reports whether args ask for the version
func hasVersionFlag(args []string) bool {
	for _, arg := range args {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return true
		}
	}
	return false
}

// newService opens the session workspace and template catalog, removes
// sessions left over from earlier runs and builds the fill service.
func newService(ctx context.Context, cfg *config.Config) (*pdf.Service, error) {
	sessions, err := workspace.NewManager(cfg.WorkDirectory, log.Default())
	if err != nil {
		return nil, err
	}
	if removed, err := sessions.Sweep(cfg.SessionTTL); err != nil {
		log.Printf("Warning: session sweep failed: %v", err)
	} else if removed > 0 {
		log.Printf("Removed %d stale session(s) from %s", removed, sessions.Root())
	}

	store, err := sections.Open(ctx, cfg.CatalogOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open template catalog: %w", err)
	}

	service, err := pdf.NewService(pdf.Options{
		MaxFileSize:       cfg.MaxFileSize,
		TemplateDirectory: cfg.TemplateDirectory,
		Locale:            cfg.Locale,
		Defaults:          cfg.SubstituteOptions(),
		Sessions:          sessions,
		Store:             store,
		Logger:            log.Default(),
	})
	if err != nil {
		store.Close()
		return nil, err
	}
	return service, nil
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		log.Printf("Received signal: %s", sig)
		log.Println("Initiating graceful shutdown...")
		cancel()

		if err := <-serverErrCh; err != nil && ctx.Err() == nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}

	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	log.Println("Server stopped successfully")
	return nil
}

// runStdioMode handles stdio mode execution. The parent process controls
// our lifecycle; Run returns when stdin is closed.
func runStdioMode(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx)
}

func main() {
	// Check for version flag before parsing other flags
	if hasVersionFlag(os.Args[1:]) {
		printVersion()
		return
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() && cfg.IsServerMode() {
		log.Printf("Starting with configuration: %s", cfg.String())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pdfService, err := newService(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create PDF service: %v", err)
	}

	server, err := mcp.NewServer(cfg, pdfService)
	if err != nil {
		pdfService.Close()
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	if cfg.IsServerMode() {
		err = runServerMode(ctx, cancel, server)
	} else {
		err = runStdioMode(ctx, server)
	}

	if cerr := pdfService.Close(); cerr != nil {
		log.Printf("Warning: %v", cerr)
	}
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("MCP PDF Filler\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
