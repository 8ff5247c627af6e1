package main

import (
	"fmt"
	"os"
	"time"

	"github.com/beautifulqr/qrgen/pkg/cache"
	"github.com/beautifulqr/qrgen/pkg/config"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/qrcode"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "serve":
		serveCommand(args)
	case "render":
		renderCommand(args)
	case "shell":
		shellCommand(args)
	case "version", "--version", "-v":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("qrgen - QR code studio")
	fmt.Println()
	fmt.Println("Usage: qrgen <command> [options]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve     Run the web studio")
	fmt.Println("  render    Write PNG/SVG files for a payload")
	fmt.Println("  shell     Interactive studio in the terminal")
	fmt.Println("  version   Show version information")
	fmt.Println()
	fmt.Println("Run 'qrgen <command> -h' for command options.")
}

func printVersion() {
	fmt.Printf("qrgen %s\n", version)
	if buildTime != "" {
		fmt.Printf("  Build: %s\n", buildTime)
	}
}

// getConfigPath resolves the config file from the flag value, then
// QRGEN_CONFIG. Empty means the default location.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("QRGEN_CONFIG")
}

// setup loads config, initializes logging and builds the shared encoder.
// The returned cleanup releases the render cache.
func setup(configPath string) (*config.Config, qrcode.Encoder, func()) {
	cfg, err := config.LoadConfig(getConfigPath(configPath))
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		fmt.Printf("Error initializing logger: %v\n", err)
		os.Exit(1)
	}

	backend, err := qrcode.NewBackend(cfg.Render.Backend)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	renderCache, err := cache.New(cfg.Cache)
	if err != nil {
		// A broken cache only costs speed.
		logger.WarnCF("main", "Render cache disabled", map[string]interface{}{
			"type":  cfg.Cache.Type,
			"error": err.Error(),
		})
		renderCache = nil
	}

	var qc qrcode.Cache
	if renderCache != nil {
		qc = renderCache
	}
	encoder := qrcode.NewCachedEncoder(qrcode.NewRenderer(backend), qc, backend.Name(), cfg.Cache.TTL)

	cleanup := func() {
		if renderCache != nil {
			renderCache.Close()
		}
		logger.Sync()
	}
	return cfg, encoder, cleanup
}

const awaitTimeout = 30 * time.Second
