package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/beautifulqr/qrgen/pkg/bus"
	"github.com/beautifulqr/qrgen/pkg/logger"
	"github.com/beautifulqr/qrgen/pkg/session"
	"github.com/beautifulqr/qrgen/pkg/web"
)

func serveCommand(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "config file (JSON or YAML)")
	port := fs.Int("port", 0, "override listen port")
	fs.Parse(args)

	cfg, encoder, cleanup := setup(*configPath)
	defer cleanup()
	if *port > 0 {
		cfg.Server.Port = *port
	}

	msgBus := bus.NewMessageBus()
	sessions := session.NewManager(encoder, msgBus)

	server, err := web.NewServer(cfg, sessions, encoder, msgBus)
	if err != nil {
		fmt.Printf("Error creating server: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := server.Start(ctx); err != nil {
		fmt.Printf("Error starting server: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✓ Studio running on http://%s\n", cfg.Addr())
	if cfg.Ads.Client == "" {
		fmt.Println("  Ads disabled (no AdSense client configured)")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	cancel()
	server.Stop()
	msgBus.Close()
	logger.InfoC("main", "Stopped")
}
