package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dealsuite/modtrack/internal/audit"
	"github.com/dealsuite/modtrack/internal/config"
	"github.com/dealsuite/modtrack/internal/controlplane"
	"github.com/dealsuite/modtrack/internal/notify"
	"github.com/dealsuite/modtrack/internal/store"
)

var (
	listenAddr string
	dbPath     string
	configPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Modtrack daemon",
	Long:  `Starts the Modtrack daemon which provides the HTTP API for deal module tracking.`,
	RunE:  runServe,
}

func init() {
	homeDir, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(homeDir, ".modtrack", "config.yaml")

	serveCmd.Flags().StringVar(&configPath, "config", defaultConfig, "Path to YAML config file")
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the API server (overrides config)")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("Starting Modtrack daemon...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	// Initialize store
	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	// Notification delivery is fire-and-forget; without a webhook the
	// messages go to the process log.
	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.NotifyURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.NotifyURL)
	}
	dispatcher := notify.NewDispatcher(notifier, cfg.NotifyQueue)
	dispatcher.Start()
	defer dispatcher.Stop()

	// Create service and server
	service := controlplane.NewService(s, audit.NewWriter(s), dispatcher, cfg.NotifyTo)
	server := controlplane.NewServer(service, s, cfg.Listen)

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Channel to receive server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			s.Close()
			return err
		}
	}

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down HTTP server...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	if err := s.Close(); err != nil {
		log.Printf("Store close error: %v", err)
	}

	log.Println("Modtrack daemon stopped")
	return nil
}
