package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/knoguchi/recommender/internal/metrics"
	"github.com/knoguchi/recommender/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the recommendation API server",
	Long:  "Start an HTTP server exposing POST /recommend, health probes and Prometheus metrics.",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (default: HTTP_PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	port := cfg.HTTPPort
	if servePort > 0 {
		port = servePort
	}

	slog.Info("starting recommendation service",
		"http_port", port,
		"environment", cfg.Environment,
		"vector_store", cfg.VectorStore,
		"embedder", cfg.Embedder,
		"llm_provider", cfg.LLMProvider,
	)

	deps, err := buildComponents(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer deps.Close()

	m := metrics.New(prometheus.DefaultRegisterer)
	recommendSvc := newRecommendService(cfg, deps, m)

	httpServer, err := server.NewHTTPServer(server.HTTPServerConfig{
		Port:           port,
		Logger:         slog.Default(),
		AllowedOrigins: cfg.AllowedOrigins,
		Recommender:    recommendSvc,
		Ready:          indexReady(deps.index),
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.Start(); err != nil {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		slog.Info("received shutdown signal", "signal", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown HTTP server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
