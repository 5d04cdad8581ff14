package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwbudde/mandelcore/internal/cache"
	"github.com/cwbudde/mandelcore/internal/policy"
	"github.com/cwbudde/mandelcore/internal/render"
	"github.com/cwbudde/mandelcore/internal/render/server"
	"github.com/spf13/cobra"
)

var (
	serveAddr    string
	servePort    int
	serveCacheMB int64
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server for background render jobs",
	Long: `Starts an HTTP server that accepts render jobs via REST API.
Jobs run in the background; progress can be monitored over SSE or polled
via the job status endpoint.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Server bind address")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Server port")
	serveCmd.Flags().Int64Var(&serveCacheMB, "cache-mb", 512, "Orbit/BLA table cache budget in megabytes")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := fmt.Sprintf("%s:%d", serveAddr, servePort)

	cacheBytes := serveCacheMB * 1024 * 1024
	orbits := cache.NewOrbitCache(cacheBytes)
	tables := cache.NewTableCache(cacheBytes)
	driver := render.NewDriver(orbits, tables, policy.Default())

	srv := server.NewServer(addr, driver)

	slog.Info("starting mandelcore server", "addr", addr)
	fmt.Printf("Server listening on http://%s\n", addr)
	fmt.Println("API endpoints:")
	fmt.Println("  POST   /api/v1/jobs               - Create new render job")
	fmt.Println("  GET    /api/v1/jobs                - List all jobs")
	fmt.Println("  GET    /api/v1/jobs/:id            - Get job status")
	fmt.Println("  GET    /api/v1/jobs/:id/stream     - SSE progress stream")
	fmt.Println("  POST   /api/v1/jobs/:id/cancel     - Cancel a running job")
	fmt.Println("  GET    /api/v1/jobs/:id/preview.png - Grayscale preview image")
	fmt.Println("\nPress Ctrl+C to shut down")

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig)
		fmt.Println("\nShutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		fmt.Println("Server stopped gracefully")
	}

	return nil
}
