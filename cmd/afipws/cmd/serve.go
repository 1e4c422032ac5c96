package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/rezonia/afipws/internal/metrics"
	"github.com/rezonia/afipws/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var (
	metricsOnce     sync.Once
	metricsRegistry *prometheus.Registry
	processMetrics  *metrics.Metrics
)

// appMetrics returns the process metrics, registered once
func appMetrics() *metrics.Metrics {
	metricsOnce.Do(func() {
		metricsRegistry = prometheus.NewRegistry()
		metricsRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		processMetrics = metrics.New(metricsRegistry)
	})
	return processMetrics
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server exposing service status, the local taxpayer
registry and ticket metadata.

The API provides endpoints for:
  - GET /api/v1/status            - List checkable services
  - GET /api/v1/status/:service   - Dummy call of an AFIP service
  - GET /api/v1/padron/:cuit      - Taxpayer from the local registry
  - GET /api/v1/padron?q=name     - Search the local registry by name
  - GET /api/v1/tickets/:service  - Access ticket metadata
  - GET /metrics                  - Prometheus metrics
  - GET /health                   - Health check

Examples:
  # Start server on default port
  afipws serve

  # Start in debug mode
  afipws serve --address :9090 --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", "", "Server listen address (default from configuration)")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	client, err := loadClient()
	if err != nil {
		return err
	}
	defer client.Close()

	cfg := client.Config()
	if serverAddr == "" {
		serverAddr = cfg.Server.Address
	}
	config := &server.Config{
		Address:        serverAddr,
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,
		RequestTimeout: cfg.Timeout,
		Debug:          serverDebug || cfg.Server.Debug,
	}

	appMetrics()
	opts := []server.Option{
		server.WithLogger(client.Logger()),
		server.WithGatherer(metricsRegistry),
	}

	ctx := context.Background()
	if cfg.HasCredential() {
		registry, err := client.Registry(ctx)
		if err != nil {
			return err
		}
		tickets, err := client.Tickets(ctx)
		if err != nil {
			return err
		}
		opts = append(opts, server.WithRegistry(registry), server.WithTickets(tickets))
		fmt.Println("AFIP services enabled")
	} else {
		fmt.Println("AFIP services disabled (no certificate configured)")
	}

	if _, err := os.Stat(cfg.Padron.DBPath); err == nil {
		store, err := client.Padron()
		if err != nil {
			return err
		}
		opts = append(opts, server.WithPadron(store))
		printVerbose("Padron database: %s\n", cfg.Padron.DBPath)
	}

	srv := server.NewServer(config, opts...)

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		client.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	return srv.Run()
}
