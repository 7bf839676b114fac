package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dusk-indust/memoforge/internal/mcptools"
	"github.com/dusk-indust/memoforge/internal/orchestrator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveHTTPAddr    string
	serveMetricsAddr string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	serveCmd.Flags().StringVar(&serveMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on a separate address")
}

// serveCmd runs the MCP server.
var serveCmd = &cobra.Command{
	Use:   "serve-mcp",
	Short: "Run as an MCP server",
	Long: `Expose generate_document, generate_section, regenerate_paragraph,
validate_document and list_document_types as MCP tools.

The server speaks stdio by default, so logs always go to stderr. With --http
it serves streamable HTTP at /mcp and, unless --metrics-addr is set,
Prometheus metrics at /metrics.

Examples:
  # stdio, for an MCP client configuration
  memoforge serve-mcp

  # HTTP with metrics
  memoforge serve-mcp --http :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := orchestrator.NewMetrics(reg)
	if err != nil {
		return err
	}
	metricsHandler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})

	svc, err := a.service(metrics.Observe)
	if err != nil {
		return err
	}
	defer svc.Close()
	go drainProgress(svc.Progress())

	server := mcptools.NewMemoMCPServer(mcptools.NewMemoService(svc, a.logger))
	ctx := cmd.Context()

	if serveMetricsAddr != "" {
		go serveMetrics(ctx, a.logger, serveMetricsAddr, metricsHandler)
	}

	if serveHTTPAddr != "" {
		a.logger.Info("serving MCP over HTTP", zap.String("addr", serveHTTPAddr))
		var shared http.Handler
		if serveMetricsAddr == "" {
			shared = metricsHandler
		}
		return mcptools.RunHTTP(ctx, server, serveHTTPAddr, shared)
	}

	a.logger.Info("serving MCP over stdio", zap.Strings("types", svc.Types()))
	return mcptools.RunStdio(ctx, server)
}

// drainProgress discards events nobody reads so the shared channel never
// holds stale entries. Metrics observe events through the callback.
func drainProgress(ch <-chan orchestrator.ProgressEvent) {
	for range ch {
	}
}

func serveMetrics(ctx context.Context, logger *zap.Logger, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server stopped", zap.Error(err))
	}
}
