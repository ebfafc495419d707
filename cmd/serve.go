// =============================================================================
// Ward Census Aggregator - Serve Command
// =============================================================================
//
// This file defines the 'serve' command, which runs the HTTP API until it
// receives SIGINT or SIGTERM and then drains in-flight requests.
//
// COMMAND USAGE:
//   aggregator serve [--listen :8080]
//
// ENVIRONMENT:
//   API_TOKEN    Bearer token callers must present (required)
//   LISTEN_ADDR  Overrides listen_addr from the config file
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/ward-census-aggregator/internal/httpapi"
)

// shutdownTimeout bounds the drain of in-flight requests.
const shutdownTimeout = 15 * time.Second

// listenAddr overrides the configured listen address.
var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  GET  /           Liveness message
  GET  /healthz    Health check
  PUT  /aggregate  Aggregate an uploaded spreadsheet (POST is also accepted)

Aggregate requests need "Authorization: Bearer <API_TOKEN>". The spreadsheet
is sent as {"file": "<base64>"}, as a multipart "file" field, or as a raw
base64 body. Unknown report layouts are grouped by the columns listed in the
X-Group-By header.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(
		&listenAddr,
		"listen",
		"",
		"Address to listen on (overrides listen_addr)",
	)
}

func runServe(ctx context.Context) error {
	if err := appConfig.RequireAPIToken(); err != nil {
		return err
	}

	pipeline, err := newPipeline(appConfig, logger)
	if err != nil {
		return err
	}

	addr := appConfig.ListenAddr
	if listenAddr != "" {
		addr = listenAddr
	}

	server := &http.Server{
		Addr: addr,
		Handler: httpapi.NewServer(httpapi.Config{
			APIToken:       appConfig.APIToken,
			MaxUploadBytes: appConfig.MaxUploadBytes,
		}, pipeline, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(appConfig.ReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(appConfig.WriteTimeoutSeconds) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http api listening", zap.String("addr", addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down http api")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
