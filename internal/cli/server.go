package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/aretw0/callflow"
	"github.com/aretw0/callflow/internal/presentation/tui"
	httpAdapter "github.com/aretw0/callflow/pkg/adapters/http"
)

// ShutdownTimeout is how long in-flight requests get to finish on shutdown.
const ShutdownTimeout = 5 * time.Second

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, app *callflow.App, s Settings, logger *slog.Logger) error {
	handler := httpAdapter.NewHandler(app.Dispatcher, app.Config, app.Sessions,
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetrics(app.Metrics),
		httpAdapter.WithVersion(callflow.Version),
	)

	srv := &http.Server{
		Addr:              s.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if tui.IsTerminal(os.Stderr) {
		tui.PrintBanner(os.Stderr, callflow.Version)
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting callflow server",
			"address", srv.Addr,
			"backend", s.Backend,
			"nodes", app.Graph.Len(),
			"entry", app.Graph.Start(),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		logger.Info("Start shutdown")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		logger.Info("callflow server stopped gracefully")
		return nil
	}
}
