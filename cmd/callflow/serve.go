package main

import (
	"fmt"
	"os"

	"github.com/aretw0/callflow/internal/cli"
	"github.com/aretw0/callflow/pkg/observability"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the chat-completions endpoint together with the config, pathway and
call inspection routes. Metrics are exposed on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		app, err := cli.BuildApp(ctx, settings, logger, observability.NewMetrics())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing callflow: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		if err := cli.Serve(ctx, app, settings, logger); err != nil {
			logger.Error("Server failed", "err", err)
			app.Close()
			os.Exit(1)
		}
		if sig := ctx.Signal(); sig != nil {
			logger.Debug("Stopped by signal", "signal", sig)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
