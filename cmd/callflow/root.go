package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/callflow"
	"github.com/aretw0/callflow/internal/cli"
	"github.com/spf13/cobra"
)

var (
	settings   cli.Settings
	flagged    cli.Settings
	configPath string
	logger     *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "callflow",
	Short: "Callflow routes voice-agent turns through a conversation pathway",
	Long: `Callflow is an OpenAI-compatible chat-completions endpoint for voice agents.
Every turn advances the call along a pathway of nodes, and the node's instruction
is sent to an LLM provider as the system prompt.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		required := cmd.Flags().Changed("config")
		s, err := cli.LoadSettings(configPath, required)
		if err != nil {
			return err
		}
		settings = cli.ApplyFlags(cmd.Flags(), s, flagged)
		if err := settings.Validate(); err != nil {
			return err
		}
		if err := cli.LoadEnv(settings.EnvFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
		logger = cli.NewLogger(settings.Log)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = callflow.Version
	rootCmd.PersistentFlags().StringVar(&configPath, "config", cli.DefaultSettingsFile, "Settings file (YAML)")
	cli.BindFlags(rootCmd.PersistentFlags(), &flagged)
}

// openApp builds the App for one command invocation.
func openApp(cmd *cobra.Command) *callflow.App {
	app, err := cli.BuildApp(cmd.Context(), settings, logger, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing callflow: %v\n", err)
		os.Exit(1)
	}
	return app
}
