package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/callflow/pkg/domain"
	"github.com/spf13/cobra"
)

var callsCmd = &cobra.Command{
	Use:   "calls",
	Short: "Manage stored call states",
	Long:  `List, inspect, move and reset the node each call is at.`,
}

var callsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all known calls",
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		ids, err := app.Sessions.List(cmd.Context())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error listing calls: %v\n", err)
			app.Close()
			os.Exit(1)
		}
		if len(ids) == 0 {
			fmt.Println("No calls found.")
			return
		}
		for _, id := range ids {
			node, err := app.Sessions.Lookup(cmd.Context(), id)
			if err != nil {
				node = "?"
			}
			fmt.Printf("- %s\t%s\n", id, node)
		}
	},
}

var callsGetCmd = &cobra.Command{
	Use:   "get <call-id>",
	Short: "Print the node a call is at",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		node, err := app.Sessions.Lookup(cmd.Context(), args[0])
		if errors.Is(err, domain.ErrCallNotFound) {
			fmt.Printf("Call '%s' is unknown; its first turn starts at '%s'\n", args[0], app.Graph.Start())
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading call '%s': %v\n", args[0], err)
			app.Close()
			os.Exit(1)
		}
		fmt.Println(node)
	},
}

var callsSetCmd = &cobra.Command{
	Use:   "set <call-id> <node>",
	Short: "Move a call to a node",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")

		app := openApp(cmd)
		defer app.Close()

		if !force && !app.Graph.Has(args[1]) {
			fmt.Fprintf(os.Stderr, "Node '%s' is not part of the pathway (use --force to set it anyway)\n", args[1])
			app.Close()
			os.Exit(1)
		}
		if err := app.Sessions.SetNode(cmd.Context(), args[0], args[1]); err != nil {
			fmt.Fprintf(os.Stderr, "Error updating call '%s': %v\n", args[0], err)
			app.Close()
			os.Exit(1)
		}
		fmt.Printf("Call '%s' is at '%s'\n", args[0], args[1])
	},
}

var callsResetCmd = &cobra.Command{
	Use:   "reset <call-id>...",
	Short: "Forget one or more calls",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()

		hasError := false
		for _, id := range args {
			if err := app.Sessions.Reset(cmd.Context(), id); err != nil {
				fmt.Fprintf(os.Stderr, "Error resetting '%s': %v\n", id, err)
				hasError = true
			} else {
				fmt.Printf("Reset call '%s'\n", id)
			}
		}
		if hasError {
			app.Close()
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(callsCmd)
	callsCmd.AddCommand(callsLsCmd, callsGetCmd, callsSetCmd, callsResetCmd)
	callsSetCmd.Flags().Bool("force", false, "Skip the pathway membership check")
}
