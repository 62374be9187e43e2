package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and update the assistant configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the assistant configuration",
	Run: func(cmd *cobra.Command, args []string) {
		app := openApp(cmd)
		defer app.Close()
		printJSON(app.Config.Get())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set [json]",
	Short: "Merge a partial configuration into the stored one",
	Long: `Merges the given JSON object into the stored configuration. Keys present in the
object replace the stored values; absent keys are kept. Reads stdin when no
argument is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		var body []byte
		if len(args) == 1 {
			body = []byte(args[0])
		} else {
			var err error
			body, err = io.ReadAll(cmd.InOrStdin())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading stdin: %v\n", err)
				os.Exit(1)
			}
		}

		app := openApp(cmd)
		defer app.Close()

		cfg, err := app.Config.Update(cmd.Context(), body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error updating config: %v\n", err)
			app.Close()
			os.Exit(1)
		}
		printJSON(cfg)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configGetCmd, configSetCmd)
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
