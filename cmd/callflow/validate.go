package main

import (
	"fmt"
	"os"

	"github.com/aretw0/callflow/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the pathway for consistency",
	Long: `Walks the pathway from its entry node along first destinations and reports
dangling destinations and nodes no call can reach.`,
	Run: func(cmd *cobra.Command, args []string) {
		strict, _ := cmd.Flags().GetBool("strict")

		app := openApp(cmd)
		defer app.Close()

		report, err := validator.ValidateGraph(app.Graph)
		if err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			app.Close()
			os.Exit(1)
		}

		fmt.Printf("Entry: %s\n", report.Entry)
		fmt.Printf("Walk:  %v\n", report.Walk)
		if err := report.Err(); err != nil {
			fmt.Println(err)
			if strict {
				app.Close()
				os.Exit(1)
			}
			return
		}
		fmt.Println("Pathway is valid!")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().Bool("strict", false, "Exit non-zero on warnings")
}
