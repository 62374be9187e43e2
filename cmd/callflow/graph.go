package main

import (
	"fmt"
	"os"

	"github.com/aretw0/callflow/internal/presentation/graph"
	"github.com/aretw0/callflow/internal/presentation/tui"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the pathway visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the pathway. Solid edges are the
transitions a call actually takes; dotted edges are ignored candidates.`,
	Run: func(cmd *cobra.Command, args []string) {
		withCalls, _ := cmd.Flags().GetBool("calls")
		callID, _ := cmd.Flags().GetString("call")
		render, _ := cmd.Flags().GetBool("render")

		app := openApp(cmd)
		defer app.Close()

		var overlay *graph.GraphOverlay
		if withCalls || callID != "" {
			overlay = &graph.GraphOverlay{Occupancy: map[string]int{}}
			ids, err := app.Sessions.List(cmd.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error listing calls: %v\n", err)
				os.Exit(1)
			}
			for _, id := range ids {
				node, err := app.Sessions.Lookup(cmd.Context(), id)
				if err != nil {
					continue
				}
				if withCalls {
					overlay.Occupancy[node]++
				}
				if id == callID {
					overlay.CurrentNode = node
				}
			}
		}

		if !render {
			fmt.Print(graph.GenerateMermaid(app.Graph, overlay))
			return
		}

		out, err := tui.NewRenderer()(graph.GenerateMarkdown(app.Graph, overlay))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering graph: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(out)
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().Bool("calls", false, "Annotate nodes with the number of calls at them")
	graphCmd.Flags().String("call", "", "Highlight the node a call is at")
	graphCmd.Flags().Bool("render", false, "Render a markdown summary in the terminal")
}
