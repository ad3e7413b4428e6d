package main

import (
	"fmt"

	"github.com/aretw0/clarify/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph [session-id]",
	Short: "Export the workflow as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the clarification state machine.
With a session ID, the session's current phase is highlighted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var overlay *graph.Overlay
		if len(args) == 1 {
			app, err := loadApp(cmd, false)
			if err != nil {
				return err
			}
			defer app.Close()

			state, err := app.Service.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("error loading session '%s': %w", args[0], err)
			}
			overlay = graph.OverlayFor(state)
		}
		fmt.Print(graph.GenerateMermaid(overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
