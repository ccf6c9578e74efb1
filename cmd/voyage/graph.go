package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the agent loop visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the loop. With --thread, the session's progress is highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		thread, _ := cmd.Flags().GetString("thread")
		chart, err := app.Agent.Graph(cmd.Context(), thread)
		if err != nil {
			return fmt.Errorf("error rendering graph: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), chart)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("thread", "t", "", "Highlight the progress of a session")
}
