package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/parity/internal/wire"
)

// RunsCmd returns the runs command
func RunsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse validation run history",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List sealed runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ReportAdapter().ListRuns(NewContext(), limit)
			return err
		},
	}
	listCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show")

	showCmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the report of a run (default: latest)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID := ""
			if len(args) > 0 {
				runID = args[0]
			}
			_, err := wire.ReportAdapter().ShowRun(NewContext(), runID)
			return err
		},
	}

	cmd.AddCommand(listCmd)
	cmd.AddCommand(showCmd)

	return cmd
}
