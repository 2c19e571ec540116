package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/parity/internal/wire"
)

// DiffCmd returns the diff command
func DiffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Inspect the diffs of a validation run",
	}

	cmd.AddCommand(diffListCmd())
	cmd.AddCommand(diffShowCmd())

	return cmd
}

func diffListCmd() *cobra.Command {
	var runID string
	var unclassified bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List diffs of the latest (or given) run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ReportAdapter().ListDiffs(NewContext(), runID, unclassified)
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest)")
	cmd.Flags().BoolVarP(&unclassified, "unclassified", "u", false, "Only show diffs still awaiting classification")

	return cmd
}

func diffShowCmd() *cobra.Command {
	var runID string

	cmd := &cobra.Command{
		Use:   "show [fixture] [mode]",
		Short: "Show where one diff diverges",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.ReportAdapter().ShowDiff(NewContext(), runID, args[0], args[1])
			return err
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest)")

	return cmd
}
