package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/adapters/filesystem"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/wire"
)

// WorkaroundCmd returns the workaround command
func WorkaroundCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workaround",
		Short: "Manage the workaround registry",
		Long: `Register and maintain the documented, justified decisions that accepted
diffs cite. Records outlive runs.`,
	}

	cmd.AddCommand(workaroundAddCmd())
	cmd.AddCommand(workaroundListCmd())
	cmd.AddCommand(workaroundShowCmd())
	cmd.AddCommand(workaroundUpdateCmd())
	cmd.AddCommand(workaroundDeleteCmd())
	cmd.AddCommand(workaroundExportCmd())
	cmd.AddCommand(workaroundImportCmd())

	return cmd
}

func workaroundAddCmd() *cobra.Command {
	var req primary.RegisterWorkaroundRequest

	cmd := &cobra.Command{
		Use:   "add [description]",
		Short: "Register a workaround",
		Long: `Register a workaround record.

Categories: pre-processing, post-processing, accept-and-document,
vendor-or-fork, switch-implementation.
Impact: cosmetic, functional, critical.
Decision (upstream bugs): replicate-for-parity, diverge-intentionally.

Examples:
  parity workaround add "smart quotes differ" --category post-processing --impact cosmetic \
    --justification "normalized by output filter" --dependency typography
  parity workaround add "moved to new highlighter" --category switch-implementation \
    --impact functional --justification "old lib unmaintained" --scope code-blocks`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Description = args[0]
			_, err := wire.WorkaroundAdapter().Register(NewContext(), req)
			return err
		},
	}

	cmd.Flags().StringVar(&req.Category, "category", "", "Workaround category (required)")
	cmd.Flags().StringVar(&req.Impact, "impact", "", "Impact level (required)")
	cmd.Flags().StringVar(&req.Justification, "justification", "", "Why this is acceptable (required)")
	cmd.Flags().StringVar(&req.Dependency, "dependency", "", "Library or component the divergence traces to")
	cmd.Flags().StringVar(&req.Decision, "decision", "", "Upstream bug decision")
	cmd.Flags().StringSliceVar(&req.Scope, "scope", nil, "Fixtures (or fixture@mode) this record covers")
	cmd.MarkFlagRequired("category")
	cmd.MarkFlagRequired("impact")
	cmd.MarkFlagRequired("justification")

	return cmd
}

func workaroundListCmd() *cobra.Command {
	var filters primary.WorkaroundFilters

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List workarounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.WorkaroundAdapter().List(NewContext(), filters)
			return err
		},
	}

	cmd.Flags().StringVar(&filters.Category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&filters.Dependency, "dependency", "", "Filter by dependency")

	return cmd
}

func workaroundShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [workaround-id]",
		Short: "Show workaround details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.WorkaroundAdapter().Show(NewContext(), args[0])
			return err
		},
	}
}

func workaroundUpdateCmd() *cobra.Command {
	var justification, dependency, decision string
	var scope []string
	var replaceScope bool

	cmd := &cobra.Command{
		Use:   "update [workaround-id]",
		Short: "Update a workaround",
		Long: `Update justification, dependency, decision or scope.
Scope entries are appended unless --replace-scope is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := primary.UpdateWorkaroundRequest{
				ID:           args[0],
				Scope:        scope,
				ReplaceScope: replaceScope,
			}
			if cmd.Flags().Changed("justification") {
				req.Justification = &justification
			}
			if cmd.Flags().Changed("dependency") {
				req.Dependency = &dependency
			}
			if cmd.Flags().Changed("decision") {
				req.Decision = &decision
			}
			_, err := wire.WorkaroundAdapter().Update(NewContext(), req)
			return err
		},
	}

	cmd.Flags().StringVar(&justification, "justification", "", "New justification")
	cmd.Flags().StringVar(&dependency, "dependency", "", "New dependency")
	cmd.Flags().StringVar(&decision, "decision", "", "New decision")
	cmd.Flags().StringSliceVar(&scope, "scope", nil, "Scope entries to add")
	cmd.Flags().BoolVar(&replaceScope, "replace-scope", false, "Replace the scope instead of appending")

	return cmd
}

func workaroundDeleteCmd() *cobra.Command {
	var prune bool

	cmd := &cobra.Command{
		Use:   "delete [workaround-id]",
		Short: "Delete a workaround no classification cites",
		Long: `Delete a workaround record.

A workaround cited by recorded classifications is kept unless
--prune-classifications is given. Pruning deletes those classifications in
the same transaction, and is refused while the latest run still has
classified diffs that cite the workaround.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.WorkaroundAdapter().Delete(NewContext(), primary.DeleteWorkaroundRequest{
				ID:                   args[0],
				PruneClassifications: prune,
			})
			return err
		},
	}

	cmd.Flags().BoolVar(&prune, "prune-classifications", false, "Also delete the classifications that cite it")

	return cmd
}

func workaroundExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export the registry to YAML (default <corpus>/workarounds.yaml)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.WorkaroundAdapter().Export(NewContext(), workaroundPath(args))
			return err
		},
	}
}

func workaroundImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import the registry from YAML (default <corpus>/workarounds.yaml)",
		Long: `Import workaround records. Every record is validated before any is
written; existing IDs are updated, new IDs are created as given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := wire.WorkaroundAdapter().Import(NewContext(), workaroundPath(args))
			return err
		},
	}
}

func workaroundPath(args []string) string {
	if len(args) > 0 {
		if abs, err := filepath.Abs(args[0]); err == nil {
			return abs
		}
		return args[0]
	}
	return filepath.Join(wire.CorpusRoot(), filesystem.WorkaroundsFile)
}

