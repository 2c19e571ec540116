package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/core/classify"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/wire"
)

// ClassifyCmd returns the classify command
func ClassifyCmd() *cobra.Command {
	var category, workaroundID, runID string

	cmd := &cobra.Command{
		Use:   "classify [fixture] [mode]",
		Short: "Record a classification for a diff",
		Long: `Classify one diff of the latest (or given) run.

Categories: porting-bug, library-difference, upstream-bug, intentional-improvement.
Every category except porting-bug must cite a workaround record.

The sealed run is never changed. The decision is stored against the exact
divergence and applied by every later run that reproduces it.

Examples:
  parity classify footnotes default --category library-difference --workaround WA-001
  parity classify list-spacing default --category porting-bug`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.ClassificationService().Classify(NewContext(), primary.ClassifyRequest{
				RunID:        runID,
				Fixture:      args[0],
				Mode:         args[1],
				Category:     category,
				WorkaroundID: workaroundID,
			})
			if err != nil {
				var ce *classify.Error
				if errors.As(err, &ce) {
					return fmt.Errorf("%w\nHint: see 'parity workaround list' for records this diff may cite", err)
				}
				return err
			}

			label := category
			if workaroundID != "" {
				label = fmt.Sprintf("%s (%s)", category, workaroundID)
			}
			if resp.Unchanged {
				fmt.Printf("✓ %s@%s is already classified as %s\n", args[0], args[1], label)
				return nil
			}
			fmt.Printf("✓ Classified %s@%s as %s\n", args[0], args[1], label)
			fmt.Printf("  Run:         %s\n", resp.RunID)
			fmt.Printf("  Fingerprint: %s\n", resp.Fingerprint)
			fmt.Println("  Takes effect on the next 'parity validate'.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "Classification category (required)")
	cmd.Flags().StringVarP(&workaroundID, "workaround", "w", "", "Workaround record ID")
	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest)")
	cmd.MarkFlagRequired("category")

	return cmd
}

// ClassificationsCmd returns the classifications command
func ClassificationsCmd() *cobra.Command {
	var filters primary.ClassificationFilters

	cmd := &cobra.Command{
		Use:   "classifications",
		Short: "List recorded classifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := wire.ClassificationService().ListClassifications(NewContext(), filters)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Println("No classifications recorded.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "PAIR\tCATEGORY\tWORKAROUND\tBY\tFINGERPRINT\tCREATED")
			fmt.Fprintln(w, "----\t--------\t----------\t--\t-----------\t-------")
			for _, c := range records {
				wa := c.WorkaroundID
				if wa == "" {
					wa = "-"
				}
				fp := c.Fingerprint
				if len(fp) > 12 {
					fp = fp[:12]
				}
				fmt.Fprintf(w, "%s@%s\t%s\t%s\t%s\t%s\t%s\n",
					c.Fixture, c.Mode, c.Category, wa, c.ClassifiedBy, fp, formatTimestamp(c.CreatedAt))
			}
			w.Flush()
			return nil
		},
	}

	cmd.Flags().StringVar(&filters.Fixture, "fixture", "", "Filter by fixture")
	cmd.Flags().StringVar(&filters.Category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&filters.WorkaroundID, "workaround", "", "Filter by workaround ID")

	cmd.AddCommand(classificationsRevokeCmd())

	return cmd
}

func classificationsRevokeCmd() *cobra.Command {
	var runID, fingerprint string

	cmd := &cobra.Command{
		Use:   "revoke [fixture] [mode]",
		Short: "Withdraw a recorded classification",
		Long: `Withdraw the decision recorded for one divergence.

Without --fingerprint the divergence is taken from the diff of the latest
(or given) run. Use --fingerprint with a prefix from 'parity classifications'
for a divergence that no longer occurs.

Sealed runs keep their verdicts. The next 'parity validate' treats the
divergence as unclassified again.

Examples:
  parity classifications revoke footnotes default
  parity classifications revoke footnotes default --fingerprint 3fa9c01b`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := wire.ClassificationService().Revoke(NewContext(), primary.RevokeRequest{
				RunID:       runID,
				Fixture:     args[0],
				Mode:        args[1],
				Fingerprint: fingerprint,
			})
			if err != nil {
				return err
			}

			label := resp.Category
			if resp.WorkaroundID != "" {
				label = fmt.Sprintf("%s (%s)", resp.Category, resp.WorkaroundID)
			}
			fmt.Printf("✓ Revoked %s classification for %s@%s\n", label, args[0], args[1])
			fmt.Printf("  Fingerprint: %s\n", resp.Fingerprint)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID (default: latest)")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "Fingerprint or unique prefix")

	return cmd
}
