package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/parity/internal/wire"
)

// CorpusCmd returns the corpus command
func CorpusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Inspect the fixture corpus",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the corpus without running anything",
		Long: `Load corpus.yaml, confirm every fixture has an input and one expected
output per mode, and report every problem found at once.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return wire.ReportAdapter().CheckCorpus(NewContext())
		},
	})

	return cmd
}
