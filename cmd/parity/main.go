package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/cli"
	"github.com/example/parity/internal/version"
	"github.com/example/parity/internal/wire"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "parity",
		Short:   "parity - behavioral-parity gate for ported implementations",
		Version: version.String(),
		Long: `parity runs a reference and a candidate implementation over a fixture
corpus, diffs their output, and passes only when every divergence has been
classified and explained.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cli.Bootstrap()
		},
	}
	cli.AddGlobalFlags(rootCmd)

	// Gate
	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ValidateCmd())
	rootCmd.AddCommand(cli.CorpusCmd())

	// Triage
	rootCmd.AddCommand(cli.DiffCmd())
	rootCmd.AddCommand(cli.ClassifyCmd())
	rootCmd.AddCommand(cli.ClassificationsCmd())
	rootCmd.AddCommand(cli.WorkaroundCmd())

	// History
	rootCmd.AddCommand(cli.RunsCmd())
	rootCmd.AddCommand(cli.LogCmd())

	err := rootCmd.Execute()
	wire.Close()
	if err != nil {
		if errors.Is(err, cli.ErrGateFailed) {
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
