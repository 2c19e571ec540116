package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/config"
	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/db"
	"github.com/example/parity/internal/wire"
)

// InitCmd returns the init command
func InitCmd() *cobra.Command {
	var cfg config.Config
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize parity state in the corpus",
		Long: `Create <corpus>/.parity with the state database and a config.json
holding defaults for 'parity validate'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root := wire.CorpusRoot()

			if cfg.StderrPolicy != "" {
				if _, err := diff.ParseStderrPolicy(cfg.StderrPolicy); err != nil {
					return err
				}
			}
			if _, err := cfg.TimeoutDuration(); err != nil {
				return err
			}

			dbPath := db.Path(root)
			fmt.Printf("Initializing parity database at %s\n", dbPath)
			conn, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			conn.Close()
			fmt.Println("✓ Database initialized successfully")

			configPath := filepath.Join(root, config.StateDir, "config.json")
			if _, err := os.Stat(configPath); err == nil && !force {
				fmt.Printf("✓ Config already exists at %s (use --force to overwrite)\n", configPath)
			} else {
				cfg.Version = config.FormatVersion
				if err := config.SaveConfig(root, &cfg); err != nil {
					return err
				}
				fmt.Printf("✓ Config written to %s\n", configPath)
			}

			fmt.Println()
			fmt.Println("Next steps:")
			fmt.Println("  parity corpus check")
			fmt.Println("  parity validate --reference ./bin/ref --candidate ./bin/cand")

			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Reference, "reference", "", "Default reference binary")
	cmd.Flags().StringVar(&cfg.Candidate, "candidate", "", "Default candidate binary")
	cmd.Flags().StringVar(&cfg.StderrPolicy, "stderr-policy", "", "Default stderr policy: strict, presence or ignore")
	cmd.Flags().StringVar(&cfg.Timeout, "timeout", "", "Default per-invocation timeout (e.g. 30s)")
	cmd.Flags().IntVarP(&cfg.Jobs, "jobs", "j", 0, "Default parallel invocations (0 = one per CPU)")
	cmd.Flags().StringVar(&cfg.ReportPath, "report", "", "Default report path, relative to the corpus")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config.json")

	return cmd
}
