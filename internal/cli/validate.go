package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/parity/internal/core/classify"
	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/wire"
)

// ErrGateFailed is returned when a run is sealed with a Fail verdict.
var ErrGateFailed = errors.New("parity gate failed")

// ValidateCmd returns the validate command
func ValidateCmd() *cobra.Command {
	var (
		reference       string
		candidate       string
		reportPath      string
		stderrPolicy    string
		timeout         time.Duration
		jobs            int
		switchThreshold int
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run reference and candidate over the corpus and gate the result",
		Long: `Run both implementations against every fixture/mode pair, diff their
output, replay recorded classifications and decide Pass or Fail.

Flags override .parity/config.json in the corpus. The stderr policy must be
set in one of the two places.

Exit code is 1 when the verdict is Fail.

Examples:
  parity validate --reference ./bin/ref --candidate ./bin/cand --stderr-policy strict
  parity validate --corpus testdata/corpus --jobs 4 --timeout 10s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalConfig
			flags := cmd.Flags()

			req := primary.ValidateRequest{
				ReferenceBinary: firstNonEmpty(reference, cfg.Reference),
				CandidateBinary: firstNonEmpty(candidate, cfg.Candidate),
				StderrPolicy:    diff.StderrPolicy(firstNonEmpty(stderrPolicy, cfg.StderrPolicy)),
				Jobs:            cfg.Jobs,
				SwitchThreshold: classify.DefaultSwitchThreshold,
			}
			if req.ReferenceBinary == "" || req.CandidateBinary == "" {
				return fmt.Errorf("--reference and --candidate are required (or set them in %s)",
					filepath.Join(wire.CorpusRoot(), ".parity", "config.json"))
			}

			if flags.Changed("timeout") {
				req.Timeout = timeout
			} else {
				d, err := cfg.TimeoutDuration()
				if err != nil {
					return err
				}
				req.Timeout = d
			}
			if flags.Changed("jobs") {
				req.Jobs = jobs
			}
			if flags.Changed("switch-threshold") {
				req.SwitchThreshold = switchThreshold
			} else if cfg.SwitchThreshold != nil {
				req.SwitchThreshold = *cfg.SwitchThreshold
			}
			if reportPath != "" {
				abs, err := filepath.Abs(reportPath)
				if err != nil {
					return fmt.Errorf("failed to resolve report path: %w", err)
				}
				req.ReportPath = abs
			} else {
				req.ReportPath = cfg.ResolveReportPath(wire.CorpusRoot())
			}

			ctx, stop := signal.NotifyContext(NewContext(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			vr, err := wire.ValidationService().Validate(ctx, req)
			if err != nil {
				return err
			}

			wire.ReportAdapter().Verdict(vr)
			fmt.Printf("Report written to %s\n", req.ReportPath)

			if !vr.Verdict.Passed() {
				return fmt.Errorf("%w: %d reason(s)", ErrGateFailed, len(vr.Verdict.Reasons))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&reference, "reference", "", "Reference implementation binary")
	cmd.Flags().StringVar(&candidate, "candidate", "", "Candidate implementation binary")
	cmd.Flags().StringVar(&reportPath, "report", "", "JSON report path (default <corpus>/.parity/report.json)")
	cmd.Flags().StringVar(&stderrPolicy, "stderr-policy", "", "Stderr comparison: strict, presence or ignore")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Per-invocation timeout")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "Parallel invocations (0 = one per CPU)")
	cmd.Flags().IntVar(&switchThreshold, "switch-threshold", classify.DefaultSwitchThreshold,
		"Library-difference diffs per dependency before a switch is recommended")

	return cmd
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
