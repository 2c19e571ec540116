package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/ports/primary"
)

// ReportAdapter renders validation runs for humans. It depends only on the
// ValidationService interface, enabling easy testing with mocks.
type ReportAdapter struct {
	service primary.ValidationService
	out     io.Writer
}

// NewReportAdapter creates a new ReportAdapter with the given service.
func NewReportAdapter(service primary.ValidationService, out io.Writer) *ReportAdapter {
	return &ReportAdapter{
		service: service,
		out:     out,
	}
}

var (
	passColor  = color.New(color.FgGreen, color.Bold)
	failColor  = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow)
	mutedColor = color.New(color.FgHiBlack)
)

// CheckCorpus validates the corpus and prints what was found.
func (a *ReportAdapter) CheckCorpus(ctx context.Context) error {
	corpus, err := a.service.CheckCorpus(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s Corpus %s is valid\n", passColor.Sprint("✓"), corpus.Root)
	fmt.Fprintf(a.out, "  Fixtures:   %d\n", len(corpus.Fixtures))
	fmt.Fprintf(a.out, "  Pairs:      %d\n", corpus.Pairs())
	fmt.Fprintf(a.out, "  Provenance: %s\n", corpus.Provenance)
	return nil
}

// Verdict prints the full human-readable report of a sealed run.
func (a *ReportAdapter) Verdict(vr *run.ValidationRun) {
	counts := vr.Counts()

	fmt.Fprintf(a.out, "\nRun:        %s\n", vr.ID)
	fmt.Fprintf(a.out, "Corpus:     %s\n", vr.CorpusRoot)
	fmt.Fprintf(a.out, "Provenance: %s\n", vr.Provenance)
	fmt.Fprintf(a.out, "Stderr:     %s\n", vr.StderrPolicy)
	fmt.Fprintf(a.out, "Pairs:      %d (%d matched, %d diffed, %d errored)\n",
		counts.Pairs, counts.Matched, counts.Diffed, counts.Errored)

	if len(vr.Results) > 0 {
		fmt.Fprintf(a.out, "\nResults (%d):\n", len(vr.Results))
		a.resultTable(vr.Results)
	}

	if len(vr.Diffs) > 0 {
		fmt.Fprintf(a.out, "\nDiffs (%d accepted, %d porting bugs, %d unclassified):\n",
			counts.Accepted, counts.PortingBugs, counts.Unclassified)
		a.diffTable(vr.Diffs)
	}

	if len(vr.Errors) > 0 {
		fmt.Fprintln(a.out, "\nRun errors:")
		for _, e := range vr.Errors {
			fmt.Fprintf(a.out, "  %s %s: %s\n", failColor.Sprint("✗"), e.Key, e.Kind)
			if e.Message != "" {
				fmt.Fprintf(a.out, "      %s\n", mutedColor.Sprint(e.Message))
			}
		}
	}

	if len(vr.Advisories) > 0 {
		fmt.Fprintln(a.out, "\nAdvisories:")
		for _, adv := range vr.Advisories {
			fmt.Fprintf(a.out, "  %s [%s] %s\n", warnColor.Sprint("!"), adv.Kind, adv.Message)
			if len(adv.Fixtures) > 0 {
				fmt.Fprintf(a.out, "      %s\n", mutedColor.Sprint(strings.Join(adv.Fixtures, ", ")))
			}
		}
	}

	fmt.Fprintln(a.out)
	if vr.Verdict == nil {
		fmt.Fprintln(a.out, warnColor.Sprint("UNSEALED"))
		return
	}
	if vr.Verdict.Passed() {
		fmt.Fprintln(a.out, passColor.Sprint("PASS"))
		return
	}
	fmt.Fprintf(a.out, "%s (%d reason(s))\n", failColor.Sprint("FAIL"), len(vr.Verdict.Reasons))
	for _, r := range vr.Verdict.Reasons {
		fmt.Fprintf(a.out, "  - %s\n", r)
	}
}

// ShowRun prints the report for runID, or for the latest run when runID is empty.
func (a *ReportAdapter) ShowRun(ctx context.Context, runID string) (*run.ValidationRun, error) {
	vr, err := a.resolve(ctx, runID)
	if err != nil {
		return nil, err
	}
	a.Verdict(vr)
	return vr, nil
}

// ListRuns prints sealed runs, newest first.
func (a *ReportAdapter) ListRuns(ctx context.Context, limit int) ([]*primary.RunSummary, error) {
	runs, err := a.service.ListRuns(ctx, limit)
	if err != nil {
		return nil, err
	}

	if len(runs) == 0 {
		fmt.Fprintln(a.out, "No validation runs recorded.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Start one:")
		fmt.Fprintln(a.out, "  parity validate --reference ./ref --candidate ./cand --stderr-policy strict")
		return runs, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tSEALED\tOUTCOME\tPAIRS\tRESULTS\tDIFFS\tERRORS\tSTDERR")
	fmt.Fprintln(w, "--\t------\t-------\t-----\t-------\t-----\t------\t------")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.SealedAt,
			outcomeLabel(r.Outcome),
			r.Pairs,
			r.Results,
			r.Diffs,
			r.Errors,
			r.StderrPolicy,
		)
	}
	w.Flush()
	return runs, nil
}

// ListDiffs prints the diffs of a run. With unclassifiedOnly set, accepted
// and porting-bug diffs are skipped.
func (a *ReportAdapter) ListDiffs(ctx context.Context, runID string, unclassifiedOnly bool) ([]*diff.Diff, error) {
	vr, err := a.resolve(ctx, runID)
	if err != nil {
		return nil, err
	}

	var diffs []*diff.Diff
	for _, d := range vr.Diffs {
		if unclassifiedOnly && d.Classified() {
			continue
		}
		diffs = append(diffs, d)
	}

	if len(diffs) == 0 {
		fmt.Fprintf(a.out, "No diffs in run %s.\n", vr.ID)
		return diffs, nil
	}

	a.diffTable(diffs)
	return diffs, nil
}

// ShowDiff prints every divergent channel of one diff.
func (a *ReportAdapter) ShowDiff(ctx context.Context, runID, fixture, mode string) (*diff.Diff, error) {
	vr, err := a.resolve(ctx, runID)
	if err != nil {
		return nil, err
	}
	d := vr.Diff(fixture, mode)
	if d == nil {
		return nil, fmt.Errorf("run %s has no diff for %s@%s", vr.ID, fixture, mode)
	}

	fmt.Fprintf(a.out, "\nDiff: %s (run %s)\n", d.Key(), vr.ID)
	fmt.Fprintf(a.out, "Fingerprint:    %s\n", d.Fingerprint)
	fmt.Fprintf(a.out, "Classification: %s\n", classificationLabel(d))
	for _, c := range d.Channels {
		fmt.Fprintf(a.out, "\n[%s] %s\n", c.Channel, c.Summary)
		if c.ByteOffset >= 0 {
			fmt.Fprintf(a.out, "  first difference at byte %d (reference %d bytes, candidate %d bytes)\n",
				c.ByteOffset, c.RefSize, c.CandSize)
		}
		if c.Unified != "" {
			fmt.Fprintln(a.out)
			for _, line := range strings.Split(strings.TrimRight(c.Unified, "\n"), "\n") {
				fmt.Fprintln(a.out, colorizeDiffLine(line))
			}
		}
	}
	fmt.Fprintln(a.out)
	return d, nil
}

func (a *ReportAdapter) resolve(ctx context.Context, runID string) (*run.ValidationRun, error) {
	if runID != "" {
		return a.service.GetRun(ctx, runID)
	}
	return a.service.LatestRun(ctx)
}

func (a *ReportAdapter) resultTable(results []execution.Summary) {
	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "INVOCATION\tEXIT\tDURATION\tSTDOUT\tSTDERR")
	fmt.Fprintln(w, "----------\t----\t--------\t------\t------")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%dms\t%dB\t%dB\n", r.Key, r.ExitCode, r.DurationMs, r.StdoutBytes, r.StderrBytes)
	}
	w.Flush()
}

func (a *ReportAdapter) diffTable(diffs []*diff.Diff) {
	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "PAIR\tCHANNELS\tCLASSIFICATION\tFINGERPRINT")
	fmt.Fprintln(w, "----\t--------\t--------------\t-----------")
	for _, d := range diffs {
		channels := make([]string, len(d.Channels))
		for i, c := range d.Channels {
			channels[i] = string(c.Channel)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			d.Key(),
			strings.Join(channels, ","),
			classificationLabel(d),
			d.ShortFingerprint(),
		)
	}
	w.Flush()
}

func classificationLabel(d *diff.Diff) string {
	if !d.Classified() {
		return failColor.Sprint("unclassified")
	}
	c := d.Classification
	label := string(c.Category)
	if c.WorkaroundID != "" {
		label = fmt.Sprintf("%s (%s)", c.Category, c.WorkaroundID)
	}
	if c.Category == diff.CategoryPortingBug {
		return failColor.Sprint(label)
	}
	return label
}

func outcomeLabel(outcome string) string {
	switch run.Outcome(outcome) {
	case run.OutcomePass:
		return passColor.Sprint("pass")
	case run.OutcomeFail:
		return failColor.Sprint("fail")
	default:
		return outcome
	}
}

func colorizeDiffLine(line string) string {
	switch {
	case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		return line
	case strings.HasPrefix(line, "+"):
		return color.GreenString("%s", line)
	case strings.HasPrefix(line, "-"):
		return color.RedString("%s", line)
	case strings.HasPrefix(line, "@@"):
		return color.CyanString("%s", line)
	default:
		return line
	}
}
