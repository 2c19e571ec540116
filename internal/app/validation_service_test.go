package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/primary"
	"github.com/example/parity/internal/ports/secondary"
)

func validateRequest() primary.ValidateRequest {
	return primary.ValidateRequest{
		ReferenceBinary: "/usr/bin/ref",
		CandidateBinary: "/usr/bin/cand",
		StderrPolicy:    diff.StderrStrict,
		Timeout:         time.Second,
		Jobs:            2,
		SwitchThreshold: 3,
	}
}

func reasonKinds(v *run.Verdict) []run.ReasonKind {
	var kinds []run.ReasonKind
	for _, r := range v.Reasons {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

func TestValidate_IdenticalOutputsPass(t *testing.T) {
	h := newHarness(textFixture("basic", "# Title\n\nSome text.\n"))

	vr, err := h.validation.Validate(context.Background(), validateRequest())

	require.NoError(t, err)
	require.True(t, vr.Sealed())
	assert.True(t, vr.Verdict.Passed())
	assert.Empty(t, vr.Diffs)
	assert.Empty(t, vr.Errors)
	assert.Equal(t, 1, vr.Counts().Matched)
	assert.Equal(t, "ref 1.0 (generated 2026-01-04)", vr.Provenance)

	data, err := json.Marshal(vr)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"diffs":[]`)
	assert.Contains(t, string(data), `"advisories":[]`)
	assert.Contains(t, string(data), `"run_errors":[]`)

	saved, err := h.runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, vr.ID, saved.ID)
}

func TestValidate_UnclassifiedDiffFails(t *testing.T) {
	h := newHarness(textFixture("list-spacing", "- a\n- b\n"))
	h.invoker.candidateStdout("list-spacing", "default", "- a\n\n- b\n")

	vr, err := h.validation.Validate(context.Background(), validateRequest())

	require.NoError(t, err)
	assert.False(t, vr.Verdict.Passed())
	require.Len(t, vr.Diffs, 1)
	assert.False(t, vr.Diffs[0].Classified())
	require.Len(t, vr.Verdict.Reasons, 1)
	assert.Equal(t, run.ReasonUnclassified, vr.Verdict.Reasons[0].Kind)
	assert.Equal(t, "list-spacing", vr.Verdict.Reasons[0].Fixture)
}

func TestValidate_RecordedClassificationReplaysOnNextRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(textFixture("footnotes", "text[^1]\n\n[^1]: note\n"))
	h.invoker.candidateStdout("footnotes", "default", "text<sup>1</sup>\n")

	wa, err := h.workaround.RegisterWorkaround(ctx, primary.RegisterWorkaroundRequest{
		Description:   "footnote markup differs",
		Category:      string(workaround.CategoryAcceptAndDocument),
		Impact:        string(workaround.ImpactCosmetic),
		Justification: "rendered output is equivalent",
		Dependency:    "markdown-lib",
	})
	require.NoError(t, err)

	first, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)
	require.False(t, first.Verdict.Passed())

	_, err = h.classification.Classify(ctx, primary.ClassifyRequest{
		Fixture:      "footnotes",
		Mode:         "default",
		Category:     string(diff.CategoryLibraryDifference),
		WorkaroundID: wa.ID,
	})
	require.NoError(t, err)

	// The sealed run is not touched.
	assert.False(t, first.Diffs[0].Classified())

	second, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)
	assert.True(t, second.Verdict.Passed())
	require.Len(t, second.Accepted(), 1)
	assert.Equal(t, wa.ID, second.Accepted()[0].Classification.WorkaroundID)
	assert.Equal(t, first.Diffs[0].Fingerprint, second.Diffs[0].Fingerprint)
}

func TestValidate_ChangedDivergenceNeedsNewClassification(t *testing.T) {
	ctx := context.Background()
	h := newHarness(textFixture("tables", "| a |\n"))
	h.invoker.candidateStdout("tables", "default", "<table>a</table>\n")

	first, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)
	_, err = h.classification.Classify(ctx, primary.ClassifyRequest{
		Fixture:  "tables",
		Mode:     "default",
		Category: string(diff.CategoryPortingBug),
	})
	require.NoError(t, err)
	require.False(t, first.Verdict.Passed())

	h.invoker.candidateStdout("tables", "default", "<table>b</table>\n")
	second, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)

	require.Len(t, second.Diffs, 1)
	assert.False(t, second.Diffs[0].Classified())
	assert.Equal(t, []run.ReasonKind{run.ReasonUnclassified}, reasonKinds(second.Verdict))
}

func TestValidate_MissingCandidateRecordsRunErrors(t *testing.T) {
	h := newHarness(
		textFixture("a", "alpha\n"),
		textFixture("b", "beta\n", "default", "semantic"),
	)
	h.invoker.byOrigin[execution.OriginCandidate] = func(inv secondary.Invocation) (execution.Result, error) {
		return execution.Result{}, &execution.RunError{Key: inv.Key, Kind: execution.ErrLaunchFailure, Message: "no such file"}
	}

	req := validateRequest()
	req.ReportPath = "/tmp/report.json"

	vr, err := h.validation.Validate(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, vr.Verdict.Passed())
	require.Len(t, vr.Errors, 3)
	for _, e := range vr.Errors {
		assert.Equal(t, execution.OriginCandidate, e.Origin)
		assert.Equal(t, execution.ErrLaunchFailure, e.Kind)
	}
	// Reference output is still collected and reported for every pair.
	require.Len(t, vr.Results, 3)
	for _, r := range vr.Results {
		assert.Equal(t, execution.OriginReference, r.Origin)
	}
	assert.Equal(t, "a", vr.Results[0].Fixture)
	require.Len(t, h.reports.runs, 1)
	assert.Len(t, h.reports.runs[0].Results, 3)
	assert.Equal(t, 3, vr.Counts().Errored)
	assert.Empty(t, vr.Diffs)
	assert.Len(t, vr.Verdict.Reasons, 3)
}

func TestValidate_SwitchRecommendedAboveThreshold(t *testing.T) {
	ctx := context.Background()
	names := []string{"f1", "f2", "f3", "f4"}
	var fixtures []fixture.Fixture
	for _, n := range names {
		fixtures = append(fixtures, textFixture(n, n+"\n"))
	}
	h := newHarness(fixtures...)
	for _, n := range names {
		h.invoker.candidateStdout(n, "default", n+" rendered differently\n")
	}

	wa, err := h.workaround.RegisterWorkaround(ctx, primary.RegisterWorkaroundRequest{
		Description:   "highlighter tokenizes differently",
		Category:      string(workaround.CategoryPostProcessing),
		Impact:        string(workaround.ImpactFunctional),
		Justification: "normalized after rendering",
		Dependency:    "syntax-highlighter",
	})
	require.NoError(t, err)

	_, err = h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)
	for _, n := range names {
		_, err := h.classification.Classify(ctx, primary.ClassifyRequest{
			Fixture: n, Mode: "default",
			Category:     string(diff.CategoryLibraryDifference),
			WorkaroundID: wa.ID,
		})
		require.NoError(t, err)
	}

	vr, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)

	assert.True(t, vr.Verdict.Passed(), "advisories never fail the gate")
	require.Len(t, vr.Advisories, 1)
	adv := vr.Advisories[0]
	assert.Equal(t, run.AdvisorySwitchRecommended, adv.Kind)
	assert.Equal(t, "syntax-highlighter", adv.Dependency)
	assert.Len(t, adv.Fixtures, 4)
}

func TestValidate_CorpusErrorAbortsBeforeExecution(t *testing.T) {
	h := newHarness()
	h.store.err = &fixture.CorpusError{Root: "/corpus", Problems: []string{"fixture x: missing expected output for mode default"}}

	vr, err := h.validation.Validate(context.Background(), validateRequest())

	require.Error(t, err)
	assert.Nil(t, vr)
	var ce *fixture.CorpusError
	assert.True(t, errors.As(err, &ce))
	assert.Equal(t, 0, h.invoker.callCount())
	assert.Empty(t, h.runs.runs)
}

func TestValidate_RejectsMissingStderrPolicy(t *testing.T) {
	h := newHarness(textFixture("basic", "x"))
	req := validateRequest()
	req.StderrPolicy = ""

	_, err := h.validation.Validate(context.Background(), req)

	require.Error(t, err)
	assert.Equal(t, 0, h.invoker.callCount())
}

func TestValidate_RejectsMissingBinary(t *testing.T) {
	h := newHarness(textFixture("basic", "x"))
	req := validateRequest()
	req.CandidateBinary = ""

	_, err := h.validation.Validate(context.Background(), req)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "candidate")
}

func TestValidate_StderrPolicy(t *testing.T) {
	tests := []struct {
		name      string
		policy    diff.StderrPolicy
		wantDiffs int
	}{
		{"strict diffs on any stderr change", diff.StderrStrict, 1},
		{"presence ignores wording", diff.StderrPresence, 0},
		{"ignore skips stderr", diff.StderrIgnore, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(textFixture("warn", "x\n"))
			h.invoker.byOrigin[execution.OriginReference] = func(inv secondary.Invocation) (execution.Result, error) {
				return execution.Result{Key: inv.Key, Stdout: inv.Input, Stderr: []byte("warning: a\n")}, nil
			}
			h.invoker.byOrigin[execution.OriginCandidate] = func(inv secondary.Invocation) (execution.Result, error) {
				return execution.Result{Key: inv.Key, Stdout: inv.Input, Stderr: []byte("warning: b\n")}, nil
			}
			req := validateRequest()
			req.StderrPolicy = tt.policy

			vr, err := h.validation.Validate(context.Background(), req)

			require.NoError(t, err)
			assert.Len(t, vr.Diffs, tt.wantDiffs)
			assert.Equal(t, tt.policy, vr.StderrPolicy)
		})
	}
}

func TestValidate_ReferenceDriftIsAdvisory(t *testing.T) {
	f := textFixture("drift", "input\n")
	f.Expected["default"] = []byte("output from an older reference\n")
	h := newHarness(f)

	vr, err := h.validation.Validate(context.Background(), validateRequest())

	require.NoError(t, err)
	assert.True(t, vr.Verdict.Passed())
	require.Len(t, vr.Advisories, 1)
	assert.Equal(t, run.AdvisoryReferenceDrift, vr.Advisories[0].Kind)
	assert.Equal(t, []string{"drift@default"}, vr.Advisories[0].Fixtures)
}

func TestValidate_OrphanedWorkaroundIsAdvisory(t *testing.T) {
	ctx := context.Background()
	h := newHarness(textFixture("basic", "x\n"))
	_, err := h.workaround.RegisterWorkaround(ctx, primary.RegisterWorkaroundRequest{
		Description:   "old escaping quirk",
		Category:      string(workaround.CategoryPreProcessing),
		Impact:        string(workaround.ImpactCosmetic),
		Justification: "escaped upstream",
	})
	require.NoError(t, err)

	vr, err := h.validation.Validate(ctx, validateRequest())

	require.NoError(t, err)
	assert.True(t, vr.Verdict.Passed())
	require.Len(t, vr.Advisories, 1)
	assert.Equal(t, run.AdvisoryOrphanedWorkaround, vr.Advisories[0].Kind)
	assert.Equal(t, "WA-001", vr.Advisories[0].WorkaroundID)
}

func TestValidate_InterruptedRunIsSealedAndSaved(t *testing.T) {
	h := newHarness(textFixture("a", "x"), textFixture("b", "y"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	vr, err := h.validation.Validate(ctx, validateRequest())

	require.NoError(t, err)
	require.True(t, vr.Sealed())
	assert.False(t, vr.Verdict.Passed())
	require.Len(t, vr.Errors, 4)
	for _, e := range vr.Errors {
		assert.Equal(t, execution.ErrCancelled, e.Kind)
	}
	assert.Contains(t, h.runs.runs, vr.ID)
}

func TestValidate_WritesReportWhenRequested(t *testing.T) {
	h := newHarness(textFixture("basic", "x"))
	req := validateRequest()
	req.ReportPath = "/tmp/report.json"

	_, err := h.validation.Validate(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp/report.json"}, h.reports.paths)
}

func TestLatestRun_NoRuns(t *testing.T) {
	h := newHarness()

	_, err := h.validation.LatestRun(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no validation runs recorded")
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	h := newHarness(textFixture("basic", "x"))
	first, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)
	second, err := h.validation.Validate(ctx, validateRequest())
	require.NoError(t, err)

	summaries, err := h.validation.ListRuns(ctx, 10)

	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID, summaries[0].ID)
	assert.Equal(t, first.ID, summaries[1].ID)
	assert.Equal(t, "pass", summaries[0].Outcome)
	assert.Equal(t, 2, summaries[0].Results)
}
