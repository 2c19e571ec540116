// Package run holds the ValidationRun aggregate and the verdict it is
// sealed with.
package run

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/execution"
)

// ErrSealed is returned when a sealed run is modified.
var ErrSealed = errors.New("validation run is sealed")

// AdvisoryKind names a non-blocking report note.
type AdvisoryKind string

const (
	AdvisorySwitchRecommended  AdvisoryKind = "switch-recommended"
	AdvisoryOrphanedWorkaround AdvisoryKind = "orphaned-workaround"
	AdvisoryStaleWorkaround    AdvisoryKind = "stale-workaround"
	AdvisoryReferenceDrift     AdvisoryKind = "reference-drift"
)

// Advisory never affects the verdict.
type Advisory struct {
	Kind         AdvisoryKind `json:"kind"`
	Message      string       `json:"message"`
	WorkaroundID string       `json:"workaround_id,omitempty"`
	Dependency   string       `json:"dependency,omitempty"`
	Fixtures     []string     `json:"fixtures,omitempty"`
}

// ReasonKind names why a run failed.
type ReasonKind string

const (
	ReasonUnclassified ReasonKind = "unclassified-diff"
	ReasonPortingBug   ReasonKind = "porting-bug"
	ReasonRunError     ReasonKind = "run-error"
)

// Reason is one contributor to a failing verdict.
type Reason struct {
	Kind    ReasonKind       `json:"kind"`
	Fixture string           `json:"fixture"`
	Mode    string           `json:"mode"`
	Origin  execution.Origin `json:"origin,omitempty"`
	Detail  string           `json:"detail"`
}

func (r Reason) String() string {
	if r.Origin != "" {
		return fmt.Sprintf("%s: %s@%s (%s): %s", r.Kind, r.Fixture, r.Mode, r.Origin, r.Detail)
	}
	return fmt.Sprintf("%s: %s@%s: %s", r.Kind, r.Fixture, r.Mode, r.Detail)
}

// Outcome is Pass or Fail.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	OutcomeFail Outcome = "fail"
)

// Verdict is the Acceptance Gate's decision.
type Verdict struct {
	Outcome Outcome  `json:"outcome"`
	Reasons []Reason `json:"reasons,omitempty"`
}

// Passed reports whether the verdict is Pass.
func (v Verdict) Passed() bool {
	return v.Outcome == OutcomePass
}

// ValidationRun is created once per gate invocation and is immutable once
// sealed.
type ValidationRun struct {
	ID           string               `json:"id"`
	StartedAt    time.Time            `json:"started_at"`
	SealedAt     time.Time            `json:"sealed_at"`
	CorpusRoot   string               `json:"corpus"`
	Provenance   string               `json:"provenance"`
	StderrPolicy diff.StderrPolicy    `json:"stderr_policy"`
	Pairs        int                  `json:"pairs"`
	Results      []execution.Summary  `json:"results"`
	Errors       []execution.RunError `json:"run_errors"`
	Diffs        []*diff.Diff         `json:"diffs"`
	Advisories   []Advisory           `json:"advisories"`
	Verdict      *Verdict             `json:"verdict,omitempty"`
}

// Sealed reports whether the run already carries a verdict.
func (r *ValidationRun) Sealed() bool {
	return r.Verdict != nil
}

// Seal attaches the verdict. A run can be sealed once.
func (r *ValidationRun) Seal(v Verdict, at time.Time) error {
	if r.Sealed() {
		return ErrSealed
	}
	r.Verdict = &v
	r.SealedAt = at
	return nil
}

// Diff returns the diff for a fixture/mode pair, or nil.
func (r *ValidationRun) Diff(fixture, mode string) *diff.Diff {
	for _, d := range r.Diffs {
		if d.Fixture == fixture && d.Mode == mode {
			return d
		}
	}
	return nil
}

// Accepted returns the diffs classified into an accepted terminal state.
func (r *ValidationRun) Accepted() []*diff.Diff {
	var out []*diff.Diff
	for _, d := range r.Diffs {
		if d.Classified() && d.Classification.Category.Accepted() {
			out = append(out, d)
		}
	}
	return out
}

// Counts summarises the run for reports.
type Counts struct {
	Pairs        int `json:"pairs"`
	Matched      int `json:"matched"`
	Diffed       int `json:"diffed"`
	Errored      int `json:"errored"`
	Accepted     int `json:"accepted"`
	PortingBugs  int `json:"porting_bugs"`
	Unclassified int `json:"unclassified"`
}

// Counts tallies pairs by outcome. A pair is errored when either origin
// produced a RunError.
func (r *ValidationRun) Counts() Counts {
	c := Counts{Pairs: r.Pairs, Diffed: len(r.Diffs)}

	errored := make(map[execution.PairKey]bool)
	for _, e := range r.Errors {
		errored[e.PairKey()] = true
	}
	c.Errored = len(errored)

	for _, d := range r.Diffs {
		switch {
		case !d.Classified():
			c.Unclassified++
		case d.Classification.Category == diff.CategoryPortingBug:
			c.PortingBugs++
		default:
			c.Accepted++
		}
	}

	c.Matched = c.Pairs - c.Diffed - c.Errored
	if c.Matched < 0 {
		c.Matched = 0
	}
	return c
}

// SortDiffs orders diffs by fixture then mode.
func SortDiffs(diffs []*diff.Diff) {
	sort.Slice(diffs, func(i, j int) bool {
		if diffs[i].Fixture != diffs[j].Fixture {
			return diffs[i].Fixture < diffs[j].Fixture
		}
		return diffs[i].Mode < diffs[j].Mode
	})
}

// SortResults orders result summaries by fixture, mode then origin.
func SortResults(results []execution.Summary) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Fixture != b.Fixture {
			return a.Fixture < b.Fixture
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Origin < b.Origin
	})
}

// SortErrors orders run errors by fixture, mode then origin.
func SortErrors(errs []execution.RunError) {
	sort.Slice(errs, func(i, j int) bool {
		a, b := errs[i], errs[j]
		if a.Fixture != b.Fixture {
			return a.Fixture < b.Fixture
		}
		if a.Mode != b.Mode {
			return a.Mode < b.Mode
		}
		return a.Origin < b.Origin
	})
}
