// Package gate is the Acceptance Gate: it turns a collected ValidationRun
// into a Pass or Fail verdict.
package gate

import (
	"fmt"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/run"
)

// Evaluate decides the verdict. It fails when any diff is unclassified,
// any diff is a porting bug, or any invocation ended in a RunError. Every
// contributor is listed; evaluation never stops at the first.
//
// known reports whether a workaround ID exists in the registry; an accepted
// diff citing an unknown record does not count as explained.
func Evaluate(r *run.ValidationRun, known func(id string) bool) run.Verdict {
	var reasons []run.Reason

	for _, d := range r.Diffs {
		switch {
		case !d.Classified():
			reasons = append(reasons, run.Reason{
				Kind:    run.ReasonUnclassified,
				Fixture: d.Fixture,
				Mode:    d.Mode,
				Detail:  d.Summary(),
			})
		case d.Classification.Category == diff.CategoryPortingBug:
			reasons = append(reasons, run.Reason{
				Kind:    run.ReasonPortingBug,
				Fixture: d.Fixture,
				Mode:    d.Mode,
				Detail:  d.Summary(),
			})
		case d.Classification.WorkaroundID == "" || (known != nil && !known(d.Classification.WorkaroundID)):
			reasons = append(reasons, run.Reason{
				Kind:    run.ReasonUnclassified,
				Fixture: d.Fixture,
				Mode:    d.Mode,
				Detail:  fmt.Sprintf("%s cites missing workaround %q", d.Classification.Category, d.Classification.WorkaroundID),
			})
		}
	}

	for _, e := range r.Errors {
		reasons = append(reasons, run.Reason{
			Kind:    run.ReasonRunError,
			Fixture: e.Fixture,
			Mode:    e.Mode,
			Origin:  e.Origin,
			Detail:  fmt.Sprintf("%s: %s", e.Kind, e.Message),
		})
	}

	if len(reasons) > 0 {
		return run.Verdict{Outcome: run.OutcomeFail, Reasons: reasons}
	}
	return run.Verdict{Outcome: run.OutcomePass}
}
