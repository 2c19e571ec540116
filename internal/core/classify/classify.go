// Package classify enforces the legality of classification transitions on a
// Diff. It never decides a category itself: callers supply the category and
// workaround, and the state machine accepts or rejects the pair.
package classify

import (
	"fmt"
	"time"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/workaround"
)

// Code identifies an illegal transition.
type Code string

const (
	CodeMissingWorkaround              Code = "missing-workaround"
	CodeInvalidWorkaroundForPortingBug Code = "invalid-workaround-for-porting-bug"
	CodeInvalidWorkaroundCategory      Code = "invalid-workaround-category"
	CodeMissingDecision                Code = "missing-decision"
	CodeAlreadyClassified              Code = "already-classified"
	CodeUnknownCategory                Code = "unknown-category"
)

// Error is a ClassificationError: the attempted transition was rejected and
// the Diff is unchanged.
type Error struct {
	Code    Code
	Fixture string
	Mode    string
	Detail  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot classify %s@%s: %s: %s", e.Fixture, e.Mode, e.Code, e.Detail)
}

// Is matches on code so callers can use errors.Is with a bare &Error{Code: ...}.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// libraryWorkaroundCategories are the mitigations a library-difference may cite.
var libraryWorkaroundCategories = map[workaround.Category]bool{
	workaround.CategoryPreProcessing:     true,
	workaround.CategoryPostProcessing:    true,
	workaround.CategoryAcceptAndDocument: true,
	workaround.CategoryVendorOrFork:      true,
}

// Check evaluates whether d may transition to category with wa attached.
// It returns nil when the transition is legal or is an idempotent repeat.
func Check(d *diff.Diff, category diff.Category, wa *workaround.Record) error {
	reject := func(code Code, format string, args ...any) error {
		return &Error{Code: code, Fixture: d.Fixture, Mode: d.Mode, Detail: fmt.Sprintf(format, args...)}
	}

	if !category.Valid() {
		return reject(CodeUnknownCategory, "unknown category %q", category)
	}

	if d.Classified() {
		current := d.Classification
		if current.Category == category && current.WorkaroundID == workaroundID(wa) {
			return nil
		}
		return reject(CodeAlreadyClassified, "already classified as %s", describe(current))
	}

	if category == diff.CategoryPortingBug {
		if wa != nil {
			return reject(CodeInvalidWorkaroundForPortingBug, "porting bugs are fixed, not accepted; drop workaround %s", wa.ID)
		}
		return nil
	}

	if wa == nil {
		return reject(CodeMissingWorkaround, "%s requires a workaround record", category)
	}

	if wa.Category == workaround.CategorySwitchImplementation {
		return reject(CodeInvalidWorkaroundCategory,
			"workaround %s records an implementation switch; its diffs should no longer occur", wa.ID)
	}

	switch category {
	case diff.CategoryLibraryDifference:
		if !libraryWorkaroundCategories[wa.Category] {
			return reject(CodeInvalidWorkaroundCategory,
				"library-difference cannot cite a %s workaround (%s)", wa.Category, wa.ID)
		}
	case diff.CategoryUpstreamBug:
		if wa.Decision == workaround.DecisionNone {
			return reject(CodeMissingDecision,
				"upstream-bug workaround %s must decide replicate-for-parity or diverge-intentionally", wa.ID)
		}
		if wa.Justification == "" {
			return reject(CodeMissingDecision, "upstream-bug workaround %s has no justification", wa.ID)
		}
	}

	return nil
}

// Apply checks the transition and, when legal, attaches the classification.
// Re-applying an identical classification leaves the Diff untouched.
func Apply(d *diff.Diff, category diff.Category, wa *workaround.Record, actor string, at time.Time) error {
	if err := Check(d, category, wa); err != nil {
		return err
	}
	if d.Classified() {
		return nil
	}
	d.Classification = &diff.Classification{
		Category:     category,
		WorkaroundID: workaroundID(wa),
		ClassifiedBy: actor,
		ClassifiedAt: at,
	}
	return nil
}

func workaroundID(wa *workaround.Record) string {
	if wa == nil {
		return ""
	}
	return wa.ID
}

func describe(c *diff.Classification) string {
	if c.WorkaroundID == "" {
		return string(c.Category)
	}
	return fmt.Sprintf("%s (%s)", c.Category, c.WorkaroundID)
}
