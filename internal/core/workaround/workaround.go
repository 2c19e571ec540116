// Package workaround contains the pure business logic for workaround records.
// Guards are pure functions that evaluate preconditions without side effects.
package workaround

import (
	"fmt"
	"strings"
)

// Category is the mitigation strategy a workaround records.
type Category string

const (
	CategoryPreProcessing        Category = "pre-processing"
	CategoryPostProcessing       Category = "post-processing"
	CategoryAcceptAndDocument    Category = "accept-and-document"
	CategoryVendorOrFork         Category = "vendor-or-fork"
	CategorySwitchImplementation Category = "switch-implementation"
)

// Categories lists every known workaround category.
var Categories = []Category{
	CategoryPreProcessing,
	CategoryPostProcessing,
	CategoryAcceptAndDocument,
	CategoryVendorOrFork,
	CategorySwitchImplementation,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Impact grades how much a divergence matters to users.
type Impact string

const (
	ImpactCosmetic   Impact = "cosmetic"
	ImpactFunctional Impact = "functional"
	ImpactCritical   Impact = "critical"
)

// Valid reports whether i is a known impact level.
func (i Impact) Valid() bool {
	return i == ImpactCosmetic || i == ImpactFunctional || i == ImpactCritical
}

// Significant reports whether the impact counts toward a switch recommendation.
func (i Impact) Significant() bool {
	return i == ImpactFunctional || i == ImpactCritical
}

// Decision records how an upstream bug is handled.
type Decision string

const (
	DecisionNone               Decision = ""
	DecisionReplicateForParity Decision = "replicate-for-parity"
	DecisionDivergeIntentional Decision = "diverge-intentionally"
)

// Valid reports whether d is empty or a known decision.
func (d Decision) Valid() bool {
	return d == DecisionNone || d == DecisionReplicateForParity || d == DecisionDivergeIntentional
}

// Record is a documented, justified mitigation or acceptance decision for a
// recurring class of diff. Records outlive runs.
type Record struct {
	ID            string   `json:"id" yaml:"id"`
	Description   string   `json:"description" yaml:"description"`
	Category      Category `json:"category" yaml:"category"`
	Impact        Impact   `json:"impact" yaml:"impact"`
	Justification string   `json:"justification" yaml:"justification"`
	Dependency    string   `json:"dependency,omitempty" yaml:"dependency,omitempty"`
	Decision      Decision `json:"decision,omitempty" yaml:"decision,omitempty"`
	Scope         []string `json:"scope,omitempty" yaml:"scope,omitempty"`
	CreatedAt     string   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt     string   `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// GroupKey is the dependency a record's diffs are attributed to for
// escalation, falling back to the record ID.
func (r *Record) GroupKey() string {
	if r.Dependency != "" {
		return r.Dependency
	}
	return r.ID
}

// Covers reports whether the record's scope names the fixture/mode pair.
// Scope entries are either a bare fixture name or "fixture@mode".
func (r *Record) Covers(fixture, mode string) bool {
	for _, s := range r.Scope {
		if s == fixture || s == fixture+"@"+mode {
			return true
		}
	}
	return false
}

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

// CanRegister evaluates whether a record may enter the registry.
// Rules:
// - Description and justification must be non-empty
// - Category, impact and decision must be known values
// - Scope entries must be non-empty and use at most one "@"
// - A switch-implementation record must name the diffs it supersedes
func CanRegister(r Record) GuardResult {
	if strings.TrimSpace(r.Description) == "" {
		return GuardResult{Reason: "workaround description is required"}
	}
	if strings.TrimSpace(r.Justification) == "" {
		return GuardResult{Reason: "workaround justification is required"}
	}
	if !r.Category.Valid() {
		return GuardResult{Reason: fmt.Sprintf("unknown workaround category %q", r.Category)}
	}
	if !r.Impact.Valid() {
		return GuardResult{Reason: fmt.Sprintf("unknown impact level %q", r.Impact)}
	}
	if !r.Decision.Valid() {
		return GuardResult{Reason: fmt.Sprintf("unknown decision %q", r.Decision)}
	}
	for _, s := range r.Scope {
		if s == "" || strings.Count(s, "@") > 1 || strings.HasPrefix(s, "@") || strings.HasSuffix(s, "@") {
			return GuardResult{Reason: fmt.Sprintf("invalid scope entry %q (want fixture or fixture@mode)", s)}
		}
	}
	if r.Category == CategorySwitchImplementation && len(r.Scope) == 0 {
		return GuardResult{Reason: "switch-implementation workaround must list the fixtures it supersedes"}
	}
	return GuardResult{Allowed: true}
}

// DeleteContext provides context for workaround deletion guards.
type DeleteContext struct {
	WorkaroundID         string
	ClassificationCount  int
	PruneClassifications bool
	LatestRunID          string
	LatestRunCitations   int // Diffs in the latest run explained by the record
}

// CanDelete evaluates whether a record may be removed.
// Rules:
// - No recorded classification may still reference it, unless pruned
// - Pruning is refused while the latest run still cites it
func CanDelete(ctx DeleteContext) GuardResult {
	if ctx.ClassificationCount == 0 {
		return GuardResult{Allowed: true}
	}
	if !ctx.PruneClassifications {
		return GuardResult{
			Reason: fmt.Sprintf("workaround %s is referenced by %d classification(s); revoke them or delete with --prune-classifications", ctx.WorkaroundID, ctx.ClassificationCount),
		}
	}
	if ctx.LatestRunCitations > 0 {
		return GuardResult{
			Reason: fmt.Sprintf("workaround %s still explains %d diff(s) in run %s; revoke those classifications first", ctx.WorkaroundID, ctx.LatestRunCitations, ctx.LatestRunID),
		}
	}
	return GuardResult{Allowed: true}
}
