package classify

import (
	"fmt"
	"sort"

	"github.com/example/parity/internal/core/diff"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
)

// DefaultSwitchThreshold is the number of library-difference diffs per
// dependency that must be exceeded before a switch is recommended.
const DefaultSwitchThreshold = 3

// Advise runs once, after every classification in the run is final, and
// derives the non-blocking advisories from the complete diff set.
func Advise(diffs []*diff.Diff, records []*workaround.Record, threshold int) []run.Advisory {
	byID := make(map[string]*workaround.Record, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	var advisories []run.Advisory
	advisories = append(advisories, switchRecommendations(diffs, byID, threshold)...)
	advisories = append(advisories, staleSwitches(diffs, records)...)
	advisories = append(advisories, orphans(diffs, records)...)
	return advisories
}

type dependencyGroup struct {
	fixtures    []string
	significant bool
}

func switchRecommendations(diffs []*diff.Diff, byID map[string]*workaround.Record, threshold int) []run.Advisory {
	if threshold < 0 {
		threshold = DefaultSwitchThreshold
	}

	groups := make(map[string]*dependencyGroup)
	for _, d := range diffs {
		if !d.Classified() || d.Classification.Category != diff.CategoryLibraryDifference {
			continue
		}
		wa, ok := byID[d.Classification.WorkaroundID]
		if !ok {
			continue
		}
		g := groups[wa.GroupKey()]
		if g == nil {
			g = &dependencyGroup{}
			groups[wa.GroupKey()] = g
		}
		g.fixtures = append(g.fixtures, d.Key().String())
		if wa.Impact.Significant() {
			g.significant = true
		}
	}

	var out []run.Advisory
	for _, dep := range sortedKeys(groups) {
		g := groups[dep]
		if len(g.fixtures) <= threshold || !g.significant {
			continue
		}
		sort.Strings(g.fixtures)
		out = append(out, run.Advisory{
			Kind:       run.AdvisorySwitchRecommended,
			Dependency: dep,
			Fixtures:   g.fixtures,
			Message: fmt.Sprintf("%d library-difference diffs trace to %s (threshold %d) with functional or critical impact; consider switching the candidate's implementation",
				len(g.fixtures), dep, threshold),
		})
	}
	return out
}

func staleSwitches(diffs []*diff.Diff, records []*workaround.Record) []run.Advisory {
	var out []run.Advisory
	for _, r := range sortedRecords(records) {
		if r.Category != workaround.CategorySwitchImplementation {
			continue
		}
		var recurring []string
		for _, d := range diffs {
			if r.Covers(d.Fixture, d.Mode) {
				recurring = append(recurring, d.Key().String())
			}
		}
		if len(recurring) == 0 {
			continue
		}
		sort.Strings(recurring)
		out = append(out, run.Advisory{
			Kind:         run.AdvisoryStaleWorkaround,
			WorkaroundID: r.ID,
			Fixtures:     recurring,
			Message:      fmt.Sprintf("workaround %s switched implementation but %d superseded diff(s) recur; revisit it", r.ID, len(recurring)),
		})
	}
	return out
}

func orphans(diffs []*diff.Diff, records []*workaround.Record) []run.Advisory {
	referenced := make(map[string]bool)
	for _, d := range diffs {
		if d.Classified() && d.Classification.WorkaroundID != "" {
			referenced[d.Classification.WorkaroundID] = true
		}
	}

	var out []run.Advisory
	for _, r := range sortedRecords(records) {
		if r.Category == workaround.CategorySwitchImplementation || referenced[r.ID] {
			continue
		}
		out = append(out, run.Advisory{
			Kind:         run.AdvisoryOrphanedWorkaround,
			WorkaroundID: r.ID,
			Message:      fmt.Sprintf("workaround %s matched no diff in this run; if the divergence was fixed, remove it with 'parity workaround delete %s --prune-classifications'", r.ID, r.ID),
		})
	}
	return out
}

func sortedKeys(m map[string]*dependencyGroup) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedRecords(records []*workaround.Record) []*workaround.Record {
	out := append([]*workaround.Record(nil), records...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
