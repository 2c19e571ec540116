package fixture

import (
	"fmt"
	"sort"
)

// DefaultModeName is used when a manifest declares no default_modes.
const DefaultModeName = "default"

// Manifest mirrors corpus.yaml.
type Manifest struct {
	Provenance   Provenance          `yaml:"provenance"`
	DefaultModes []string            `yaml:"default_modes"`
	Modes        map[string]ModeSpec `yaml:"modes"`
	Fixtures     []FixtureSpec       `yaml:"fixtures"`
}

// ModeSpec declares the flags passed to both implementations for a mode.
type ModeSpec struct {
	Flags []string `yaml:"flags"`
}

// FixtureSpec overrides the modes an individual fixture runs under.
type FixtureSpec struct {
	Name  string   `yaml:"name"`
	Modes []string `yaml:"modes"`
}

// Inventory is what an adapter found on disk: input bytes by fixture name
// and expected artifacts by mode then fixture name.
type Inventory struct {
	Inputs   map[string][]byte
	Expected map[string]map[string][]byte
}

// Build validates a manifest against an inventory and assembles the corpus.
// Every problem is collected; a non-empty list yields a *CorpusError.
func Build(root string, m Manifest, inv Inventory) (*Corpus, error) {
	var problems []string

	if len(m.Modes) == 0 {
		problems = append(problems, "manifest declares no modes")
	}

	defaults := m.DefaultModes
	if len(defaults) == 0 {
		defaults = []string{DefaultModeName}
	}

	entries := make(map[string]FixtureSpec, len(m.Fixtures))
	for _, entry := range m.Fixtures {
		if entry.Name == "" {
			problems = append(problems, "fixture entry with empty name")
			continue
		}
		if _, dup := entries[entry.Name]; dup {
			problems = append(problems, fmt.Sprintf("fixture %q listed more than once", entry.Name))
			continue
		}
		entries[entry.Name] = entry
		if _, ok := inv.Inputs[entry.Name]; !ok {
			problems = append(problems, fmt.Sprintf("fixture %q has no input file", entry.Name))
		}
	}

	names := make([]string, 0, len(inv.Inputs))
	for name := range inv.Inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var fixtures []Fixture
	for _, name := range names {
		modeNames := defaults
		if entry, ok := entries[name]; ok && len(entry.Modes) > 0 {
			modeNames = entry.Modes
		}

		f := Fixture{
			Name:     name,
			Input:    inv.Inputs[name],
			Expected: make(map[string][]byte, len(modeNames)),
		}
		seen := make(map[string]bool, len(modeNames))
		for _, modeName := range modeNames {
			if seen[modeName] {
				problems = append(problems, fmt.Sprintf("fixture %q lists mode %q twice", name, modeName))
				continue
			}
			seen[modeName] = true

			entry, declared := m.Modes[modeName]
			if !declared {
				problems = append(problems, fmt.Sprintf("fixture %q references undeclared mode %q", name, modeName))
				continue
			}
			expected, ok := inv.Expected[modeName][name]
			if !ok {
				problems = append(problems, fmt.Sprintf("fixture %q mode %q has no expected-output artifact", name, modeName))
				continue
			}
			f.Modes = append(f.Modes, Mode{Name: modeName, Flags: entry.Flags})
			f.Expected[modeName] = expected
		}
		fixtures = append(fixtures, f)
	}

	if len(inv.Inputs) == 0 {
		problems = append(problems, "corpus contains no fixtures")
	}

	if len(problems) > 0 {
		return nil, &CorpusError{Root: root, Problems: problems}
	}

	sortFixtures(fixtures)
	return &Corpus{Root: root, Provenance: m.Provenance, Fixtures: fixtures}, nil
}
