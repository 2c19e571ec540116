// Package fixture contains the pure corpus model and its validation rules.
// Nothing in this package touches the filesystem; adapters load a Manifest
// and an artifact inventory and hand them here to be checked.
package fixture

import (
	"fmt"
	"sort"
	"strings"
)

// InputPlaceholder in a mode's flag list is replaced by the path of a
// scratch file holding the fixture input.
const InputPlaceholder = "{input}"

// Mode is a named configuration variant a fixture is exercised under.
type Mode struct {
	Name  string
	Flags []string
}

// UsesInputFile reports whether the mode passes the input as a file path
// rather than on stdin.
func (m Mode) UsesInputFile() bool {
	for _, f := range m.Flags {
		if f == InputPlaceholder {
			return true
		}
	}
	return false
}

// Args returns the flag list with the input placeholder substituted.
func (m Mode) Args(inputPath string) []string {
	args := make([]string, len(m.Flags))
	for i, f := range m.Flags {
		if f == InputPlaceholder {
			args[i] = inputPath
			continue
		}
		args[i] = f
	}
	return args
}

// Fixture is a named input paired with one expected output per mode.
type Fixture struct {
	Name     string
	Input    []byte
	Modes    []Mode
	Expected map[string][]byte // mode name -> expected output artifact
}

// ModeNames returns the fixture's mode names in declaration order.
func (f Fixture) ModeNames() []string {
	names := make([]string, len(f.Modes))
	for i, m := range f.Modes {
		names[i] = m.Name
	}
	return names
}

// Provenance records which reference build generated the expected outputs.
type Provenance struct {
	ReferenceVersion string `yaml:"reference_version" json:"reference_version"`
	GeneratedAt      string `yaml:"generated_at,omitempty" json:"generated_at,omitempty"`
}

// String renders the provenance marker for reports.
func (p Provenance) String() string {
	if p.ReferenceVersion == "" {
		return "unknown"
	}
	if p.GeneratedAt == "" {
		return p.ReferenceVersion
	}
	return fmt.Sprintf("%s (generated %s)", p.ReferenceVersion, p.GeneratedAt)
}

// Corpus is a loaded, validated fixture corpus.
type Corpus struct {
	Root       string
	Provenance Provenance
	Fixtures   []Fixture
}

// Pairs returns the number of fixture/mode combinations in the corpus.
func (c *Corpus) Pairs() int {
	n := 0
	for _, f := range c.Fixtures {
		n += len(f.Modes)
	}
	return n
}

// CorpusError reports every problem found in a corpus. It is fatal to the
// whole run and is raised before anything executes.
type CorpusError struct {
	Root     string
	Problems []string
}

func (e *CorpusError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("corpus %s: %s", e.Root, e.Problems[0])
	}
	return fmt.Sprintf("corpus %s: %d problems:\n  - %s", e.Root, len(e.Problems), strings.Join(e.Problems, "\n  - "))
}

// sortFixtures orders fixtures by name so every run walks the corpus the
// same way.
func sortFixtures(fixtures []Fixture) {
	sort.Slice(fixtures, func(i, j int) bool { return fixtures[i].Name < fixtures[j].Name })
}
