// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/ports/secondary"
)

// Corpus layout inside the root directory.
const (
	ManifestFile = "corpus.yaml"
	InputsDir    = "inputs"
	ExpectedDir  = "expected"
	StateDir     = ".parity"
)

// CorpusStore implements secondary.FixtureStore over a directory tree.
// The corpus is read and validated once; later calls reuse the result.
type CorpusStore struct {
	root string

	once   sync.Once
	corpus *fixture.Corpus
	err    error
}

// NewCorpusStore creates a store for the corpus at root.
func NewCorpusStore(root string) *CorpusStore {
	return &CorpusStore{root: root}
}

// Root returns the corpus location.
func (s *CorpusStore) Root() string {
	return s.root
}

// ListFixtures returns every fixture, sorted by name.
func (s *CorpusStore) ListFixtures(ctx context.Context) ([]fixture.Fixture, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	return c.Fixtures, nil
}

// ModesFor returns the modes a fixture runs under.
func (s *CorpusStore) ModesFor(ctx context.Context, fixtureName string) ([]fixture.Mode, error) {
	c, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, f := range c.Fixtures {
		if f.Name == fixtureName {
			return f.Modes, nil
		}
	}
	return nil, fmt.Errorf("fixture %s not found", fixtureName)
}

// Provenance returns the reference version recorded in the manifest.
func (s *CorpusStore) Provenance(ctx context.Context) (fixture.Provenance, error) {
	c, err := s.load()
	if err != nil {
		return fixture.Provenance{}, err
	}
	return c.Provenance, nil
}

func (s *CorpusStore) load() (*fixture.Corpus, error) {
	s.once.Do(func() {
		s.corpus, s.err = s.read()
	})
	return s.corpus, s.err
}

func (s *CorpusStore) read() (*fixture.Corpus, error) {
	corpusErr := func(format string, args ...any) error {
		return &fixture.CorpusError{Root: s.root, Problems: []string{fmt.Sprintf(format, args...)}}
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return nil, corpusErr("cannot open corpus: %v", err)
	}
	if !info.IsDir() {
		return nil, corpusErr("not a directory")
	}

	data, err := os.ReadFile(filepath.Join(s.root, ManifestFile))
	if err != nil {
		return nil, corpusErr("failed to read %s: %v", ManifestFile, err)
	}

	var manifest fixture.Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, corpusErr("failed to parse %s: %v", ManifestFile, err)
	}

	inputs, err := readArtifacts(filepath.Join(s.root, InputsDir))
	if err != nil {
		return nil, corpusErr("failed to read inputs: %v", err)
	}

	expected := make(map[string]map[string][]byte)
	entries, err := os.ReadDir(filepath.Join(s.root, ExpectedDir))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, corpusErr("failed to read expected outputs: %v", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		artifacts, err := readArtifacts(filepath.Join(s.root, ExpectedDir, e.Name()))
		if err != nil {
			return nil, corpusErr("failed to read expected outputs for mode %s: %v", e.Name(), err)
		}
		expected[e.Name()] = artifacts
	}

	return fixture.Build(s.root, manifest, fixture.Inventory{Inputs: inputs, Expected: expected})
}

// readArtifacts maps fixture name (basename without extension) to content.
// Hidden files are skipped. A missing directory yields an empty map.
func readArtifacts(dir string) (map[string][]byte, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]byte{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string][]byte, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		name := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if _, dup := out[name]; dup {
			return nil, fmt.Errorf("two files in %s map to fixture %q", dir, name)
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, nil
}

// Ensure CorpusStore implements the interface
var _ secondary.FixtureStore = (*CorpusStore)(nil)
