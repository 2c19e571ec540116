package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/secondary"
)

// WorkaroundsFile is the default export name, kept beside corpus.yaml.
const WorkaroundsFile = "workarounds.yaml"

// workaroundDocument is the on-disk shape of workarounds.yaml.
type workaroundDocument struct {
	Version     int                  `yaml:"version"`
	Workarounds []*workaround.Record `yaml:"workarounds"`
}

// YAMLWorkaroundFile implements secondary.WorkaroundFile with YAML.
type YAMLWorkaroundFile struct{}

// NewYAMLWorkaroundFile creates a new YAML workaround file adapter.
func NewYAMLWorkaroundFile() *YAMLWorkaroundFile {
	return &YAMLWorkaroundFile{}
}

// Export writes records to path, replacing any existing file.
func (f *YAMLWorkaroundFile) Export(ctx context.Context, path string, records []*workaround.Record) error {
	data, err := yaml.Marshal(workaroundDocument{Version: 1, Workarounds: records})
	if err != nil {
		return fmt.Errorf("failed to marshal workarounds: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create workaround dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write workarounds: %w", err)
	}
	return nil
}

// Import reads records from path.
func (f *YAMLWorkaroundFile) Import(ctx context.Context, path string) ([]*workaround.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workarounds: %w", err)
	}

	var doc workaroundDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if doc.Version > 1 {
		return nil, fmt.Errorf("%s has unsupported version %d", path, doc.Version)
	}

	seen := make(map[string]bool, len(doc.Workarounds))
	for i, r := range doc.Workarounds {
		if r == nil || r.ID == "" {
			return nil, fmt.Errorf("%s: entry %d has no id", path, i)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("%s: duplicate id %s", path, r.ID)
		}
		seen[r.ID] = true
	}
	return doc.Workarounds, nil
}

// Ensure YAMLWorkaroundFile implements the interface
var _ secondary.WorkaroundFile = (*YAMLWorkaroundFile)(nil)
