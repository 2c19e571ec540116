package filesystem

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/parity/internal/core/workaround"
)

func TestYAMLWorkaroundFile_ExportImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), WorkaroundsFile)
	file := NewYAMLWorkaroundFile()
	ctx := context.Background()

	records := []*workaround.Record{
		{
			ID:            "WA-001",
			Description:   "footnotes collected at end",
			Category:      workaround.CategoryPostProcessing,
			Impact:        workaround.ImpactCosmetic,
			Justification: "post-pass reorders",
			Dependency:    "goldmark",
			Scope:         []string{"footnotes@default"},
		},
		{
			ID:            "WA-002",
			Description:   "reference escapes quotes twice",
			Category:      workaround.CategoryAcceptAndDocument,
			Impact:        workaround.ImpactFunctional,
			Justification: "upstream issue filed",
			Decision:      workaround.DecisionDivergeIntentional,
		},
	}

	require.NoError(t, file.Export(ctx, path, records))

	loaded, err := file.Import(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
}

func TestYAMLWorkaroundFile_ImportRejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		WorkaroundsFile: "version: 1\nworkarounds:\n  - id: WA-001\n  - id: WA-001\n",
	})

	_, err := NewYAMLWorkaroundFile().Import(context.Background(), filepath.Join(dir, WorkaroundsFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate id WA-001")
}

func TestYAMLWorkaroundFile_ImportRejectsMissingID(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		WorkaroundsFile: "workarounds:\n  - description: nameless\n",
	})

	_, err := NewYAMLWorkaroundFile().Import(context.Background(), filepath.Join(dir, WorkaroundsFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no id")
}

func TestYAMLWorkaroundFile_ImportRejectsNewerVersion(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		WorkaroundsFile: "version: 2\nworkarounds: []\n",
	})

	_, err := NewYAMLWorkaroundFile().Import(context.Background(), filepath.Join(dir, WorkaroundsFile))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version 2")
}

func TestYAMLWorkaroundFile_ImportMissingFile(t *testing.T) {
	_, err := NewYAMLWorkaroundFile().Import(context.Background(), filepath.Join(t.TempDir(), WorkaroundsFile))
	assert.Error(t, err)
}
