package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/ports/secondary"
	"github.com/example/parity/internal/version"
)

// JSONReportWriter implements secondary.ReportWriter with an indented JSON file.
type JSONReportWriter struct{}

// NewJSONReportWriter creates a new JSON report writer.
func NewJSONReportWriter() *JSONReportWriter {
	return &JSONReportWriter{}
}

// Report is the machine-readable document written for every run.
type Report struct {
	*run.ValidationRun
	Counts      run.Counts   `json:"counts"`
	GeneratedBy version.Info `json:"generated_by"`
}

// WriteReport writes the run, its diffs and verdict to path.
func (w *JSONReportWriter) WriteReport(ctx context.Context, r *run.ValidationRun, path string) error {
	if !r.Sealed() {
		return fmt.Errorf("refusing to write report for unsealed run %s", r.ID)
	}

	data, err := json.MarshalIndent(Report{ValidationRun: r, Counts: r.Counts(), GeneratedBy: version.Get()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report dir: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}

// Ensure JSONReportWriter implements the interface
var _ secondary.ReportWriter = (*JSONReportWriter)(nil)
