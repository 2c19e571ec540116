package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/primary"
)

// WorkaroundAdapter is a thin adapter that translates CLI operations to WorkaroundService calls.
type WorkaroundAdapter struct {
	service primary.WorkaroundService
	out     io.Writer
}

// NewWorkaroundAdapter creates a new WorkaroundAdapter with the given service.
func NewWorkaroundAdapter(service primary.WorkaroundService, out io.Writer) *WorkaroundAdapter {
	return &WorkaroundAdapter{
		service: service,
		out:     out,
	}
}

// Register creates a workaround record.
func (a *WorkaroundAdapter) Register(ctx context.Context, req primary.RegisterWorkaroundRequest) (*workaround.Record, error) {
	record, err := a.service.RegisterWorkaround(ctx, req)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "✓ Registered workaround %s: %s\n", record.ID, record.Description)
	fmt.Fprintf(a.out, "  Category: %s\n", record.Category)
	fmt.Fprintf(a.out, "  Impact:   %s\n", record.Impact)
	if record.Dependency != "" {
		fmt.Fprintf(a.out, "  Dependency: %s\n", record.Dependency)
	}
	return record, nil
}

// List lists workarounds with optional filters.
func (a *WorkaroundAdapter) List(ctx context.Context, filters primary.WorkaroundFilters) ([]*workaround.Record, error) {
	records, err := a.service.ListWorkarounds(ctx, filters)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		fmt.Fprintln(a.out, "No workarounds found.")
		fmt.Fprintln(a.out)
		fmt.Fprintln(a.out, "Register your first workaround:")
		fmt.Fprintln(a.out, `  parity workaround add "smart quotes differ" --category post-processing --impact cosmetic --justification "..."`)
		return records, nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "ID\tCATEGORY\tIMPACT\tDEPENDENCY\tDESCRIPTION")
	fmt.Fprintln(w, "--\t--------\t------\t----------\t-----------")
	for _, r := range records {
		dep := r.Dependency
		if dep == "" {
			dep = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Category, r.Impact, dep, r.Description)
	}
	w.Flush()
	return records, nil
}

// Show displays details for a single workaround.
func (a *WorkaroundAdapter) Show(ctx context.Context, id string) (*workaround.Record, error) {
	r, err := a.service.GetWorkaround(ctx, id)
	if err != nil {
		return nil, err
	}

	fmt.Fprintf(a.out, "\nWorkaround: %s\n", r.ID)
	fmt.Fprintf(a.out, "Description:   %s\n", r.Description)
	fmt.Fprintf(a.out, "Category:      %s\n", r.Category)
	fmt.Fprintf(a.out, "Impact:        %s\n", r.Impact)
	fmt.Fprintf(a.out, "Justification: %s\n", r.Justification)
	if r.Dependency != "" {
		fmt.Fprintf(a.out, "Dependency:    %s\n", r.Dependency)
	}
	if r.Decision != workaround.DecisionNone {
		fmt.Fprintf(a.out, "Decision:      %s\n", r.Decision)
	}
	if len(r.Scope) > 0 {
		fmt.Fprintf(a.out, "Scope:         %s\n", strings.Join(r.Scope, ", "))
	}
	fmt.Fprintf(a.out, "Created:       %s\n", r.CreatedAt)
	fmt.Fprintf(a.out, "Updated:       %s\n", r.UpdatedAt)
	fmt.Fprintln(a.out)
	return r, nil
}

// Update applies changes to a workaround.
func (a *WorkaroundAdapter) Update(ctx context.Context, req primary.UpdateWorkaroundRequest) (*workaround.Record, error) {
	r, err := a.service.UpdateWorkaround(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Workaround %s updated\n", r.ID)
	return r, nil
}

// Delete removes a workaround, pruning the classifications that cite it
// when the request asks for that.
func (a *WorkaroundAdapter) Delete(ctx context.Context, req primary.DeleteWorkaroundRequest) (*primary.DeleteWorkaroundResult, error) {
	result, err := a.service.DeleteWorkaround(ctx, req)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Workaround %s deleted\n", result.ID)
	if result.Pruned > 0 {
		fmt.Fprintf(a.out, "  Pruned %d classification(s) that cited it\n", result.Pruned)
	}
	return result, nil
}

// Export writes every workaround to path.
func (a *WorkaroundAdapter) Export(ctx context.Context, path string) (int, error) {
	n, err := a.service.ExportWorkarounds(ctx, path)
	if err != nil {
		return 0, err
	}
	fmt.Fprintf(a.out, "✓ Exported %d workaround(s) to %s\n", n, path)
	return n, nil
}

// Import loads workarounds from path.
func (a *WorkaroundAdapter) Import(ctx context.Context, path string) (*primary.ImportResult, error) {
	result, err := a.service.ImportWorkarounds(ctx, path)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.out, "✓ Imported %s: %d created, %d updated\n", path, result.Created, result.Updated)
	return result, nil
}
