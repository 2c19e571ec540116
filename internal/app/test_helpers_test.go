package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/example/parity/internal/core/execution"
	"github.com/example/parity/internal/core/fixture"
	"github.com/example/parity/internal/core/run"
	"github.com/example/parity/internal/core/workaround"
	"github.com/example/parity/internal/ports/secondary"
)

// ============================================================================
// Fixture store
// ============================================================================

// mockFixtureStore implements secondary.FixtureStore for testing.
type mockFixtureStore struct {
	root       string
	fixtures   []fixture.Fixture
	provenance fixture.Provenance
	err        error
}

func (m *mockFixtureStore) Root() string { return m.root }

func (m *mockFixtureStore) ListFixtures(ctx context.Context) ([]fixture.Fixture, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.fixtures, nil
}

func (m *mockFixtureStore) ModesFor(ctx context.Context, name string) ([]fixture.Mode, error) {
	for _, f := range m.fixtures {
		if f.Name == name {
			return f.Modes, nil
		}
	}
	return nil, fmt.Errorf("fixture %s not found", name)
}

func (m *mockFixtureStore) Provenance(ctx context.Context) (fixture.Provenance, error) {
	return m.provenance, m.err
}

// textFixture builds a fixture whose expected output under every mode is
// the input itself, matching echoInvoker's reference behaviour.
func textFixture(name, input string, modes ...string) fixture.Fixture {
	if len(modes) == 0 {
		modes = []string{"default"}
	}
	f := fixture.Fixture{Name: name, Input: []byte(input), Expected: map[string][]byte{}}
	for _, m := range modes {
		f.Modes = append(f.Modes, fixture.Mode{Name: m})
		f.Expected[m] = []byte(input)
	}
	return f
}

// ============================================================================
// Process invoker
// ============================================================================

// echoInvoker implements secondary.ProcessInvoker. By default every
// invocation echoes the fixture input to stdout with exit code 0;
// overrides replace the outcome for individual keys or a whole origin.
type echoInvoker struct {
	mu        sync.Mutex
	overrides map[execution.Key]func(secondary.Invocation) (execution.Result, error)
	byOrigin  map[execution.Origin]func(secondary.Invocation) (execution.Result, error)
	calls     []execution.Key
}

func newEchoInvoker() *echoInvoker {
	return &echoInvoker{
		overrides: make(map[execution.Key]func(secondary.Invocation) (execution.Result, error)),
		byOrigin:  make(map[execution.Origin]func(secondary.Invocation) (execution.Result, error)),
	}
}

// candidateStdout makes the candidate print out for one fixture/mode.
func (e *echoInvoker) candidateStdout(fixtureName, mode, out string) {
	key := execution.Key{Fixture: fixtureName, Mode: mode, Origin: execution.OriginCandidate}
	e.overrides[key] = func(inv secondary.Invocation) (execution.Result, error) {
		return execution.Result{Key: inv.Key, Stdout: []byte(out)}, nil
	}
}

func (e *echoInvoker) Invoke(ctx context.Context, inv secondary.Invocation) (execution.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, inv.Key)
	fn := e.overrides[inv.Key]
	if fn == nil {
		fn = e.byOrigin[inv.Key.Origin]
	}
	e.mu.Unlock()

	if fn != nil {
		return fn(inv)
	}
	return execution.Result{Key: inv.Key, Stdout: inv.Input}, nil
}

func (e *echoInvoker) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

// ============================================================================
// Repositories
// ============================================================================

// mockWorkaroundRepository implements secondary.WorkaroundRepository for testing.
type mockWorkaroundRepository struct {
	records         map[string]*workaround.Record
	classifications *mockClassificationRepository
	nextID          int
	createErr       error
	importErr       error
}

func newMockWorkaroundRepository(classifications *mockClassificationRepository) *mockWorkaroundRepository {
	return &mockWorkaroundRepository{
		records:         make(map[string]*workaround.Record),
		classifications: classifications,
	}
}

func (m *mockWorkaroundRepository) Create(ctx context.Context, record *workaround.Record) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.records[record.ID]; ok {
		return fmt.Errorf("workaround %s already exists", record.ID)
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockWorkaroundRepository) GetByID(ctx context.Context, id string) (*workaround.Record, error) {
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, fmt.Errorf("workaround %s not found", id)
}

func (m *mockWorkaroundRepository) List(ctx context.Context, filters secondary.WorkaroundFilters) ([]*workaround.Record, error) {
	var out []*workaround.Record
	for _, r := range m.records {
		if filters.Category != "" && string(r.Category) != filters.Category {
			continue
		}
		if filters.Dependency != "" && r.Dependency != filters.Dependency {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockWorkaroundRepository) Update(ctx context.Context, record *workaround.Record) error {
	if _, ok := m.records[record.ID]; !ok {
		return fmt.Errorf("workaround %s not found", record.ID)
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *mockWorkaroundRepository) Delete(ctx context.Context, id string) error {
	if _, ok := m.records[id]; !ok {
		return fmt.Errorf("workaround %s not found", id)
	}
	delete(m.records, id)
	return nil
}

func (m *mockWorkaroundRepository) GetNextID(ctx context.Context) (string, error) {
	m.nextID++
	return fmt.Sprintf("WA-%03d", m.nextID), nil
}

func (m *mockWorkaroundRepository) CountClassifications(ctx context.Context, id string) (int, error) {
	if m.classifications == nil {
		return 0, nil
	}
	n := 0
	for _, r := range m.classifications.records {
		if r.WorkaroundID == id {
			n++
		}
	}
	return n, nil
}

func (m *mockWorkaroundRepository) DeleteWithClassifications(ctx context.Context, id string) (int, error) {
	if _, ok := m.records[id]; !ok {
		return 0, fmt.Errorf("workaround %s not found", id)
	}
	pruned := 0
	if m.classifications != nil {
		for key, r := range m.classifications.records {
			if r.WorkaroundID == id {
				delete(m.classifications.records, key)
				pruned++
			}
		}
	}
	delete(m.records, id)
	return pruned, nil
}

// Import applies nothing unless every record can be written.
func (m *mockWorkaroundRepository) Import(ctx context.Context, create, update []*workaround.Record) error {
	if m.importErr != nil {
		return m.importErr
	}
	for _, r := range update {
		if _, ok := m.records[r.ID]; !ok {
			return fmt.Errorf("workaround %s not found", r.ID)
		}
	}
	for _, r := range create {
		if _, ok := m.records[r.ID]; ok {
			return fmt.Errorf("workaround %s already exists", r.ID)
		}
	}
	for _, r := range append(append([]*workaround.Record{}, update...), create...) {
		cp := *r
		m.records[r.ID] = &cp
	}
	return nil
}

// mockClassificationRepository implements secondary.ClassificationRepository for testing.
type mockClassificationRepository struct {
	records map[string]*secondary.ClassificationRecord
}

func newMockClassificationRepository() *mockClassificationRepository {
	return &mockClassificationRepository{records: make(map[string]*secondary.ClassificationRecord)}
}

func classificationKey(fixture, mode, fingerprint string) string {
	return fixture + "@" + mode + "#" + fingerprint
}

func (m *mockClassificationRepository) Save(ctx context.Context, record *secondary.ClassificationRecord) error {
	key := classificationKey(record.Fixture, record.Mode, record.Fingerprint)
	if _, ok := m.records[key]; ok {
		return errors.New("UNIQUE constraint failed")
	}
	cp := *record
	m.records[key] = &cp
	return nil
}

func (m *mockClassificationRepository) Lookup(ctx context.Context, fixture, mode, fingerprint string) (*secondary.ClassificationRecord, error) {
	if r, ok := m.records[classificationKey(fixture, mode, fingerprint)]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (m *mockClassificationRepository) List(ctx context.Context, filters secondary.ClassificationFilters) ([]*secondary.ClassificationRecord, error) {
	var out []*secondary.ClassificationRecord
	for _, r := range m.records {
		if filters.Fixture != "" && r.Fixture != filters.Fixture {
			continue
		}
		if filters.Category != "" && r.Category != filters.Category {
			continue
		}
		if filters.WorkaroundID != "" && r.WorkaroundID != filters.WorkaroundID {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		return classificationKey(out[i].Fixture, out[i].Mode, out[i].Fingerprint) < classificationKey(out[j].Fixture, out[j].Mode, out[j].Fingerprint)
	})
	return out, nil
}

func (m *mockClassificationRepository) Delete(ctx context.Context, fixture, mode, fingerprint string) error {
	key := classificationKey(fixture, mode, fingerprint)
	if _, ok := m.records[key]; !ok {
		return fmt.Errorf("no classification recorded for %s@%s", fixture, mode)
	}
	delete(m.records, key)
	return nil
}

// mockRunRepository implements secondary.RunRepository for testing.
type mockRunRepository struct {
	runs  map[string]*run.ValidationRun
	order []string
}

func newMockRunRepository() *mockRunRepository {
	return &mockRunRepository{runs: make(map[string]*run.ValidationRun)}
}

func (m *mockRunRepository) Save(ctx context.Context, r *run.ValidationRun) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.Sealed() {
		return fmt.Errorf("cannot persist unsealed run %s", r.ID)
	}
	m.runs[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockRunRepository) GetByID(ctx context.Context, id string) (*run.ValidationRun, error) {
	if r, ok := m.runs[id]; ok {
		return r, nil
	}
	return nil, fmt.Errorf("run %s not found", id)
}

func (m *mockRunRepository) Latest(ctx context.Context) (*run.ValidationRun, error) {
	if len(m.order) == 0 {
		return nil, nil
	}
	return m.runs[m.order[len(m.order)-1]], nil
}

func (m *mockRunRepository) List(ctx context.Context, limit int) ([]*secondary.RunSummaryRecord, error) {
	var out []*secondary.RunSummaryRecord
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.runs[m.order[i]]
		out = append(out, &secondary.RunSummaryRecord{
			ID:      r.ID,
			Outcome: string(r.Verdict.Outcome),
			Pairs:   r.Pairs,
			Results: len(r.Results),
			Diffs:   len(r.Diffs),
			Errors:  len(r.Errors),
		})
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ============================================================================
// Other secondary ports
// ============================================================================

// mockLogWriter implements secondary.LogWriter for testing.
type mockLogWriter struct {
	entries []string
}

func (m *mockLogWriter) LogCreate(ctx context.Context, entityType, entityID string) error {
	m.entries = append(m.entries, "create "+entityType+" "+entityID)
	return nil
}

func (m *mockLogWriter) LogUpdate(ctx context.Context, entityType, entityID, fieldName, oldValue, newValue string) error {
	m.entries = append(m.entries, "update "+entityType+" "+entityID+" "+fieldName)
	return nil
}

func (m *mockLogWriter) LogDelete(ctx context.Context, entityType, entityID string) error {
	m.entries = append(m.entries, "delete "+entityType+" "+entityID)
	return nil
}

// mockReportWriter implements secondary.ReportWriter for testing.
type mockReportWriter struct {
	paths []string
	runs  []*run.ValidationRun
}

func (m *mockReportWriter) WriteReport(ctx context.Context, r *run.ValidationRun, path string) error {
	m.paths = append(m.paths, path)
	m.runs = append(m.runs, r)
	return nil
}

// mockWorkaroundFile implements secondary.WorkaroundFile for testing.
type mockWorkaroundFile struct {
	exported []*workaround.Record
	toImport []*workaround.Record
}

func (m *mockWorkaroundFile) Export(ctx context.Context, path string, records []*workaround.Record) error {
	m.exported = records
	return nil
}

func (m *mockWorkaroundFile) Import(ctx context.Context, path string) ([]*workaround.Record, error) {
	return m.toImport, nil
}

// Ensure mocks implement the interfaces
var (
	_ secondary.FixtureStore             = (*mockFixtureStore)(nil)
	_ secondary.ProcessInvoker           = (*echoInvoker)(nil)
	_ secondary.WorkaroundRepository     = (*mockWorkaroundRepository)(nil)
	_ secondary.ClassificationRepository = (*mockClassificationRepository)(nil)
	_ secondary.RunRepository            = (*mockRunRepository)(nil)
	_ secondary.LogWriter                = (*mockLogWriter)(nil)
	_ secondary.ReportWriter             = (*mockReportWriter)(nil)
	_ secondary.WorkaroundFile           = (*mockWorkaroundFile)(nil)
)

// ============================================================================
// Test harness
// ============================================================================

// harness wires every service against shared mocks.
type harness struct {
	store           *mockFixtureStore
	invoker         *echoInvoker
	workarounds     *mockWorkaroundRepository
	classifications *mockClassificationRepository
	runs            *mockRunRepository
	reports         *mockReportWriter
	logs            *mockLogWriter
	file            *mockWorkaroundFile

	validation     *ValidationServiceImpl
	classification *ClassificationServiceImpl
	workaround     *WorkaroundServiceImpl
}

func newHarness(fixtures ...fixture.Fixture) *harness {
	h := &harness{
		store: &mockFixtureStore{
			root:       "/corpus",
			fixtures:   fixtures,
			provenance: fixture.Provenance{ReferenceVersion: "ref 1.0", GeneratedAt: "2026-01-04"},
		},
		invoker:         newEchoInvoker(),
		classifications: newMockClassificationRepository(),
		runs:            newMockRunRepository(),
		reports:         &mockReportWriter{},
		logs:            &mockLogWriter{},
		file:            &mockWorkaroundFile{},
	}
	h.workarounds = newMockWorkaroundRepository(h.classifications)

	runner := NewDualRunner(h.invoker, nil)
	h.validation = NewValidationService(h.store, runner, h.runs, h.classifications, h.workarounds, h.reports, nil)
	h.classification = NewClassificationService(h.runs, h.classifications, h.workarounds, h.logs)
	h.workaround = NewWorkaroundService(h.workarounds, h.runs, h.file, h.logs)
	return h
}
