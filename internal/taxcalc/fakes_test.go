package taxcalc

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/store"
	"github.com/ridgeline-services/fieldops/pkg/geocode"
)

// fakeStore is an in-memory store.Store with per-method error injection.
type fakeStore struct {
	mu sync.Mutex

	invoices   []model.SyncedInvoice
	results    map[string]model.TaxResult
	rates      []model.CountyTaxRate
	exclusions []model.CustomerExclusion
	inclusions []model.CustomerInclusion
	runs       map[string]*model.PipelineRun
	runSeq     int

	progressUpdates   []model.RunProgress
	lastInvoiceFilter store.InvoiceFilter

	listRatesErr    error
	listInvoicesErr error
	upsertResultErr func(model.TaxResult) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		results: make(map[string]model.TaxResult),
		runs:    make(map[string]*model.PipelineRun),
	}
}

func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func (f *fakeStore) CreateRun(_ context.Context, runType model.RunType, initiatedBy string) (*model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runSeq++
	run := &model.PipelineRun{
		ID:          fmt.Sprintf("run-%d", f.runSeq),
		Type:        runType,
		Status:      model.RunStatusInProgress,
		InitiatedBy: initiatedBy,
		CreatedAt:   time.Now().UTC(),
	}
	f.runs[run.ID] = run
	return run, nil
}

func (f *fakeStore) UpdateRunProgress(_ context.Context, runID string, p model.RunProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.Status.Terminal() {
		return fmt.Errorf("run %s not found or terminal", runID)
	}
	f.progressUpdates = append(f.progressUpdates, p)
	applyProgress(run, p)
	return nil
}

func (f *fakeStore) CompleteRun(_ context.Context, runID string, p model.RunProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.Status.Terminal() {
		return fmt.Errorf("run %s not found or terminal", runID)
	}
	applyProgress(run, p)
	run.Status = model.RunStatusCompleted
	now := time.Now().UTC()
	run.CompletedAt = &now
	return nil
}

func (f *fakeStore) FailRun(_ context.Context, runID, message, stack string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok || run.Status.Terminal() {
		return fmt.Errorf("run %s not found or terminal", runID)
	}
	run.Status = model.RunStatusFailed
	run.Error = message
	run.ErrorStack = stack
	now := time.Now().UTC()
	run.CompletedAt = &now
	return nil
}

func applyProgress(run *model.PipelineRun, p model.RunProgress) {
	run.Message = p.Message
	run.TotalItems = p.TotalItems
	run.ItemsProcessed = p.ItemsProcessed
	run.Succeeded = p.Succeeded
	run.Skipped = p.Skipped
	run.Failed = p.Failed
	run.CurrentBatch = p.CurrentBatch
	run.TotalBatches = p.TotalBatches
}

func (f *fakeStore) GetRun(_ context.Context, runID string) (*model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s not found", runID)
	}
	cp := *run
	return &cp, nil
}

func (f *fakeStore) ListRuns(context.Context, store.RunFilter) ([]model.PipelineRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.PipelineRun, 0, len(f.runs))
	for _, r := range f.runs {
		out = append(out, *r)
	}
	return out, nil
}

func (f *fakeStore) UpsertInvoice(_ context.Context, inv model.SyncedInvoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invoices {
		if f.invoices[i].ExternalID == inv.ExternalID {
			f.invoices[i] = inv
			return nil
		}
	}
	f.invoices = append(f.invoices, inv)
	return nil
}

func (f *fakeStore) ListInvoices(_ context.Context, filter store.InvoiceFilter) ([]model.SyncedInvoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listInvoicesErr != nil {
		return nil, f.listInvoicesErr
	}
	f.lastInvoiceFilter = filter

	var out []model.SyncedInvoice
	for _, inv := range f.invoices {
		if len(filter.IncludeCustomers) > 0 && !slices.Contains(filter.IncludeCustomers, inv.ExternalCustomerID) {
			continue
		}
		if slices.Contains(filter.ExcludeCustomers, inv.ExternalCustomerID) {
			continue
		}
		out = append(out, inv)
	}
	return out, nil
}

func (f *fakeStore) UpsertTaxResult(_ context.Context, r model.TaxResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertResultErr != nil {
		if err := f.upsertResultErr(r); err != nil {
			return err
		}
	}
	f.results[r.ExternalInvoiceID] = r
	return nil
}

func (f *fakeStore) GetTaxResult(_ context.Context, externalInvoiceID string) (*model.TaxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.results[externalInvoiceID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (f *fakeStore) GetTaxResults(_ context.Context, ids []string) (map[string]model.TaxResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.TaxResult)
	for _, id := range ids {
		if r, ok := f.results[id]; ok {
			out[id] = r
		}
	}
	return out, nil
}

func (f *fakeStore) UpsertCountyRates(_ context.Context, rows []model.CountyTaxRate) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rates = rows
	return int64(len(rows)), nil
}

func (f *fakeStore) ListCountyRates(context.Context) ([]model.CountyTaxRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listRatesErr != nil {
		return nil, f.listRatesErr
	}
	return f.rates, nil
}

func (f *fakeStore) AddCustomerExclusion(_ context.Context, e model.CustomerExclusion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exclusions = append(f.exclusions, e)
	return nil
}

func (f *fakeStore) RemoveCustomerExclusion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exclusions = slices.DeleteFunc(f.exclusions, func(e model.CustomerExclusion) bool {
		return e.ExternalCustomerID == id
	})
	return nil
}

func (f *fakeStore) ListCustomerExclusions(context.Context) ([]model.CustomerExclusion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.exclusions), nil
}

func (f *fakeStore) AddCustomerInclusion(_ context.Context, e model.CustomerInclusion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inclusions = append(f.inclusions, e)
	return nil
}

func (f *fakeStore) RemoveCustomerInclusion(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inclusions = slices.DeleteFunc(f.inclusions, func(e model.CustomerInclusion) bool {
		return e.ExternalCustomerID == id
	})
	return nil
}

func (f *fakeStore) ListCustomerInclusions(context.Context) ([]model.CustomerInclusion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.inclusions), nil
}

// fakeGeocoder records lookups and answers from a fixed county map.
type fakeGeocoder struct {
	mu       sync.Mutex
	calls    []string
	counties map[string]string // address -> county; missing means no match
	err      error
}

func (g *fakeGeocoder) CountyLookup(_ context.Context, address string) (*geocode.CountyResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, address)
	if g.err != nil {
		return nil, g.err
	}
	county, ok := g.counties[address]
	if !ok {
		return &geocode.CountyResult{
			Confidence:  geocode.ConfidenceNoMatch,
			RawResponse: []byte(`{"result":{"addressMatches":[]}}`),
		}, nil
	}
	return &geocode.CountyResult{
		Success:     true,
		County:      county,
		State:       "NC",
		Confidence:  geocode.ConfidenceMatch,
		RawResponse: []byte(`{"matched":true}`),
	}, nil
}

func (g *fakeGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
