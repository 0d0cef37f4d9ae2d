// Package store persists the invoice mirror, tax results, pipeline runs,
// and reference data in Postgres.
package store

import (
	"context"
	"time"

	"github.com/ridgeline-services/fieldops/internal/db"
	"github.com/ridgeline-services/fieldops/internal/model"
)

// RunFilter narrows ListRuns results.
type RunFilter struct {
	Type   model.RunType
	Status model.RunStatus
	Limit  int
}

// InvoiceFilter narrows ListInvoices results. When IncludeCustomers is
// non-empty only those customers' invoices are returned; ExcludeCustomers
// removes customers from the set. Rows come back newest invoice date first.
type InvoiceFilter struct {
	IncludeCustomers []string
	ExcludeCustomers []string
	Limit            int
}

// Store is the persistence interface consumed by the pipeline stages.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	// Pipeline runs
	CreateRun(ctx context.Context, runType model.RunType, initiatedBy string) (*model.PipelineRun, error)
	UpdateRunProgress(ctx context.Context, runID string, p model.RunProgress) error
	CompleteRun(ctx context.Context, runID string, p model.RunProgress) error
	FailRun(ctx context.Context, runID, message, stack string) error
	GetRun(ctx context.Context, runID string) (*model.PipelineRun, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.PipelineRun, error)

	// Invoice mirror
	UpsertInvoice(ctx context.Context, inv model.SyncedInvoice) error
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.SyncedInvoice, error)

	// Tax results
	UpsertTaxResult(ctx context.Context, r model.TaxResult) error
	GetTaxResult(ctx context.Context, externalInvoiceID string) (*model.TaxResult, error)
	GetTaxResults(ctx context.Context, externalInvoiceIDs []string) (map[string]model.TaxResult, error)

	// Reference data
	UpsertCountyRates(ctx context.Context, rows []model.CountyTaxRate) (int64, error)
	ListCountyRates(ctx context.Context) ([]model.CountyTaxRate, error)

	// Customer allow/deny lists
	AddCustomerExclusion(ctx context.Context, e model.CustomerExclusion) error
	RemoveCustomerExclusion(ctx context.Context, externalCustomerID string) error
	ListCustomerExclusions(ctx context.Context) ([]model.CustomerExclusion, error)
	AddCustomerInclusion(ctx context.Context, e model.CustomerInclusion) error
	RemoveCustomerInclusion(ctx context.Context, externalCustomerID string) error
	ListCustomerInclusions(ctx context.Context) ([]model.CustomerInclusion, error)
}

// Pooler is implemented by stores that expose their underlying pool, used
// by the run lock and bulk helpers.
type Pooler interface {
	Pool() db.Pool
}

// nowUTC is indirected for tests.
var nowUTC = func() time.Time { return time.Now().UTC() }
