// Package taxcalc computes state and county sales tax for synced invoices.
package taxcalc

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-services/fieldops/internal/config"
	"github.com/ridgeline-services/fieldops/internal/db"
	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/rates"
	"github.com/ridgeline-services/fieldops/internal/store"
	"github.com/ridgeline-services/fieldops/pkg/geocode"
)

// Filters optionally restricts a calculation run to a customer set.
// IncludeMode treats CustomerIDs as an allow list; otherwise it is a deny
// list. An empty CustomerIDs falls back to the persisted inclusion table
// (allow list) when that table is non-empty.
type Filters struct {
	CustomerIDs []string
	IncludeMode bool
}

// CalculationResult is the outcome of one calculate run. Counters cover only
// invoices selected for (re)processing; already-settled invoices are skipped
// before they reach any counter.
type CalculationResult struct {
	Success           bool     `json:"success"`
	RunID             string   `json:"run_id"`
	TotalInvoices     int      `json:"total_invoices"`
	ProcessedInvoices int      `json:"processed_invoices"`
	CountedInvoices   int      `json:"counted_invoices"`
	SkippedInvoices   int      `json:"skipped_invoices"`
	FailedInvoices    int      `json:"failed_invoices"`
	Errors            []string `json:"errors,omitempty"`
	DurationMs        int64    `json:"duration_ms"`
}

// Calculator executes the tax enrichment stage.
type Calculator struct {
	store    store.Store
	geocoder geocode.Client
	lock     *db.RunLock
	cfg      config.TaxConfig
}

// New creates a Calculator. lock may be nil (tests).
func New(st store.Store, geocoder geocode.Client, lock *db.RunLock, cfg config.TaxConfig) *Calculator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	return &Calculator{store: st, geocoder: geocoder, lock: lock, cfg: cfg}
}

// CalculateTaxes selects invoices needing work, processes them in batches,
// and upserts one TaxResult per invoice. Repeated runs only touch new
// invoices and unpaid-skipped invoices that have since been paid.
func (c *Calculator) CalculateTaxes(ctx context.Context, initiatedBy string, filters Filters) (*CalculationResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("stage", "calculate"))

	if c.lock != nil {
		if err := c.lock.Acquire(ctx); err != nil {
			return nil, eris.Wrap(err, "taxcalc: acquire run lock")
		}
		defer func() {
			if err := c.lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("taxcalc: release run lock", zap.Error(err))
			}
		}()
	}

	run, err := c.store.CreateRun(ctx, model.RunTypeCalculate, initiatedBy)
	if err != nil {
		return nil, eris.Wrap(err, "taxcalc: create run")
	}

	result := &CalculationResult{RunID: run.ID}
	err = c.run(ctx, log, run.ID, filters, result)
	result.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		c.failRun(ctx, log, run.ID, err)
		return result, nil
	}

	progress := c.progress(result, result.TotalInvoices,
		fmt.Sprintf("Counted %d, skipped %d, failed %d of %d invoices",
			result.CountedInvoices, result.SkippedInvoices, result.FailedInvoices, result.ProcessedInvoices))
	if err := c.store.CompleteRun(ctx, run.ID, progress); err != nil {
		log.Warn("taxcalc: complete run", zap.Error(err))
	}

	result.Success = true
	log.Info("taxcalc: calculation complete",
		zap.String("run_id", run.ID),
		zap.Int("processed", result.ProcessedInvoices),
		zap.Int("counted", result.CountedInvoices),
		zap.Int("skipped", result.SkippedInvoices),
		zap.Int("failed", result.FailedInvoices),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return result, nil
}

// run drives selection and batch processing. A returned error is run-fatal.
func (c *Calculator) run(ctx context.Context, log *zap.Logger, runID string, filters Filters, result *CalculationResult) error {
	table, err := c.loadRates(ctx)
	if err != nil {
		return err
	}

	excluded, err := c.loadExclusions(ctx)
	if err != nil {
		return err
	}

	candidates, err := c.listCandidates(ctx, filters)
	if err != nil {
		return err
	}
	result.TotalInvoices = len(candidates)

	selected, err := c.selectInvoices(ctx, candidates)
	if err != nil {
		return err
	}
	log.Info("taxcalc: selected invoices",
		zap.Int("candidates", len(candidates)),
		zap.Int("selected", len(selected)),
	)

	batchSize := c.cfg.BatchSize
	totalBatches := (len(selected) + batchSize - 1) / batchSize

	for batch := 0; batch*batchSize < len(selected); batch++ {
		end := min((batch+1)*batchSize, len(selected))

		for _, inv := range selected[batch*batchSize : end] {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "taxcalc: cancelled")
			}

			taxResult := c.processInvoice(ctx, table, excluded, inv)
			if err := c.store.UpsertTaxResult(ctx, taxResult); err != nil {
				result.FailedInvoices++
				result.ProcessedInvoices++
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ExternalID, err))
				continue
			}

			result.ProcessedInvoices++
			switch taxResult.Status {
			case model.ResultStatusCounted:
				result.CountedInvoices++
			case model.ResultStatusFailed:
				result.FailedInvoices++
			default:
				result.SkippedInvoices++
			}
		}

		progress := c.progress(result, len(selected),
			fmt.Sprintf("Processing batch %d of %d", batch+1, totalBatches))
		progress.CurrentBatch = batch + 1
		progress.TotalBatches = totalBatches
		if err := c.store.UpdateRunProgress(ctx, runID, progress); err != nil {
			log.Warn("taxcalc: update progress", zap.Error(err))
		}
	}

	return nil
}

// processInvoice applies the per-invoice decision ladder. Every failure is
// terminal for this invoice only and lands in its TaxResult, never in an
// error return.
func (c *Calculator) processInvoice(ctx context.Context, table *rates.Table, excluded map[string]bool, inv model.SyncedInvoice) model.TaxResult {
	r := baseResult(inv)

	// Exclusion wins before anything else; excluded customers are never
	// geocoded.
	if excluded[inv.ExternalCustomerID] {
		r.Status = model.ResultStatusExcluded
		r.Reason = model.SkipReasonCustomerExcluded
		return r
	}

	if !inv.Paid() {
		r.Status = model.ResultStatusSkipped
		r.Reason = model.SkipReasonUnpaid
		return r
	}

	if inv.CustomerAddress == "" {
		r.Status = model.ResultStatusFailed
		r.Reason = model.SkipReasonNoAddress
		return r
	}

	geo, err := c.geocoder.CountyLookup(ctx, inv.CustomerAddress)
	if err != nil {
		r.Status = model.ResultStatusFailed
		r.Reason = model.SkipReasonGeocodingFailed
		r.Confidence = model.ConfidenceError
		return r
	}

	// Confidence and the raw payload are kept even on failure so low
	// confidence determinations can be audited without re-geocoding.
	r.Confidence = model.Confidence(geo.Confidence)
	r.RawGeocode = geo.RawResponse

	if !geo.Success || geo.County == "" {
		r.Status = model.ResultStatusFailed
		r.Reason = model.SkipReasonGeocodingFailed
		return r
	}
	r.County = rates.Canonical(geo.County)

	rate, ok := table.RateFor(geo.County)
	if !ok {
		// A missing rate is an explicit, reviewable failure. Taxing at
		// 0% silently would be worse.
		r.Status = model.ResultStatusFailed
		r.Reason = model.SkipReasonCountyRateNotFound
		return r
	}

	stateRate := c.cfg.StateRate
	if rate.StateRate > 0 {
		stateRate = rate.StateRate
	}

	r.StateTaxRate = stateRate
	r.CountyTaxRate = rate.CountyRate
	r.StateTaxAmount, r.CountyTaxAmount, r.TotalTax = computeTax(inv.Subtotal, stateRate, rate.CountyRate)
	r.Status = model.ResultStatusCounted
	return r
}

// selectInvoices applies the idempotency rule: process an invoice only when
// it has no result yet, or when its unpaid skip has been overtaken by a
// payment. Everything else is settled and is not touched again.
func (c *Calculator) selectInvoices(ctx context.Context, candidates []model.SyncedInvoice) ([]model.SyncedInvoice, error) {
	ids := make([]string, 0, len(candidates))
	for _, inv := range candidates {
		ids = append(ids, inv.ExternalID)
	}

	existing, err := c.store.GetTaxResults(ctx, ids)
	if err != nil {
		return nil, eris.Wrap(err, "taxcalc: load existing results")
	}

	var selected []model.SyncedInvoice
	for _, inv := range candidates {
		prev, ok := existing[inv.ExternalID]
		if !ok {
			selected = append(selected, inv)
			continue
		}
		if prev.Reason == model.SkipReasonUnpaid && inv.Paid() {
			selected = append(selected, inv)
		}
	}
	return selected, nil
}

// listCandidates builds the candidate set from the mirror, newest first.
func (c *Calculator) listCandidates(ctx context.Context, filters Filters) ([]model.SyncedInvoice, error) {
	var filter store.InvoiceFilter

	switch {
	case len(filters.CustomerIDs) > 0 && filters.IncludeMode:
		filter.IncludeCustomers = filters.CustomerIDs
	case len(filters.CustomerIDs) > 0:
		filter.ExcludeCustomers = filters.CustomerIDs
	default:
		inclusions, err := c.store.ListCustomerInclusions(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "taxcalc: load inclusions")
		}
		for _, inc := range inclusions {
			filter.IncludeCustomers = append(filter.IncludeCustomers, inc.ExternalCustomerID)
		}
	}

	invoices, err := c.store.ListInvoices(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "taxcalc: list invoices")
	}
	return invoices, nil
}

func (c *Calculator) loadRates(ctx context.Context) (*rates.Table, error) {
	rows, err := c.store.ListCountyRates(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "taxcalc: load county rates")
	}
	return rates.NewTable(rows), nil
}

func (c *Calculator) loadExclusions(ctx context.Context) (map[string]bool, error) {
	exclusions, err := c.store.ListCustomerExclusions(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "taxcalc: load exclusions")
	}
	excluded := make(map[string]bool, len(exclusions))
	for _, e := range exclusions {
		excluded[e.ExternalCustomerID] = true
	}
	return excluded, nil
}

func (c *Calculator) progress(result *CalculationResult, totalItems int, message string) model.RunProgress {
	return model.RunProgress{
		Message:        message,
		TotalItems:     totalItems,
		ItemsProcessed: result.ProcessedInvoices,
		Succeeded:      result.CountedInvoices,
		Skipped:        result.SkippedInvoices,
		Failed:         result.FailedInvoices,
	}
}

func (c *Calculator) failRun(ctx context.Context, log *zap.Logger, runID string, runErr error) {
	ctx = context.WithoutCancel(ctx)
	if err := c.store.FailRun(ctx, runID, runErr.Error(), eris.ToString(runErr, true)); err != nil {
		log.Error("taxcalc: fail run", zap.Error(err))
	}
	log.Error("taxcalc: calculation failed", zap.String("run_id", runID), zap.Error(runErr))
}

func baseResult(inv model.SyncedInvoice) model.TaxResult {
	return model.TaxResult{
		ExternalInvoiceID:  inv.ExternalID,
		InvoiceNumber:      inv.InvoiceNumber,
		InvoiceDate:        inv.InvoiceDate,
		PaidDate:           inv.PaidDate,
		ExternalCustomerID: inv.ExternalCustomerID,
		CustomerName:       inv.CustomerName,
		Subtotal:           inv.Subtotal,
		ProcessedAt:        time.Now().UTC(),
	}
}
