// Package taxsync pulls invoices from the external invoicing provider into
// the local mirror in paginated batches.
package taxsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/ridgeline-services/fieldops/internal/db"
	"github.com/ridgeline-services/fieldops/internal/model"
	"github.com/ridgeline-services/fieldops/internal/store"
	"github.com/ridgeline-services/fieldops/pkg/invoicing"
)

// SyncResult is the outcome of one sync run. Errors holds per-invoice upsert
// failures; they do not make the run unsuccessful on their own.
type SyncResult struct {
	Success     bool     `json:"success"`
	RunID       string   `json:"run_id"`
	TotalSynced int      `json:"total_synced"`
	Errors      []string `json:"errors,omitempty"`
	DurationMs  int64    `json:"duration_ms"`
}

// Syncer executes the invoice sync stage.
type Syncer struct {
	store    store.Store
	client   invoicing.Client
	lock     *db.RunLock
	pageSize int
}

// New creates a Syncer. lock may be nil when run-type mutual exclusion is
// handled elsewhere (tests).
func New(st store.Store, client invoicing.Client, lock *db.RunLock, pageSize int) *Syncer {
	if pageSize <= 0 || pageSize > invoicing.MaxPageSize {
		pageSize = invoicing.MaxPageSize
	}
	return &Syncer{store: st, client: client, lock: lock, pageSize: pageSize}
}

// SyncInvoices pulls every invoice from the provider and upserts it into the
// mirror. Re-running is safe: upserts are keyed by external id, so repeated
// pages and repeated runs converge on the same rows.
func (s *Syncer) SyncInvoices(ctx context.Context, initiatedBy string) (*SyncResult, error) {
	start := time.Now()
	log := zap.L().With(zap.String("stage", "sync"))

	if s.lock != nil {
		if err := s.lock.Acquire(ctx); err != nil {
			return nil, eris.Wrap(err, "taxsync: acquire run lock")
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("taxsync: release run lock", zap.Error(err))
			}
		}()
	}

	run, err := s.store.CreateRun(ctx, model.RunTypeSync, initiatedBy)
	if err != nil {
		return nil, eris.Wrap(err, "taxsync: create run")
	}

	result := &SyncResult{RunID: run.ID}
	err = s.syncAll(ctx, log, run.ID, result)
	result.DurationMs = time.Since(start).Milliseconds()

	if err != nil {
		s.failRun(ctx, log, run.ID, err)
		return result, nil
	}

	progress := s.progress(result, fmt.Sprintf("Synced %d invoices", result.TotalSynced))
	if err := s.store.CompleteRun(ctx, run.ID, progress); err != nil {
		log.Warn("taxsync: complete run", zap.Error(err))
	}

	result.Success = true
	log.Info("taxsync: sync complete",
		zap.String("run_id", run.ID),
		zap.Int("total_synced", result.TotalSynced),
		zap.Int("errors", len(result.Errors)),
		zap.Int64("duration_ms", result.DurationMs),
	)
	return result, nil
}

// syncAll drives the page loop. A returned error is run-fatal; per-invoice
// failures are collected into result.Errors and the loop continues.
func (s *Syncer) syncAll(ctx context.Context, log *zap.Logger, runID string, result *SyncResult) error {
	if err := s.client.Authenticate(ctx); err != nil {
		return eris.Wrap(err, "taxsync: authenticate")
	}

	seen := make(map[string]bool)
	offset := 0
	page := 0

	for {
		invoices, err := s.client.ListInvoices(ctx, offset, s.pageSize)
		if err != nil {
			return eris.Wrapf(err, "taxsync: list invoices at offset %d", offset)
		}
		if len(invoices) == 0 {
			break
		}
		page++

		for _, inv := range invoices {
			if err := ctx.Err(); err != nil {
				return eris.Wrap(err, "taxsync: cancelled")
			}

			mirror := normalize(inv)
			if err := s.store.UpsertInvoice(ctx, mirror); err != nil {
				// One bad record must not abort the sync.
				result.Errors = append(result.Errors, fmt.Sprintf("invoice %s: %v", inv.ID, err))
				log.Warn("taxsync: upsert invoice failed",
					zap.String("invoice_id", inv.ID),
					zap.Error(err),
				)
				continue
			}
			if !seen[inv.ID] {
				seen[inv.ID] = true
				result.TotalSynced++
			}
		}

		progress := s.progress(result, fmt.Sprintf("Synced page %d (%d invoices)", page, result.TotalSynced))
		if err := s.store.UpdateRunProgress(ctx, runID, progress); err != nil {
			log.Warn("taxsync: update progress", zap.Error(err))
		}

		if len(invoices) < s.pageSize {
			break
		}
		offset += s.pageSize
	}

	return nil
}

func (s *Syncer) progress(result *SyncResult, message string) model.RunProgress {
	return model.RunProgress{
		Message:        message,
		TotalItems:     result.TotalSynced + len(result.Errors),
		ItemsProcessed: result.TotalSynced + len(result.Errors),
		Succeeded:      result.TotalSynced,
		Failed:         len(result.Errors),
	}
}

func (s *Syncer) failRun(ctx context.Context, log *zap.Logger, runID string, runErr error) {
	// Persist the terminal state even when the context is already gone.
	ctx = context.WithoutCancel(ctx)
	if err := s.store.FailRun(ctx, runID, runErr.Error(), eris.ToString(runErr, true)); err != nil {
		log.Error("taxsync: fail run", zap.Error(err))
	}
	log.Error("taxsync: sync failed", zap.String("run_id", runID), zap.Error(runErr))
}

// normalize converts a provider invoice into its mirror row.
func normalize(inv invoicing.Invoice) model.SyncedInvoice {
	return model.SyncedInvoice{
		ExternalID:         inv.ID,
		InvoiceNumber:      inv.InvoiceNumber,
		InvoiceDate:        inv.InvoiceDate.TimePtr(),
		DueDate:            inv.DueDate.TimePtr(),
		ExternalCustomerID: inv.CustomerID,
		CustomerName:       inv.CustomerName,
		CustomerAddress:    inv.CustomerAddress,
		CustomerEmail:      inv.CustomerEmail,
		Subtotal:           inv.Amount,
		AmountDue:          inv.AmountDue,
		PaymentStatus:      normalizeStatus(inv.Status),
		PaidDate:           inv.PaidDate.TimePtr(),
		LastSyncedAt:       time.Now().UTC(),
	}
}

func normalizeStatus(status string) model.PaymentStatus {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "paid":
		return model.PaymentStatusPaid
	case "unpaid", "":
		return model.PaymentStatusUnpaid
	default:
		return model.PaymentStatus(strings.ToLower(strings.TrimSpace(status)))
	}
}
