package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-services/fieldops/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO pipeline_runs`).
		WithArgs(pgxmock.AnyArg(), "sync", "in_progress", "tester", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunTypeSync, "tester")
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunTypeSync, run.Type)
	assert.Equal(t, model.RunStatusInProgress, run.Status)
	assert.Equal(t, "tester", run.InitiatedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunProgress(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_runs.+items_processed = LEAST\(\$3, \$2\).+WHERE id = \$9 AND status = \$10`).
		WithArgs("msg", 100, 40, 30, 5, 5, 2, 5, "run-1", "in_progress").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRunProgress(context.Background(), "run-1", model.RunProgress{
		Message:        "msg",
		TotalItems:     100,
		ItemsProcessed: 40,
		Succeeded:      30,
		Skipped:        5,
		Failed:         5,
		CurrentBatch:   2,
		TotalBatches:   5,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRunProgress_TerminalRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// The status guard means a finished run matches zero rows.
	mock.ExpectExec(`UPDATE pipeline_runs`).
		WithArgs(anyArgs(10)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRunProgress(context.Background(), "run-done", model.RunProgress{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or terminal")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_runs.+completed_at = \$12.+WHERE id = \$13 AND status = \$14`).
		WithArgs(anyArgs(14)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.CompleteRun(context.Background(), "run-1", model.RunProgress{
		Message: "done", TotalItems: 10, ItemsProcessed: 10, Succeeded: 10,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailRun_AlreadyTerminal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE pipeline_runs`).
		WithArgs(anyArgs(6)...).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FailRun(context.Background(), "run-done", "boom", "stack")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found or terminal")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM pipeline_runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func runRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "run_type", "status", "message", "total_items", "items_processed",
		"succeeded", "skipped", "failed", "current_batch", "total_batches",
		"initiated_by", "error", "error_stack", "created_at", "completed_at",
	})
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	completed := created.Add(time.Minute)
	mock.ExpectQuery(`SELECT .+ FROM pipeline_runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(runRows().AddRow(
			"run-1", "calculate", "completed", "Counted 8", 10, 10,
			8, 1, 1, 5, 5,
			"tester", "", "", created, &completed,
		))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)

	assert.Equal(t, model.RunTypeCalculate, run.Type)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	assert.True(t, run.Status.Terminal())
	assert.Equal(t, 8, run.Succeeded)
	require.NotNil(t, run.CompletedAt)
	assert.Equal(t, completed, *run.CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_Filtered(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	created := time.Now().UTC()
	mock.ExpectQuery(`SELECT .+ FROM pipeline_runs WHERE true AND run_type = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("sync", 5).
		WillReturnRows(runRows().AddRow(
			"run-2", "sync", "in_progress", "", 0, 0, 0, 0, 0, 0, 0,
			"", "", "", created, nil,
		))

	runs, err := s.ListRuns(context.Background(), RunFilter{Type: model.RunTypeSync, Limit: 5})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Nil(t, runs[0].CompletedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertInvoice(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO synced_invoices.+ON CONFLICT \(external_id\) DO UPDATE SET`).
		WithArgs(anyArgs(13)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertInvoice(context.Background(), model.SyncedInvoice{
		ExternalID:    "inv-1",
		PaymentStatus: model.PaymentStatusPaid,
		Subtotal:      100.50,
		LastSyncedAt:  time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListInvoices_CustomerFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"external_id", "invoice_number", "invoice_date", "due_date",
		"external_customer_id", "customer_name", "customer_address", "customer_email",
		"subtotal", "amount_due", "payment_status", "paid_date", "last_synced_at"}

	mock.ExpectQuery(`SELECT .+ FROM synced_invoices WHERE true AND external_customer_id = ANY\(\$1\)`).
		WithArgs([]string{"cust-1"}).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"inv-1", "INV-1", nil, nil, "cust-1", "Acme", "123 Main St", "",
			250.00, 0.0, "paid", nil, time.Now().UTC(),
		))

	invoices, err := s.ListInvoices(context.Background(), InvoiceFilter{IncludeCustomers: []string{"cust-1"}})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "inv-1", invoices[0].ExternalID)
	assert.True(t, invoices[0].Paid())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertTaxResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO tax_results.+ON CONFLICT \(external_invoice_id\) DO UPDATE SET`).
		WithArgs(anyArgs(18)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertTaxResult(context.Background(), model.TaxResult{
		ExternalInvoiceID: "inv-1",
		Status:            model.ResultStatusCounted,
		County:            "Wake",
		TotalTax:          72.50,
		ProcessedAt:       time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTaxResult_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM tax_results WHERE external_invoice_id = \$1`).
		WithArgs("inv-missing").
		WillReturnError(pgx.ErrNoRows)

	result, err := s.GetTaxResult(context.Background(), "inv-missing")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetTaxResults_EmptyIDs(t *testing.T) {
	s, _ := newMockPostgresStore(t)

	// No ids means no query at all.
	results, err := s.GetTaxResults(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPostgresStore_GetTaxResults(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	cols := []string{"external_invoice_id", "invoice_number", "invoice_date", "paid_date",
		"external_customer_id", "customer_name", "subtotal", "status", "reason", "county",
		"confidence", "raw_geocode", "state_tax_rate", "state_tax_amount",
		"county_tax_rate", "county_tax_amount", "total_tax", "processed_at"}

	mock.ExpectQuery(`SELECT .+ FROM tax_results WHERE external_invoice_id = ANY\(\$1\)`).
		WithArgs([]string{"inv-1", "inv-2"}).
		WillReturnRows(pgxmock.NewRows(cols).AddRow(
			"inv-1", "INV-1", nil, nil, "cust-1", "Acme", 1000.00,
			"counted", "", "Wake", "Match", []byte(`{}`),
			0.0475, 47.50, 0.0250, 25.00, 72.50, time.Now().UTC(),
		))

	results, err := s.GetTaxResults(context.Background(), []string{"inv-1", "inv-2"})
	require.NoError(t, err)
	require.Len(t, results, 1)

	r := results["inv-1"]
	assert.Equal(t, model.ResultStatusCounted, r.Status)
	assert.Equal(t, model.ConfidenceMatch, r.Confidence)
	assert.Equal(t, 72.50, r.TotalTax)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertCountyRates_ComputesTotal(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_county_tax_rates"},
		[]string{"county", "state_rate", "county_rate", "total_rate"}).
		WillReturnResult(1)
	mock.ExpectExec(`INSERT INTO "county_tax_rates".+ON CONFLICT \("county"\) DO UPDATE SET`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := s.UpsertCountyRates(context.Background(), []model.CountyTaxRate{
		{County: "Wake", StateRate: 0.0475, CountyRate: 0.0250},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CustomerExclusions(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO customer_exclusions.+ON CONFLICT \(external_customer_id\) DO UPDATE SET reason = \$2`).
		WithArgs("cust-1", "tax exempt", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AddCustomerExclusion(context.Background(), model.CustomerExclusion{
		ExternalCustomerID: "cust-1",
		Reason:             "tax exempt",
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT external_customer_id, reason FROM customer_exclusions`).
		WillReturnRows(pgxmock.NewRows([]string{"external_customer_id", "reason"}).
			AddRow("cust-1", "tax exempt"))

	exclusions, err := s.ListCustomerExclusions(context.Background())
	require.NoError(t, err)
	require.Len(t, exclusions, 1)
	assert.Equal(t, "cust-1", exclusions[0].ExternalCustomerID)

	mock.ExpectExec(`DELETE FROM customer_exclusions WHERE external_customer_id = \$1`).
		WithArgs("cust-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.RemoveCustomerExclusion(context.Background(), "cust-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
