package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/ridgeline-services/fieldops/internal/db"
	"github.com/ridgeline-services/fieldops/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, maxConns, minConns int32) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if minConns <= 0 {
		minConns = 2
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// access (run locking, bulk loads).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS synced_invoices (
	external_id          TEXT PRIMARY KEY,
	invoice_number       TEXT NOT NULL DEFAULT '',
	invoice_date         DATE,
	due_date             DATE,
	external_customer_id TEXT NOT NULL DEFAULT '',
	customer_name        TEXT NOT NULL DEFAULT '',
	customer_address     TEXT NOT NULL DEFAULT '',
	customer_email       TEXT NOT NULL DEFAULT '',
	subtotal             NUMERIC(12,2) NOT NULL DEFAULT 0,
	amount_due           NUMERIC(12,2) NOT NULL DEFAULT 0,
	payment_status       TEXT NOT NULL DEFAULT 'unpaid',
	paid_date            DATE,
	last_synced_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_synced_invoices_customer ON synced_invoices(external_customer_id);
CREATE INDEX IF NOT EXISTS idx_synced_invoices_invoice_date ON synced_invoices(invoice_date DESC);

CREATE TABLE IF NOT EXISTS tax_results (
	external_invoice_id  TEXT PRIMARY KEY,
	invoice_number       TEXT NOT NULL DEFAULT '',
	invoice_date         DATE,
	paid_date            DATE,
	external_customer_id TEXT NOT NULL DEFAULT '',
	customer_name        TEXT NOT NULL DEFAULT '',
	subtotal             NUMERIC(12,2) NOT NULL DEFAULT 0,
	status               TEXT NOT NULL,
	reason               TEXT NOT NULL DEFAULT '',
	county               TEXT NOT NULL DEFAULT '',
	confidence           TEXT NOT NULL DEFAULT '',
	raw_geocode          JSONB,
	state_tax_rate       NUMERIC(7,5) NOT NULL DEFAULT 0,
	state_tax_amount     NUMERIC(12,2) NOT NULL DEFAULT 0,
	county_tax_rate      NUMERIC(7,5) NOT NULL DEFAULT 0,
	county_tax_amount    NUMERIC(12,2) NOT NULL DEFAULT 0,
	total_tax            NUMERIC(12,2) NOT NULL DEFAULT 0,
	processed_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_tax_results_status ON tax_results(status);
CREATE INDEX IF NOT EXISTS idx_tax_results_reason ON tax_results(reason);

CREATE TABLE IF NOT EXISTS pipeline_runs (
	id              TEXT PRIMARY KEY,
	run_type        TEXT NOT NULL,
	status          TEXT NOT NULL DEFAULT 'in_progress',
	message         TEXT NOT NULL DEFAULT '',
	total_items     INTEGER NOT NULL DEFAULT 0,
	items_processed INTEGER NOT NULL DEFAULT 0,
	succeeded       INTEGER NOT NULL DEFAULT 0,
	skipped         INTEGER NOT NULL DEFAULT 0,
	failed          INTEGER NOT NULL DEFAULT 0,
	current_batch   INTEGER NOT NULL DEFAULT 0,
	total_batches   INTEGER NOT NULL DEFAULT 0,
	initiated_by    TEXT NOT NULL DEFAULT '',
	error           TEXT NOT NULL DEFAULT '',
	error_stack     TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at    TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_pipeline_runs_type_created ON pipeline_runs(run_type, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_pipeline_runs_status ON pipeline_runs(status);

CREATE TABLE IF NOT EXISTS county_tax_rates (
	county      TEXT PRIMARY KEY,
	state_rate  NUMERIC(7,5) NOT NULL,
	county_rate NUMERIC(7,5) NOT NULL,
	total_rate  NUMERIC(7,5) NOT NULL
);

CREATE TABLE IF NOT EXISTS customer_exclusions (
	external_customer_id TEXT PRIMARY KEY,
	reason               TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS customer_inclusions (
	external_customer_id TEXT PRIMARY KEY,
	reason               TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// Pipeline runs

func (s *PostgresStore) CreateRun(ctx context.Context, runType model.RunType, initiatedBy string) (*model.PipelineRun, error) {
	id := uuid.New().String()
	now := nowUTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO pipeline_runs (id, run_type, status, initiated_by, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id, string(runType), string(model.RunStatusInProgress), initiatedBy, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert %s run", runType)
	}

	return &model.PipelineRun{
		ID:          id,
		Type:        runType,
		Status:      model.RunStatusInProgress,
		InitiatedBy: initiatedBy,
		CreatedAt:   now,
	}, nil
}

// UpdateRunProgress writes progress counters for an in-flight run. Updates
// against terminal runs are rejected, and items_processed is capped at
// total_items, preserving the monotonic-progress invariant for pollers.
func (s *PostgresStore) UpdateRunProgress(ctx context.Context, runID string, p model.RunProgress) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET message = $1, total_items = $2, items_processed = LEAST($3, $2),
		     succeeded = $4, skipped = $5, failed = $6,
		     current_batch = $7, total_batches = $8
		 WHERE id = $9 AND status = $10`,
		p.Message, p.TotalItems, p.ItemsProcessed,
		p.Succeeded, p.Skipped, p.Failed,
		p.CurrentBatch, p.TotalBatches,
		runID, string(model.RunStatusInProgress),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update run progress %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found or terminal: %s", runID)
	}
	return nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, p model.RunProgress) error {
	return s.finishRun(ctx, runID, model.RunStatusCompleted, p, "", "")
}

func (s *PostgresStore) FailRun(ctx context.Context, runID, message, stack string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, message = $2, error = $2, error_stack = $3, completed_at = $4
		 WHERE id = $5 AND status = $6`,
		string(model.RunStatusFailed), message, stack, nowUTC(),
		runID, string(model.RunStatusInProgress),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found or terminal: %s", runID)
	}
	return nil
}

func (s *PostgresStore) finishRun(ctx context.Context, runID string, status model.RunStatus, p model.RunProgress, errMsg, stack string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE pipeline_runs
		 SET status = $1, message = $2, total_items = $3, items_processed = LEAST($4, $3),
		     succeeded = $5, skipped = $6, failed = $7,
		     current_batch = $8, total_batches = $9,
		     error = $10, error_stack = $11, completed_at = $12
		 WHERE id = $13 AND status = $14`,
		string(status), p.Message, p.TotalItems, p.ItemsProcessed,
		p.Succeeded, p.Skipped, p.Failed,
		p.CurrentBatch, p.TotalBatches,
		errMsg, stack, nowUTC(),
		runID, string(model.RunStatusInProgress),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found or terminal: %s", runID)
	}
	return nil
}

const runColumns = `id, run_type, status, message, total_items, items_processed,
	succeeded, skipped, failed, current_batch, total_batches,
	initiated_by, error, error_stack, created_at, completed_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.PipelineRun, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+runColumns+` FROM pipeline_runs WHERE id = $1`,
		runID,
	)
	r, err := scanRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.PipelineRun, error) {
	query := `SELECT ` + runColumns + ` FROM pipeline_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Type != "" {
		query += fmt.Sprintf(` AND run_type = $%d`, argIdx)
		args = append(args, string(filter.Type))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.PipelineRun
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanRun(row pgx.Row) (*model.PipelineRun, error) {
	var r model.PipelineRun
	var runType, status string
	err := row.Scan(&r.ID, &runType, &status, &r.Message,
		&r.TotalItems, &r.ItemsProcessed, &r.Succeeded, &r.Skipped, &r.Failed,
		&r.CurrentBatch, &r.TotalBatches,
		&r.InitiatedBy, &r.Error, &r.ErrorStack, &r.CreatedAt, &r.CompletedAt)
	if err != nil {
		return nil, err
	}
	r.Type = model.RunType(runType)
	r.Status = model.RunStatus(status)
	return &r, nil
}

// Invoice mirror

func (s *PostgresStore) UpsertInvoice(ctx context.Context, inv model.SyncedInvoice) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO synced_invoices
		 (external_id, invoice_number, invoice_date, due_date, external_customer_id,
		  customer_name, customer_address, customer_email, subtotal, amount_due,
		  payment_status, paid_date, last_synced_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (external_id) DO UPDATE SET
		   invoice_number = $2, invoice_date = $3, due_date = $4,
		   external_customer_id = $5, customer_name = $6, customer_address = $7,
		   customer_email = $8, subtotal = $9, amount_due = $10,
		   payment_status = $11, paid_date = $12, last_synced_at = $13`,
		inv.ExternalID, inv.InvoiceNumber, inv.InvoiceDate, inv.DueDate,
		inv.ExternalCustomerID, inv.CustomerName, inv.CustomerAddress,
		inv.CustomerEmail, inv.Subtotal, inv.AmountDue,
		string(inv.PaymentStatus), inv.PaidDate, inv.LastSyncedAt,
	)
	return eris.Wrapf(err, "postgres: upsert invoice %s", inv.ExternalID)
}

func (s *PostgresStore) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]model.SyncedInvoice, error) {
	query := `SELECT external_id, invoice_number, invoice_date, due_date,
		external_customer_id, customer_name, customer_address, customer_email,
		subtotal, amount_due, payment_status, paid_date, last_synced_at
		FROM synced_invoices WHERE true`
	args := []any{}
	argIdx := 1

	if len(filter.IncludeCustomers) > 0 {
		query += fmt.Sprintf(` AND external_customer_id = ANY($%d)`, argIdx)
		args = append(args, filter.IncludeCustomers)
		argIdx++
	}
	if len(filter.ExcludeCustomers) > 0 {
		query += fmt.Sprintf(` AND NOT (external_customer_id = ANY($%d))`, argIdx)
		args = append(args, filter.ExcludeCustomers)
		argIdx++
	}
	query += ` ORDER BY invoice_date DESC NULLS LAST, external_id`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argIdx)
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list invoices")
	}
	defer rows.Close()

	var invoices []model.SyncedInvoice
	for rows.Next() {
		var inv model.SyncedInvoice
		var status string
		if err := rows.Scan(&inv.ExternalID, &inv.InvoiceNumber, &inv.InvoiceDate,
			&inv.DueDate, &inv.ExternalCustomerID, &inv.CustomerName,
			&inv.CustomerAddress, &inv.CustomerEmail, &inv.Subtotal, &inv.AmountDue,
			&status, &inv.PaidDate, &inv.LastSyncedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan invoice")
		}
		inv.PaymentStatus = model.PaymentStatus(status)
		invoices = append(invoices, inv)
	}
	return invoices, eris.Wrap(rows.Err(), "postgres: list invoices iterate")
}

// Tax results

const taxResultColumns = `external_invoice_id, invoice_number, invoice_date, paid_date,
	external_customer_id, customer_name, subtotal, status, reason, county,
	confidence, raw_geocode, state_tax_rate, state_tax_amount,
	county_tax_rate, county_tax_amount, total_tax, processed_at`

func (s *PostgresStore) UpsertTaxResult(ctx context.Context, r model.TaxResult) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tax_results
		 (external_invoice_id, invoice_number, invoice_date, paid_date,
		  external_customer_id, customer_name, subtotal, status, reason, county,
		  confidence, raw_geocode, state_tax_rate, state_tax_amount,
		  county_tax_rate, county_tax_amount, total_tax, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (external_invoice_id) DO UPDATE SET
		   invoice_number = $2, invoice_date = $3, paid_date = $4,
		   external_customer_id = $5, customer_name = $6, subtotal = $7,
		   status = $8, reason = $9, county = $10, confidence = $11,
		   raw_geocode = $12, state_tax_rate = $13, state_tax_amount = $14,
		   county_tax_rate = $15, county_tax_amount = $16, total_tax = $17,
		   processed_at = $18`,
		r.ExternalInvoiceID, r.InvoiceNumber, r.InvoiceDate, r.PaidDate,
		r.ExternalCustomerID, r.CustomerName, r.Subtotal,
		string(r.Status), string(r.Reason), r.County, string(r.Confidence),
		r.RawGeocode, r.StateTaxRate, r.StateTaxAmount,
		r.CountyTaxRate, r.CountyTaxAmount, r.TotalTax, r.ProcessedAt,
	)
	return eris.Wrapf(err, "postgres: upsert tax result %s", r.ExternalInvoiceID)
}

func (s *PostgresStore) GetTaxResult(ctx context.Context, externalInvoiceID string) (*model.TaxResult, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taxResultColumns+` FROM tax_results WHERE external_invoice_id = $1`,
		externalInvoiceID,
	)
	r, err := scanTaxResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get tax result %s", externalInvoiceID)
	}
	return r, nil
}

func (s *PostgresStore) GetTaxResults(ctx context.Context, externalInvoiceIDs []string) (map[string]model.TaxResult, error) {
	if len(externalInvoiceIDs) == 0 {
		return map[string]model.TaxResult{}, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+taxResultColumns+` FROM tax_results WHERE external_invoice_id = ANY($1)`,
		externalInvoiceIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get tax results")
	}
	defer rows.Close()

	results := make(map[string]model.TaxResult)
	for rows.Next() {
		r, err := scanTaxResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan tax result")
		}
		results[r.ExternalInvoiceID] = *r
	}
	return results, eris.Wrap(rows.Err(), "postgres: get tax results iterate")
}

func scanTaxResult(row pgx.Row) (*model.TaxResult, error) {
	var r model.TaxResult
	var status, reason, confidence string
	err := row.Scan(&r.ExternalInvoiceID, &r.InvoiceNumber, &r.InvoiceDate, &r.PaidDate,
		&r.ExternalCustomerID, &r.CustomerName, &r.Subtotal, &status, &reason,
		&r.County, &confidence, &r.RawGeocode, &r.StateTaxRate, &r.StateTaxAmount,
		&r.CountyTaxRate, &r.CountyTaxAmount, &r.TotalTax, &r.ProcessedAt)
	if err != nil {
		return nil, err
	}
	r.Status = model.ResultStatus(status)
	r.Reason = model.SkipReason(reason)
	r.Confidence = model.Confidence(confidence)
	return &r, nil
}

// Reference data

func (s *PostgresStore) UpsertCountyRates(ctx context.Context, rateRows []model.CountyTaxRate) (int64, error) {
	rows := make([][]any, 0, len(rateRows))
	for _, r := range rateRows {
		total := r.TotalRate
		if total == 0 {
			total = r.StateRate + r.CountyRate
		}
		rows = append(rows, []any{r.County, r.StateRate, r.CountyRate, total})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "county_tax_rates",
		Columns:      []string{"county", "state_rate", "county_rate", "total_rate"},
		ConflictKeys: []string{"county"},
	}, rows)
	return n, eris.Wrap(err, "postgres: upsert county rates")
}

func (s *PostgresStore) ListCountyRates(ctx context.Context) ([]model.CountyTaxRate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT county, state_rate, county_rate, total_rate FROM county_tax_rates ORDER BY county`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list county rates")
	}
	defer rows.Close()

	var rates []model.CountyTaxRate
	for rows.Next() {
		var r model.CountyTaxRate
		if err := rows.Scan(&r.County, &r.StateRate, &r.CountyRate, &r.TotalRate); err != nil {
			return nil, eris.Wrap(err, "postgres: scan county rate")
		}
		rates = append(rates, r)
	}
	return rates, eris.Wrap(rows.Err(), "postgres: list county rates iterate")
}

// Customer allow/deny lists

func (s *PostgresStore) AddCustomerExclusion(ctx context.Context, e model.CustomerExclusion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customer_exclusions (external_customer_id, reason, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (external_customer_id) DO UPDATE SET reason = $2`,
		e.ExternalCustomerID, e.Reason, nowUTC(),
	)
	return eris.Wrapf(err, "postgres: add exclusion %s", e.ExternalCustomerID)
}

func (s *PostgresStore) RemoveCustomerExclusion(ctx context.Context, externalCustomerID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM customer_exclusions WHERE external_customer_id = $1`,
		externalCustomerID,
	)
	return eris.Wrapf(err, "postgres: remove exclusion %s", externalCustomerID)
}

func (s *PostgresStore) ListCustomerExclusions(ctx context.Context) ([]model.CustomerExclusion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT external_customer_id, reason FROM customer_exclusions ORDER BY external_customer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list exclusions")
	}
	defer rows.Close()

	var out []model.CustomerExclusion
	for rows.Next() {
		var e model.CustomerExclusion
		if err := rows.Scan(&e.ExternalCustomerID, &e.Reason); err != nil {
			return nil, eris.Wrap(err, "postgres: scan exclusion")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list exclusions iterate")
}

func (s *PostgresStore) AddCustomerInclusion(ctx context.Context, e model.CustomerInclusion) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO customer_inclusions (external_customer_id, reason, created_at)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (external_customer_id) DO UPDATE SET reason = $2`,
		e.ExternalCustomerID, e.Reason, nowUTC(),
	)
	return eris.Wrapf(err, "postgres: add inclusion %s", e.ExternalCustomerID)
}

func (s *PostgresStore) RemoveCustomerInclusion(ctx context.Context, externalCustomerID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM customer_inclusions WHERE external_customer_id = $1`,
		externalCustomerID,
	)
	return eris.Wrapf(err, "postgres: remove inclusion %s", externalCustomerID)
}

func (s *PostgresStore) ListCustomerInclusions(ctx context.Context) ([]model.CustomerInclusion, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT external_customer_id, reason FROM customer_inclusions ORDER BY external_customer_id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list inclusions")
	}
	defer rows.Close()

	var out []model.CustomerInclusion
	for rows.Next() {
		var e model.CustomerInclusion
		if err := rows.Scan(&e.ExternalCustomerID, &e.Reason); err != nil {
			return nil, eris.Wrap(err, "postgres: scan inclusion")
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list inclusions iterate")
}
