package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"

	"github.com/rfogliato/statement-import/internal/domain"
)

const (
	statementsTable = "statements"
	importRunsTable = "import_runs"
)

// InsertStatementWithClient records an uploaded statement document.
func InsertStatementWithClient(ctx context.Context, client *bigquery.Client, dataset string, row *StatementRow) error {
	inserter := client.Dataset(dataset).Table(statementsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("InsertStatement: inserting row: %w", err)
	}
	return nil
}

// SetStatementStatusWithClient updates a statement's parsing status and stamps
// the processing time.
func SetStatementStatusWithClient(ctx context.Context, client *bigquery.Client, dataset, statementID, status string) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET parsing_status = @status,
		    processed_ts = @processed_ts
		WHERE statement_id = @statement_id
	`, dataset, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: status},
		{Name: "processed_ts", Value: time.Now()},
		{Name: "statement_id", Value: statementID},
	}
	return runDML(ctx, q, "SetStatementStatus")
}

// FindStatementByChecksumWithClient looks up a previously uploaded statement
// with the same content hash. Used to warn on re-uploads of the same file.
func FindStatementByChecksumWithClient(ctx context.Context, client *bigquery.Client, dataset, accountID, checksum string) (*StatementRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE account_id = @account_id
		  AND checksum_sha256 = @checksum
		ORDER BY upload_ts DESC
		LIMIT 1
	`, dataset, statementsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
		{Name: "checksum", Value: checksum},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("FindStatementByChecksum: running query: %w", err)
	}

	var row StatementRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("FindStatementByChecksum: reading row: %w", err)
	}
	return &row, nil
}

// StartImportRunWithClient opens a RUNNING import-run record and returns its id.
func StartImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset, statementID string, source domain.SourceFormat) (string, error) {
	runID := uuid.NewString()
	row := &ImportRunRow{
		ImportRunID:  runID,
		StatementID:  statementID,
		SourceFormat: string(source),
		StartedTS:    time.Now(),
		Status:       "RUNNING",
	}

	inserter := client.Dataset(dataset).Table(importRunsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return "", fmt.Errorf("StartImportRun: inserting row: %w", err)
	}
	return runID, nil
}

// FinishImportRunWithClient closes a run as SUCCESS with its counters.
func FinishImportRunWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, imported, duplicates int) error {
	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = 'SUCCESS',
		    finished_ts = @finished_ts,
		    imported = @imported,
		    duplicates = @duplicates
		WHERE import_run_id = @run_id
	`, dataset, importRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "finished_ts", Value: time.Now()},
		{Name: "imported", Value: int64(imported)},
		{Name: "duplicates", Value: int64(duplicates)},
		{Name: "run_id", Value: runID},
	}
	return runDML(ctx, q, "FinishImportRun")
}

// MarkImportRunFailedWithClient closes a run as FAILED. Bookkeeping only, so
// errors are swallowed after best effort.
func MarkImportRunFailedWithClient(ctx context.Context, client *bigquery.Client, dataset, runID string, runErr error) {
	if runID == "" {
		return
	}
	msg := ""
	if runErr != nil {
		msg = runErr.Error()
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = 'FAILED',
		    finished_ts = @finished_ts,
		    error_message = @error_message
		WHERE import_run_id = @run_id
	`, dataset, importRunsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "finished_ts", Value: time.Now()},
		{Name: "error_message", Value: msg},
		{Name: "run_id", Value: runID},
	}
	_ = runDML(ctx, q, "MarkImportRunFailed")
}

func runDML(ctx context.Context, q *bigquery.Query, op string) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("%s: running update: %w", op, err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("%s: waiting for job: %w", op, err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("%s: job error: %w", op, err)
	}
	return nil
}
