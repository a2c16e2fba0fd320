package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"google.golang.org/api/iterator"

	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/recon"
)

const (
	linesTable        = "reconciliation_lines"
	fingerprintsTable = "fingerprints"
	accountsTable     = "accounts"
)

// InsertLinesWithClient streams reconciliation lines into the lines table.
func InsertLinesWithClient(ctx context.Context, client *bigquery.Client, dataset string, lines []domain.ReconciliationLine) error {
	if len(lines) == 0 {
		return nil
	}

	rows := make([]*ReconciliationLineRow, 0, len(lines))
	for i := range lines {
		rows = append(rows, lineToRow(&lines[i]))
	}

	inserter := client.Dataset(dataset).Table(linesTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("InsertLines: inserting rows: %w", err)
	}
	return nil
}

// ListLinesWithClient reads an account's lines, optionally filtered by
// status, ordered by creation time.
func ListLinesWithClient(ctx context.Context, client *bigquery.Client, dataset, accountID string, status domain.LineStatus) ([]domain.ReconciliationLine, error) {
	query := fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE account_id = @account_id
	`, dataset, linesTable)
	params := []bigquery.QueryParameter{
		{Name: "account_id", Value: accountID},
	}
	if status != "" {
		query += " AND status = @status"
		params = append(params, bigquery.QueryParameter{Name: "status", Value: string(status)})
	}
	query += " ORDER BY created_ts, line_id"

	q := client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListLines: running query: %w", err)
	}

	var lines []domain.ReconciliationLine
	for {
		var row ReconciliationLineRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListLines: iterating rows: %w", err)
		}
		lines = append(lines, rowToLine(&row))
	}
	return lines, nil
}

// TransitionLineWithClient moves a pending line to a terminal status. The
// update is guarded on status='pending'; zero affected rows means the line
// either does not exist or already reached a terminal state, and the caller
// gets the corresponding sentinel.
func TransitionLineWithClient(ctx context.Context, client *bigquery.Client, dataset, lineID string, to domain.LineStatus, matchedTransactionID string) error {
	if !to.Terminal() {
		return fmt.Errorf("TransitionLine: invalid target status %q", to)
	}

	q := client.Query(fmt.Sprintf(`
		UPDATE %s.%s
		SET status = @status,
		    matched_transaction_id = @matched_transaction_id,
		    updated_ts = @updated_ts
		WHERE line_id = @line_id
		  AND status = 'pending'
	`, dataset, linesTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "status", Value: string(to)},
		{Name: "matched_transaction_id", Value: matchedTransactionID},
		{Name: "updated_ts", Value: time.Now()},
		{Name: "line_id", Value: lineID},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("TransitionLine: running update: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("TransitionLine: waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("TransitionLine: job error: %w", err)
	}

	if affectedRows(status) == 0 {
		exists, err := lineExistsWithClient(ctx, client, dataset, lineID)
		if err != nil {
			return err
		}
		if !exists {
			return recon.ErrNotFound
		}
		return recon.ErrConflict
	}
	return nil
}

func affectedRows(status *bigquery.JobStatus) int64 {
	if status == nil || status.Statistics == nil {
		return 0
	}
	if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
		return qs.NumDMLAffectedRows
	}
	return 0
}

func lineExistsWithClient(ctx context.Context, client *bigquery.Client, dataset, lineID string) (bool, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n FROM %s.%s WHERE line_id = @line_id
	`, dataset, linesTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "line_id", Value: lineID}}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("TransitionLine: checking line: %w", err)
	}
	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil {
		return false, fmt.Errorf("TransitionLine: reading count: %w", err)
	}
	return row.N > 0, nil
}

// PendingCountsWithClient aggregates pending lines per account for the
// dashboard. Accounts without pending lines are omitted.
func PendingCountsWithClient(ctx context.Context, client *bigquery.Client, dataset string) ([]domain.AccountPendingCount, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT
			l.account_id AS account_id,
			IFNULL(a.account_name, l.account_id) AS account_name,
			COUNT(*) AS pending_count
		FROM %s.%s l
		LEFT JOIN %s.%s a USING (account_id)
		WHERE l.status = 'pending'
		GROUP BY account_id, account_name
		ORDER BY account_id
	`, dataset, linesTable, dataset, accountsTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("PendingCounts: running query: %w", err)
	}

	var counts []domain.AccountPendingCount
	for {
		var row struct {
			AccountID    string `bigquery:"account_id"`
			AccountName  string `bigquery:"account_name"`
			PendingCount int64  `bigquery:"pending_count"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("PendingCounts: iterating rows: %w", err)
		}
		counts = append(counts, domain.AccountPendingCount{
			AccountID:    row.AccountID,
			AccountName:  row.AccountName,
			PendingCount: int(row.PendingCount),
		})
	}
	return counts, nil
}

// SeenFingerprintsWithClient fetches the account's dedup ledger. Called
// fresh at the start of every import.
func SeenFingerprintsWithClient(ctx context.Context, client *bigquery.Client, dataset, accountID string) (map[string]struct{}, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT DISTINCT fingerprint FROM %s.%s WHERE account_id = @account_id
	`, dataset, fingerprintsTable))
	q.Parameters = []bigquery.QueryParameter{{Name: "account_id", Value: accountID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("SeenFingerprints: running query: %w", err)
	}

	seen := make(map[string]struct{})
	for {
		var row struct {
			Fingerprint string `bigquery:"fingerprint"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("SeenFingerprints: iterating rows: %w", err)
		}
		seen[row.Fingerprint] = struct{}{}
	}
	return seen, nil
}

// RecordFingerprintsWithClient appends to the account's dedup ledger.
func RecordFingerprintsWithClient(ctx context.Context, client *bigquery.Client, dataset, accountID string, fingerprints []string) error {
	if len(fingerprints) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]*FingerprintRow, 0, len(fingerprints))
	for _, fp := range fingerprints {
		rows = append(rows, &FingerprintRow{
			AccountID:   accountID,
			Fingerprint: fp,
			RecordedTS:  now,
		})
	}

	inserter := client.Dataset(dataset).Table(fingerprintsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("RecordFingerprints: inserting rows: %w", err)
	}
	return nil
}

func lineToRow(line *domain.ReconciliationLine) *ReconciliationLineRow {
	row := &ReconciliationLineRow{
		LineID:           line.ID,
		AccountID:        line.AccountID,
		TransactionDate:  civil.DateOf(line.Candidate.Date),
		Description:      line.Candidate.Description,
		Amount:           line.Candidate.Amount.Rat(),
		Fingerprint:      line.Candidate.Fingerprint,
		IsInvoicePayment: line.Candidate.IsInvoicePayment,
		RawRow:           line.Candidate.RawRow,
		Status:           string(line.Status),
		CreatedTS:        line.CreatedTS,
	}
	if line.Candidate.SuggestedInstrument != "" {
		row.SuggestedInstrument = bigquery.NullString{StringVal: line.Candidate.SuggestedInstrument, Valid: true}
	}
	if ref := line.Candidate.Metadata[domain.MetaBankReference]; ref != "" {
		row.BankReference = bigquery.NullString{StringVal: ref, Valid: true}
	}
	if cp := line.Candidate.Metadata[domain.MetaCounterparty]; cp != "" {
		row.Counterparty = bigquery.NullString{StringVal: cp, Valid: true}
	}
	if line.MatchedTransactionID != "" {
		row.MatchedTransactionID = bigquery.NullString{StringVal: line.MatchedTransactionID, Valid: true}
	}
	if !line.UpdatedTS.IsZero() {
		row.UpdatedTS = bigquery.NullTimestamp{Timestamp: line.UpdatedTS, Valid: true}
	}
	return row
}

func rowToLine(row *ReconciliationLineRow) domain.ReconciliationLine {
	candidate := domain.Candidate{
		Date:             row.TransactionDate.In(time.UTC),
		Description:      row.Description,
		Amount:           ratToDecimal(row.Amount),
		Fingerprint:      row.Fingerprint,
		IsInvoicePayment: row.IsInvoicePayment,
		RawRow:           row.RawRow,
	}
	if row.SuggestedInstrument.Valid {
		candidate.SuggestedInstrument = row.SuggestedInstrument.StringVal
	}
	meta := make(map[domain.MetadataKey]string)
	if row.BankReference.Valid {
		meta[domain.MetaBankReference] = row.BankReference.StringVal
	}
	if row.Counterparty.Valid {
		meta[domain.MetaCounterparty] = row.Counterparty.StringVal
	}
	if len(meta) > 0 {
		candidate.Metadata = meta
	}

	line := domain.ReconciliationLine{
		ID:        row.LineID,
		AccountID: row.AccountID,
		Candidate: candidate,
		Status:    domain.LineStatus(row.Status),
		CreatedTS: row.CreatedTS,
	}
	if row.MatchedTransactionID.Valid {
		line.MatchedTransactionID = row.MatchedTransactionID.StringVal
	}
	if row.UpdatedTS.Valid {
		line.UpdatedTS = row.UpdatedTS.Timestamp
	}
	return line
}
