package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// StatementRow is one uploaded statement document.
type StatementRow struct {
	StatementID      string                 `bigquery:"statement_id"`
	AccountID        string                 `bigquery:"account_id"`
	GCSURI           string                 `bigquery:"gcs_uri"`
	SourceFormat     string                 `bigquery:"source_format"`
	OriginalFilename string                 `bigquery:"original_filename"`
	FileMimeType     string                 `bigquery:"file_mime_type"`
	ChecksumSHA256   string                 `bigquery:"checksum_sha256"`
	ParsingStatus    string                 `bigquery:"parsing_status"` // PENDING, PARSED, FAILED
	UploadTS         time.Time              `bigquery:"upload_ts"`
	ProcessedTS      bigquery.NullTimestamp `bigquery:"processed_ts"`
}

// ImportRunRow records one execution of either import path.
type ImportRunRow struct {
	ImportRunID string `bigquery:"import_run_id"`
	StatementID string `bigquery:"statement_id"`

	SourceFormat string `bigquery:"source_format"`

	StartedTS  time.Time              `bigquery:"started_ts"`
	FinishedTS bigquery.NullTimestamp `bigquery:"finished_ts"`

	Status       string `bigquery:"status"` // RUNNING, SUCCESS, FAILED
	ErrorMessage string `bigquery:"error_message"`

	Imported   bigquery.NullInt64 `bigquery:"imported"`
	Duplicates bigquery.NullInt64 `bigquery:"duplicates"`
}

// ReconciliationLineRow is one account-scoped candidate in the queue.
type ReconciliationLineRow struct {
	LineID    string `bigquery:"line_id"`
	AccountID string `bigquery:"account_id"`

	TransactionDate civil.Date `bigquery:"transaction_date"`
	Description     string     `bigquery:"description"`
	Amount          *big.Rat   `bigquery:"amount"` // NUMERIC

	BankReference bigquery.NullString `bigquery:"bank_reference"`
	Counterparty  bigquery.NullString `bigquery:"counterparty"`

	Fingerprint         string              `bigquery:"fingerprint"`
	IsInvoicePayment    bool                `bigquery:"is_invoice_payment"`
	SuggestedInstrument bigquery.NullString `bigquery:"suggested_instrument"`

	RawRow []string `bigquery:"raw_row"` // REPEATED STRING, audit trail

	Status               string              `bigquery:"status"`
	MatchedTransactionID bigquery.NullString `bigquery:"matched_transaction_id"`

	CreatedTS time.Time              `bigquery:"created_ts"`
	UpdatedTS bigquery.NullTimestamp `bigquery:"updated_ts"`
}

// FingerprintRow is one entry of the per-account dedup ledger.
type FingerprintRow struct {
	AccountID   string    `bigquery:"account_id"`
	Fingerprint string    `bigquery:"fingerprint"`
	RecordedTS  time.Time `bigquery:"recorded_ts"`
}

// AccountRow carries the display name for the dashboard aggregate. Accounts
// themselves are owned by the surrounding application; this table is a
// read-side mirror.
type AccountRow struct {
	AccountID   string `bigquery:"account_id"`
	AccountName string `bigquery:"account_name"`
}
