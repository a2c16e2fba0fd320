package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SourceFormat identifies the kind of statement export submitted by a user.
type SourceFormat string

const (
	// SourceCSV is a comma/semicolon/tab delimited export with a header row.
	SourceCSV SourceFormat = "csv"
	// SourceText is a delimited export pasted as free text; parsed like CSV.
	SourceText SourceFormat = "text"
	// SourcePDF is an opaque document handled by the extraction adapter.
	SourcePDF SourceFormat = "pdf"
)

// RawStatement is the uploaded statement as received. It lives only for the
// duration of the import request; nothing persists it after parsing.
type RawStatement struct {
	SourceFormat SourceFormat
	FileName     string
	Content      []byte
}

// MetadataKey enumerates the optional per-candidate fields a statement layout
// may carry. The set is closed: the classifier and stores only ever see these
// keys.
type MetadataKey string

const (
	MetaBankReference MetadataKey = "bank_reference"
	MetaCounterparty  MetadataKey = "counterparty"
)

// Candidate is the normalized, format-independent transaction record produced
// by either parsing path. Values are immutable after creation.
type Candidate struct {
	// Date is the transaction calendar date at midnight UTC.
	Date time.Time

	// Description is the normalized (trimmed, whitespace-collapsed,
	// upper-cased) statement description.
	Description string

	// Amount is signed: positive = inflow, negative = outflow, in the
	// statement's native currency.
	Amount decimal.Decimal

	// Metadata holds the optional fields present in the source layout.
	Metadata map[MetadataKey]string

	// Fingerprint is the content hash used for idempotent imports.
	Fingerprint string

	// IsInvoicePayment marks a credit-card invoice payment line.
	IsInvoicePayment bool

	// SuggestedInstrument is the issuer name matched against the user's
	// instruments, e.g. "nubank". Empty when no issuer matched. Advisory
	// only; the reconciliation workflow may override or reject it.
	SuggestedInstrument string

	// RawRow preserves the source cells for audit. Nil on the PDF path.
	RawRow []string
}

// ISODate renders the candidate date as YYYY-MM-DD.
func (c Candidate) ISODate() string {
	return c.Date.Format("2006-01-02")
}
