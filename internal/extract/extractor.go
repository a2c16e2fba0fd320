// Package extract is the adapter for opaque statement formats (PDF). It
// delegates to a generative completion service under a fixed schema contract
// and produces canonical candidates directly, bypassing the tokenizer and
// column mapper entirely.
package extract

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrExtractionService wraps transport or service failures from the
// completion backend. Retryable: the job queue re-enqueues on it.
var ErrExtractionService = errors.New("extraction service failure")

// DiagCouldNotParseDocument is emitted when the service responded but no
// well-formed JSON could be found in the response. This is not an error:
// malformed model output degrades to "nothing imported".
const DiagCouldNotParseDocument = "CouldNotParseDocument"

// Candidate is one transaction extracted from a document. The amount is
// already signed here; on the wire the service reports a positive amount
// plus an INCOME/EXPENSE type, unlike the delimited path's signed literals.
type Candidate struct {
	Date               time.Time
	Description        string
	Amount             decimal.Decimal
	IsInvoicePayment   bool
	SuggestedCardMatch string
}

// Result is the outcome of one extraction. Diagnostics carry non-fatal
// degradations (unparseable response, skipped entries); an empty Candidates
// slice with diagnostics is a valid, non-error outcome.
type Result struct {
	Candidates  []Candidate
	Diagnostics []string
}

// Extractor is the single opaque capability this boundary exposes. Concrete
// vendors hide behind it so tests can substitute a mock. Implementations
// must never let a panic or unhandled failure escape: either candidates, a
// diagnostic degradation, or ErrExtractionService.
type Extractor interface {
	Extract(ctx context.Context, document []byte, fileName string) (*Result, error)
}
