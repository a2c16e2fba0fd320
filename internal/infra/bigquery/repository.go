// Package bigquery persists statements, import runs, reconciliation lines
// and the fingerprint ledger in BigQuery. Tables use NUMERIC for amounts and
// DATE for transaction dates.
package bigquery

import (
	"context"
	"fmt"
	"math/big"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/recon"
)

// Repository bundles a BigQuery client with the target dataset. It implements
// recon.Store and importer.RunRecorder.
type Repository struct {
	client  *bigquery.Client
	dataset string
}

// New creates a repository for the given project and dataset.
func New(ctx context.Context, projectID, dataset string) (*Repository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client: %w", err)
	}
	return &Repository{client: client, dataset: dataset}, nil
}

// Close releases the underlying client.
func (r *Repository) Close() error {
	return r.client.Close()
}

func (r *Repository) InsertLines(ctx context.Context, lines []domain.ReconciliationLine) error {
	return InsertLinesWithClient(ctx, r.client, r.dataset, lines)
}

func (r *Repository) ListLines(ctx context.Context, accountID string, status domain.LineStatus) ([]domain.ReconciliationLine, error) {
	return ListLinesWithClient(ctx, r.client, r.dataset, accountID, status)
}

func (r *Repository) Transition(ctx context.Context, lineID string, to domain.LineStatus, matchedTransactionID string) error {
	return TransitionLineWithClient(ctx, r.client, r.dataset, lineID, to, matchedTransactionID)
}

func (r *Repository) PendingCounts(ctx context.Context) ([]domain.AccountPendingCount, error) {
	return PendingCountsWithClient(ctx, r.client, r.dataset)
}

func (r *Repository) SeenFingerprints(ctx context.Context, accountID string) (map[string]struct{}, error) {
	return SeenFingerprintsWithClient(ctx, r.client, r.dataset, accountID)
}

func (r *Repository) RecordFingerprints(ctx context.Context, accountID string, fingerprints []string) error {
	return RecordFingerprintsWithClient(ctx, r.client, r.dataset, accountID, fingerprints)
}

func (r *Repository) InsertStatement(ctx context.Context, row *StatementRow) error {
	return InsertStatementWithClient(ctx, r.client, r.dataset, row)
}

func (r *Repository) MarkStatementParsed(ctx context.Context, statementID string) error {
	return SetStatementStatusWithClient(ctx, r.client, r.dataset, statementID, "PARSED")
}

func (r *Repository) MarkStatementFailed(ctx context.Context, statementID string) error {
	return SetStatementStatusWithClient(ctx, r.client, r.dataset, statementID, "FAILED")
}

func (r *Repository) FindStatementByChecksum(ctx context.Context, accountID, checksum string) (*StatementRow, error) {
	return FindStatementByChecksumWithClient(ctx, r.client, r.dataset, accountID, checksum)
}

func (r *Repository) StartImportRun(ctx context.Context, statementID string, source domain.SourceFormat) (string, error) {
	return StartImportRunWithClient(ctx, r.client, r.dataset, statementID, source)
}

func (r *Repository) FinishImportRun(ctx context.Context, runID string, imported, duplicates int) error {
	return FinishImportRunWithClient(ctx, r.client, r.dataset, runID, imported, duplicates)
}

func (r *Repository) MarkImportRunFailed(ctx context.Context, runID string, runErr error) {
	MarkImportRunFailedWithClient(ctx, r.client, r.dataset, runID, runErr)
}

var _ recon.Store = (*Repository)(nil)

func ratToDecimal(rat *big.Rat) decimal.Decimal {
	if rat == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigRat(rat, 2)
}
