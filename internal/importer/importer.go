// Package importer orchestrates a statement import end to end: parse (either
// path), classify, fingerprint, deduplicate against the account's ledger, and
// enqueue surviving candidates as pending reconciliation lines.
package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rfogliato/statement-import/internal/classify"
	"github.com/rfogliato/statement-import/internal/dedup"
	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/extract"
	"github.com/rfogliato/statement-import/internal/recon"
	"github.com/rfogliato/statement-import/internal/statement"
)

// Result is what the caller gets back from one import: the candidates that
// entered the reconciliation queue, how many incoming records were dropped as
// duplicates, and row-level diagnostics. Row failures never abort the batch.
type Result struct {
	Transactions []domain.Candidate `json:"transactions"`
	Imported     int                `json:"imported"`
	Duplicates   int                `json:"duplicates"`
	Errors       []string           `json:"errors,omitempty"`
}

// RunRecorder persists import-run bookkeeping. The BigQuery repository
// implements it; local setups use NoopRuns.
type RunRecorder interface {
	StartImportRun(ctx context.Context, statementID string, source domain.SourceFormat) (string, error)
	FinishImportRun(ctx context.Context, runID string, imported, duplicates int) error
	MarkImportRunFailed(ctx context.Context, runID string, runErr error)
}

// NoopRuns is a RunRecorder that records nothing.
type NoopRuns struct{}

func (NoopRuns) StartImportRun(ctx context.Context, statementID string, source domain.SourceFormat) (string, error) {
	return "", nil
}
func (NoopRuns) FinishImportRun(ctx context.Context, runID string, imported, duplicates int) error {
	return nil
}
func (NoopRuns) MarkImportRunFailed(ctx context.Context, runID string, runErr error) {}

// Service wires the parsing components to a reconciliation store. One Service
// handles any number of concurrent imports: every per-import state lives on
// the stack, and the seen-fingerprint set is fetched fresh from the store
// each time.
type Service struct {
	tracker   *recon.Tracker
	store     recon.Store
	rules     *classify.RuleSet
	extractor extract.Extractor
	runs      RunRecorder
	log       zerolog.Logger
	now       func() time.Time
}

// NewService creates an import service. extractor may be nil when the PDF
// path is not deployed; runs may be nil for no bookkeeping.
func NewService(store recon.Store, rules *classify.RuleSet, extractor extract.Extractor, runs RunRecorder, log zerolog.Logger) *Service {
	if rules == nil {
		rules = classify.DefaultRuleSet()
	}
	if runs == nil {
		runs = NoopRuns{}
	}
	return &Service{
		tracker:   recon.NewTracker(store),
		store:     store,
		rules:     rules,
		extractor: extractor,
		runs:      runs,
		log:       log,
		now:       time.Now,
	}
}

// Tracker exposes the reconciliation tracker for the read/transition surface.
func (s *Service) Tracker() *recon.Tracker {
	return s.tracker
}

// ImportDelimited runs the CSV/text path: tokenize, validate the declared
// column mapping, normalize row by row, classify, fingerprint, deduplicate,
// enqueue. Rows are processed in order so fingerprinting and the audit trail
// stay deterministic.
func (s *Service) ImportDelimited(ctx context.Context, accountID string, raw domain.RawStatement, mappings []statement.ColumnMapping) (*Result, error) {
	if err := statement.ValidateMappings(mappings); err != nil {
		return nil, err
	}

	runID, err := s.runs.StartImportRun(ctx, raw.FileName, raw.SourceFormat)
	if err != nil {
		return nil, fmt.Errorf("import: starting run: %w", err)
	}

	table := statement.Tokenize(string(raw.Content))
	if table.Ambiguous {
		s.log.Warn().
			Str("file", raw.FileName).
			Str("separator", string(table.Separator)).
			Msg("Separator detection ambiguous, using best guess")
	}

	rows, warnings := statement.MapRows(table.Rows, mappings, s.now())

	candidates := make([]domain.Candidate, 0, len(rows))
	for _, row := range rows {
		c := domain.Candidate{
			Date:        row.Date,
			Description: row.Description,
			Amount:      row.Amount,
			Metadata:    row.Metadata,
			RawRow:      row.Raw,
		}
		cls := s.rules.Classify(c.Description)
		c.IsInvoicePayment = cls.IsInvoicePayment
		c.SuggestedInstrument = cls.SuggestedInstrument
		c.Fingerprint = statement.Fingerprint(c.Date, c.Amount, c.Description)
		candidates = append(candidates, c)
	}

	res, err := s.commit(ctx, accountID, candidates, warnings)
	if err != nil {
		s.runs.MarkImportRunFailed(ctx, runID, err)
		return nil, err
	}
	if err := s.runs.FinishImportRun(ctx, runID, res.Imported, res.Duplicates); err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to finish import run")
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("file", raw.FileName).
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Int("row_warnings", len(res.Errors)).
		Msg("Delimited import completed")
	return res, nil
}

// ImportDocument runs the PDF path through the extraction adapter. A service
// failure is returned to the caller (the job queue retries it); an
// unparseable document commits nothing and reports the diagnostic. Either
// way the delimited path is unaffected.
func (s *Service) ImportDocument(ctx context.Context, accountID string, document []byte, fileName string) (*Result, error) {
	if s.extractor == nil {
		return nil, fmt.Errorf("import: no extractor configured")
	}

	runID, err := s.runs.StartImportRun(ctx, fileName, domain.SourcePDF)
	if err != nil {
		return nil, fmt.Errorf("import: starting run: %w", err)
	}

	extracted, err := s.extractor.Extract(ctx, document, fileName)
	if err != nil {
		s.runs.MarkImportRunFailed(ctx, runID, err)
		return nil, fmt.Errorf("import: extracting %q: %w", fileName, err)
	}

	candidates := make([]domain.Candidate, 0, len(extracted.Candidates))
	for _, e := range extracted.Candidates {
		c := domain.Candidate{
			Date:                e.Date,
			Description:         statement.NormalizeText(e.Description),
			Amount:              e.Amount,
			IsInvoicePayment:    e.IsInvoicePayment,
			SuggestedInstrument: e.SuggestedCardMatch,
		}
		// The extractor's own classification wins; the local rule table
		// only fills gaps so both paths agree on obvious descriptions.
		if !c.IsInvoicePayment {
			cls := s.rules.Classify(c.Description)
			c.IsInvoicePayment = cls.IsInvoicePayment
			if c.SuggestedInstrument == "" {
				c.SuggestedInstrument = cls.SuggestedInstrument
			}
		} else if c.SuggestedInstrument == "" {
			c.SuggestedInstrument = s.rules.MatchIssuer(c.Description)
		}
		c.Fingerprint = statement.Fingerprint(c.Date, c.Amount, c.Description)
		candidates = append(candidates, c)
	}

	res, err := s.commit(ctx, accountID, candidates, extracted.Diagnostics)
	if err != nil {
		s.runs.MarkImportRunFailed(ctx, runID, err)
		return nil, err
	}
	if err := s.runs.FinishImportRun(ctx, runID, res.Imported, res.Duplicates); err != nil {
		s.log.Error().Err(err).Str("run_id", runID).Msg("Failed to finish import run")
	}

	s.log.Info().
		Str("account_id", accountID).
		Str("file", fileName).
		Int("imported", res.Imported).
		Int("duplicates", res.Duplicates).
		Msg("Document import completed")
	return res, nil
}

// commit deduplicates against the account ledger and enqueues survivors.
func (s *Service) commit(ctx context.Context, accountID string, candidates []domain.Candidate, diagnostics []string) (*Result, error) {
	seen, err := s.store.SeenFingerprints(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("import: fetching seen fingerprints: %w", err)
	}

	filtered := dedup.Filter(candidates, seen)

	if _, err := s.tracker.Enqueue(ctx, accountID, filtered.Unique); err != nil {
		return nil, fmt.Errorf("import: %w", err)
	}

	return &Result{
		Transactions: filtered.Unique,
		Imported:     len(filtered.Unique),
		Duplicates:   filtered.Duplicates,
		Errors:       diagnostics,
	}, nil
}
