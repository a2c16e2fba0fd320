// Package recon tracks statement lines through the reconciliation state
// machine: pending → matched | ignored, with matched and ignored terminal.
package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rfogliato/statement-import/internal/domain"
)

var (
	// ErrConflict is returned when a transition targets a line that already
	// reached a terminal state. Concurrent accept/ignore races surface here
	// instead of silently overwriting.
	ErrConflict = errors.New("reconciliation conflict: line already in a terminal state")

	// ErrNotFound is returned for unknown line ids.
	ErrNotFound = errors.New("reconciliation line not found")
)

// Store persists reconciliation lines and the per-account fingerprint ledger.
// Transition implementations must be compare-and-swap: only a line currently
// in pending may move, and the loser of a race observes ErrConflict.
type Store interface {
	InsertLines(ctx context.Context, lines []domain.ReconciliationLine) error
	ListLines(ctx context.Context, accountID string, status domain.LineStatus) ([]domain.ReconciliationLine, error)
	Transition(ctx context.Context, lineID string, to domain.LineStatus, matchedTransactionID string) error
	PendingCounts(ctx context.Context) ([]domain.AccountPendingCount, error)

	// SeenFingerprints returns the fingerprints already recorded for the
	// account. Callers must fetch this fresh per import (or inside one
	// transaction) so concurrent imports of the same file cannot both see an
	// empty set.
	SeenFingerprints(ctx context.Context, accountID string) (map[string]struct{}, error)
	RecordFingerprints(ctx context.Context, accountID string, fingerprints []string) error
}

// Tracker is the state-machine front of a Store.
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a tracker over the given store.
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: time.Now}
}

// Enqueue creates one pending line per deduplicated candidate and records
// their fingerprints in the account's ledger.
func (t *Tracker) Enqueue(ctx context.Context, accountID string, candidates []domain.Candidate) ([]domain.ReconciliationLine, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	now := t.now()
	lines := make([]domain.ReconciliationLine, 0, len(candidates))
	fingerprints := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, domain.ReconciliationLine{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Candidate: c,
			Status:    domain.LinePending,
			CreatedTS: now,
			UpdatedTS: now,
		})
		fingerprints = append(fingerprints, c.Fingerprint)
	}

	if err := t.store.InsertLines(ctx, lines); err != nil {
		return nil, fmt.Errorf("enqueue: inserting lines: %w", err)
	}
	if err := t.store.RecordFingerprints(ctx, accountID, fingerprints); err != nil {
		return nil, fmt.Errorf("enqueue: recording fingerprints: %w", err)
	}
	return lines, nil
}

// Match links a pending line to an existing ledger transaction.
func (t *Tracker) Match(ctx context.Context, lineID, transactionID string) error {
	if transactionID == "" {
		return fmt.Errorf("match: transaction id is required")
	}
	return t.store.Transition(ctx, lineID, domain.LineMatched, transactionID)
}

// Ignore dismisses a pending line without creating a ledger entry.
func (t *Tracker) Ignore(ctx context.Context, lineID string) error {
	return t.store.Transition(ctx, lineID, domain.LineIgnored, "")
}

// Lines lists an account's lines, optionally filtered by status.
func (t *Tracker) Lines(ctx context.Context, accountID string, status domain.LineStatus) ([]domain.ReconciliationLine, error) {
	return t.store.ListLines(ctx, accountID, status)
}

// PendingByAccount returns the dashboard aggregate: every account with at
// least one pending line, with its pending count.
func (t *Tracker) PendingByAccount(ctx context.Context) ([]domain.AccountPendingCount, error) {
	return t.store.PendingCounts(ctx)
}
