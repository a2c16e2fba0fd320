// Package inmemory provides a mutex-guarded Store for tests and
// single-instance deployments without a BigQuery project configured.
package inmemory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/recon"
)

// Store keeps lines and fingerprint ledgers in memory. Safe for concurrent
// use. Data is lost on restart; production uses the BigQuery-backed store.
type Store struct {
	mu           sync.RWMutex
	lines        map[string]*domain.ReconciliationLine
	fingerprints map[string]map[string]struct{} // accountID -> set
	accountNames map[string]string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		lines:        make(map[string]*domain.ReconciliationLine),
		fingerprints: make(map[string]map[string]struct{}),
		accountNames: make(map[string]string),
	}
}

// RegisterAccount sets a display name for the pending-count aggregate.
// Unregistered accounts fall back to their id.
func (s *Store) RegisterAccount(accountID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accountNames[accountID] = name
}

// InsertLines implements recon.Store.
func (s *Store) InsertLines(ctx context.Context, lines []domain.ReconciliationLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range lines {
		line := lines[i]
		if line.ID == "" {
			return fmt.Errorf("line %d has no id", i)
		}
		if _, exists := s.lines[line.ID]; exists {
			return fmt.Errorf("line %s already exists", line.ID)
		}
		s.lines[line.ID] = &line
	}
	return nil
}

// ListLines implements recon.Store. An empty status lists every line of the
// account.
func (s *Store) ListLines(ctx context.Context, accountID string, status domain.LineStatus) ([]domain.ReconciliationLine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.ReconciliationLine
	for _, line := range s.lines {
		if line.AccountID != accountID {
			continue
		}
		if status != "" && line.Status != status {
			continue
		}
		out = append(out, *line)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedTS.Equal(out[j].CreatedTS) {
			return out[i].CreatedTS.Before(out[j].CreatedTS)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Transition implements recon.Store with the compare-and-swap contract:
// only a pending line moves, everything else reports the conflict.
func (s *Store) Transition(ctx context.Context, lineID string, to domain.LineStatus, matchedTransactionID string) error {
	if !to.Terminal() {
		return fmt.Errorf("invalid target status %q", to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[lineID]
	if !ok {
		return recon.ErrNotFound
	}
	if line.Status != domain.LinePending {
		return recon.ErrConflict
	}

	line.Status = to
	line.MatchedTransactionID = matchedTransactionID
	line.UpdatedTS = time.Now()
	return nil
}

// PendingCounts implements recon.Store.
func (s *Store) PendingCounts(ctx context.Context) ([]domain.AccountPendingCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, line := range s.lines {
		if line.Status == domain.LinePending {
			counts[line.AccountID]++
		}
	}

	out := make([]domain.AccountPendingCount, 0, len(counts))
	for accountID, n := range counts {
		name := s.accountNames[accountID]
		if name == "" {
			name = accountID
		}
		out = append(out, domain.AccountPendingCount{
			AccountID:    accountID,
			AccountName:  name,
			PendingCount: n,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}

// SeenFingerprints implements recon.Store. The returned set is a copy.
func (s *Store) SeenFingerprints(ctx context.Context, accountID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{}, len(s.fingerprints[accountID]))
	for fp := range s.fingerprints[accountID] {
		seen[fp] = struct{}{}
	}
	return seen, nil
}

// RecordFingerprints implements recon.Store.
func (s *Store) RecordFingerprints(ctx context.Context, accountID string, fingerprints []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.fingerprints[accountID]
	if set == nil {
		set = make(map[string]struct{})
		s.fingerprints[accountID] = set
	}
	for _, fp := range fingerprints {
		set[fp] = struct{}{}
	}
	return nil
}

var _ recon.Store = (*Store)(nil)
