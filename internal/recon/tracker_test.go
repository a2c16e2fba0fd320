package recon_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/recon"
	"github.com/rfogliato/statement-import/internal/recon/inmemory"
)

func newCandidate(fp string) domain.Candidate {
	return domain.Candidate{
		Date:        time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "UBER TRIP",
		Amount:      decimal.NewFromFloat(-42.50),
		Fingerprint: fp,
	}
}

func TestTracker_EnqueueCreatesPendingLines(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	tracker := recon.NewTracker(store)

	lines, err := tracker.Enqueue(ctx, "acc-1", []domain.Candidate{newCandidate("fp-1"), newCandidate("fp-2")})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	for _, l := range lines {
		assert.NotEmpty(t, l.ID)
		assert.Equal(t, "acc-1", l.AccountID)
		assert.Equal(t, domain.LinePending, l.Status)
	}
	assert.NotEqual(t, lines[0].ID, lines[1].ID)

	// Fingerprints entered the ledger.
	seen, err := store.SeenFingerprints(ctx, "acc-1")
	require.NoError(t, err)
	assert.Len(t, seen, 2)
}

func TestTracker_EnqueueEmptyIsNoop(t *testing.T) {
	tracker := recon.NewTracker(inmemory.NewStore())
	lines, err := tracker.Enqueue(context.Background(), "acc-1", nil)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestTracker_MatchAndIgnoreAreTerminal(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	tracker := recon.NewTracker(store)

	lines, err := tracker.Enqueue(ctx, "acc-1", []domain.Candidate{newCandidate("fp-1"), newCandidate("fp-2")})
	require.NoError(t, err)

	require.NoError(t, tracker.Match(ctx, lines[0].ID, "txn-1"))
	require.NoError(t, tracker.Ignore(ctx, lines[1].ID))

	// Terminal states accept no further transitions, in either direction.
	assert.ErrorIs(t, tracker.Ignore(ctx, lines[0].ID), recon.ErrConflict)
	assert.ErrorIs(t, tracker.Match(ctx, lines[0].ID, "txn-2"), recon.ErrConflict)
	assert.ErrorIs(t, tracker.Match(ctx, lines[1].ID, "txn-3"), recon.ErrConflict)
}

func TestTracker_MatchRequiresTransactionID(t *testing.T) {
	ctx := context.Background()
	tracker := recon.NewTracker(inmemory.NewStore())

	lines, err := tracker.Enqueue(ctx, "acc-1", []domain.Candidate{newCandidate("fp-1")})
	require.NoError(t, err)

	assert.Error(t, tracker.Match(ctx, lines[0].ID, ""))

	// The failed call must not have consumed the pending state.
	require.NoError(t, tracker.Match(ctx, lines[0].ID, "txn-1"))
}

func TestTracker_UnknownLine(t *testing.T) {
	tracker := recon.NewTracker(inmemory.NewStore())
	assert.ErrorIs(t, tracker.Match(context.Background(), "missing", "txn-1"), recon.ErrNotFound)
	assert.ErrorIs(t, tracker.Ignore(context.Background(), "missing"), recon.ErrNotFound)
}

func TestTracker_PendingByAccount(t *testing.T) {
	ctx := context.Background()
	store := inmemory.NewStore()
	tracker := recon.NewTracker(store)

	_, err := tracker.Enqueue(ctx, "acc-1", []domain.Candidate{newCandidate("fp-1"), newCandidate("fp-2")})
	require.NoError(t, err)
	lines, err := tracker.Enqueue(ctx, "acc-2", []domain.Candidate{newCandidate("fp-3")})
	require.NoError(t, err)
	require.NoError(t, tracker.Ignore(ctx, lines[0].ID))

	counts, err := tracker.PendingByAccount(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 1)
	assert.Equal(t, "acc-1", counts[0].AccountID)
	assert.Equal(t, 2, counts[0].PendingCount)
}
