package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rfogliato/statement-import/internal/domain"
)

func candidate(fingerprint, description string) domain.Candidate {
	return domain.Candidate{Fingerprint: fingerprint, Description: description}
}

func TestFilter_AgainstSeenSet(t *testing.T) {
	seen := map[string]struct{}{"fp-a": {}}
	batch := []domain.Candidate{
		candidate("fp-a", "ALREADY IMPORTED"),
		candidate("fp-b", "NEW ONE"),
		candidate("fp-c", "ANOTHER NEW ONE"),
	}

	res := Filter(batch, seen)
	require.Len(t, res.Unique, 2)
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, "NEW ONE", res.Unique[0].Description)
	assert.Equal(t, "ANOTHER NEW ONE", res.Unique[1].Description)
}

func TestFilter_WithinBatchDuplicates(t *testing.T) {
	batch := []domain.Candidate{
		candidate("fp-a", "FIRST"),
		candidate("fp-a", "REPEAT"),
		candidate("fp-b", "OTHER"),
		candidate("fp-a", "REPEAT AGAIN"),
	}

	res := Filter(batch, nil)
	require.Len(t, res.Unique, 2)
	assert.Equal(t, 2, res.Duplicates)
	assert.Equal(t, "FIRST", res.Unique[0].Description)
}

func TestFilter_DoesNotMutateSeen(t *testing.T) {
	seen := map[string]struct{}{"fp-a": {}}
	Filter([]domain.Candidate{candidate("fp-b", "X")}, seen)

	assert.Len(t, seen, 1)
	_, has := seen["fp-b"]
	assert.False(t, has)
}

func TestFilter_EmptyBatch(t *testing.T) {
	res := Filter(nil, map[string]struct{}{"fp-a": {}})
	assert.Empty(t, res.Unique)
	assert.Zero(t, res.Duplicates)
}

func TestFilter_PreservesOrder(t *testing.T) {
	batch := []domain.Candidate{
		candidate("1", "A"), candidate("2", "B"), candidate("3", "C"),
	}
	res := Filter(batch, nil)
	require.Len(t, res.Unique, 3)
	for i, want := range []string{"A", "B", "C"} {
		assert.Equal(t, want, res.Unique[i].Description)
	}
}
