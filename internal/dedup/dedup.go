// Package dedup filters freshly parsed candidates against the fingerprints
// already recorded for an account, so reimporting a file or overlapping
// export windows never double-import a transaction.
package dedup

import (
	"github.com/rfogliato/statement-import/internal/domain"
)

// Result partitions a candidate batch. Duplicates are dropped silently and
// only counted for user feedback; they are never an error.
type Result struct {
	Unique     []domain.Candidate
	Duplicates int
}

// Filter returns the candidates whose fingerprints are not in seen. The seen
// set is not mutated; a fingerprint accepted earlier in the same batch also
// suppresses later repeats, keeping a single import internally idempotent.
// Order of surviving candidates is preserved.
func Filter(candidates []domain.Candidate, seen map[string]struct{}) Result {
	known := make(map[string]struct{}, len(seen)+len(candidates))
	for fp := range seen {
		known[fp] = struct{}{}
	}

	res := Result{Unique: make([]domain.Candidate, 0, len(candidates))}
	for _, c := range candidates {
		if _, dup := known[c.Fingerprint]; dup {
			res.Duplicates++
			continue
		}
		known[c.Fingerprint] = struct{}{}
		res.Unique = append(res.Unique, c)
	}
	return res
}
