package domain

import (
	"time"
)

// LineStatus is the reconciliation state of a statement line.
type LineStatus string

const (
	// LinePending is the initial state of every deduplicated candidate.
	LinePending LineStatus = "pending"
	// LineMatched means the user linked the line to a ledger transaction or
	// accepted a suggested instrument match. Terminal.
	LineMatched LineStatus = "matched"
	// LineIgnored means the user dismissed the line. Terminal.
	LineIgnored LineStatus = "ignored"
)

// Terminal reports whether no further transition may leave this status.
func (s LineStatus) Terminal() bool {
	return s == LineMatched || s == LineIgnored
}

// ReconciliationLine is an account-scoped candidate awaiting a user decision.
// Lines are never deleted; corrections create a new line rather than mutating
// history.
type ReconciliationLine struct {
	ID        string
	AccountID string
	Candidate Candidate

	Status LineStatus

	// MatchedTransactionID is set only when Status is LineMatched.
	MatchedTransactionID string

	CreatedTS time.Time
	UpdatedTS time.Time
}

// AccountPendingCount is one row of the reconciliation dashboard aggregate.
type AccountPendingCount struct {
	AccountID    string `json:"account_id"`
	AccountName  string `json:"account_name"`
	PendingCount int    `json:"pending_count"`
}
