// Package classify flags credit-card invoice payments in normalized
// statement descriptions and suggests which of the user's instruments the
// payment belongs to. Results are advisory: the reconciliation workflow lets
// the user override or reject them.
package classify

import (
	"strings"
)

// Classification is the outcome for one description.
type Classification struct {
	IsInvoicePayment bool

	// SuggestedInstrument is the canonical issuer name, e.g. "nubank".
	// Empty when no issuer alias matched or the line is not an invoice
	// payment.
	SuggestedInstrument string

	// MatchedRule names the invoice pattern that fired, for audit.
	MatchedRule string
}

// Classify runs the ordered invoice patterns against the description; on a
// hit it then scans the issuer table for the first literal alias match.
func (rs *RuleSet) Classify(description string) Classification {
	for _, rule := range rs.InvoicePatterns {
		if !rule.Pattern.MatchString(description) {
			continue
		}
		return Classification{
			IsInvoicePayment:    true,
			SuggestedInstrument: rs.matchIssuer(description),
			MatchedRule:         rule.Name,
		}
	}
	return Classification{}
}

// MatchIssuer exposes issuer matching on its own, used when an upstream
// extractor already decided the line is an invoice payment.
func (rs *RuleSet) MatchIssuer(description string) string {
	return rs.matchIssuer(description)
}

func (rs *RuleSet) matchIssuer(description string) string {
	lowered := strings.ToLower(description)
	for _, issuer := range rs.Issuers {
		for _, alias := range issuer.Aliases {
			if containsWord(lowered, alias) {
				return issuer.Name
			}
		}
	}
	return ""
}

// containsWord reports whether w occurs in s bounded by non-word bytes.
// Short aliases like "inter" or "elo" must not fire inside longer tokens
// ("INTERMEDIUM", "MODELO").
func containsWord(s, w string) bool {
	if w == "" {
		return false
	}
	for idx := 0; idx < len(s); {
		j := strings.Index(s[idx:], w)
		if j < 0 {
			return false
		}
		start := idx + j
		end := start + len(w)
		if (start == 0 || !isWordByte(s[start-1])) && (end == len(s) || !isWordByte(s[end])) {
			return true
		}
		idx = start + 1
	}
	return false
}

func isWordByte(b byte) bool {
	return 'a' <= b && b <= 'z' || '0' <= b && b <= '9'
}
