package extract

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// wireCandidate mirrors the schema the completion service is instructed to
// produce.
type wireCandidate struct {
	Date               string  `json:"date"`
	Description        string  `json:"description"`
	Amount             float64 `json:"amount"`
	Type               string  `json:"type"`
	IsInvoicePayment   bool    `json:"is_invoice_payment"`
	SuggestedCardMatch string  `json:"suggested_card_match"`
}

// decodeResponse turns a free-form model response into a Result. It finds the
// first well-formed JSON array in the text; when none exists it returns an
// empty result with a CouldNotParseDocument diagnostic, never an error.
// Individual malformed entries are skipped with a diagnostic, keeping the
// batch best-effort.
func decodeResponse(raw string) *Result {
	clean := extractJSONArray(raw)
	if clean == "" {
		return &Result{Diagnostics: []string{DiagCouldNotParseDocument + ": no JSON array in service response"}}
	}

	var wire []wireCandidate
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return &Result{Diagnostics: []string{fmt.Sprintf("%s: %v", DiagCouldNotParseDocument, err)}}
	}

	res := &Result{Candidates: make([]Candidate, 0, len(wire))}
	for i, w := range wire {
		c, err := fromWire(w)
		if err != nil {
			res.Diagnostics = append(res.Diagnostics, fmt.Sprintf("entry %d skipped: %v", i, err))
			continue
		}
		res.Candidates = append(res.Candidates, c)
	}
	return res
}

func fromWire(w wireCandidate) (Candidate, error) {
	date, err := time.Parse("2006-01-02", w.Date)
	if err != nil {
		return Candidate{}, fmt.Errorf("invalid date %q", w.Date)
	}
	if strings.TrimSpace(w.Description) == "" {
		return Candidate{}, fmt.Errorf("empty description")
	}

	amount := decimal.NewFromFloat(w.Amount).Abs()
	if amount.IsZero() {
		return Candidate{}, fmt.Errorf("zero amount")
	}

	switch strings.ToUpper(strings.TrimSpace(w.Type)) {
	case "INCOME":
	case "EXPENSE":
		amount = amount.Neg()
	default:
		return Candidate{}, fmt.Errorf("unknown type %q", w.Type)
	}

	return Candidate{
		Date:               date,
		Description:        w.Description,
		Amount:             amount,
		IsInvoicePayment:   w.IsInvoicePayment,
		SuggestedCardMatch: strings.ToLower(strings.TrimSpace(w.SuggestedCardMatch)),
	}, nil
}

// extractJSONArray cleans Markdown fences the model may have added despite
// instructions and keeps only the first '[' through the last ']'. Returns ""
// when no array-shaped region exists.
func extractJSONArray(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}
