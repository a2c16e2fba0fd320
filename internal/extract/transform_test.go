package extract

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeResponse_CleanArray(t *testing.T) {
	raw := `[
		{"date": "2024-01-15", "description": "PAGAMENTO FATURA NUBANK", "amount": 1500.00, "type": "EXPENSE", "is_invoice_payment": true, "suggested_card_match": "Nubank"},
		{"date": "2024-01-16", "description": "SALARIO", "amount": 3000.00, "type": "INCOME", "is_invoice_payment": false, "suggested_card_match": ""}
	]`

	res := decodeResponse(raw)
	require.Len(t, res.Candidates, 2)
	assert.Empty(t, res.Diagnostics)

	first := res.Candidates[0]
	// Wire amounts are positive; EXPENSE flips the sign.
	assert.True(t, decimal.NewFromInt(-1500).Equal(first.Amount))
	assert.True(t, first.IsInvoicePayment)
	assert.Equal(t, "nubank", first.SuggestedCardMatch)

	second := res.Candidates[1]
	assert.True(t, decimal.NewFromInt(3000).Equal(second.Amount))
	assert.False(t, second.IsInvoicePayment)
}

func TestDecodeResponse_MarkdownFences(t *testing.T) {
	raw := "```json\n[{\"date\": \"2024-01-15\", \"description\": \"COMPRA\", \"amount\": 10.0, \"type\": \"EXPENSE\"}]\n```"

	res := decodeResponse(raw)
	require.Len(t, res.Candidates, 1)
	assert.True(t, decimal.NewFromInt(-10).Equal(res.Candidates[0].Amount))
}

func TestDecodeResponse_SurroundingProse(t *testing.T) {
	raw := `Here are the extracted transactions:
[{"date": "2024-01-15", "description": "COMPRA", "amount": 10.0, "type": "EXPENSE"}]
Let me know if you need anything else.`

	res := decodeResponse(raw)
	require.Len(t, res.Candidates, 1)
}

func TestDecodeResponse_NoArrayDegradesToDiagnostic(t *testing.T) {
	res := decodeResponse("I could not find any transactions in this document.")
	assert.Empty(t, res.Candidates)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0], DiagCouldNotParseDocument)
}

func TestDecodeResponse_MalformedJSONDegradesToDiagnostic(t *testing.T) {
	res := decodeResponse(`[{"date": "2024-01-15", "description": `)
	assert.Empty(t, res.Candidates)
	require.Len(t, res.Diagnostics, 1)
	assert.Contains(t, res.Diagnostics[0], DiagCouldNotParseDocument)
}

func TestDecodeResponse_SkipsBadEntries(t *testing.T) {
	raw := `[
		{"date": "2024-01-15", "description": "GOOD", "amount": 10.0, "type": "EXPENSE"},
		{"date": "not-a-date", "description": "BAD DATE", "amount": 10.0, "type": "EXPENSE"},
		{"date": "2024-01-16", "description": "", "amount": 10.0, "type": "INCOME"},
		{"date": "2024-01-17", "description": "ZERO", "amount": 0, "type": "EXPENSE"},
		{"date": "2024-01-18", "description": "BAD TYPE", "amount": 10.0, "type": "TRANSFER"},
		{"date": "2024-01-19", "description": "ALSO GOOD", "amount": 20.0, "type": "INCOME"}
	]`

	res := decodeResponse(raw)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "GOOD", res.Candidates[0].Description)
	assert.Equal(t, "ALSO GOOD", res.Candidates[1].Description)
	assert.Len(t, res.Diagnostics, 4)
}

func TestFromWire_NegativeWireAmountStillSignsByType(t *testing.T) {
	// The service is instructed to send positive amounts, but a stray sign
	// must not double-negate.
	c, err := fromWire(wireCandidate{Date: "2024-01-15", Description: "X", Amount: -10, Type: "EXPENSE"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(-10).Equal(c.Amount))

	c, err = fromWire(wireCandidate{Date: "2024-01-15", Description: "X", Amount: -10, Type: "INCOME"})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(c.Amount))
}
