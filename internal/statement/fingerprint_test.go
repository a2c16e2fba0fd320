package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFingerprint_StableAcrossCosmeticDrift(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(-42.50)

	a := Fingerprint(date, amount, "Uber  Trip")
	b := Fingerprint(date, amount, "UBER TRIP")
	c := Fingerprint(date, amount, "uber trip ")

	assert.Equal(t, a, b)
	assert.Equal(t, a, c)
}

func TestFingerprint_SensitiveToContent(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromFloat(-42.50)
	base := Fingerprint(date, amount, "UBER TRIP")

	assert.NotEqual(t, base, Fingerprint(date.AddDate(0, 0, 1), amount, "UBER TRIP"))
	assert.NotEqual(t, base, Fingerprint(date, decimal.NewFromFloat(-42.51), "UBER TRIP"))
	assert.NotEqual(t, base, Fingerprint(date, amount, "UBER EATS"))
}

func TestFingerprint_IgnoresDescriptionTail(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	amount := decimal.NewFromInt(-100)

	// Only the first 30 alphanumeric characters participate, so trailing
	// reference numbers do not split identity.
	long := "PAGAMENTO FATURA CARTAO NUBANK REF 123456"
	longer := "PAGAMENTO FATURA CARTAO NUBANK REF 999999"
	assert.Equal(t, Fingerprint(date, amount, long), Fingerprint(date, amount, longer))
}

func TestFingerprint_AmountScaleNormalized(t *testing.T) {
	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	a := Fingerprint(date, decimal.NewFromInt(100), "X")
	b := Fingerprint(date, decimal.NewFromFloat(100.00), "X")
	assert.Equal(t, a, b)
}

func TestFingerprint_IsHexSHA256(t *testing.T) {
	fp := Fingerprint(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), decimal.NewFromInt(1), "X")
	assert.Len(t, fp, 64)
	assert.Regexp(t, "^[0-9a-f]+$", fp)
}
