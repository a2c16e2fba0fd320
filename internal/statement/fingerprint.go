package statement

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// fingerprintPrefixLen bounds how much of the description participates in the
// fingerprint, so trailing reference numbers and such don't break identity.
const fingerprintPrefixLen = 30

// Fingerprint derives a stable content hash for one transaction. It is a pure
// function of (date, amount to two decimals, first 30 alphanumeric characters
// of the lower-cased description): the same economic event parsed twice, even
// with whitespace or casing drift, hashes identically.
func Fingerprint(date time.Time, amount decimal.Decimal, description string) string {
	key := date.Format("2006-01-02") + "|" + amount.StringFixed(2) + "|" + descriptionPrefix(description)
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

func descriptionPrefix(description string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(description) {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		b.WriteRune(r)
		if b.Len() >= fingerprintPrefixLen {
			break
		}
	}
	return b.String()
}
