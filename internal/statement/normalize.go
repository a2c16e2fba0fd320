package statement

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	dmyPattern = regexp.MustCompile(`^(\d{1,2})[./-](\d{1,2})[./-](\d{2}|\d{4})$`)
	ymdPattern = regexp.MustCompile(`^(\d{4})[./-](\d{1,2})[./-](\d{1,2})$`)

	whitespaceRun = regexp.MustCompile(`\s+`)

	// debitMarker matches a standalone D / DEB / DEBIT token inside an amount
	// cell, e.g. "100,00 D" or "DEB 100.00".
	debitMarker = regexp.MustCompile(`(?i)(^|\s)(deb(it)?|d)(\s|$)`)
)

// NormalizeText trims, collapses internal whitespace, and upper-cases.
// Case-folding is intentional: it keeps classifier matching simple.
func NormalizeText(s string) string {
	s = whitespaceRun.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.ToUpper(s)
}

// ParseDate parses a statement date cell. It tries day-first
// (DD/MM/YYYY or DD/MM/YY, with . and - also accepted as separators), then
// ISO-style YYYY-MM-DD. Two-digit years below 50 map to 20xx, the rest to
// 19xx. When nothing parses the returned date is today and ok is false; the
// caller decides whether to surface that fallback.
func ParseDate(raw string, today time.Time) (date time.Time, ok bool) {
	s := strings.TrimSpace(raw)

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			if year < 50 {
				year += 2000
			} else {
				year += 1900
			}
		}
		if d, valid := calendarDate(year, month, day); valid {
			return d, true
		}
	}

	if m := ymdPattern.FindStringSubmatch(s); m != nil {
		if d, valid := calendarDate(atoi(m[1]), atoi(m[2]), atoi(m[3])); valid {
			return d, true
		}
	}

	return midnightUTC(today), false
}

// calendarDate builds a UTC date and rejects values that overflow their
// month (time.Date would silently normalize 32/01 into 01/02).
func calendarDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func midnightUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

// ParseAmount converts a raw amount cell into a signed decimal. The sign
// comes from a minus anywhere before the first digit, enclosing parentheses,
// or an embedded debit marker. Decimal-vs-thousands ambiguity resolves as: with both "," and "."
// present the right-most one is the decimal separator; with only "," it is a
// decimal separator only when exactly two digits follow. Unparseable input
// yields zero, which callers must treat as a discard signal, never as a
// zero-value transaction.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero
	}

	negative := false

	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	if debitMarker.MatchString(s) {
		negative = true
		s = debitMarker.ReplaceAllString(s, " ")
	}
	// The minus may trail a currency glyph ("R$ -100,00"), so any minus
	// before the first digit counts as leading.
	for _, r := range s {
		if r >= '0' && r <= '9' {
			break
		}
		if r == '-' {
			negative = true
			break
		}
	}

	// Drop currency glyphs, spaces, and any other decoration.
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' || r == ',' || r == '.' {
			digits.WriteRune(r)
		}
	}
	cleaned := digits.String()
	if cleaned == "" {
		return decimal.Zero
	}

	cleaned = resolveSeparators(cleaned)

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		value = value.Neg()
	}
	return value
}

// resolveSeparators rewrites a digits-and-separators string into plain
// dot-decimal form.
func resolveSeparators(s string) string {
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", -1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") == 1 && len(s)-lastComma-1 == 2 {
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case strings.Count(s, ".") > 1:
		// Multiple dots: all but the last are thousands separators.
		s = strings.ReplaceAll(s[:lastDot], ".", "") + s[lastDot:]
	}
	return s
}
