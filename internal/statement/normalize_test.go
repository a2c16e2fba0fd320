package statement

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Uber   Trip  ", "UBER TRIP"},
		{"pagamento\tfatura\nnubank", "PAGAMENTO FATURA NUBANK"},
		{"", ""},
		{"   ", ""},
		{"already upper", "ALREADY UPPER"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeText(tt.in), "input %q", tt.in)
	}
}

func TestParseDate(t *testing.T) {
	today := time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		raw    string
		want   time.Time
		wantOK bool
	}{
		{
			name:   "day first with slashes",
			raw:    "15/01/2024",
			want:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "day first with dots and two-digit year below 50",
			raw:    "15.01.24",
			want:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "two-digit year 50 and above maps to 19xx",
			raw:    "15-01-75",
			want:   time.Date(1975, 1, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "iso year first",
			raw:    "2024-01-15",
			want:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "surrounding whitespace tolerated",
			raw:    "  15/01/2024  ",
			want:   time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			wantOK: true,
		},
		{
			name:   "day overflowing the month falls back",
			raw:    "31/02/2024",
			want:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantOK: false,
		},
		{
			name:   "garbage falls back to today at midnight",
			raw:    "not a date",
			want:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantOK: false,
		},
		{
			name:   "empty falls back",
			raw:    "",
			want:   time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseDate(tt.raw, today)
			assert.Equal(t, tt.wantOK, ok)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"both separators comma last", "1.234,56", "1234.56"},
		{"both separators dot last", "1,234.56", "1234.56"},
		{"single comma with two decimals", "1234,56", "1234.56"},
		{"single comma with three digits is thousands", "1,234", "1234"},
		{"plain dot decimal", "1234.56", "1234.56"},
		{"integer", "1234", "1234"},
		{"leading minus", "-100,00", "-100"},
		{"parentheses negate", "(100.00)", "-100"},
		{"debit marker D", "100,00 D", "-100"},
		{"debit marker DEB", "DEB 250.00", "-250"},
		{"currency glyphs stripped", "R$ 1.500,00", "1500"},
		{"currency glyphs with minus", "-R$ 1.500,00", "-1500"},
		{"minus after currency glyph", "R$ -100,00", "-100"},
		{"minus between glyph and spaced digits", "US$ -1.234,56", "-1234.56"},
		{"multiple dot thousands", "1.234.567,89", "1234567.89"},
		{"unparseable yields zero", "abc", "0"},
		{"empty yields zero", "", "0"},
		{"whitespace yields zero", "   ", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, err := decimal.NewFromString(tt.want)
			require.NoError(t, err)
			got := ParseAmount(tt.raw)
			assert.True(t, want.Equal(got), "want %s, got %s", want, got)
		})
	}
}
