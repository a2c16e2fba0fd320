package statement

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_SeparatorDetection(t *testing.T) {
	tests := []struct {
		name          string
		raw           string
		wantSep       rune
		wantAmbiguous bool
	}{
		{
			name:    "semicolons dominate despite commas in values",
			raw:     "Data;Descricao;Valor\n15/01/2024;COMPRA, LOJA;100,00\n16/01/2024;OUTRA COMPRA;200,00",
			wantSep: ';',
		},
		{
			name:    "plain comma separated",
			raw:     "Date,Description,Amount\n2024-01-15,COFFEE,-4.50",
			wantSep: ',',
		},
		{
			name:    "tab separated",
			raw:     "Date\tDescription\tAmount\n2024-01-15\tCOFFEE\t-4.50",
			wantSep: '\t',
		},
		{
			name:          "tie resolves to semicolon and flags ambiguity",
			raw:           "a;b,c\nd;e,f",
			wantSep:       ';',
			wantAmbiguous: true,
		},
		{
			name:          "no separators at all",
			raw:           "just one column\nanother line",
			wantSep:       ';',
			wantAmbiguous: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := Tokenize(tt.raw)
			assert.Equal(t, tt.wantSep, table.Separator)
			assert.Equal(t, tt.wantAmbiguous, table.Ambiguous)
		})
	}
}

func TestTokenize_SeparatorSampleWindow(t *testing.T) {
	// Ten semicolon-heavy lines, but only the first five count. Commas
	// concentrated after the window must not flip the detection.
	raw := "h1;h2;h3\n" +
		"a;b;c\na;b;c\na;b;c\na;b;c\n" +
		"x,y,z,w,q,r\nx,y,z,w,q,r\nx,y,z,w,q,r\nx,y,z,w,q,r\nx,y,z,w,q,r\n"

	table := Tokenize(raw)
	assert.Equal(t, ';', table.Separator)
	assert.False(t, table.Ambiguous)
}

func TestTokenize_QuotedCells(t *testing.T) {
	raw := `Data;Descricao;Valor
15/01/2024;"PAGAMENTO; FATURA";100,00
16/01/2024;"SAYS ""HI""";200,00`

	table := Tokenize(raw)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, []string{"15/01/2024", "PAGAMENTO; FATURA", "100,00"}, table.Rows[0])
	assert.Equal(t, `SAYS "HI"`, table.Rows[1][1])
}

func TestTokenize_DropsBlankRowsAndNormalizesLineEndings(t *testing.T) {
	raw := "Data;Valor\r\n\r\n15/01/2024;100\r\n;;\r\n16/01/2024;200\r\n"

	table := Tokenize(raw)
	assert.Equal(t, []string{"Data", "Valor"}, table.Headers)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "15/01/2024", table.Rows[0][0])
	assert.Equal(t, "16/01/2024", table.Rows[1][0])
}

func TestTokenize_FirstSurvivingRowIsHeader(t *testing.T) {
	raw := "\n\nData;Valor\n15/01/2024;100\n"

	table := Tokenize(raw)
	assert.Equal(t, []string{"Data", "Valor"}, table.Headers)
	require.Len(t, table.Rows, 1)
}
