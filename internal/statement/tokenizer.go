package statement

import (
	"strings"
)

// separatorCandidates in tie-break order: semicolon beats comma beats tab.
var separatorCandidates = []rune{';', ',', '\t'}

// Table is the tokenized form of a delimited statement.
type Table struct {
	Headers []string
	Rows    [][]string

	// Separator is the detected field separator.
	Separator rune

	// Ambiguous is set when separator detection had to guess (tied or zero
	// counts). Non-fatal: the best guess is always used.
	Ambiguous bool
}

// Tokenize splits raw statement text into header and data rows. The separator
// is detected by counting candidate occurrences over the first five non-empty
// lines. Double-quote enclosure is honored ("" inside quotes is a literal
// quote). Rows whose cells are all empty or whitespace are dropped, and the
// first surviving row is always the header.
func Tokenize(raw string) Table {
	normalized := strings.ReplaceAll(raw, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	lines := strings.Split(normalized, "\n")

	sep, ambiguous := detectSeparator(lines)

	table := Table{Separator: sep, Ambiguous: ambiguous}
	for _, line := range lines {
		cells := splitLine(line, sep)
		if blankRow(cells) {
			continue
		}
		if table.Headers == nil {
			table.Headers = cells
			continue
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}

// detectSeparator counts each candidate separator in the first five non-empty
// lines and picks the most frequent one. Ties resolve in candidate order.
func detectSeparator(lines []string) (rune, bool) {
	counts := make(map[rune]int, len(separatorCandidates))
	sampled := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, sep := range separatorCandidates {
			counts[sep] += strings.Count(line, string(sep))
		}
		sampled++
		if sampled == 5 {
			break
		}
	}

	best := separatorCandidates[0]
	for _, sep := range separatorCandidates[1:] {
		if counts[sep] > counts[best] {
			best = sep
		}
	}

	ambiguous := counts[best] == 0
	for _, sep := range separatorCandidates {
		if sep != best && counts[sep] == counts[best] {
			ambiguous = true
		}
	}
	return best, ambiguous
}

// splitLine splits one line on sep, honoring double-quote enclosure.
func splitLine(line string, sep rune) []string {
	var (
		cells    []string
		cell     strings.Builder
		inQuotes bool
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case r == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cell.WriteRune('"')
				i++
				continue
			}
			inQuotes = !inQuotes
		case r == sep && !inQuotes:
			cells = append(cells, strings.TrimSpace(cell.String()))
			cell.Reset()
		default:
			cell.WriteRune(r)
		}
	}
	cells = append(cells, strings.TrimSpace(cell.String()))
	return cells
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
