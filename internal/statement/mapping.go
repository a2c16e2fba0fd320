package statement

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfogliato/statement-import/internal/domain"
)

// Role is the semantic meaning of a mapped column.
type Role string

const (
	RoleDate          Role = "date"
	RoleDescription   Role = "description"
	RoleAmount        Role = "amount"
	RoleCredit        Role = "credit"
	RoleDebit         Role = "debit"
	RoleBankReference Role = "bank_reference"
	RoleCounterparty  Role = "counterparty"
)

// ColumnMapping binds one column index to a role. Mappings are declared by
// the caller per import and are immutable once committed.
type ColumnMapping struct {
	ColumnIndex int  `json:"column_index"`
	Role        Role `json:"role"`
}

// ErrMissingRequiredColumns is returned before any row is processed when the
// mapping lacks a date, a description, and either an amount column or a
// credit/debit pair.
var ErrMissingRequiredColumns = errors.New("missing required columns: need date, description, and amount or credit+debit")

// ValidateMappings checks the declared layout against the required roles.
func ValidateMappings(mappings []ColumnMapping) error {
	have := make(map[Role]bool, len(mappings))
	for _, m := range mappings {
		if m.ColumnIndex < 0 {
			return fmt.Errorf("column index %d for role %q is invalid", m.ColumnIndex, m.Role)
		}
		have[m.Role] = true
	}
	if !have[RoleDate] || !have[RoleDescription] {
		return ErrMissingRequiredColumns
	}
	if !have[RoleAmount] && !(have[RoleCredit] && have[RoleDebit]) {
		return ErrMissingRequiredColumns
	}
	return nil
}

// MappedRow is one statement row after column mapping and normalization.
type MappedRow struct {
	Date          time.Time
	DateDefaulted bool
	Description   string
	Amount        decimal.Decimal
	Metadata      map[domain.MetadataKey]string
	Raw           []string
}

// MapRows applies the declared mapping to tokenized rows. It is a pure
// function over (rows, mappings): row order is preserved, rows with an empty
// description or a zero amount are silently skipped (statements routinely
// contain informational rows), and dates that fail to parse fall back to
// today with a warning. With a credit/debit pair the amount is
// credit minus |debit|, each cell normalized independently.
func MapRows(rows [][]string, mappings []ColumnMapping, today time.Time) ([]MappedRow, []string) {
	byRole := make(map[Role]int, len(mappings))
	for _, m := range mappings {
		byRole[m.Role] = m.ColumnIndex
	}

	var (
		mapped   []MappedRow
		warnings []string
	)

	for i, row := range rows {
		description := NormalizeText(cell(row, byRole, RoleDescription))
		if description == "" {
			continue
		}

		var amount decimal.Decimal
		if idx, ok := byRole[RoleAmount]; ok {
			amount = ParseAmount(cellAt(row, idx))
		} else {
			credit := ParseAmount(cell(row, byRole, RoleCredit))
			debit := ParseAmount(cell(row, byRole, RoleDebit))
			amount = credit.Sub(debit.Abs())
		}
		if amount.IsZero() {
			continue
		}

		date, ok := ParseDate(cell(row, byRole, RoleDate), today)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("row %d: unparsable date %q, defaulted to today", i+1, cell(row, byRole, RoleDate)))
		}

		meta := make(map[domain.MetadataKey]string)
		if ref := NormalizeText(cell(row, byRole, RoleBankReference)); ref != "" {
			meta[domain.MetaBankReference] = ref
		}
		if cp := NormalizeText(cell(row, byRole, RoleCounterparty)); cp != "" {
			meta[domain.MetaCounterparty] = cp
		}

		mapped = append(mapped, MappedRow{
			Date:          date,
			DateDefaulted: !ok,
			Description:   description,
			Amount:        amount,
			Metadata:      meta,
			Raw:           row,
		})
	}

	return mapped, warnings
}

func cell(row []string, byRole map[Role]int, role Role) string {
	idx, ok := byRole[role]
	if !ok {
		return ""
	}
	return cellAt(row, idx)
}

func cellAt(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
