package classify

import (
	"regexp"
)

// Rule is one invoice-payment detection pattern. Patterns run in order
// against the normalized description; the first hit wins.
type Rule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Issuer is a known card issuer. Aliases are matched literally
// (case-insensitive, on word boundaries) against the description; Name is the
// canonical value reported as the suggested instrument.
type Issuer struct {
	Name    string
	Aliases []string
}

// RuleSet is a versioned, data-driven classification table. New issuer or
// bank patterns are additive and independently testable; nothing else in the
// classifier needs to change to extend coverage.
type RuleSet struct {
	Version         string
	InvoicePatterns []Rule
	Issuers         []Issuer
}

// DefaultRuleSet returns the built-in table. Coverage skews Brazilian
// because that is where most supported statement layouts come from.
func DefaultRuleSet() *RuleSet {
	return &RuleSet{
		Version: "2024-02",
		InvoicePatterns: []Rule{
			{Name: "pagamento-fatura", Pattern: regexp.MustCompile(`(?i)PAGAMENTO\s+(DE\s+)?FATURA`)},
			{Name: "pgto-fatura", Pattern: regexp.MustCompile(`(?i)PA?GTO\.?\s*(DE\s*)?FATURA`)},
			{Name: "fatura-cartao", Pattern: regexp.MustCompile(`(?i)FATURA\s+(DO\s+)?CART[AÃ]O`)},
			{Name: "pagamento-cartao", Pattern: regexp.MustCompile(`(?i)PAGAMENTO\s+(DE\s+)?CART[AÃ]O(\s+DE\s+CR[EÉ]DITO)?`)},
			{Name: "deb-autom-fatura", Pattern: regexp.MustCompile(`(?i)DEB\.?\s*AUTOM?\.?\s*(DE\s*)?FATURA`)},
			{Name: "credit-card-payment", Pattern: regexp.MustCompile(`(?i)CREDIT\s+CARD\s+(BILL\s+)?PAYMENT`)},
			{Name: "payment-to-credit-card", Pattern: regexp.MustCompile(`(?i)PAYMENT\s+(TO\s+)?CREDIT\s+CARD`)},
		},
		Issuers: []Issuer{
			{Name: "nubank", Aliases: []string{"nubank", "nu pagamentos"}},
			{Name: "itau", Aliases: []string{"itau", "itaú", "itaucard"}},
			{Name: "bradesco", Aliases: []string{"bradesco"}},
			{Name: "santander", Aliases: []string{"santander"}},
			{Name: "caixa", Aliases: []string{"caixa"}},
			{Name: "banco do brasil", Aliases: []string{"banco do brasil", "bco do brasil"}},
			{Name: "inter", Aliases: []string{"banco inter", "inter"}},
			{Name: "c6", Aliases: []string{"c6 bank", "c6"}},
			{Name: "xp", Aliases: []string{"xp investimentos", "xp"}},
			{Name: "neon", Aliases: []string{"neon"}},
			{Name: "original", Aliases: []string{"original"}},
			{Name: "amex", Aliases: []string{"american express", "amex"}},
			{Name: "visa", Aliases: []string{"visa"}},
			{Name: "mastercard", Aliases: []string{"mastercard", "master card"}},
			{Name: "elo", Aliases: []string{"elo"}},
		},
	}
}
