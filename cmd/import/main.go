// The import binary runs the delimited import path from the command line
// against an in-memory store, for inspecting how a statement file parses
// before uploading it.
package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rfogliato/statement-import/internal/domain"
	"github.com/rfogliato/statement-import/internal/importer"
	"github.com/rfogliato/statement-import/internal/logger"
	reconmem "github.com/rfogliato/statement-import/internal/recon/inmemory"
	"github.com/rfogliato/statement-import/internal/statement"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		filePath  string
		accountID string
		source    string
		mappings  []string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Parse a delimited statement file and preview the import",
		Long: `Parse a delimited bank statement export, apply a declared column mapping,
and print the candidates that would enter the reconciliation queue.

Mappings bind zero-based column indexes to roles, e.g.:

  import --file extrato.csv --account acc-1 \
    --map 0:date --map 1:description --map 2:amount

Roles: date, description, amount, credit, debit, bank_reference, counterparty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := parseMappings(mappings)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("reading %s: %w", filePath, err)
			}

			format := domain.SourceFormat(source)
			if format != domain.SourceCSV && format != domain.SourceText {
				return fmt.Errorf("invalid source format %q: must be csv or text", source)
			}

			log := logger.NewWithWriter(os.Stderr)
			svc := importer.NewService(reconmem.NewStore(), nil, nil, nil, log)

			raw := domain.RawStatement{
				SourceFormat: format,
				FileName:     filePath,
				Content:      content,
			}

			result, err := svc.ImportDelimited(cmd.Context(), accountID, raw, parsed)
			if err != nil {
				return err
			}

			printResult(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "Path to the statement file (required)")
	cmd.Flags().StringVarP(&accountID, "account", "a", "", "Account id the lines belong to (required)")
	cmd.Flags().StringVar(&source, "source", "csv", "Source format: csv or text")
	cmd.Flags().StringArrayVarP(&mappings, "map", "m", nil, "Column mapping as index:role (repeatable, required)")

	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("account")
	cmd.MarkFlagRequired("map")

	return cmd
}

func parseMappings(specs []string) ([]statement.ColumnMapping, error) {
	mappings := make([]statement.ColumnMapping, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid mapping %q: want index:role", spec)
		}
		idx, err := strconv.Atoi(parts[0])
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("invalid column index in mapping %q", spec)
		}
		mappings = append(mappings, statement.ColumnMapping{
			ColumnIndex: idx,
			Role:        statement.Role(parts[1]),
		})
	}
	return mappings, nil
}

func printResult(cmd *cobra.Command, result *importer.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Imported:   %d\n", result.Imported)
	fmt.Fprintf(out, "Duplicates: %d\n", result.Duplicates)
	if len(result.Errors) > 0 {
		fmt.Fprintf(out, "Warnings:   %d\n", len(result.Errors))
		for _, w := range result.Errors {
			fmt.Fprintf(out, "  - %s\n", w)
		}
	}
	fmt.Fprintln(out)

	for _, c := range result.Transactions {
		marker := " "
		if c.IsInvoicePayment {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s  %10s  %s", marker, c.ISODate(), c.Amount.StringFixed(2), c.Description)
		if c.SuggestedInstrument != "" {
			fmt.Fprintf(out, "  (card: %s)", c.SuggestedInstrument)
		}
		fmt.Fprintln(out)
	}
	if len(result.Transactions) > 0 {
		fmt.Fprintln(out, "\n* = credit card invoice payment")
	}
}
