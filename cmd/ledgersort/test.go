package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/ledger-tools/ledgersort/internal/cli"
	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/ofx"
)

// progressThreshold is the batch size above which a progress bar is shown.
const progressThreshold = 50

func testCmd() *cobra.Command {
	var (
		csvPath string
		ofxPath string
	)

	cmd := &cobra.Command{
		Use:   "test",
		Short: "Batch-classify transactions from a file",
		Long: `Classify every transaction in a CSV file (columns: description,category)
or an OFX/QFX bank export, preserving input order.

Examples:
  ledgersort test --csv transactions.csv
  ledgersort test --ofx statement.qfx`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (csvPath == "") == (ofxPath == "") {
				return fmt.Errorf("exactly one of --csv or --ofx is required")
			}

			var txns []model.Transaction
			var err error
			if csvPath != "" {
				txns, err = readCSVTransactions(csvPath)
			} else {
				txns, err = readOFXTransactions(ofxPath)
			}
			if err != nil {
				return err
			}
			if len(txns) == 0 {
				fmt.Println(cli.WarningStyle.Render("No transactions found"))
				return nil
			}

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}

			var bar *progressbar.ProgressBar
			if len(txns) > progressThreshold {
				bar = progressbar.Default(int64(len(txns)), "classifying")
			}

			results := make([]model.Classification, len(txns))
			for i, txn := range txns {
				result, err := eng.Classify(cmd.Context(), txn.Description, txn.Category)
				if err != nil {
					return fmt.Errorf("failed to classify %q: %w", txn.Description, err)
				}
				results[i] = result
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			if bar != nil {
				_ = bar.Finish()
				fmt.Println()
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				cli.HeaderStyle.Render("Description"),
				cli.HeaderStyle.Render("Type"),
				cli.HeaderStyle.Render("Category"),
				cli.HeaderStyle.Render("Subcategory"),
				cli.HeaderStyle.Render("Online"))

			var unmatched int
			for i, txn := range txns {
				result := results[i]
				if result.Category == "" {
					unmatched++
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					truncate(txn.Description, 40),
					result.PurchaseType,
					result.Category,
					result.Subcategory,
					boolWord(result.Online))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Println()
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Classified %d transaction(s), %d without a category", len(txns), unmatched)))
			return nil
		},
	}

	cmd.Flags().StringVar(&csvPath, "csv", "", "CSV file with description,category columns")
	cmd.Flags().StringVar(&ofxPath, "ofx", "", "OFX/QFX bank export")

	return cmd
}

// readCSVTransactions reads description,category pairs from a CSV file. A
// header row is skipped when its first column says "description".
func readCSVTransactions(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var txns []model.Transaction
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV file: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(record[0]), "description") {
			continue
		}

		txn := model.Transaction{Description: record[0]}
		if len(record) > 1 {
			txn.Category = record[1]
		}
		txns = append(txns, txn)
	}

	return txns, nil
}

func readOFXTransactions(path string) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open OFX file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ofx.NewParser().ParseFile(f)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit-1] + "…"
}
