package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledger-tools/ledgersort/internal/cli"
)

func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <description> [category]",
		Short: "Classify a single transaction",
		Long: `Classify one transaction description (plus an optional merchant category
code) against the configured rule set and print the resulting tuple.

Examples:
  ledgersort classify "AMAZON MARK* NH4S31RG1"
  ledgersort classify "UBER TRIP 4X2" PURCHASE`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			description := args[0]
			category := ""
			if len(args) > 1 {
				category = args[1]
			}

			eng, err := newEngine()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			result, ruleID, err := eng.Explain(cmd.Context(), description, category)
			if err != nil {
				return fmt.Errorf("failed to classify: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render("Classification Result"))
			fmt.Printf("  Purchase Type: %s\n", cli.BoldStyle.Render(string(result.PurchaseType)))
			fmt.Printf("  Category:      %s\n", result.Category)
			if result.Subcategory != "" {
				fmt.Printf("  Subcategory:   %s\n", result.Subcategory)
			}
			fmt.Printf("  Online:        %s\n", boolWord(result.Online))
			if ruleID != "" {
				fmt.Printf("  Matching Rule: %s\n", ruleID)
			} else {
				fmt.Printf("  Matching Rule: %s\n", cli.SubtleStyle.Render("(none)"))
			}

			return nil
		},
	}
}
