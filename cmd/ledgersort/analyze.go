package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ledger-tools/ledgersort/internal/cli"
	"github.com/ledger-tools/ledgersort/internal/diagnose"
)

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze the rule set",
		Long:  `Report statistics, duplicate keywords and fallback coverage for the configured rules.`,
	}

	cmd.AddCommand(statsCmd())
	cmd.AddCommand(duplicatesCmd())
	cmd.AddCommand(coverageCmd())

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Rule distribution statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			analyzer := diagnose.NewAnalyzer(source)

			stats, err := analyzer.GetStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render("Rule Statistics"))
			fmt.Printf("  Total rules:        %d\n", stats.TotalRules)
			fmt.Printf("  Total keywords:     %d\n", stats.TotalKeywords)
			fmt.Printf("  Business rules:     %d\n", stats.BusinessRules)
			fmt.Printf("  Personal rules:     %d\n", stats.PersonalRules)
			fmt.Printf("  Online rules:       %d\n", stats.OnlineRules)
			fmt.Printf("  Keywords per rule:  %.1f\n", stats.AvgKeywordsPerRule)

			if len(stats.Categories) > 0 {
				fmt.Println()
				w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\n", cli.HeaderStyle.Render("Category"), cli.HeaderStyle.Render("Rules"))

				names := make([]string, 0, len(stats.Categories))
				for name := range stats.Categories {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%d\n", name, stats.Categories[name])
				}
				_ = w.Flush()
			}

			return nil
		},
	}
}

func duplicatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicates",
		Short: "Keywords shared by more than one rule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			analyzer := diagnose.NewAnalyzer(source)

			duplicates, err := analyzer.FindDuplicateKeywords(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to find duplicates: %w", err)
			}

			if len(duplicates) == 0 {
				fmt.Println(cli.SuccessStyle.Render("No duplicate keywords found"))
				return nil
			}

			fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("%d duplicate keyword(s) found", len(duplicates))))

			keywords := make([]string, 0, len(duplicates))
			for kw := range duplicates {
				keywords = append(keywords, kw)
			}
			sort.Strings(keywords)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\n", cli.HeaderStyle.Render("Keyword"), cli.HeaderStyle.Render("Rules"))
			for _, kw := range keywords {
				fmt.Fprintf(w, "%s\t%s\n", kw, strings.Join(duplicates[kw], ", "))
			}
			return w.Flush()
		},
	}
}

func coverageCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "coverage",
		Short: "Keyword and fallback coverage metrics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			analyzer := diagnose.NewAnalyzer(source)

			coverage, err := analyzer.AnalyzeCoverage(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to analyze coverage: %w", err)
			}

			fmt.Println(cli.TitleStyle.Render("Rule Coverage"))
			fmt.Printf("  Unique keywords:          %d\n", coverage.UniqueKeywords)
			fmt.Printf("  Rules with subcategory:   %d\n", coverage.RulesWithSubcategory)
			fmt.Printf("  Average priority:         %.1f\n", coverage.AvgPriority)
			fmt.Printf("  Fallback categories:      %d\n", coverage.FallbackCategories)

			if len(coverage.UncoveredFallbacks) > 0 {
				fmt.Println()
				fmt.Println(cli.WarningStyle.Render("Fallback categories with no matching rule category:"))
				for _, name := range coverage.UncoveredFallbacks {
					fmt.Printf("  - %s\n", name)
				}
			}

			return nil
		},
	}
}
