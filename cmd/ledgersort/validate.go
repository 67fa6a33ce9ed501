package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ledger-tools/ledgersort/internal/cli"
	"github.com/ledger-tools/ledgersort/internal/provider"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the rules file",
		Long: `Run semantic checks over the configured rules file: missing or duplicate
ids, missing keyword lists, unknown purchase types (errors) and miscased
keywords (warnings). Exits nonzero when any error is found.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			source, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}

			result, err := source.Validate(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to validate rules: %w", err)
			}

			for _, warning := range result.Warnings {
				fmt.Println(cli.WarningStyle.Render("warning: " + warning))
			}
			for _, e := range result.Errors {
				fmt.Println(cli.ErrorStyle.Render("error: " + e))
			}

			if !result.IsValid {
				return fmt.Errorf("%w: %d error(s)", provider.ErrValidation, len(result.Errors))
			}

			meta, err := source.Metadata(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to read rules metadata: %w", err)
			}
			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Rules are valid (%d rules, format %s)", meta.RuleCount, meta.Version)))
			return nil
		},
	}
}
