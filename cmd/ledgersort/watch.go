package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ledger-tools/ledgersort/internal/cli"
	"github.com/ledger-tools/ledgersort/internal/config"
	"github.com/ledger-tools/ledgersort/internal/provider"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the rules files and re-validate on change",
		Long: `Watch the configured rules files and run the validation checks every time
one of them is rewritten. Useful while hand-editing a rule set. Runs
until interrupted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rulesPath := viper.GetString("rules.path")
			if rulesPath == "" {
				rulesPath = defaultRulesPath
			}
			legacyPath := viper.GetString("rules.legacy_path")
			if legacyPath == "" {
				legacyPath = defaultLegacyPath
			}
			source := provider.NewFileSource(config.ExpandPath(rulesPath), config.ExpandPath(legacyPath))

			report := func(path string) {
				fmt.Println(cli.SubtleStyle.Render(fmt.Sprintf("-- %s changed", path)))
				result, err := source.Validate(cmd.Context())
				if err != nil {
					fmt.Println(cli.ErrorStyle.Render("error: " + err.Error()))
					return
				}
				for _, warning := range result.Warnings {
					fmt.Println(cli.WarningStyle.Render("warning: " + warning))
				}
				for _, e := range result.Errors {
					fmt.Println(cli.ErrorStyle.Render("error: " + e))
				}
				if result.IsValid {
					fmt.Println(cli.SuccessStyle.Render("Rules are valid"))
				}
			}

			fmt.Println(cli.TitleStyle.Render("Watching rules files"))
			fmt.Printf("  %s\n  %s\n", rulesPath, legacyPath)
			return source.WatchChanges(cmd.Context(), report)
		},
	}
}
