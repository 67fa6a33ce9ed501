package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ledger-tools/ledgersort/internal/admin"
	"github.com/ledger-tools/ledgersort/internal/cli"
	"github.com/ledger-tools/ledgersort/internal/model"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage classification rules",
		Long:  `Add, remove, update and inspect the keyword rules the engine matches against.`,
	}

	cmd.AddCommand(addRuleCmd())
	cmd.AddCommand(removeRuleCmd())
	cmd.AddCommand(updateRuleCmd())
	cmd.AddCommand(getRuleCmd())

	return cmd
}

func addRuleCmd() *cobra.Command {
	var (
		keywords     string
		purchaseType string
		category     string
		subcategory  string
		notes        string
		priority     int
		online       bool
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a new rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			manager := admin.NewManager(store)

			rule := model.Rule{
				ID:           args[0],
				Keywords:     splitKeywords(keywords),
				PurchaseType: model.PurchaseType(purchaseType),
				Category:     category,
				Subcategory:  subcategory,
				Notes:        notes,
				Priority:     priority,
				Online:       online,
			}

			if err := manager.Add(cmd.Context(), rule); err != nil {
				return fmt.Errorf("failed to add rule: %w", err)
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Added rule %s", rule.ID)))
			return nil
		},
	}

	cmd.Flags().StringVar(&keywords, "keywords", "", "comma-separated keywords (required)")
	cmd.Flags().StringVar(&purchaseType, "type", "Personal", "purchase type (Business or Personal)")
	cmd.Flags().StringVar(&category, "category", "", "category name (required)")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "subcategory name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().IntVar(&priority, "priority", 100, "rule priority (higher is matched first)")
	cmd.Flags().BoolVar(&online, "online", false, "mark matches as online purchases")
	_ = cmd.MarkFlagRequired("keywords")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func removeRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			manager := admin.NewManager(store)

			removed, err := manager.Remove(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to remove rule: %w", err)
			}
			if !removed {
				fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Rule %s not found", args[0])))
				return nil
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Removed rule %s", args[0])))
			return nil
		},
	}
}

func updateRuleCmd() *cobra.Command {
	var (
		keywords     string
		purchaseType string
		category     string
		subcategory  string
		notes        string
		priority     int
		online       bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of an existing rule",
		Long: `Update an existing rule. Only the flags you pass are changed; all other
fields keep their current values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			manager := admin.NewManager(store)

			var patch model.RulePatch
			if cmd.Flags().Changed("keywords") {
				kws := splitKeywords(keywords)
				patch.Keywords = &kws
			}
			if cmd.Flags().Changed("type") {
				pt := model.PurchaseType(purchaseType)
				patch.PurchaseType = &pt
			}
			if cmd.Flags().Changed("category") {
				patch.Category = &category
			}
			if cmd.Flags().Changed("subcategory") {
				patch.Subcategory = &subcategory
			}
			if cmd.Flags().Changed("notes") {
				patch.Notes = &notes
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("online") {
				patch.Online = &online
			}

			updated, err := manager.Update(cmd.Context(), args[0], patch)
			if err != nil {
				return fmt.Errorf("failed to update rule: %w", err)
			}
			if !updated {
				fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Rule %s not found", args[0])))
				return nil
			}

			fmt.Println(cli.SuccessStyle.Render(fmt.Sprintf("Updated rule %s", args[0])))
			return nil
		},
	}

	cmd.Flags().StringVar(&keywords, "keywords", "", "comma-separated keywords")
	cmd.Flags().StringVar(&purchaseType, "type", "", "purchase type (Business or Personal)")
	cmd.Flags().StringVar(&category, "category", "", "category name")
	cmd.Flags().StringVar(&subcategory, "subcategory", "", "subcategory name")
	cmd.Flags().StringVar(&notes, "notes", "", "free-form notes")
	cmd.Flags().IntVar(&priority, "priority", 0, "rule priority")
	cmd.Flags().BoolVar(&online, "online", false, "mark matches as online purchases")

	return cmd
}

func getRuleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := newRuleSource()
			if err != nil {
				return fmt.Errorf("failed to open rule source: %w", err)
			}
			manager := admin.NewManager(store)

			rule, err := manager.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to get rule: %w", err)
			}
			if rule == nil {
				fmt.Println(cli.WarningStyle.Render(fmt.Sprintf("Rule %s not found", args[0])))
				return nil
			}

			fmt.Println(cli.TitleStyle.Render(fmt.Sprintf("Rule %s", rule.ID)))
			fmt.Printf("  Keywords:      %s\n", strings.Join(rule.Keywords, ", "))
			fmt.Printf("  Purchase Type: %s\n", rule.PurchaseType)
			fmt.Printf("  Category:      %s\n", rule.Category)
			if rule.Subcategory != "" {
				fmt.Printf("  Subcategory:   %s\n", rule.Subcategory)
			}
			fmt.Printf("  Online:        %s\n", boolWord(rule.Online))
			fmt.Printf("  Priority:      %d\n", rule.Priority)
			if rule.Notes != "" {
				fmt.Printf("  Notes:         %s\n", cli.SubtleStyle.Render(rule.Notes))
			}

			return nil
		},
	}
}

func splitKeywords(s string) []string {
	parts := strings.Split(s, ",")
	keywords := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" {
			keywords = append(keywords, part)
		}
	}
	return keywords
}
