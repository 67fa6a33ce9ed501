package provider

import (
	"fmt"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
)

// validateDocument runs the semantic checks shared by every source over a
// normalized document. Missing or duplicate ids, missing keyword lists and
// unknown purchase types are errors; non-uppercase keywords are warnings
// only, because matching uppercases anyway.
func validateDocument(doc *model.Document) model.ValidationResult {
	var errs []string
	var warnings []string

	seen := make(map[string]struct{}, len(doc.Rules))
	for i, rule := range doc.Rules {
		switch {
		case rule.ID == "":
			errs = append(errs, fmt.Sprintf("rule %d missing id", i))
		default:
			if _, dup := seen[rule.ID]; dup {
				errs = append(errs, fmt.Sprintf("duplicate rule id: %s", rule.ID))
			} else {
				seen[rule.ID] = struct{}{}
			}
		}

		name := rule.ID
		if name == "" {
			name = fmt.Sprintf("%d", i)
		}

		if rule.Keywords == nil {
			errs = append(errs, fmt.Sprintf("rule %s missing keywords", name))
		} else {
			for _, kw := range rule.Keywords {
				if kw != strings.ToUpper(kw) {
					warnings = append(warnings, fmt.Sprintf("rule %s keyword %q not uppercase", name, kw))
				}
			}
		}

		if !rule.PurchaseType.Valid() {
			errs = append(errs, fmt.Sprintf("rule %s invalid purchase_type: %q", name, rule.PurchaseType))
		}
	}

	return model.ValidationResult{
		IsValid:  len(errs) == 0,
		Errors:   errs,
		Warnings: warnings,
	}
}

// findRule returns the rule with the given id, or nil.
func findRule(doc *model.Document, id string) *model.Rule {
	for i := range doc.Rules {
		if doc.Rules[i].ID == id {
			rule := doc.Rules[i]
			return &rule
		}
	}
	return nil
}
