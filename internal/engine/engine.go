// Package engine implements the core classification engine for categorizing
// transactions. The engine is pure matching logic over a rule document: it
// has no knowledge of where rules come from or how they are stored, only
// the provider.RuleSource interface.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/provider"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// ClassificationEngine classifies transactions against a prioritized
// keyword rule set.
type ClassificationEngine struct {
	source provider.RuleSource
}

// New creates a classification engine over the given rule source.
func New(source provider.RuleSource) *ClassificationEngine {
	return &ClassificationEngine{source: source}
}

// Classify classifies one transaction. The matching itself is total: any
// description/category pair, including empty strings, produces a fully
// populated result. The only possible errors are rule-load failures, which
// propagate as provider.ErrProvider or rules.ErrFormat.
func (e *ClassificationEngine) Classify(ctx context.Context, description, category string) (model.Classification, error) {
	description = strings.TrimSpace(strings.ToUpper(description))
	category = strings.TrimSpace(strings.ToUpper(category))

	doc, err := e.load(ctx)
	if err != nil {
		return model.Classification{}, err
	}

	if result, ok := matchRules(description, doc.Rules); ok {
		return result, nil
	}

	if name, ok := doc.FallbackCategories.Lookup(category); ok {
		return model.Classification{
			PurchaseType: model.PurchasePersonal,
			Category:     name,
			Subcategory:  "",
			Online:       false,
		}, nil
	}

	return model.DefaultClassification(), nil
}

// ClassifyBatch classifies a sequence of transactions, returning one result
// per input in input order.
func (e *ClassificationEngine) ClassifyBatch(ctx context.Context, txns []model.Transaction) ([]model.Classification, error) {
	results := make([]model.Classification, len(txns))
	for i, txn := range txns {
		result, err := e.Classify(ctx, txn.Description, txn.Category)
		if err != nil {
			return nil, err
		}
		results[i] = result
	}
	return results, nil
}

// Explain classifies a transaction and also reports which rule decided the
// keyword phase, or an empty id when the fallback or default path produced
// the result.
func (e *ClassificationEngine) Explain(ctx context.Context, description, category string) (model.Classification, string, error) {
	normalized := strings.TrimSpace(strings.ToUpper(description))

	doc, err := e.load(ctx)
	if err != nil {
		return model.Classification{}, "", err
	}

	var ruleID string
	if normalized != "" {
		for _, rule := range sortedByPriority(doc.Rules) {
			if matchesAnyKeyword(normalized, rule.Keywords) {
				ruleID = rule.ID
				break
			}
		}
	}

	result, err := e.Classify(ctx, description, category)
	if err != nil {
		return model.Classification{}, "", err
	}
	return result, ruleID, nil
}

// load obtains the normalized rule document. Typed provider and format
// errors propagate unchanged; anything unexpected is wrapped as a provider
// failure.
func (e *ClassificationEngine) load(ctx context.Context) (*model.Document, error) {
	raw, err := e.source.Load(ctx)
	if err != nil {
		return nil, wrapLoadErr(err)
	}
	doc, err := rules.Normalize(raw)
	if err != nil {
		return nil, wrapLoadErr(err)
	}
	return doc, nil
}

func wrapLoadErr(err error) error {
	if errors.Is(err, provider.ErrProvider) || errors.Is(err, rules.ErrFormat) {
		return err
	}
	return fmt.Errorf("%w: failed to load rules: %v", provider.ErrProvider, err)
}

// matchRules runs the keyword phase: scan rules by priority descending and
// return the first rule any of whose keywords occurs in the description.
// An empty description skips the phase entirely.
func matchRules(description string, records []model.Rule) (model.Classification, bool) {
	if description == "" {
		return model.Classification{}, false
	}

	for _, rule := range sortedByPriority(records) {
		if matchesAnyKeyword(description, rule.Keywords) {
			return model.Classification{
				PurchaseType: rule.PurchaseType,
				Category:     rule.Category,
				Subcategory:  rule.Subcategory,
				Online:       rule.Online,
			}, true
		}
	}

	return model.Classification{}, false
}

func matchesAnyKeyword(description string, keywords []string) bool {
	for _, kw := range keywords {
		// Keywords are expected to be stored uppercase, but matching
		// uppercases anyway so a miscased keyword still fires.
		if kw != "" && strings.Contains(description, strings.ToUpper(kw)) {
			return true
		}
	}
	return false
}

// sortedByPriority returns the records sorted by priority descending. The
// sort is stable so equal priorities keep their declaration order.
func sortedByPriority(records []model.Rule) []model.Rule {
	sorted := make([]model.Rule, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}
