// Package diagnose reports statistics and correctness smells over a rule
// document: duplicate keywords across rules, distribution counts, and
// fallback coverage.
package diagnose

import (
	"context"
	"sort"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/provider"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// Analyzer computes diagnostics over the rules of a source.
type Analyzer struct {
	source provider.RuleSource
}

// NewAnalyzer creates an analyzer over the given rule source.
func NewAnalyzer(source provider.RuleSource) *Analyzer {
	return &Analyzer{source: source}
}

// Stats summarizes a rule document.
type Stats struct {
	Categories         map[string]int `json:"categories"`
	TotalRules         int            `json:"total_rules"`
	TotalKeywords      int            `json:"total_keywords"`
	BusinessRules      int            `json:"business_rules"`
	PersonalRules      int            `json:"personal_rules"`
	OnlineRules        int            `json:"online_rules"`
	AvgKeywordsPerRule float64        `json:"avg_keywords_per_rule"`
}

// Coverage reports how well the rule set covers its own fallback map.
type Coverage struct {
	UncoveredFallbacks   []string `json:"uncovered_fallbacks"`
	FallbackCategories   int      `json:"total_fallback_categories"`
	UniqueKeywords       int      `json:"unique_keywords"`
	RulesWithSubcategory int      `json:"rules_with_subcategory"`
	AvgPriority          float64  `json:"avg_priority"`
}

// FindDuplicateKeywords reports every keyword owned by more than one rule,
// mapped to the owning rule ids. Keywords are uppercased before grouping.
// Priority order resolves such overlaps deterministically at runtime, but
// they are ambiguous to a rule author and always worth surfacing.
func (a *Analyzer) FindDuplicateKeywords(ctx context.Context) (map[string][]string, error) {
	doc, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	owners := make(map[string][]string)
	for _, rule := range doc.Rules {
		for _, kw := range rule.Keywords {
			upper := strings.ToUpper(kw)
			owners[upper] = append(owners[upper], rule.ID)
		}
	}

	duplicates := make(map[string][]string)
	for kw, ids := range owners {
		if len(ids) > 1 {
			duplicates[kw] = ids
		}
	}
	return duplicates, nil
}

// GetStats computes distribution statistics over the rule document.
func (a *Analyzer) GetStats(ctx context.Context) (Stats, error) {
	doc, err := a.load(ctx)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Categories: make(map[string]int)}
	stats.TotalRules = len(doc.Rules)
	for _, rule := range doc.Rules {
		stats.TotalKeywords += len(rule.Keywords)
		if rule.PurchaseType == model.PurchaseBusiness {
			stats.BusinessRules++
		} else {
			stats.PersonalRules++
		}
		if rule.Online {
			stats.OnlineRules++
		}
		category := rule.Category
		if category == "" {
			category = "Unknown"
		}
		stats.Categories[category]++
	}
	if stats.TotalRules > 0 {
		stats.AvgKeywordsPerRule = float64(stats.TotalKeywords) / float64(stats.TotalRules)
	}
	return stats, nil
}

// AnalyzeCoverage reports keyword and fallback coverage metrics, including
// fallback categories no current rule's category covers.
func (a *Analyzer) AnalyzeCoverage(ctx context.Context) (Coverage, error) {
	doc, err := a.load(ctx)
	if err != nil {
		return Coverage{}, err
	}

	unique := make(map[string]struct{})
	ruleCategories := make(map[string]struct{})
	var prioritySum int
	coverage := Coverage{FallbackCategories: len(doc.FallbackCategories)}

	for _, rule := range doc.Rules {
		for _, kw := range rule.Keywords {
			unique[strings.ToUpper(kw)] = struct{}{}
		}
		if rule.Subcategory != "" {
			coverage.RulesWithSubcategory++
		}
		ruleCategories[rule.Category] = struct{}{}
		prioritySum += rule.Priority
	}

	coverage.UniqueKeywords = len(unique)
	if len(doc.Rules) > 0 {
		coverage.AvgPriority = float64(prioritySum) / float64(len(doc.Rules))
	}

	uncovered := make(map[string]struct{})
	for key, entry := range doc.FallbackCategories {
		name := entry.Name
		if entry.Codes != nil {
			// Grouped entries are keyed by the category name itself.
			name = key
		}
		if _, covered := ruleCategories[name]; !covered {
			uncovered[name] = struct{}{}
		}
	}
	for name := range uncovered {
		coverage.UncoveredFallbacks = append(coverage.UncoveredFallbacks, name)
	}
	sort.Strings(coverage.UncoveredFallbacks)

	return coverage, nil
}

func (a *Analyzer) load(ctx context.Context) (*model.Document, error) {
	raw, err := a.source.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Normalize(raw)
}
