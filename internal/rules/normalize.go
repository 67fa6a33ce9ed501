package rules

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
)

// legacyBasePriority seeds the descending priority counter used when
// converting legacy documents. Earlier-declared legacy entries outrank
// later ones; business keywords and transaction rules are interleaved
// purely by conversion order, which is preserved for compatibility with
// existing rule files.
const legacyBasePriority = 1000

// Normalize converts a raw rule document to the canonical shape the engine
// consumes. Canonical input is validated and passed through unchanged, so
// normalization is idempotent; legacy input is converted. Anything else
// fails with ErrFormat.
func Normalize(raw *RawDocument) (*model.Document, error) {
	switch raw.Detect() {
	case FormatCanonical:
		return validateCanonical(raw)
	case FormatLegacy:
		return legacyToCanonical(raw), nil
	default:
		return nil, fmt.Errorf("%w: unknown rule format version: %q (expected \"3.0\" or \"4.0\")", ErrFormat, raw.Version)
	}
}

// validateCanonical checks the structural invariants of a document tagged
// canonical and decodes its rules.
func validateCanonical(raw *RawDocument) (*model.Document, error) {
	if raw.Rules == nil {
		return nil, fmt.Errorf("%w: canonical document missing \"rules\"", ErrFormat)
	}
	if !listShaped(raw.Rules) {
		return nil, fmt.Errorf("%w: canonical \"rules\" must be a list", ErrFormat)
	}

	var records []model.Rule
	if err := json.Unmarshal(raw.Rules, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}

	return &model.Document{
		Version:            model.CanonicalVersion,
		Rules:              records,
		FallbackCategories: raw.FallbackCategories,
	}, nil
}

// legacyToCanonical converts a legacy document. Every business keyword and
// every transaction rule becomes its own synthetic record on a shared
// descending priority counter; online purchase keywords then retroactively
// flag the records converted before them. The fallback map carries over
// unchanged.
func legacyToCanonical(raw *RawDocument) *model.Document {
	records := make([]model.Rule, 0, len(raw.BusinessKeywords)+len(raw.TransactionRules))
	priority := legacyBasePriority

	for _, keyword := range raw.BusinessKeywords {
		records = append(records, model.Rule{
			ID:           "v3-business-" + strings.ReplaceAll(strings.ToLower(keyword), " ", "-"),
			Keywords:     []string{strings.ToUpper(keyword)},
			PurchaseType: model.PurchaseBusiness,
			Category:     "Business",
			Subcategory:  "",
			Online:       false,
			Priority:     priority,
			Notes:        "Converted from v3 business_keywords",
		})
		priority--
	}

	for _, rule := range raw.TransactionRules {
		keywords := make([]string, len(rule.Keywords))
		for i, kw := range rule.Keywords {
			keywords[i] = strings.ToUpper(kw)
		}
		records = append(records, model.Rule{
			ID:           "v3-" + rule.ID,
			Keywords:     keywords,
			PurchaseType: model.PurchasePersonal,
			Category:     rule.Category,
			Subcategory:  rule.Subcategory,
			Online:       false,
			Priority:     priority,
			Notes:        fmt.Sprintf("Converted from v3 rule %s", rule.ID),
		})
		priority--
	}

	for _, keyword := range raw.OnlineKeywords {
		upper := strings.ToUpper(keyword)
		for i := range records {
			if records[i].HasKeyword(upper) {
				records[i].Online = true
			}
		}
	}

	return &model.Document{
		Version:            model.CanonicalVersion,
		Rules:              records,
		FallbackCategories: raw.FallbackCategories,
	}
}
