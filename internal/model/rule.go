// Package model defines the core data structures for the ledgersort application.
package model

// PurchaseType is the Business/Personal axis of a classification,
// independent of category.
type PurchaseType string

// Purchase type constants.
const (
	PurchaseBusiness PurchaseType = "Business"
	PurchasePersonal PurchaseType = "Personal"
)

// Valid reports whether the purchase type is one of the two known values.
func (p PurchaseType) Valid() bool {
	return p == PurchaseBusiness || p == PurchasePersonal
}

// Rule is a single keyword-triggered classification directive. A rule fires
// when any of its keywords occurs as a substring of the (uppercased)
// transaction description; within a rule all keywords are equivalent
// triggers.
type Rule struct {
	ID           string       `json:"id"`
	Keywords     []string     `json:"keywords"`
	PurchaseType PurchaseType `json:"purchase_type"`
	Category     string       `json:"category"`
	Subcategory  string       `json:"subcategory"`
	Notes        string       `json:"notes,omitempty"`
	Tags         []string     `json:"tags,omitempty"`
	Priority     int          `json:"priority"`
	Online       bool         `json:"online"`
}

// HasKeyword reports whether the rule's keyword set contains the given
// (already uppercased) keyword.
func (r *Rule) HasKeyword(keyword string) bool {
	for _, kw := range r.Keywords {
		if kw == keyword {
			return true
		}
	}
	return false
}

// RulePatch is a partial update applied to an existing rule. Nil fields are
// left untouched, which keeps the rule's invariants checkable before the
// merge is committed.
type RulePatch struct {
	Keywords     *[]string
	PurchaseType *PurchaseType
	Category     *string
	Subcategory  *string
	Notes        *string
	Tags         *[]string
	Priority     *int
	Online       *bool
}

// Apply merges the patch into a copy of the rule and returns it. The rule's
// ID is never patched.
func (p RulePatch) Apply(rule Rule) Rule {
	if p.Keywords != nil {
		rule.Keywords = *p.Keywords
	}
	if p.PurchaseType != nil {
		rule.PurchaseType = *p.PurchaseType
	}
	if p.Category != nil {
		rule.Category = *p.Category
	}
	if p.Subcategory != nil {
		rule.Subcategory = *p.Subcategory
	}
	if p.Notes != nil {
		rule.Notes = *p.Notes
	}
	if p.Tags != nil {
		rule.Tags = *p.Tags
	}
	if p.Priority != nil {
		rule.Priority = *p.Priority
	}
	if p.Online != nil {
		rule.Online = *p.Online
	}
	return rule
}
