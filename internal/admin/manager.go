// Package admin implements rule administration: add, remove, update and
// lookup operations over a writable rule source. Every mutation persists
// the full document back to the source, which invalidates its cache so the
// engine observes the change on its next classification.
package admin

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/provider"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// ErrAdministration indicates a failed add/update/remove operation, e.g. a
// duplicate id on add.
var ErrAdministration = errors.New("rule administration failure")

// Manager performs rule administration against a rule store.
type Manager struct {
	store provider.RuleStore
}

// NewManager creates a rule manager over the given store.
func NewManager(store provider.RuleStore) *Manager {
	return &Manager{store: store}
}

// Add appends a new rule and persists the document. Fails with
// ErrAdministration when the id is already present or the rule breaks a
// record invariant. Keywords are uppercased and trimmed before commit.
func (m *Manager) Add(ctx context.Context, rule model.Rule) error {
	if err := checkRule(&rule); err != nil {
		return err
	}

	doc, err := m.load(ctx)
	if err != nil {
		return err
	}

	for _, existing := range doc.Rules {
		if existing.ID == rule.ID {
			return fmt.Errorf("%w: rule %q already exists", ErrAdministration, rule.ID)
		}
	}

	doc.Rules = append(doc.Rules, rule)
	return m.store.Save(ctx, doc)
}

// Remove deletes a rule by id and persists the document. Returns false,
// without error, when the id is absent.
func (m *Manager) Remove(ctx context.Context, id string) (bool, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return false, err
	}

	kept := doc.Rules[:0:0]
	for _, rule := range doc.Rules {
		if rule.ID != id {
			kept = append(kept, rule)
		}
	}
	if len(kept) == len(doc.Rules) {
		return false, nil
	}

	doc.Rules = kept
	if err := m.store.Save(ctx, doc); err != nil {
		return false, err
	}
	return true, nil
}

// Update merges a partial field set into an existing rule and persists the
// document. Returns false, without error, when the id is absent. The merged
// rule is re-checked against record invariants before commit.
func (m *Manager) Update(ctx context.Context, id string, patch model.RulePatch) (bool, error) {
	doc, err := m.load(ctx)
	if err != nil {
		return false, err
	}

	for i := range doc.Rules {
		if doc.Rules[i].ID != id {
			continue
		}

		merged := patch.Apply(doc.Rules[i])
		if err := checkRule(&merged); err != nil {
			return false, err
		}

		doc.Rules[i] = merged
		if err := m.store.Save(ctx, doc); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

// Get returns the rule with the given id, or nil when absent.
func (m *Manager) Get(ctx context.Context, id string) (*model.Rule, error) {
	return m.store.GetByID(ctx, id)
}

// load fetches the current document in canonical form. Administration only
// ever sees the canonical shape; legacy files are converted on the way in
// and written back canonical.
func (m *Manager) load(ctx context.Context) (*model.Document, error) {
	raw, err := m.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Normalize(raw)
}

// checkRule enforces record invariants and normalizes keywords in place.
func checkRule(rule *model.Rule) error {
	if strings.TrimSpace(rule.ID) == "" {
		return fmt.Errorf("%w: rule id cannot be empty", ErrAdministration)
	}
	if len(rule.Keywords) == 0 {
		return fmt.Errorf("%w: rule %q must have at least one keyword", ErrAdministration, rule.ID)
	}
	if !rule.PurchaseType.Valid() {
		return fmt.Errorf("%w: rule %q invalid purchase_type: %q", ErrAdministration, rule.ID, rule.PurchaseType)
	}

	keywords := make([]string, 0, len(rule.Keywords))
	for _, kw := range rule.Keywords {
		kw = strings.TrimSpace(strings.ToUpper(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	if len(keywords) == 0 {
		return fmt.Errorf("%w: rule %q must have at least one keyword", ErrAdministration, rule.ID)
	}
	rule.Keywords = keywords

	return nil
}
