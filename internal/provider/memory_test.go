package provider

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledger-tools/ledgersort/internal/model"
)

func memoryTestDocument() *model.Document {
	return &model.Document{
		Version: model.CanonicalVersion,
		Rules: []model.Rule{
			{ID: "amazon", Keywords: []string{"AMAZON"}, PurchaseType: model.PurchasePersonal, Category: "Online Shopping", Priority: 100},
		},
		FallbackCategories: model.FallbackMap{},
	}
}

func TestMemorySource_DocumentIsolation(t *testing.T) {
	ctx := context.Background()
	doc := memoryTestDocument()
	source := NewMemorySource(doc)

	// Mutating the caller's document must not affect the source.
	doc.Rules[0].Category = "Changed"

	rule, err := source.GetByID(ctx, "amazon")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, "Online Shopping", rule.Category)
}

func TestMemorySource_SaveReplacesDocument(t *testing.T) {
	ctx := context.Background()
	source := NewMemorySource(memoryTestDocument())

	replacement := memoryTestDocument()
	replacement.Rules = append(replacement.Rules, model.Rule{
		ID: "uber", Keywords: []string{"UBER"}, PurchaseType: model.PurchasePersonal, Category: "Transportation", Priority: 95,
	})
	require.NoError(t, source.Save(ctx, replacement))

	meta, err := source.Metadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, meta.RuleCount)
	assert.Equal(t, "memory", meta.Source)
}
