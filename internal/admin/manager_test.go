package admin

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledger-tools/ledgersort/internal/engine"
	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/provider"
)

func testDocument() *model.Document {
	return &model.Document{
		Version: model.CanonicalVersion,
		Rules: []model.Rule{
			{
				ID:           "amazon",
				Keywords:     []string{"AMAZON"},
				PurchaseType: model.PurchasePersonal,
				Category:     "Online Shopping",
				Priority:     100,
			},
		},
		FallbackCategories: model.FallbackMap{},
	}
}

func newTestManager(t *testing.T) (*Manager, *provider.MemorySource) {
	t.Helper()
	source := provider.NewMemorySource(testDocument())
	return NewManager(source), source
}

func TestManager_AddThenGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	rule := model.Rule{
		ID:           "uber",
		Keywords:     []string{"UBER"},
		PurchaseType: model.PurchasePersonal,
		Category:     "Transportation",
		Subcategory:  "Rideshare",
		Online:       true,
		Priority:     95,
	}
	require.NoError(t, manager.Add(ctx, rule))

	got, err := manager.Get(ctx, "uber")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rule, *got)
}

func TestManager_AddDuplicateIDFails(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	err := manager.Add(ctx, model.Rule{
		ID:           "amazon",
		Keywords:     []string{"AMZN"},
		PurchaseType: model.PurchasePersonal,
		Category:     "X",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdministration))
}

func TestManager_AddNormalizesKeywords(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	require.NoError(t, manager.Add(ctx, model.Rule{
		ID:           "coffee",
		Keywords:     []string{" starbucks ", "PEETS"},
		PurchaseType: model.PurchasePersonal,
		Category:     "Food & Drink",
	}))

	got, err := manager.Get(ctx, "coffee")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{"STARBUCKS", "PEETS"}, got.Keywords)
}

func TestManager_AddInvalidRule(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	tests := []struct {
		name string
		rule model.Rule
	}{
		{
			name: "empty id",
			rule: model.Rule{Keywords: []string{"X"}, PurchaseType: model.PurchasePersonal, Category: "X"},
		},
		{
			name: "no keywords",
			rule: model.Rule{ID: "x", PurchaseType: model.PurchasePersonal, Category: "X"},
		},
		{
			name: "blank keywords only",
			rule: model.Rule{ID: "x", Keywords: []string{"  "}, PurchaseType: model.PurchasePersonal, Category: "X"},
		},
		{
			name: "bad purchase type",
			rule: model.Rule{ID: "x", Keywords: []string{"X"}, PurchaseType: "Corporate", Category: "X"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.Add(ctx, tt.rule)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrAdministration))
		})
	}
}

func TestManager_RemoveThenGetAbsent(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	removed, err := manager.Remove(ctx, "amazon")
	require.NoError(t, err)
	assert.True(t, removed)

	got, err := manager.Get(ctx, "amazon")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_RemoveAbsentIsNotAnError(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	removed, err := manager.Remove(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestManager_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	priority := 42
	subcategory := "Marketplace"
	updated, err := manager.Update(ctx, "amazon", model.RulePatch{
		Priority:    &priority,
		Subcategory: &subcategory,
	})
	require.NoError(t, err)
	assert.True(t, updated)

	got, err := manager.Get(ctx, "amazon")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 42, got.Priority)
	assert.Equal(t, "Marketplace", got.Subcategory)
	// Untouched fields survive.
	assert.Equal(t, []string{"AMAZON"}, got.Keywords)
	assert.Equal(t, "Online Shopping", got.Category)
}

func TestManager_UpdateAbsentReturnsFalse(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	updated, err := manager.Update(ctx, "nope", model.RulePatch{})
	require.NoError(t, err)
	assert.False(t, updated)
}

func TestManager_UpdateRejectsInvariantViolation(t *testing.T) {
	ctx := context.Background()
	manager, _ := newTestManager(t)

	bad := model.PurchaseType("Corporate")
	_, err := manager.Update(ctx, "amazon", model.RulePatch{PurchaseType: &bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAdministration))
}

func TestManager_MutationVisibleToEngine(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	source := provider.NewFileSource(filepath.Join(dir, "classification_rules.v4.json"), "")

	require.NoError(t, source.Save(ctx, testDocument()))

	manager := NewManager(source)
	eng := engine.New(source)

	result, err := eng.Classify(ctx, "LYFT RIDE", "")
	require.NoError(t, err)
	assert.Equal(t, "", result.Category)

	require.NoError(t, manager.Add(ctx, model.Rule{
		ID:           "lyft",
		Keywords:     []string{"LYFT"},
		PurchaseType: model.PurchasePersonal,
		Category:     "Transportation",
		Priority:     90,
	}))

	// The add persisted and invalidated the cache, so the engine sees the
	// new rule without any restart.
	result, err = eng.Classify(ctx, "LYFT RIDE", "")
	require.NoError(t, err)
	assert.Equal(t, "Transportation", result.Category)
}
