package rules

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledger-tools/ledgersort/internal/model"
)

const legacyJSON = `{
	"business_keywords": ["ACME SUPPLY", "FEDEX"],
	"transaction_rules": {
		"coffee": ["Food & Drink", "Coffee", ["STARBUCKS", "PEETS"]],
		"rideshare": ["Transportation", "Rideshare", ["UBER", "LYFT"]],
		"single": ["Groceries", "", "SAFEWAY"]
	},
	"online_purchase_keywords": ["UBER"],
	"fallback_categories": {
		"RESTAURANT": "Food & Drink"
	}
}`

func TestNormalize_LegacyConversion(t *testing.T) {
	raw, err := Parse([]byte(legacyJSON))
	require.NoError(t, err)
	assert.Equal(t, FormatLegacy, raw.Detect())

	doc, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, model.CanonicalVersion, doc.Version)
	require.Len(t, doc.Rules, 5)

	// Business keywords convert first, on a descending priority counter
	// starting at 1000.
	first := doc.Rules[0]
	assert.Equal(t, "v3-business-acme-supply", first.ID)
	assert.Equal(t, []string{"ACME SUPPLY"}, first.Keywords)
	assert.Equal(t, model.PurchaseBusiness, first.PurchaseType)
	assert.Equal(t, "Business", first.Category)
	assert.Equal(t, "", first.Subcategory)
	assert.Equal(t, 1000, first.Priority)
	assert.Equal(t, "Converted from v3 business_keywords", first.Notes)

	assert.Equal(t, "v3-business-fedex", doc.Rules[1].ID)
	assert.Equal(t, 999, doc.Rules[1].Priority)

	// Transaction rules follow in declaration order, continuing the same
	// counter.
	coffee := doc.Rules[2]
	assert.Equal(t, "v3-coffee", coffee.ID)
	assert.Equal(t, []string{"STARBUCKS", "PEETS"}, coffee.Keywords)
	assert.Equal(t, model.PurchasePersonal, coffee.PurchaseType)
	assert.Equal(t, "Food & Drink", coffee.Category)
	assert.Equal(t, "Coffee", coffee.Subcategory)
	assert.Equal(t, 998, coffee.Priority)
	assert.Equal(t, "Converted from v3 rule coffee", coffee.Notes)

	rideshare := doc.Rules[3]
	assert.Equal(t, "v3-rideshare", rideshare.ID)
	assert.Equal(t, 997, rideshare.Priority)
	assert.True(t, rideshare.Online, "online keyword UBER should flag the rideshare rule")

	// A bare-string keywords element is treated as a one-element list.
	single := doc.Rules[4]
	assert.Equal(t, "v3-single", single.ID)
	assert.Equal(t, []string{"SAFEWAY"}, single.Keywords)
	assert.Equal(t, 996, single.Priority)

	// Rules without the online keyword stay offline.
	assert.False(t, coffee.Online)
	assert.False(t, first.Online)

	// Fallback map carries over unchanged.
	name, ok := doc.FallbackCategories.Lookup("RESTAURANT")
	require.True(t, ok)
	assert.Equal(t, "Food & Drink", name)
}

func TestNormalize_LegacyKeywordsUppercased(t *testing.T) {
	raw, err := Parse([]byte(`{
		"business_keywords": ["office depot"],
		"transaction_rules": {
			"gym": ["Health", "Fitness", ["planet fitness"]]
		}
	}`))
	require.NoError(t, err)

	doc, err := Normalize(raw)
	require.NoError(t, err)

	require.Len(t, doc.Rules, 2)
	assert.Equal(t, "v3-business-office-depot", doc.Rules[0].ID)
	assert.Equal(t, []string{"OFFICE DEPOT"}, doc.Rules[0].Keywords)
	assert.Equal(t, []string{"PLANET FITNESS"}, doc.Rules[1].Keywords)
}

func TestNormalize_OnlineRetrofitIsOrderDependent(t *testing.T) {
	// The online pass only flips rules converted before it runs, which is
	// all of them: it is the final conversion step. Rules whose keyword set
	// lacks the keyword stay untouched.
	raw, err := Parse([]byte(`{
		"business_keywords": ["AMAZON"],
		"transaction_rules": {
			"shopping": ["Shopping", "", ["AMAZON", "TARGET"]]
		},
		"online_purchase_keywords": ["AMAZON", "EBAY"]
	}`))
	require.NoError(t, err)

	doc, err := Normalize(raw)
	require.NoError(t, err)

	require.Len(t, doc.Rules, 2)
	assert.True(t, doc.Rules[0].Online)
	assert.True(t, doc.Rules[1].Online)
}

func TestNormalize_ShortTransactionRuleSkipped(t *testing.T) {
	raw, err := Parse([]byte(`{
		"business_keywords": [],
		"transaction_rules": {
			"broken": ["OnlyCategory"],
			"good": ["Travel", "Air", ["DELTA"]]
		}
	}`))
	require.NoError(t, err)

	doc, err := Normalize(raw)
	require.NoError(t, err)

	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "v3-good", doc.Rules[0].ID)
}

func TestNormalize_CanonicalPassthrough(t *testing.T) {
	raw, err := Parse([]byte(`{
		"version": "4.0",
		"rules": [
			{"id": "amazon", "keywords": ["AMAZON"], "purchase_type": "Personal",
			 "category": "Online Shopping", "subcategory": "General Retail",
			 "online": true, "priority": 100}
		],
		"fallback_categories": {"PURCHASE": "General Purchase"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, FormatCanonical, raw.Detect())

	doc, err := Normalize(raw)
	require.NoError(t, err)

	require.Len(t, doc.Rules, 1)
	assert.Equal(t, "amazon", doc.Rules[0].ID)
	assert.Equal(t, 100, doc.Rules[0].Priority)
}

func TestNormalize_IdempotentOnCanonical(t *testing.T) {
	raw, err := Parse([]byte(legacyJSON))
	require.NoError(t, err)

	once, err := Normalize(raw)
	require.NoError(t, err)

	reraw, err := FromDocument(once)
	require.NoError(t, err)

	twice, err := Normalize(reraw)
	require.NoError(t, err)

	assert.Equal(t, once.Rules, twice.Rules)
	assert.Equal(t, once.FallbackCategories, twice.FallbackCategories)
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{
			name: "unknown version",
			json: `{"version": "2.0", "rules": []}`,
		},
		{
			name: "no version no legacy marker",
			json: `{"rules": []}`,
		},
		{
			name: "canonical missing rules",
			json: `{"version": "4.0", "fallback_categories": {}}`,
		},
		{
			name: "canonical rules not a list",
			json: `{"version": "4.0", "rules": {"amazon": {}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Parse([]byte(tt.json))
			require.NoError(t, err)

			_, err = Normalize(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrFormat))
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"version": `))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFormat))
}

func TestTransactionSet_PreservesDeclarationOrder(t *testing.T) {
	raw, err := Parse([]byte(`{
		"business_keywords": [],
		"transaction_rules": {
			"zeta": ["Z", "", ["Z1"]],
			"alpha": ["A", "", ["A1"]],
			"mid": ["M", "", ["M1"]]
		}
	}`))
	require.NoError(t, err)

	require.Len(t, raw.TransactionRules, 3)
	assert.Equal(t, "zeta", raw.TransactionRules[0].ID)
	assert.Equal(t, "alpha", raw.TransactionRules[1].ID)
	assert.Equal(t, "mid", raw.TransactionRules[2].ID)

	doc, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 1000, doc.Rules[0].Priority)
	assert.Equal(t, "v3-zeta", doc.Rules[0].ID)
	assert.Equal(t, "v3-mid", doc.Rules[2].ID)
	assert.Equal(t, 998, doc.Rules[2].Priority)
}
