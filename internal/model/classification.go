package model

// Classification is the output of classifying one transaction. All four
// fields are always populated; a transaction nothing matched yields
// DefaultClassification, never an error.
type Classification struct {
	PurchaseType PurchaseType `json:"purchase_type"`
	Category     string       `json:"category"`
	Subcategory  string       `json:"subcategory"`
	Online       bool         `json:"online"`
}

// DefaultClassification is the result when neither the keyword phase nor
// the fallback phase matches.
func DefaultClassification() Classification {
	return Classification{
		PurchaseType: PurchasePersonal,
		Category:     "",
		Subcategory:  "",
		Online:       false,
	}
}

// Transaction is the input to classification: a free-text description
// (e.g. "AMAZON MARK* NH4S31RG1") and a merchant category code (e.g.
// "PURCHASE"). Either may be empty.
type Transaction struct {
	Description string `json:"description"`
	Category    string `json:"category"`
}
