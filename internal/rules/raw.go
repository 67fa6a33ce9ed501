// Package rules converts rule documents between wire formats. The rest of
// the application only ever sees the canonical shape; the legacy format is
// supported through normalization alone.
package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ledger-tools/ledgersort/internal/model"
)

// ErrFormat indicates a rule document that is present but unparsable or
// structurally invalid.
var ErrFormat = errors.New("invalid rule document format")

// Format identifies which schema a raw document carries.
type Format int

// Raw document formats.
const (
	FormatUnknown Format = iota
	FormatCanonical
	FormatLegacy
)

// RawDocument is a rule document as parsed from the wire, before
// normalization. Exactly one of the canonical payload (Rules) or the legacy
// payload (BusinessKeywords/TransactionRules/OnlineKeywords) is meaningful,
// discriminated by Detect. The canonical rules payload is kept raw so the
// normalizer can report shape errors itself instead of failing deep inside
// the JSON decoder.
type RawDocument struct {
	Version            string            `json:"version"`
	Rules              json.RawMessage   `json:"rules,omitempty"`
	FallbackCategories model.FallbackMap `json:"fallback_categories"`

	BusinessKeywords []string       `json:"business_keywords,omitempty"`
	TransactionRules TransactionSet `json:"transaction_rules,omitempty"`
	OnlineKeywords   []string       `json:"online_purchase_keywords,omitempty"`
}

// Detect reports the document's format. An explicit version tag takes
// precedence; without one, the presence of the legacy business keyword list
// marks a legacy document.
func (d *RawDocument) Detect() Format {
	switch d.Version {
	case model.CanonicalVersion:
		return FormatCanonical
	case "3.0":
		return FormatLegacy
	case "":
		if d.BusinessKeywords != nil {
			return FormatLegacy
		}
		return FormatUnknown
	default:
		return FormatUnknown
	}
}

// TransactionRule is one legacy classification rule: a category,
// subcategory, keyword-list triple keyed by an arbitrary id.
type TransactionRule struct {
	ID          string
	Category    string
	Subcategory string
	Keywords    []string
}

// TransactionSet holds legacy transaction rules in their declaration order.
// Conversion priority depends on the order the rules appear in the file, so
// decoding walks the JSON object token by token instead of unmarshalling
// into a map.
type TransactionSet []TransactionRule

// UnmarshalJSON decodes an id -> [category, subcategory, keywords] object,
// preserving key order. Entries with fewer than three elements are skipped;
// a bare-string keywords element is treated as a one-element list.
func (s *TransactionSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("transaction_rules must be an object")
	}

	var out TransactionSet
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id := keyTok.(string)

		var elems []json.RawMessage
		if err := dec.Decode(&elems); err != nil {
			return fmt.Errorf("transaction rule %q: %w", id, err)
		}
		if len(elems) < 3 {
			continue
		}

		rule := TransactionRule{ID: id}
		if err := json.Unmarshal(elems[0], &rule.Category); err != nil {
			return fmt.Errorf("transaction rule %q: category: %w", id, err)
		}
		if err := json.Unmarshal(elems[1], &rule.Subcategory); err != nil {
			return fmt.Errorf("transaction rule %q: subcategory: %w", id, err)
		}
		if err := json.Unmarshal(elems[2], &rule.Keywords); err != nil {
			var single string
			if err := json.Unmarshal(elems[2], &single); err != nil {
				return fmt.Errorf("transaction rule %q: keywords: %w", id, err)
			}
			rule.Keywords = []string{single}
		}

		out = append(out, rule)
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = out
	return nil
}

// MarshalJSON writes the set back in the legacy wire shape. Key order is
// preserved by emitting the object by hand.
func (s TransactionSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rule := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rule.ID)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal([]any{rule.Category, rule.Subcategory, rule.Keywords})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Parse decodes a rule document from raw JSON. Malformed JSON yields
// ErrFormat.
func Parse(data []byte) (*RawDocument, error) {
	var doc RawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &doc, nil
}

// FromDocument wraps an already-canonical document as a RawDocument, for
// sources that hold structured rules rather than raw bytes.
func FromDocument(doc *model.Document) (*RawDocument, error) {
	records := doc.Rules
	if records == nil {
		records = []model.Rule{}
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	return &RawDocument{
		Version:            model.CanonicalVersion,
		Rules:              payload,
		FallbackCategories: doc.FallbackCategories,
	}, nil
}

// listShaped reports whether a raw JSON payload is an array.
func listShaped(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return strings.HasPrefix(trimmed, "[")
}
