package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CanonicalVersion is the rule document format the engine consumes directly.
const CanonicalVersion = "4.0"

// Document is a full rule collection plus fallback mapping at a given
// format version. Records are conceptually sorted by priority descending
// before matching; ties are broken by declaration order.
type Document struct {
	Version            string      `json:"version"`
	Rules              []Rule      `json:"rules"`
	FallbackCategories FallbackMap `json:"fallback_categories"`
}

// Clone returns a deep copy of the document so callers can mutate rules
// without aliasing a cached instance.
func (d *Document) Clone() *Document {
	c := &Document{
		Version:            d.Version,
		Rules:              make([]Rule, len(d.Rules)),
		FallbackCategories: d.FallbackCategories.clone(),
	}
	for i, rule := range d.Rules {
		c.Rules[i] = rule
		c.Rules[i].Keywords = append([]string(nil), rule.Keywords...)
		if rule.Tags != nil {
			c.Rules[i].Tags = append([]string(nil), rule.Tags...)
		}
	}
	return c
}

// FallbackEntry is one value of the fallback category map. Exactly one of
// Name or Codes is set: a direct entry maps a merchant category code to a
// category name, a grouped entry maps a category name to the codes it
// covers.
type FallbackEntry struct {
	Name  string
	Codes []string
}

// FallbackMap is the secondary classification source keyed by merchant
// category code, consulted only when no keyword rule matches. Both map
// shapes from the wire format are supported simultaneously: code->name and
// name->[codes].
type FallbackMap map[string]FallbackEntry

// UnmarshalJSON accepts a JSON object whose values are either strings
// (code->name) or arrays of strings (name->[codes]).
func (m *FallbackMap) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(FallbackMap, len(raw))
	for key, value := range raw {
		trimmed := strings.TrimSpace(string(value))
		switch {
		case strings.HasPrefix(trimmed, `"`):
			var name string
			if err := json.Unmarshal(value, &name); err != nil {
				return err
			}
			out[key] = FallbackEntry{Name: name}
		case strings.HasPrefix(trimmed, "["):
			var codes []string
			if err := json.Unmarshal(value, &codes); err != nil {
				return err
			}
			out[key] = FallbackEntry{Codes: codes}
		default:
			return fmt.Errorf("fallback category %q: value must be a string or a list of codes", key)
		}
	}

	*m = out
	return nil
}

// MarshalJSON writes each entry back in its original shape.
func (m FallbackMap) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m))
	for key, entry := range m {
		if entry.Codes != nil {
			out[key] = entry.Codes
		} else {
			out[key] = entry.Name
		}
	}
	return json.Marshal(out)
}

// Lookup resolves an (uppercased) merchant category code to a category
// name. Direct code->name entries are checked first; grouped name->[codes]
// entries second, with codes uppercased and trimmed before comparison. A
// document mixing both shapes therefore resolves direct matches first.
func (m FallbackMap) Lookup(code string) (string, bool) {
	if code == "" || len(m) == 0 {
		return "", false
	}

	if entry, ok := m[code]; ok && entry.Codes == nil {
		return entry.Name, true
	}

	for name, entry := range m {
		for _, c := range entry.Codes {
			if strings.ToUpper(strings.TrimSpace(c)) == code {
				return name, true
			}
		}
	}

	return "", false
}

func (m FallbackMap) clone() FallbackMap {
	if m == nil {
		return nil
	}
	c := make(FallbackMap, len(m))
	for key, entry := range m {
		if entry.Codes != nil {
			entry.Codes = append([]string(nil), entry.Codes...)
		}
		c[key] = entry
	}
	return c
}
