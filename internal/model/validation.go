package model

// ValidationResult reports the outcome of semantic rule checks. Errors are
// fatal and must be fixed; warnings should be reviewed but matching still
// works.
type ValidationResult struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	IsValid  bool     `json:"is_valid"`
}

// Metadata describes a rule source without loading all of its data.
type Metadata struct {
	Version    string `json:"version"`
	Source     string `json:"source"`
	RulePath   string `json:"rule_path,omitempty"`
	LegacyPath string `json:"legacy_path,omitempty"`
	RuleCount  int    `json:"rule_count"`
}
