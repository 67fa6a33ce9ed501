package main

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ledger-tools/ledgersort/internal/config"
	"github.com/ledger-tools/ledgersort/internal/engine"
	"github.com/ledger-tools/ledgersort/internal/provider"
)

// Default rule file paths, relative to the working directory. The legacy
// file is only consulted when the canonical file does not exist.
const (
	defaultRulesPath  = "classification_rules.v4.json"
	defaultLegacyPath = "rules.json"
)

// newRuleSource builds the configured rule source: file-backed JSON by
// default, SQLite when rules.driver says so.
func newRuleSource() (provider.RuleStore, error) {
	switch driver := viper.GetString("rules.driver"); driver {
	case "", "file":
		rulesPath := viper.GetString("rules.path")
		if rulesPath == "" {
			rulesPath = defaultRulesPath
		}
		legacyPath := viper.GetString("rules.legacy_path")
		if legacyPath == "" {
			legacyPath = defaultLegacyPath
		}
		return provider.NewFileSource(config.ExpandPath(rulesPath), config.ExpandPath(legacyPath)), nil
	case "sqlite":
		dbPath := viper.GetString("rules.db_path")
		if dbPath == "" {
			dbPath = "ledgersort.db"
		}
		return provider.NewSQLiteSource(config.ExpandPath(dbPath))
	default:
		return nil, fmt.Errorf("unknown rules driver: %s (expected file or sqlite)", driver)
	}
}

// newEngine builds a classification engine over the configured rule source.
func newEngine() (*engine.ClassificationEngine, error) {
	source, err := newRuleSource()
	if err != nil {
		return nil, err
	}
	return engine.New(source), nil
}

// boolWord renders a boolean the way the rule files spell it.
func boolWord(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
