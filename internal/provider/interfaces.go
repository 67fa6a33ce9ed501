// Package provider supplies rule documents to the rest of the application
// without disclosing where they are stored. The engine and the management
// tooling depend on the interfaces here, never on a concrete source.
package provider

import (
	"context"
	"errors"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// Provider errors.
var (
	// ErrProvider indicates the rule document is unreachable: missing
	// files, I/O failures, broken storage.
	ErrProvider = errors.New("rule provider failure")
	// ErrValidation indicates a document that parses but fails semantic
	// rule checks.
	ErrValidation = errors.New("rule validation failure")
)

// RuleSource loads rule documents from some backing store. Load returns the
// parsed but not yet normalized document; callers run it through
// rules.Normalize. Implementations cache the parsed document and must be
// safe for concurrent readers.
type RuleSource interface {
	// Load returns the rule document, reading and caching it on first use.
	// Fails with ErrProvider when the document is unreachable and
	// rules.ErrFormat when it is malformed.
	Load(ctx context.Context) (*rules.RawDocument, error)

	// GetByID returns the normalized rule with the given id, or nil when
	// no such rule exists.
	GetByID(ctx context.Context, id string) (*model.Rule, error)

	// Validate runs semantic checks over the normalized document. Findings
	// land in the result; the error reports load failures only.
	Validate(ctx context.Context) (model.ValidationResult, error)

	// Metadata describes the source and its document without exposing
	// storage details.
	Metadata(ctx context.Context) (model.Metadata, error)

	// InvalidateCache forces the next Load to re-read the backing store.
	// Called after any administrative mutation.
	InvalidateCache()
}

// RuleWriter persists a full canonical document back to the backing store
// and invalidates the source's cache so subsequent loads see fresh data.
type RuleWriter interface {
	Save(ctx context.Context, doc *model.Document) error
}

// RuleStore combines reading and writing; administration requires both.
type RuleStore interface {
	RuleSource
	RuleWriter
}
