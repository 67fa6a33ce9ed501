package provider

import (
	"context"
	"sync"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// MemorySource serves a rule document held in memory. It satisfies the
// same contract as the file-backed source, which makes it the standard
// test double and also useful for embedded rule sets.
type MemorySource struct {
	doc *model.Document
	raw *rules.RawDocument
	mu  sync.RWMutex
}

// NewMemorySource creates a source over a canonical document.
func NewMemorySource(doc *model.Document) *MemorySource {
	return &MemorySource{doc: doc.Clone()}
}

// NewMemorySourceRaw creates a source over an arbitrary raw document,
// canonical or legacy. Useful for exercising normalization paths.
func NewMemorySourceRaw(raw *rules.RawDocument) *MemorySource {
	return &MemorySource{raw: raw}
}

// Load implements RuleSource.
func (s *MemorySource) Load(_ context.Context) (*rules.RawDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.raw != nil {
		return s.raw, nil
	}
	if s.doc == nil {
		return nil, ErrProvider
	}
	return rules.FromDocument(s.doc)
}

// GetByID implements RuleSource.
func (s *MemorySource) GetByID(ctx context.Context, id string) (*model.Rule, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	return findRule(doc, id), nil
}

// Validate implements RuleSource.
func (s *MemorySource) Validate(ctx context.Context) (model.ValidationResult, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return validateDocument(doc), nil
}

// Metadata implements RuleSource.
func (s *MemorySource) Metadata(ctx context.Context) (model.Metadata, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.Metadata{}, err
	}
	return model.Metadata{
		Version:   doc.Version,
		RuleCount: len(doc.Rules),
		Source:    "memory",
	}, nil
}

// InvalidateCache implements RuleSource. Nothing to do: the document is
// the store.
func (s *MemorySource) InvalidateCache() {}

// Save replaces the held document. Implements RuleWriter.
func (s *MemorySource) Save(_ context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc = doc.Clone()
	s.raw = nil
	return nil
}

func (s *MemorySource) normalized(ctx context.Context) (*model.Document, error) {
	raw, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Normalize(raw)
}
