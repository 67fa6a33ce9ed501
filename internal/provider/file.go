package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/rules"
)

// FileSource loads rule documents from JSON files. The canonical-format
// path is tried first, the legacy-format path second; the parsed document
// is cached until InvalidateCache or Save. Safe for concurrent readers:
// cache check-and-populate is serialized by the mutex, cached reads only
// take the read lock.
type FileSource struct {
	cache      *rules.RawDocument
	rulePath   string
	legacyPath string
	cacheValid bool
	mu         sync.RWMutex
}

// NewFileSource creates a file-backed rule source. rulePath is the
// canonical (v4) file; legacyPath, which may be empty, is the legacy (v3)
// fallback tried when the canonical file does not exist.
func NewFileSource(rulePath, legacyPath string) *FileSource {
	return &FileSource{
		rulePath:   rulePath,
		legacyPath: legacyPath,
	}
}

// Load implements RuleSource.
func (s *FileSource) Load(_ context.Context) (*rules.RawDocument, error) {
	s.mu.RLock()
	if s.cacheValid {
		doc := s.cache
		s.mu.RUnlock()
		return doc, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Another loader may have won the race between the two locks.
	if s.cacheValid {
		return s.cache, nil
	}

	doc, err := s.read()
	if err != nil {
		return nil, err
	}

	s.cache = doc
	s.cacheValid = true
	return doc, nil
}

// read loads and parses whichever rules file exists. Caller holds the
// write lock.
func (s *FileSource) read() (*rules.RawDocument, error) {
	for _, path := range []string{s.rulePath, s.legacyPath} {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read %s: %v", ErrProvider, path, err)
		}
		doc, err := rules.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return doc, nil
	}

	return nil, fmt.Errorf("%w: no rules files found (tried: %s, %s)", ErrProvider, s.rulePath, s.legacyPath)
}

// GetByID implements RuleSource.
func (s *FileSource) GetByID(ctx context.Context, id string) (*model.Rule, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	return findRule(doc, id), nil
}

// Validate implements RuleSource.
func (s *FileSource) Validate(ctx context.Context) (model.ValidationResult, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return validateDocument(doc), nil
}

// Metadata implements RuleSource.
func (s *FileSource) Metadata(ctx context.Context) (model.Metadata, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.Metadata{}, err
	}
	return model.Metadata{
		Version:    doc.Version,
		RuleCount:  len(doc.Rules),
		Source:     "file",
		RulePath:   s.rulePath,
		LegacyPath: s.legacyPath,
	}, nil
}

// InvalidateCache implements RuleSource.
func (s *FileSource) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheValid = false
}

// Save writes the canonical document to the canonical path and invalidates
// the cache. Implements RuleWriter.
func (s *FileSource) Save(_ context.Context, doc *model.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", rules.ErrFormat, err)
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.rulePath, data, 0o644); err != nil {
		return fmt.Errorf("%w: cannot write %s: %v", ErrProvider, s.rulePath, err)
	}

	s.cache = nil
	s.cacheValid = false
	return nil
}

// WatchChanges invalidates the cache whenever either backing file is
// rewritten, so long-running processes pick up external edits without a
// restart. onChange, which may be nil, is called after each invalidation.
// Blocks until ctx is done.
func (s *FileSource) WatchChanges(ctx context.Context, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%w: cannot create file watcher: %v", ErrProvider, err)
	}
	defer func() { _ = watcher.Close() }()

	dirs := make(map[string]struct{})
	for _, path := range []string{s.rulePath, s.legacyPath} {
		if path == "" {
			continue
		}
		dirs[filepath.Dir(path)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("%w: cannot watch %s: %v", ErrProvider, dir, err)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if event.Name != s.rulePath && event.Name != s.legacyPath {
				continue
			}
			slog.Debug("Rules file changed, invalidating cache", "path", event.Name)
			s.InvalidateCache()
			if onChange != nil {
				onChange(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Rules file watcher error", "error", err)
		}
	}
}

// normalized loads and normalizes the document.
func (s *FileSource) normalized(ctx context.Context) (*model.Document, error) {
	raw, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Normalize(raw)
}
