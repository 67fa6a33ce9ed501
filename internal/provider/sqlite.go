package provider

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ledger-tools/ledgersort/internal/model"
	"github.com/ledger-tools/ledgersort/internal/rules"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteSource stores the rule document in a SQLite database. Rule
// declaration order is persisted explicitly so priority tie-breaking
// survives the round trip. Same caching contract as FileSource.
type SQLiteSource struct {
	db         *sql.DB
	cache      *rules.RawDocument
	dbPath     string
	cacheValid bool
	mu         sync.RWMutex
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS rules (
		id TEXT PRIMARY KEY,
		keywords TEXT NOT NULL,
		purchase_type TEXT NOT NULL,
		category TEXT NOT NULL,
		subcategory TEXT,
		online INTEGER NOT NULL DEFAULT 0,
		priority INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		tags TEXT,
		position INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_rules_position ON rules(position)`,
	`CREATE TABLE IF NOT EXISTS fallback_categories (
		key TEXT PRIMARY KEY,
		name TEXT,
		codes TEXT
	)`,
}

// NewSQLiteSource opens (creating if necessary) a SQLite-backed rule
// source at dbPath.
func NewSQLiteSource(dbPath string) (*SQLiteSource, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: database path cannot be empty", ErrProvider)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return nil, fmt.Errorf("%w: cannot create database directory: %v", ErrProvider, err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open database: %v", ErrProvider, err)
	}

	// SQLite doesn't benefit from multiple connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: cannot ping database: %v", ErrProvider, err)
	}

	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: cannot create schema: %v", ErrProvider, err)
		}
	}

	return &SQLiteSource{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *SQLiteSource) Close() error {
	return s.db.Close()
}

// Load implements RuleSource.
func (s *SQLiteSource) Load(ctx context.Context) (*rules.RawDocument, error) {
	s.mu.RLock()
	if s.cacheValid {
		doc := s.cache
		s.mu.RUnlock()
		return doc, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cacheValid {
		return s.cache, nil
	}

	doc, err := s.readDocument(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := rules.FromDocument(doc)
	if err != nil {
		return nil, err
	}

	s.cache = raw
	s.cacheValid = true
	return raw, nil
}

// readDocument reads the full document from the database. Caller holds the
// write lock.
func (s *SQLiteSource) readDocument(ctx context.Context) (*model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, keywords, purchase_type, category, subcategory, online, priority, notes, tags
		FROM rules
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot query rules: %v", ErrProvider, err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Rule
	for rows.Next() {
		var rule model.Rule
		var keywords, subcategory, notes, tags sql.NullString
		var online int
		if err := rows.Scan(&rule.ID, &keywords, &rule.PurchaseType, &rule.Category,
			&subcategory, &online, &rule.Priority, &notes, &tags); err != nil {
			return nil, fmt.Errorf("%w: cannot scan rule: %v", ErrProvider, err)
		}
		if keywords.Valid {
			if err := json.Unmarshal([]byte(keywords.String), &rule.Keywords); err != nil {
				return nil, fmt.Errorf("%w: rule %s: bad keywords payload: %v", rules.ErrFormat, rule.ID, err)
			}
		}
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &rule.Tags); err != nil {
				return nil, fmt.Errorf("%w: rule %s: bad tags payload: %v", rules.ErrFormat, rule.ID, err)
			}
		}
		rule.Subcategory = subcategory.String
		rule.Notes = notes.String
		rule.Online = online != 0
		records = append(records, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: cannot read rules: %v", ErrProvider, err)
	}

	fallback, err := s.readFallback(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []model.Rule{}
	}
	return &model.Document{
		Version:            model.CanonicalVersion,
		Rules:              records,
		FallbackCategories: fallback,
	}, nil
}

func (s *SQLiteSource) readFallback(ctx context.Context) (model.FallbackMap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, name, codes FROM fallback_categories`)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot query fallback categories: %v", ErrProvider, err)
	}
	defer func() { _ = rows.Close() }()

	fallback := make(model.FallbackMap)
	for rows.Next() {
		var key string
		var name, codes sql.NullString
		if err := rows.Scan(&key, &name, &codes); err != nil {
			return nil, fmt.Errorf("%w: cannot scan fallback category: %v", ErrProvider, err)
		}
		entry := model.FallbackEntry{Name: name.String}
		if codes.Valid && codes.String != "" {
			if err := json.Unmarshal([]byte(codes.String), &entry.Codes); err != nil {
				return nil, fmt.Errorf("%w: fallback %s: bad codes payload: %v", rules.ErrFormat, key, err)
			}
			entry.Name = ""
		}
		fallback[key] = entry
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: cannot read fallback categories: %v", ErrProvider, err)
	}
	return fallback, nil
}

// GetByID implements RuleSource.
func (s *SQLiteSource) GetByID(ctx context.Context, id string) (*model.Rule, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return nil, err
	}
	return findRule(doc, id), nil
}

// Validate implements RuleSource.
func (s *SQLiteSource) Validate(ctx context.Context) (model.ValidationResult, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.ValidationResult{}, err
	}
	return validateDocument(doc), nil
}

// Metadata implements RuleSource.
func (s *SQLiteSource) Metadata(ctx context.Context) (model.Metadata, error) {
	doc, err := s.normalized(ctx)
	if err != nil {
		return model.Metadata{}, err
	}
	return model.Metadata{
		Version:   doc.Version,
		RuleCount: len(doc.Rules),
		Source:    "sqlite",
		RulePath:  s.dbPath,
	}, nil
}

// InvalidateCache implements RuleSource.
func (s *SQLiteSource) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheValid = false
}

// Save replaces the stored document in one transaction and invalidates the
// cache. Implements RuleWriter.
func (s *SQLiteSource) Save(ctx context.Context, doc *model.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: cannot begin transaction: %v", ErrProvider, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM rules`); err != nil {
		return fmt.Errorf("%w: cannot clear rules: %v", ErrProvider, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM fallback_categories`); err != nil {
		return fmt.Errorf("%w: cannot clear fallback categories: %v", ErrProvider, err)
	}

	for i, rule := range doc.Rules {
		keywords, err := json.Marshal(rule.Keywords)
		if err != nil {
			return fmt.Errorf("%w: rule %s: %v", rules.ErrFormat, rule.ID, err)
		}
		var tags []byte
		if rule.Tags != nil {
			if tags, err = json.Marshal(rule.Tags); err != nil {
				return fmt.Errorf("%w: rule %s: %v", rules.ErrFormat, rule.ID, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO rules (id, keywords, purchase_type, category, subcategory, online, priority, notes, tags, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, rule.ID, string(keywords), string(rule.PurchaseType), rule.Category,
			rule.Subcategory, rule.Online, rule.Priority, rule.Notes, nullableString(tags), i); err != nil {
			return fmt.Errorf("%w: cannot insert rule %s: %v", ErrProvider, rule.ID, err)
		}
	}

	for key, entry := range doc.FallbackCategories {
		var codes []byte
		if entry.Codes != nil {
			if codes, err = json.Marshal(entry.Codes); err != nil {
				return fmt.Errorf("%w: fallback %s: %v", rules.ErrFormat, key, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fallback_categories (key, name, codes) VALUES (?, ?, ?)
		`, key, entry.Name, nullableString(codes)); err != nil {
			return fmt.Errorf("%w: cannot insert fallback category %s: %v", ErrProvider, key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: cannot commit: %v", ErrProvider, err)
	}

	s.cache = nil
	s.cacheValid = false
	return nil
}

func (s *SQLiteSource) normalized(ctx context.Context) (*model.Document, error) {
	raw, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return rules.Normalize(raw)
}

func nullableString(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
