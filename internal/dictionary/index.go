// Package dictionary holds the user-curated transliteration overrides, their
// persistence and the longest-match scanner built on top of them.
package dictionary

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"
)

// UnknownSink receives phrases that became known through a successful mutation.
type UnknownSink interface {
	Forget(ctx context.Context, phrase string) error
}

// Index is the category-scoped, case-insensitive override dictionary.
// Lookups across all categories scan them in creation order and return the first hit.
type Index struct {
	mu              sync.RWMutex
	catalog         *catalog
	maxPhraseRunes  int
	maxPhraseTokens int

	repository      Repository
	unknowns        UnknownSink
	defaultCategory string
	separator       string
}

type IndexOption func(*Index)

func WithDefaultCategory(category string) IndexOption {
	return func(idx *Index) {
		if category != "" {
			idx.defaultCategory = category
		}
	}
}

// WithRejectedSeparator makes mutations reject phrases that contain separator.
func WithRejectedSeparator(separator string) IndexOption {
	return func(idx *Index) {
		idx.separator = separator
	}
}

func WithUnknownSink(sink UnknownSink) IndexOption {
	return func(idx *Index) {
		idx.unknowns = sink
	}
}

func NewIndex(repository Repository, opts ...IndexOption) *Index {
	idx := &Index{
		catalog:         newCatalog(),
		repository:      repository,
		defaultCategory: DefaultCategory,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Load replaces the in-memory state with everything the repository holds.
func (idx *Index) Load(ctx context.Context) error {
	entries, err := idx.repository.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("repository.FindAll() > %w: %w", ErrPersistence, err)
	}

	c := newCatalog()
	for _, e := range entries {
		category := e.Category
		if category == "" {
			category = idx.defaultCategory
		}
		c.put(category, NormalizePhrase(e.Phrase), e.Transliteration)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.catalog = c
	idx.recomputeBounds()
	return nil
}

func (idx *Index) DefaultCategory() string {
	return idx.defaultCategory
}

// Lookup returns the transliteration of phrase. An empty category searches every category.
func (idx *Index) Lookup(category, phrase string) (string, bool) {
	key := NormalizePhrase(phrase)
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if category == "" {
		_, v, ok := idx.catalog.find(key)
		return v, ok
	}
	return idx.catalog.get(category, key)
}

// Add upserts the entry. An empty category means the default category.
func (idx *Index) Add(ctx context.Context, category, phrase, transliteration string) (Entry, error) {
	entry, err := idx.validate(category, phrase, transliteration)
	if err != nil {
		return Entry{}, err
	}
	if entry.Category == "" {
		entry.Category = idx.defaultCategory
	}

	idx.mu.Lock()
	idx.catalog.put(entry.Category, entry.Phrase, entry.Transliteration)
	idx.extendBounds(entry.Phrase)
	idx.mu.Unlock()

	return entry, idx.persistUpsert(ctx, entry)
}

// Edit replaces the transliteration of an existing phrase. An empty category
// targets the first category that holds the phrase.
func (idx *Index) Edit(ctx context.Context, category, phrase, transliteration string) (Entry, error) {
	entry, err := idx.validate(category, phrase, transliteration)
	if err != nil {
		return Entry{}, err
	}

	idx.mu.Lock()
	resolved, ok := idx.resolveCategory(entry.Category, entry.Phrase)
	if !ok {
		idx.mu.Unlock()
		return Entry{}, fmt.Errorf("%q: %w", entry.Phrase, ErrNotFound)
	}
	entry.Category = resolved
	idx.catalog.put(entry.Category, entry.Phrase, entry.Transliteration)
	idx.mu.Unlock()

	return entry, idx.persistUpsert(ctx, entry)
}

// Delete removes an existing phrase. An empty category targets the first category that holds it.
func (idx *Index) Delete(ctx context.Context, category, phrase string) (Entry, error) {
	key := NormalizePhrase(phrase)
	if key == "" {
		return Entry{}, fmt.Errorf("empty phrase: %w", ErrFormat)
	}

	idx.mu.Lock()
	resolved, ok := idx.resolveCategory(strings.TrimSpace(category), key)
	if !ok {
		idx.mu.Unlock()
		return Entry{}, fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	value, _ := idx.catalog.get(resolved, key)
	idx.catalog.remove(resolved, key)
	idx.recomputeBounds()
	idx.mu.Unlock()

	entry := Entry{Category: resolved, Phrase: key, Transliteration: value}
	if err := idx.repository.Delete(ctx, resolved, key); err != nil {
		return entry, fmt.Errorf("repository.Delete() > %w: %w", ErrPersistence, err)
	}
	return entry, idx.reconcile(ctx, key)
}

// Entries returns every entry grouped by category in creation order.
func (idx *Index) Entries() []Entry {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.catalog.entries()
}

func (idx *Index) Categories() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.catalog.categories()
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.catalog.len()
}

func (idx *Index) validate(category, phrase, transliteration string) (Entry, error) {
	entry := Entry{
		Category:        strings.TrimSpace(category),
		Phrase:          NormalizePhrase(phrase),
		Transliteration: strings.TrimSpace(transliteration),
	}
	if entry.Phrase == "" || entry.Transliteration == "" {
		return Entry{}, fmt.Errorf("phrase and transliteration must not be empty: %w", ErrFormat)
	}
	// Every field must survive a flat file round trip.
	if idx.separator != "" {
		for _, field := range []string{entry.Category, entry.Phrase, entry.Transliteration} {
			if strings.Contains(field, idx.separator) {
				return Entry{}, fmt.Errorf("%q contains %q: %w", field, idx.separator, ErrSeparatorInPhrase)
			}
		}
	}
	if strings.HasPrefix(entry.Category, CommentPrefix) || strings.HasPrefix(entry.Phrase, CommentPrefix) {
		return Entry{}, fmt.Errorf("category and phrase must not start with %q: %w", CommentPrefix, ErrFormat)
	}
	return entry, nil
}

// resolveCategory must be called with the write lock held.
func (idx *Index) resolveCategory(category, phrase string) (string, bool) {
	if category == "" {
		name, _, ok := idx.catalog.find(phrase)
		return name, ok
	}
	_, ok := idx.catalog.get(category, phrase)
	return category, ok
}

func (idx *Index) persistUpsert(ctx context.Context, entry Entry) error {
	if err := idx.repository.Upsert(ctx, entry); err != nil {
		return fmt.Errorf("repository.Upsert() > %w: %w", ErrPersistence, err)
	}
	return idx.reconcile(ctx, entry.Phrase)
}

func (idx *Index) reconcile(ctx context.Context, phrase string) error {
	if idx.unknowns == nil {
		return nil
	}
	if err := idx.unknowns.Forget(ctx, phrase); err != nil {
		return fmt.Errorf("unknowns.Forget() > %w: %w", ErrPersistence, err)
	}
	return nil
}

// recomputeBounds must be called with the write lock held.
func (idx *Index) recomputeBounds() {
	idx.maxPhraseRunes = 0
	idx.maxPhraseTokens = 0
	for _, e := range idx.catalog.entries() {
		idx.extendBounds(e.Phrase)
	}
}

// extendBounds must be called with the write lock held.
func (idx *Index) extendBounds(phrase string) {
	idx.maxPhraseRunes = max(idx.maxPhraseRunes, utf8.RuneCountInString(phrase))
	idx.maxPhraseTokens = max(idx.maxPhraseTokens, len(Tokenize(phrase)), len(strings.Fields(phrase)))
}
