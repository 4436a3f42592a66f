package dictionary

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileFormat encodes and decodes a whole dictionary file.
type fileFormat interface {
	encode(entries []Entry) ([]byte, error)
	decode(data []byte) ([]Entry, error)
}

// FileRepository keeps the dictionary in a single file that is rewritten on every mutation.
type FileRepository struct {
	path   string
	format fileFormat

	mu      sync.Mutex
	catalog *catalog
}

// NewYAMLRepository stores the nested category -> phrase -> transliteration document.
func NewYAMLRepository(path string) *FileRepository {
	return &FileRepository{path: path, format: yamlFormat{}}
}

// NewFlatRepository stores one "phrase SEP transliteration" line per entry.
func NewFlatRepository(path, separator, defaultCategory string) *FileRepository {
	return &FileRepository{path: path, format: flatFormat{separator: separator, defaultCategory: defaultCategory}}
}

func (r *FileRepository) FindAll(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.load()
	if err != nil {
		return nil, err
	}
	return c.entries(), nil
}

func (r *FileRepository) Upsert(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.load()
	if err != nil {
		return err
	}
	c.put(entry.Category, entry.Phrase, entry.Transliteration)
	return r.write(c)
}

func (r *FileRepository) Delete(_ context.Context, category, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.load()
	if err != nil {
		return err
	}
	if !c.remove(category, phrase) {
		return nil
	}
	return r.write(c)
}

// load must be called with mu held. The file is read once and cached afterwards.
func (r *FileRepository) load() (*catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		r.catalog = newCatalog()
		return r.catalog, nil
	}
	if err != nil {
		return nil, fmt.Errorf("os.ReadFile(%s) > %w", r.path, err)
	}

	entries, err := r.format.decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode(%s) > %w", r.path, err)
	}
	r.catalog = newCatalogFromEntries(entries)
	return r.catalog, nil
}

func (r *FileRepository) write(c *catalog) error {
	data, err := r.format.encode(c.entries())
	if err != nil {
		return fmt.Errorf("encode(%s) > %w", r.path, err)
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", filepath.Dir(r.path), err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", r.path, err)
	}
	return nil
}

type yamlFormat struct{}

func (yamlFormat) encode(entries []Entry) ([]byte, error) {
	return EncodeYAML(entries)
}

func (yamlFormat) decode(data []byte) ([]Entry, error) {
	lines, err := DecodeYAML(data)
	if err != nil {
		return nil, err
	}
	return LinesToEntries(lines, DefaultCategory), nil
}

type flatFormat struct {
	separator       string
	defaultCategory string
}

func (f flatFormat) encode(entries []Entry) ([]byte, error) {
	return EncodeFlat(entries, f.separator, f.defaultCategory), nil
}

func (f flatFormat) decode(data []byte) ([]Entry, error) {
	lines, _ := DecodeFlat(data, NewGrammar(f.separator, true))
	return LinesToEntries(lines, f.defaultCategory), nil
}

// LinesToEntries normalizes parsed lines, filling in defaultCategory where a line has none.
func LinesToEntries(lines []Line, defaultCategory string) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		category := l.Category
		if category == "" {
			category = defaultCategory
		}
		entries = append(entries, Entry{
			Category:        category,
			Phrase:          NormalizePhrase(l.Phrase),
			Transliteration: l.Transliteration,
		})
	}
	return entries
}
