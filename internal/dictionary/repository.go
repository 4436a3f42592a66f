package dictionary

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Repository persists dictionary entries. Writes are last-write-wins.
type Repository interface {
	FindAll(ctx context.Context) ([]Entry, error)
	Upsert(ctx context.Context, entry Entry) error
	Delete(ctx context.Context, category, phrase string) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

// FindAll returns all entries in insertion order, which also fixes category order.
func (r *DBRepository) FindAll(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	if err := r.db.SelectContext(ctx, &entries,
		"SELECT category, phrase, transliteration, created_at, updated_at FROM dictionary_entries ORDER BY id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(dictionary_entries) > %w", err)
	}
	return entries, nil
}

// Upsert inserts or updates an entry keyed by (category, phrase).
func (r *DBRepository) Upsert(ctx context.Context, entry Entry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO dictionary_entries (category, phrase, transliteration)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE transliteration = VALUES(transliteration)`,
		entry.Category, entry.Phrase, entry.Transliteration)
	if err != nil {
		return fmt.Errorf("db.ExecContext(upsert dictionary_entry) > %w", err)
	}
	return nil
}

// Delete removes an entry. Deleting a missing row is not an error.
func (r *DBRepository) Delete(ctx context.Context, category, phrase string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM dictionary_entries WHERE category = ? AND phrase = ?", category, phrase)
	if err != nil {
		return fmt.Errorf("db.ExecContext(delete dictionary_entry) > %w", err)
	}
	return nil
}

// MemoryRepository keeps entries in process memory only.
type MemoryRepository struct {
	mu      sync.Mutex
	catalog *catalog
}

func NewMemoryRepository(entries ...Entry) *MemoryRepository {
	return &MemoryRepository{catalog: newCatalogFromEntries(entries)}
}

func (r *MemoryRepository) FindAll(_ context.Context) ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog.entries(), nil
}

func (r *MemoryRepository) Upsert(_ context.Context, entry Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog.put(entry.Category, entry.Phrase, entry.Transliteration)
	return nil
}

func (r *MemoryRepository) Delete(_ context.Context, category, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog.remove(category, phrase)
	return nil
}
