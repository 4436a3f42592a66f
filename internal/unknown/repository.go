package unknown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Repository persists the unknown list.
type Repository interface {
	FindAll(ctx context.Context) ([]string, error)
	Add(ctx context.Context, phrase string) error
	Remove(ctx context.Context, phrase string) error
	Clear(ctx context.Context) error
}

// DBRepository implements Repository using MySQL.
type DBRepository struct {
	db *sqlx.DB
}

func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db}
}

func (r *DBRepository) FindAll(ctx context.Context) ([]string, error) {
	var phrases []string
	if err := r.db.SelectContext(ctx, &phrases, "SELECT phrase FROM unknown_phrases ORDER BY id"); err != nil {
		return nil, fmt.Errorf("db.SelectContext(unknown_phrases) > %w", err)
	}
	return phrases, nil
}

func (r *DBRepository) Add(ctx context.Context, phrase string) error {
	if _, err := r.db.ExecContext(ctx, "INSERT IGNORE INTO unknown_phrases (phrase) VALUES (?)", phrase); err != nil {
		return fmt.Errorf("db.ExecContext(insert unknown_phrase) > %w", err)
	}
	return nil
}

func (r *DBRepository) Remove(ctx context.Context, phrase string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM unknown_phrases WHERE phrase = ?", phrase); err != nil {
		return fmt.Errorf("db.ExecContext(delete unknown_phrase) > %w", err)
	}
	return nil
}

func (r *DBRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM unknown_phrases"); err != nil {
		return fmt.Errorf("db.ExecContext(clear unknown_phrases) > %w", err)
	}
	return nil
}

// FileRepository stores the newline-delimited list and rewrites it on every change.
type FileRepository struct {
	path string

	mu      sync.Mutex
	phrases []string
	loaded  bool
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

func (r *FileRepository) FindAll(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	return append([]string(nil), r.phrases...), nil
}

func (r *FileRepository) Add(_ context.Context, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}
	if slices.Contains(r.phrases, phrase) {
		return nil
	}
	r.phrases = append(r.phrases, phrase)
	return r.write()
}

func (r *FileRepository) Remove(_ context.Context, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}
	i := slices.Index(r.phrases, phrase)
	if i < 0 {
		return nil
	}
	r.phrases = slices.Delete(r.phrases, i, i+1)
	return r.write()
}

func (r *FileRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phrases = nil
	r.loaded = true
	return r.write()
}

func (r *FileRepository) load() error {
	if r.loaded {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("os.ReadFile(%s) > %w", r.path, err)
	}
	r.phrases = Decode(data)
	r.loaded = true
	return nil
}

func (r *FileRepository) write() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("os.MkdirAll(%s) > %w", filepath.Dir(r.path), err)
	}
	if err := os.WriteFile(r.path, Encode(r.phrases), 0o644); err != nil {
		return fmt.Errorf("os.WriteFile(%s) > %w", r.path, err)
	}
	return nil
}

// MemoryRepository keeps the list in process memory only.
type MemoryRepository struct {
	mu      sync.Mutex
	phrases []string
}

func NewMemoryRepository(phrases ...string) *MemoryRepository {
	return &MemoryRepository{phrases: phrases}
}

func (r *MemoryRepository) FindAll(context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.phrases...), nil
}

func (r *MemoryRepository) Add(_ context.Context, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.phrases, phrase) {
		r.phrases = append(r.phrases, phrase)
	}
	return nil
}

func (r *MemoryRepository) Remove(_ context.Context, phrase string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := slices.Index(r.phrases, phrase); i >= 0 {
		r.phrases = slices.Delete(r.phrases, i, i+1)
	}
	return nil
}

func (r *MemoryRepository) Clear(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phrases = nil
	return nil
}
