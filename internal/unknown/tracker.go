// Package unknown keeps the deduplicated, first-seen ordered list of phrases
// that had no dictionary match.
package unknown

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

// Tracker is safe for concurrent use.
type Tracker struct {
	mu         sync.RWMutex
	phrases    []string
	index      map[string]struct{}
	repository Repository
}

func NewTracker(repository Repository) *Tracker {
	return &Tracker{
		index:      make(map[string]struct{}),
		repository: repository,
	}
}

// Load replaces the in-memory list with the persisted one.
func (t *Tracker) Load(ctx context.Context) error {
	phrases, err := t.repository.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("repository.FindAll() > %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.phrases = nil
	t.index = make(map[string]struct{}, len(phrases))
	for _, p := range phrases {
		t.add(dictionary.NormalizePhrase(p))
	}
	return nil
}

// Record adds phrase unless it is already tracked.
func (t *Tracker) Record(ctx context.Context, phrase string) error {
	key := dictionary.NormalizePhrase(phrase)
	if key == "" {
		return nil
	}

	t.mu.Lock()
	added := t.add(key)
	t.mu.Unlock()
	if !added {
		return nil
	}

	if err := t.repository.Add(ctx, key); err != nil {
		return fmt.Errorf("repository.Add(%s) > %w", key, err)
	}
	return nil
}

// Forget removes phrase if it is tracked.
func (t *Tracker) Forget(ctx context.Context, phrase string) error {
	key := dictionary.NormalizePhrase(phrase)

	t.mu.Lock()
	if _, ok := t.index[key]; !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.index, key)
	for i, p := range t.phrases {
		if p == key {
			t.phrases = append(t.phrases[:i], t.phrases[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	if err := t.repository.Remove(ctx, key); err != nil {
		return fmt.Errorf("repository.Remove(%s) > %w", key, err)
	}
	return nil
}

// Clear drops every tracked phrase.
func (t *Tracker) Clear(ctx context.Context) error {
	t.mu.Lock()
	t.phrases = nil
	t.index = make(map[string]struct{})
	t.mu.Unlock()

	if err := t.repository.Clear(ctx); err != nil {
		return fmt.Errorf("repository.Clear() > %w", err)
	}
	return nil
}

// List returns the tracked phrases in first-seen order.
func (t *Tracker) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]string(nil), t.phrases...)
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.phrases)
}

// must be called with mu held
func (t *Tracker) add(key string) bool {
	if _, ok := t.index[key]; ok {
		return false
	}
	t.index[key] = struct{}{}
	t.phrases = append(t.phrases, key)
	return true
}

// Encode renders phrases in the newline-delimited list format.
func Encode(phrases []string) []byte {
	var b bytes.Buffer
	for _, p := range phrases {
		b.WriteString(p)
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// Decode parses the newline-delimited list format, dropping blanks and duplicates.
func Decode(data []byte) []string {
	seen := make(map[string]bool)
	var phrases []string
	for _, line := range dictionary.SplitLines(string(data)) {
		key := dictionary.NormalizePhrase(line)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		phrases = append(phrases, key)
	}
	return phrases
}
