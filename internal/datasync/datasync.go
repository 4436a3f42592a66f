// Package datasync copies the dictionary and the unknown list between storage backends.
package datasync

import (
	"context"
	"fmt"
	"io"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	DictionaryNew     int
	DictionarySkipped int
	DictionaryUpdated int
	UnknownNew        int
	UnknownSkipped    int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Importer writes entries into a destination repository, reporting each one.
type Importer struct {
	dictionaryRepo dictionary.Repository
	unknownRepo    unknown.Repository
	writer         io.Writer
}

func NewImporter(dictionaryRepo dictionary.Repository, unknownRepo unknown.Repository, writer io.Writer) *Importer {
	return &Importer{
		dictionaryRepo: dictionaryRepo,
		unknownRepo:    unknownRepo,
		writer:         writer,
	}
}

type entryKey struct {
	category string
	phrase   string
}

// ImportDictionary upserts entries missing from the destination. Entries whose
// transliteration differs are only overwritten with UpdateExisting.
func (imp *Importer) ImportDictionary(ctx context.Context, entries []dictionary.Entry, opts ImportOptions) (*ImportResult, error) {
	current, err := imp.dictionaryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("dictionaryRepo.FindAll() > %w", err)
	}
	existing := make(map[entryKey]string, len(current))
	for _, e := range current {
		existing[entryKey{e.Category, e.Phrase}] = e.Transliteration
	}

	var result ImportResult
	for _, e := range entries {
		value, ok := existing[entryKey{e.Category, e.Phrase}]
		switch {
		case ok && (value == e.Transliteration || !opts.UpdateExisting):
			fmt.Fprintf(imp.writer, "  [SKIP]  %s %q\n", e.Category, e.Phrase)
			result.DictionarySkipped++
			continue
		case ok:
			fmt.Fprintf(imp.writer, "  [UPDATE]  %s %q: %q -> %q\n", e.Category, e.Phrase, value, e.Transliteration)
			result.DictionaryUpdated++
		default:
			fmt.Fprintf(imp.writer, "  [NEW]  %s %q\n", e.Category, e.Phrase)
			result.DictionaryNew++
		}

		if opts.DryRun {
			continue
		}
		if err := imp.dictionaryRepo.Upsert(ctx, e); err != nil {
			return nil, fmt.Errorf("Upsert(%s, %s) > %w", e.Category, e.Phrase, err)
		}
	}
	return &result, nil
}

// ImportUnknown appends phrases missing from the destination list.
func (imp *Importer) ImportUnknown(ctx context.Context, phrases []string, opts ImportOptions) (*ImportResult, error) {
	current, err := imp.unknownRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("unknownRepo.FindAll() > %w", err)
	}
	existing := make(map[string]bool, len(current))
	for _, p := range current {
		existing[p] = true
	}

	var result ImportResult
	for _, p := range phrases {
		if existing[p] {
			result.UnknownSkipped++
			continue
		}
		existing[p] = true
		fmt.Fprintf(imp.writer, "  [NEW]  unknown %q\n", p)
		result.UnknownNew++
		if opts.DryRun {
			continue
		}
		if err := imp.unknownRepo.Add(ctx, p); err != nil {
			return nil, fmt.Errorf("Add(%s) > %w", p, err)
		}
	}
	return &result, nil
}

// ExportData holds everything read from a source backend.
type ExportData struct {
	Entries []dictionary.Entry
	Unknown []string
}

// Exporter reads a source backend.
type Exporter struct {
	dictionaryRepo dictionary.Repository
	unknownRepo    unknown.Repository
}

func NewExporter(dictionaryRepo dictionary.Repository, unknownRepo unknown.Repository) *Exporter {
	return &Exporter{
		dictionaryRepo: dictionaryRepo,
		unknownRepo:    unknownRepo,
	}
}

func (e *Exporter) Export(ctx context.Context) (*ExportData, error) {
	entries, err := e.dictionaryRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("dictionaryRepo.FindAll() > %w", err)
	}

	phrases, err := e.unknownRepo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("unknownRepo.FindAll() > %w", err)
	}

	return &ExportData{
		Entries: entries,
		Unknown: phrases,
	}, nil
}

// Sync exports from and imports the result into imp.
func Sync(ctx context.Context, from *Exporter, imp *Importer, opts ImportOptions) (*ImportResult, error) {
	data, err := from.Export(ctx)
	if err != nil {
		return nil, fmt.Errorf("Export() > %w", err)
	}

	result, err := imp.ImportDictionary(ctx, data.Entries, opts)
	if err != nil {
		return nil, fmt.Errorf("ImportDictionary() > %w", err)
	}
	unknownResult, err := imp.ImportUnknown(ctx, data.Unknown, opts)
	if err != nil {
		return nil, fmt.Errorf("ImportUnknown() > %w", err)
	}
	result.UnknownNew = unknownResult.UnknownNew
	result.UnknownSkipped = unknownResult.UnknownSkipped
	return result, nil
}
