package datasync

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
	"github.com/at-ishikawa/translitbot/internal/unknown"
)

type failingDictionaryRepository struct {
	dictionary.MemoryRepository
}

func (*failingDictionaryRepository) FindAll(context.Context) ([]dictionary.Entry, error) {
	return nil, errors.New("connection refused")
}

func TestImporter_ImportDictionary(t *testing.T) {
	existing := []dictionary.Entry{
		{Category: "general", Phrase: "київ", Transliteration: "kyiv"},
		{Category: "general", Phrase: "львів", Transliteration: "lvov"},
	}
	incoming := []dictionary.Entry{
		{Category: "general", Phrase: "київ", Transliteration: "kyiv"},
		{Category: "general", Phrase: "львів", Transliteration: "lviv"},
		{Category: "cities", Phrase: "одеса", Transliteration: "odesa"},
	}

	tests := []struct {
		name       string
		opts       ImportOptions
		want       *ImportResult
		wantStored []dictionary.Entry
		wantOutput []string
	}{
		{
			name: "new entries are added and changed ones skipped",
			want: &ImportResult{DictionaryNew: 1, DictionarySkipped: 2},
			wantStored: []dictionary.Entry{
				{Category: "general", Phrase: "київ", Transliteration: "kyiv"},
				{Category: "general", Phrase: "львів", Transliteration: "lvov"},
				{Category: "cities", Phrase: "одеса", Transliteration: "odesa"},
			},
			wantOutput: []string{`[NEW]  cities "одеса"`, `[SKIP]  general "львів"`},
		},
		{
			name: "changed entries are updated on request",
			opts: ImportOptions{UpdateExisting: true},
			want: &ImportResult{DictionaryNew: 1, DictionarySkipped: 1, DictionaryUpdated: 1},
			wantStored: []dictionary.Entry{
				{Category: "general", Phrase: "київ", Transliteration: "kyiv"},
				{Category: "general", Phrase: "львів", Transliteration: "lviv"},
				{Category: "cities", Phrase: "одеса", Transliteration: "odesa"},
			},
			wantOutput: []string{`[UPDATE]  general "львів": "lvov" -> "lviv"`},
		},
		{
			name:       "dry run writes nothing",
			opts:       ImportOptions{DryRun: true, UpdateExisting: true},
			want:       &ImportResult{DictionaryNew: 1, DictionarySkipped: 1, DictionaryUpdated: 1},
			wantStored: existing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			repo := dictionary.NewMemoryRepository(existing...)
			var out bytes.Buffer

			got, err := NewImporter(repo, unknown.NewMemoryRepository(), &out).ImportDictionary(ctx, incoming, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			stored, err := repo.FindAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStored, stored)
			for _, want := range tt.wantOutput {
				assert.Contains(t, out.String(), want)
			}
		})
	}
}

func TestImporter_ImportDictionaryError(t *testing.T) {
	_, err := NewImporter(&failingDictionaryRepository{}, unknown.NewMemoryRepository(), &bytes.Buffer{}).
		ImportDictionary(context.Background(), nil, ImportOptions{})
	assert.ErrorContains(t, err, "connection refused")
}

func TestImporter_ImportUnknown(t *testing.T) {
	ctx := context.Background()
	repo := unknown.NewMemoryRepository("київ")

	got, err := NewImporter(dictionary.NewMemoryRepository(), repo, &bytes.Buffer{}).
		ImportUnknown(ctx, []string{"київ", "львів", "львів"}, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{UnknownNew: 1, UnknownSkipped: 2}, got)

	stored, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"київ", "львів"}, stored)
}

func TestSync(t *testing.T) {
	ctx := context.Background()
	from := NewExporter(
		dictionary.NewMemoryRepository(dictionary.Entry{Category: "general", Phrase: "київ", Transliteration: "kyiv"}),
		unknown.NewMemoryRepository("одеса"),
	)
	toDictionary := dictionary.NewMemoryRepository()
	toUnknown := unknown.NewMemoryRepository()

	got, err := Sync(ctx, from, NewImporter(toDictionary, toUnknown, &bytes.Buffer{}), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, &ImportResult{DictionaryNew: 1, UnknownNew: 1}, got)

	entries, err := toDictionary.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	phrases, err := toUnknown.FindAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"одеса"}, phrases)
}

func TestExporter_Error(t *testing.T) {
	_, err := NewExporter(&failingDictionaryRepository{}, unknown.NewMemoryRepository()).Export(context.Background())
	assert.ErrorContains(t, err, "dictionaryRepo.FindAll()")
}
