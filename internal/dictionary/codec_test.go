package dictionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatCodec(t *testing.T) {
	entries := []Entry{
		{Category: DefaultCategory, Phrase: "київ", Transliteration: "kyiv"},
		{Category: "people", Phrase: "тарас шевченко", Transliteration: "taras_shevchenko"},
	}

	data := EncodeFlat(entries, "=", DefaultCategory)
	assert.Equal(t, "київ = kyiv\npeople = тарас шевченко = taras_shevchenko\n", string(data))

	lines, skipped := DecodeFlat(data, NewGrammar("=", true))
	assert.Equal(t, 0, skipped)
	assert.Equal(t, []Line{
		{Phrase: "київ", Transliteration: "kyiv"},
		{Category: "people", Phrase: "тарас шевченко", Transliteration: "taras_shevchenko"},
	}, lines)
}

func TestDecodeFlat_SkipsMalformedLines(t *testing.T) {
	data := []byte("# comment\nкиїв = kyiv\nmalformed line\n\nльвів = lviv\n")

	lines, skipped := DecodeFlat(data, NewGrammar("=", false))
	assert.Equal(t, 1, skipped)
	assert.Len(t, lines, 2)
}

func TestYAMLCodec(t *testing.T) {
	entries := []Entry{
		{Category: "places", Phrase: "київ", Transliteration: "kyiv"},
		{Category: "people", Phrase: "тарас", Transliteration: "taras"},
		{Category: "places", Phrase: "львів", Transliteration: "lviv"},
	}

	data, err := EncodeYAML(entries)
	require.NoError(t, err)
	assert.Equal(t, `places:
  київ: kyiv
  львів: lviv
people:
  тарас: taras
`, string(data))

	lines, err := DecodeYAML(data)
	require.NoError(t, err)
	assert.Equal(t, []Line{
		{Category: "places", Phrase: "київ", Transliteration: "kyiv"},
		{Category: "places", Phrase: "львів", Transliteration: "lviv"},
		{Category: "people", Phrase: "тарас", Transliteration: "taras"},
	}, lines)
}

func TestDecodeYAML(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    []Line
		wantErr bool
	}{
		{name: "empty document", data: "", want: nil},
		{name: "phrase with separator survives", data: "general:\n  \"a = b\": ab\n", want: []Line{{Category: "general", Phrase: "a = b", Transliteration: "ab"}}},
		{name: "top level list", data: "- a\n- b\n", wantErr: true},
		{name: "category is not a mapping", data: "general: kyiv\n", wantErr: true},
		{name: "invalid yaml", data: "general: [\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeYAML([]byte(tt.data))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
