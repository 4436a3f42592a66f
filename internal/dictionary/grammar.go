package dictionary

import (
	"fmt"
	"strings"
)

// DefaultSeparator is the canonical field separator of the line grammar.
const DefaultSeparator = "="

// Grammar parses the line format used by add, edit, delete and import:
//
//	line := [category SEP] phrase SEP transliteration
//
// The category field is only accepted when categories are enabled.
type Grammar struct {
	Separator         string
	CategoriesEnabled bool
}

// Line is one parsed line. Category is empty when the line did not name one.
type Line struct {
	Category        string
	Phrase          string
	Transliteration string
}

func NewGrammar(separator string, categoriesEnabled bool) Grammar {
	if separator == "" {
		separator = DefaultSeparator
	}
	return Grammar{Separator: separator, CategoriesEnabled: categoriesEnabled}
}

// ParsePair parses a line carrying a transliteration.
func (g Grammar) ParsePair(line string) (Line, error) {
	fields := g.split(line)
	switch {
	case len(fields) == 2 && allNonEmpty(fields):
		return Line{Phrase: fields[0], Transliteration: fields[1]}, nil
	case len(fields) == 3 && g.CategoriesEnabled && allNonEmpty(fields):
		return Line{Category: fields[0], Phrase: fields[1], Transliteration: fields[2]}, nil
	}
	return Line{}, fmt.Errorf("expected %q: %w", g.PairUsage(), ErrFormat)
}

// ParsePhrase parses a line naming a phrase only, as used by delete.
func (g Grammar) ParsePhrase(line string) (Line, error) {
	fields := g.split(line)
	switch {
	case len(fields) == 1 && allNonEmpty(fields):
		return Line{Phrase: fields[0]}, nil
	case len(fields) == 2 && g.CategoriesEnabled && allNonEmpty(fields):
		return Line{Category: fields[0], Phrase: fields[1]}, nil
	}
	return Line{}, fmt.Errorf("expected %q: %w", g.PhraseUsage(), ErrFormat)
}

// PairUsage describes the accepted pair shape for prompts and error messages.
func (g Grammar) PairUsage() string {
	usage := fmt.Sprintf("phrase %s transliteration", g.Separator)
	if g.CategoriesEnabled {
		usage = fmt.Sprintf("[category %s] %s", g.Separator, usage)
	}
	return usage
}

func (g Grammar) PhraseUsage() string {
	if g.CategoriesEnabled {
		return fmt.Sprintf("[category %s] phrase", g.Separator)
	}
	return "phrase"
}

// FormatLine renders an entry so that ParsePair reads it back.
func (g Grammar) FormatLine(category, phrase, transliteration string) string {
	sep := " " + g.Separator + " "
	if category == "" || !g.CategoriesEnabled {
		return phrase + sep + transliteration
	}
	return category + sep + phrase + sep + transliteration
}

func (g Grammar) split(line string) []string {
	fields := strings.Split(strings.TrimSpace(line), g.Separator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields
}

func allNonEmpty(fields []string) bool {
	for _, f := range fields {
		if f == "" {
			return false
		}
	}
	return true
}

// SplitLines returns the non-blank lines of a message.
func SplitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimSpace(line))
		}
	}
	return lines
}
