// Package translit converts Cyrillic words into lower-case Latin tokens using per-script character tables.
package translit

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const DefaultSeparator = "_"

// Engine is a pure, stateless transliterator. It is safe for concurrent use.
type Engine struct {
	scripts       []Script
	defaultScript Script
	separator     string
}

type Option func(*Engine)

// WithSeparator sets the string that replaces runs of non-alphanumeric characters.
func WithSeparator(separator string) Option {
	return func(e *Engine) {
		e.separator = separator
	}
}

// WithDefaultScript sets the script used when no exclusive letter is present.
func WithDefaultScript(name ScriptName) Option {
	return func(e *Engine) {
		if s, ok := LookupScript(name); ok {
			e.defaultScript = s
		}
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		scripts:       Scripts(),
		defaultScript: ukrainian,
		separator:     DefaultSeparator,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ParseScriptName validates a configured script name.
func ParseScriptName(value string) (ScriptName, error) {
	if _, ok := LookupScript(ScriptName(value)); !ok {
		return "", fmt.Errorf("unknown script %q", value)
	}
	return ScriptName(value), nil
}

// Detect returns the script whose exclusive letters appear first in detection order,
// or the default script when the word has none of them.
func (e *Engine) Detect(word string) Script {
	lowered := strings.ToLower(norm.NFC.String(word))
	for _, s := range e.scripts {
		if strings.ContainsAny(lowered, string(s.Exclusive)) {
			return s
		}
	}
	return e.defaultScript
}

// Transliterate maps every character through the detected script's table and
// normalizes the result into a single lower-case token.
func (e *Engine) Transliterate(word string) string {
	return e.TransliterateWithin(word, word)
}

// TransliterateWithin is Transliterate with the script detected from line instead
// of word, so that every fragment of one line uses the same table.
func (e *Engine) TransliterateWithin(line, word string) string {
	word = norm.NFC.String(word)
	script := e.Detect(line)

	var b strings.Builder
	for _, r := range word {
		lower := unicode.ToLower(r)
		if mapped, ok := script.Table[lower]; ok {
			b.WriteString(mapped)
			continue
		}
		b.WriteRune(r)
	}
	return e.normalize(b.String())
}

// normalize collapses every run of characters outside [a-zA-Z0-9] into one separator,
// trims separators at both ends and lower-cases the rest.
func (e *Engine) normalize(s string) string {
	var b strings.Builder
	pending := false
	for _, r := range s {
		if isASCIIAlnum(r) {
			if pending && b.Len() > 0 {
				b.WriteString(e.separator)
			}
			pending = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pending = true
	}
	return b.String()
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
