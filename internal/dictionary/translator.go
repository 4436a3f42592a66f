package dictionary

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// Source tells where a transliteration came from.
type Source string

const (
	SourceDictionary Source = "dictionary"
	SourceAutomatic  Source = "automatic"
	SourceMixed      Source = "mixed"
)

// Engine is the automatic fallback transliterator.
// TransliterateWithin picks the script from line and applies it to word.
type Engine interface {
	Transliterate(word string) string
	TransliterateWithin(line, word string) string
}

// UnknownRecorder harvests spans without a dictionary match.
type UnknownRecorder interface {
	Record(ctx context.Context, phrase string) error
}

// Result is the outcome of translating one line.
// Marked wraps every automatically produced span in brackets.
type Result struct {
	Input   string
	Text    string
	Marked  string
	Source  Source
	Unknown []string
}

// Translator combines the dictionary with the automatic engine.
type Translator struct {
	index     *Index
	engine    Engine
	recorder  UnknownRecorder
	mode      MatchMode
	separator string
}

func NewTranslator(index *Index, engine Engine, recorder UnknownRecorder, mode MatchMode, separator string) *Translator {
	return &Translator{
		index:     index,
		engine:    engine,
		recorder:  recorder,
		mode:      mode,
		separator: separator,
	}
}

func (t *Translator) Mode() MatchMode {
	return t.mode
}

// Auto transliterates without consulting the dictionary.
func (t *Translator) Auto(text string) string {
	return t.engine.Transliterate(text)
}

// Translate tries an exact lookup of the whole line first, then the longest-match
// scan, and finally the automatic engine. Unmatched spans are recorded: every
// unmatched token in word mode, and unmatched letters of a partially matched
// line in character mode.
func (t *Translator) Translate(ctx context.Context, text string) (Result, error) {
	input := strings.TrimSpace(text)
	if input == "" {
		return Result{}, nil
	}
	if v, ok := t.index.Lookup("", input); ok {
		return Result{Input: input, Text: v, Marked: v, Source: SourceDictionary}, nil
	}

	segments := t.index.LongestMatch(input, t.mode)
	result := t.compose(input, segments)
	for _, phrase := range result.Unknown {
		if err := t.recorder.Record(ctx, phrase); err != nil {
			return result, fmt.Errorf("recorder.Record(%s) > %w: %w", phrase, ErrPersistence, err)
		}
	}
	return result, nil
}

func (t *Translator) compose(input string, segments []Segment) Result {
	matched, unmatched := 0, 0
	for _, s := range segments {
		switch s.Kind {
		case SegmentDictionary:
			matched++
		case SegmentUnmatched:
			unmatched++
		}
	}

	result := Result{Input: input}
	switch {
	case matched == 0:
		result.Source = SourceAutomatic
	case unmatched == 0:
		result.Source = SourceDictionary
	default:
		result.Source = SourceMixed
	}

	if t.mode == MatchChar {
		t.composeChars(&result, segments)
		return result
	}
	t.composeWords(&result, segments)
	return result
}

func (t *Translator) composeWords(result *Result, segments []Segment) {
	if result.Source == SourceAutomatic {
		result.Text = t.engine.Transliterate(result.Input)
	}

	var plain, marked []string
	seen := make(map[string]bool)
	for _, s := range segments {
		if s.Kind == SegmentDictionary {
			plain = append(plain, s.Replacement)
			marked = append(marked, s.Replacement)
			continue
		}
		auto := t.engine.TransliterateWithin(result.Input, s.Span)
		plain = append(plain, auto)
		marked = append(marked, "["+auto+"]")

		phrase := NormalizePhrase(s.Span)
		if !seen[phrase] {
			seen[phrase] = true
			result.Unknown = append(result.Unknown, phrase)
		}
	}
	if result.Text == "" {
		result.Text = joinNonEmpty(plain, t.separator)
	}
	result.Marked = joinNonEmpty(marked, t.separator)
}

func (t *Translator) composeChars(result *Result, segments []Segment) {
	if result.Source == SourceAutomatic {
		result.Text = t.engine.Transliterate(result.Input)
		result.Marked = result.Text
		return
	}

	var plain, marked strings.Builder
	seen := make(map[string]bool)
	for _, s := range segments {
		switch s.Kind {
		case SegmentDictionary, SegmentLiteral:
			plain.WriteString(s.Replacement)
			marked.WriteString(s.Replacement)
		case SegmentUnmatched:
			plain.WriteString(t.engine.TransliterateWithin(result.Input, s.Span))
			marked.WriteString("[" + s.Span + "]")

			phrase := NormalizePhrase(s.Span)
			if isLetters(phrase) && !seen[phrase] {
				seen[phrase] = true
				result.Unknown = append(result.Unknown, phrase)
			}
		}
	}
	result.Text = plain.String()
	result.Marked = marked.String()
}

func joinNonEmpty(parts []string, separator string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" && p != "[]" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, separator)
}

func isLetters(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
