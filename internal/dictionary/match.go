package dictionary

import (
	"fmt"
	"strings"
	"unicode"
)

// MatchMode selects the granularity of the longest-match scan.
type MatchMode string

const (
	// MatchWord restricts candidate windows to tokens delimited by whitespace and punctuation.
	MatchWord MatchMode = "word"
	// MatchChar tries every substring and falls back to single characters.
	MatchChar MatchMode = "char"
)

var allMatchModes = []MatchMode{MatchWord, MatchChar}

func ParseMatchMode(value string) (MatchMode, error) {
	for _, m := range allMatchModes {
		if string(m) == value {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid match mode %q, possible values are %v", value, allMatchModes)
}

type SegmentKind int

const (
	SegmentUnmatched SegmentKind = iota
	SegmentDictionary
	// SegmentLiteral is whitespace carried through a character scan unchanged.
	SegmentLiteral
)

// Segment is one consumed span of the scanned input.
// Replacement is set only for SegmentDictionary and SegmentLiteral.
type Segment struct {
	Span        string
	Replacement string
	Kind        SegmentKind
}

// LongestMatch scans text left to right. At each position the longest window
// that is a phrase of any category wins, and scanning resumes after it.
func (idx *Index) LongestMatch(text string, mode MatchMode) []Segment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if mode == MatchChar {
		return idx.scanRunes(text)
	}
	return idx.scanTokens(text)
}

func (idx *Index) scanRunes(text string) []Segment {
	runes := []rune(text)
	var segments []Segment
	for i := 0; i < len(runes); {
		if unicode.IsSpace(runes[i]) {
			segments = append(segments, Segment{Span: string(runes[i]), Replacement: string(runes[i]), Kind: SegmentLiteral})
			i++
			continue
		}

		longest := min(len(runes)-i, idx.maxPhraseRunes)
		matched := false
		for n := longest; n >= 1; n-- {
			span := string(runes[i : i+n])
			if _, v, ok := idx.catalog.find(strings.ToLower(span)); ok {
				segments = append(segments, Segment{Span: span, Replacement: v, Kind: SegmentDictionary})
				i += n
				matched = true
				break
			}
		}
		if !matched {
			segments = append(segments, Segment{Span: string(runes[i]), Kind: SegmentUnmatched})
			i++
		}
	}
	return segments
}

func (idx *Index) scanTokens(text string) []Segment {
	tokens := Tokenize(text)
	var segments []Segment
	for i := 0; i < len(tokens); {
		longest := min(len(tokens)-i, idx.maxPhraseTokens)
		matched := false
		for n := longest; n >= 1; n-- {
			span := strings.Join(tokens[i:i+n], " ")
			if _, v, ok := idx.catalog.find(strings.ToLower(span)); ok {
				segments = append(segments, Segment{Span: span, Replacement: v, Kind: SegmentDictionary})
				i += n
				matched = true
				break
			}
		}
		if !matched {
			segments = append(segments, Segment{Span: tokens[i], Kind: SegmentUnmatched})
			i++
		}
	}
	return segments
}

// Tokenize splits text on whitespace, punctuation and symbols. A hyphen or an
// apostrophe between two letters or digits stays inside its token.
func Tokenize(text string) []string {
	runes := []rune(text)
	var tokens []string
	start := -1
	for i := range runes {
		if isTokenRune(runes, i) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, string(runes[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, string(runes[start:]))
	}
	return tokens
}

func isTokenRune(runes []rune, i int) bool {
	r := runes[i]
	switch {
	case unicode.IsSpace(r):
		return false
	case unicode.IsPunct(r) || unicode.IsSymbol(r):
		return isJoiner(r) && i > 0 && i < len(runes)-1 && isWordRune(runes[i-1]) && isWordRune(runes[i+1])
	}
	return true
}

func isJoiner(r rune) bool {
	return r == '-' || r == '\'' || r == '’' || r == 'ʼ'
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
