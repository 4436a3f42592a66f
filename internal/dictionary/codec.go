package dictionary

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// EncodeFlat renders one entry per line. Entries of defaultCategory omit the category field.
func EncodeFlat(entries []Entry, separator, defaultCategory string) []byte {
	grammar := NewGrammar(separator, true)
	var b bytes.Buffer
	for _, e := range entries {
		category := e.Category
		if category == defaultCategory {
			category = ""
		}
		b.WriteString(grammar.FormatLine(category, e.Phrase, e.Transliteration))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

// CommentPrefix starts a line that DecodeFlat ignores.
const CommentPrefix = "#"

// DecodeFlat parses every line with grammar. Blank lines and lines starting with
// '#' are ignored; malformed lines are skipped and counted.
func DecodeFlat(data []byte, grammar Grammar) ([]Line, int) {
	var lines []Line
	skipped := 0
	for _, raw := range SplitLines(string(data)) {
		if strings.HasPrefix(raw, CommentPrefix) {
			continue
		}
		line, err := grammar.ParsePair(raw)
		if err != nil {
			skipped++
			continue
		}
		lines = append(lines, line)
	}
	return lines, skipped
}

// EncodeYAML renders the nested category -> phrase -> transliteration document,
// keeping category and phrase order.
func EncodeYAML(entries []Entry) ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	byCategory := make(map[string]*yaml.Node)
	for _, e := range entries {
		phrases, ok := byCategory[e.Category]
		if !ok {
			phrases = &yaml.Node{Kind: yaml.MappingNode}
			byCategory[e.Category] = phrases
			root.Content = append(root.Content, scalarNode(e.Category), phrases)
		}
		phrases.Content = append(phrases.Content, scalarNode(e.Phrase), scalarNode(e.Transliteration))
	}

	var b bytes.Buffer
	encoder := yaml.NewEncoder(&b)
	encoder.SetIndent(2)
	if err := encoder.Encode(root); err != nil {
		return nil, fmt.Errorf("yaml.Encoder.Encode() > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("yaml.Encoder.Close() > %w", err)
	}
	return b.Bytes(), nil
}

// DecodeYAML parses the nested document produced by EncodeYAML.
func DecodeYAML(data []byte) ([]Line, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml.Unmarshal() > %w: %w", ErrFormat, err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("top level must be a mapping of categories: %w", ErrFormat)
	}

	var lines []Line
	for i := 0; i+1 < len(root.Content); i += 2 {
		category, phrases := root.Content[i], root.Content[i+1]
		if phrases.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("category %q must map phrases to transliterations: %w", category.Value, ErrFormat)
		}
		for j := 0; j+1 < len(phrases.Content); j += 2 {
			lines = append(lines, Line{
				Category:        category.Value,
				Phrase:          phrases.Content[j].Value,
				Transliteration: phrases.Content[j+1].Value,
			})
		}
	}
	return lines, nil
}

func scalarNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}
