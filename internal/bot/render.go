package bot

import (
	"fmt"
	"strings"

	"github.com/at-ishikawa/translitbot/internal/dictionary"
)

func sourceTag(source dictionary.Source) string {
	switch source {
	case dictionary.SourceDictionary:
		return "📘 from your dictionary"
	case dictionary.SourceMixed:
		return "🧩 partly from your dictionary, [automatic] parts in brackets"
	default:
		return "🤖 automatic transliteration"
	}
}

// renderEntries lists entries grouped under their category headers. Entries
// arrive grouped by category already.
func renderEntries(entries []dictionary.Entry, grammar dictionary.Grammar) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📖 %d entries", len(entries))
	category := ""
	for i, e := range entries {
		if grammar.CategoriesEnabled && (i == 0 || e.Category != category) {
			fmt.Fprintf(&b, "\n\n🗂 %s", e.Category)
		} else if i == 0 {
			b.WriteString("\n")
		}
		category = e.Category
		fmt.Fprintf(&b, "\n%s", grammar.FormatLine("", e.Phrase, e.Transliteration))
	}
	return b.String()
}
