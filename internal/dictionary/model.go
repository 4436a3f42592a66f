package dictionary

import (
	"strings"
	"time"
)

// DefaultCategory is the implicit category used when categories are disabled or omitted.
const DefaultCategory = "general"

// Entry is a single dictionary override. Phrase is always stored lower-cased.
type Entry struct {
	Category        string    `db:"category" yaml:"category"`
	Phrase          string    `db:"phrase" yaml:"phrase"`
	Transliteration string    `db:"transliteration" yaml:"transliteration"`
	CreatedAt       time.Time `db:"created_at" yaml:"-"`
	UpdatedAt       time.Time `db:"updated_at" yaml:"-"`
}

// NormalizePhrase is the key form used for every lookup and for the unknown list:
// lower-cased with inner whitespace collapsed to single spaces.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
