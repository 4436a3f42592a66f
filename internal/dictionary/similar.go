package dictionary

import "github.com/antzucaro/matchr"

// DefaultSimilarityThreshold is the minimum Jaro-Winkler score reported by Similar.
const DefaultSimilarityThreshold = 0.85

// Similar returns the entry whose phrase is closest to phrase by Jaro-Winkler
// similarity, provided the score reaches threshold. Exact matches are ignored.
func (idx *Index) Similar(phrase string, threshold float64) (Entry, float64, bool) {
	key := NormalizePhrase(phrase)
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var best Entry
	bestScore := 0.0
	for _, e := range idx.catalog.entries() {
		if e.Phrase == key {
			continue
		}
		if score := matchr.JaroWinkler(key, e.Phrase, false); score > bestScore {
			best, bestScore = e, score
		}
	}
	if bestScore < threshold {
		return Entry{}, 0, false
	}
	return best, bestScore, true
}
