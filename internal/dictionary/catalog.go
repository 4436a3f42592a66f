package dictionary

// catalog is an ordered category -> phrase -> transliteration map.
// Categories keep their creation order, phrases keep their insertion order.
// It is not safe for concurrent use.
type catalog struct {
	order  []string
	byName map[string]*categoryEntries
}

type categoryEntries struct {
	phrases []string
	values  map[string]string
}

func newCatalog() *catalog {
	return &catalog{byName: make(map[string]*categoryEntries)}
}

func newCatalogFromEntries(entries []Entry) *catalog {
	c := newCatalog()
	for _, e := range entries {
		c.put(e.Category, e.Phrase, e.Transliteration)
	}
	return c
}

func (c *catalog) get(category, phrase string) (string, bool) {
	ce, ok := c.byName[category]
	if !ok {
		return "", false
	}
	v, ok := ce.values[phrase]
	return v, ok
}

// find scans categories in creation order and returns the first hit.
func (c *catalog) find(phrase string) (string, string, bool) {
	for _, name := range c.order {
		if v, ok := c.byName[name].values[phrase]; ok {
			return name, v, true
		}
	}
	return "", "", false
}

func (c *catalog) put(category, phrase, value string) {
	ce, ok := c.byName[category]
	if !ok {
		ce = &categoryEntries{values: make(map[string]string)}
		c.byName[category] = ce
		c.order = append(c.order, category)
	}
	if _, exists := ce.values[phrase]; !exists {
		ce.phrases = append(ce.phrases, phrase)
	}
	ce.values[phrase] = value
}

func (c *catalog) remove(category, phrase string) bool {
	ce, ok := c.byName[category]
	if !ok {
		return false
	}
	if _, ok := ce.values[phrase]; !ok {
		return false
	}
	delete(ce.values, phrase)
	for i, p := range ce.phrases {
		if p == phrase {
			ce.phrases = append(ce.phrases[:i], ce.phrases[i+1:]...)
			break
		}
	}
	if len(ce.phrases) == 0 {
		delete(c.byName, category)
		for i, name := range c.order {
			if name == category {
				c.order = append(c.order[:i], c.order[i+1:]...)
				break
			}
		}
	}
	return true
}

func (c *catalog) categories() []string {
	return append([]string(nil), c.order...)
}

func (c *catalog) entries() []Entry {
	var result []Entry
	for _, name := range c.order {
		ce := c.byName[name]
		for _, p := range ce.phrases {
			result = append(result, Entry{Category: name, Phrase: p, Transliteration: ce.values[p]})
		}
	}
	return result
}

func (c *catalog) len() int {
	n := 0
	for _, ce := range c.byName {
		n += len(ce.phrases)
	}
	return n
}
