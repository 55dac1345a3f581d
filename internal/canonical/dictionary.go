package canonical

import "strings"

// Term maps a known origin-language ingredient name to its canonical
// English name.
type Term struct {
	Source    string
	Canonical string
}

// Dictionary is a fixed, case-insensitive mapping from origin-language
// ingredient terms to canonical terms. It is immutable after construction
// and preserves insertion order, which the phrase matcher relies on for its
// tie-break rule.
type Dictionary struct {
	ordered []string
	canon   map[string]string
}

// NewDictionary builds a dictionary from the given terms. Source terms are
// matched case-insensitively; a repeated source term keeps its first entry.
func NewDictionary(terms []Term) *Dictionary {
	d := &Dictionary{canon: make(map[string]string, len(terms))}
	for _, t := range terms {
		key := strings.ToLower(strings.TrimSpace(t.Source))
		if key == "" {
			continue
		}
		if _, exists := d.canon[key]; exists {
			continue
		}
		d.ordered = append(d.ordered, key)
		d.canon[key] = t.Canonical
	}
	return d
}

// DefaultDictionary returns the built-in German-to-English ingredient table.
func DefaultDictionary() *Dictionary {
	return NewDictionary([]Term{
		{Source: "huhn", Canonical: "chicken"},
		{Source: "hühnerfleisch", Canonical: "chicken"},
		{Source: "truthahn", Canonical: "turkey"},
		{Source: "seealgenmehl", Canonical: "kelp"},
		{Source: "möhrchen", Canonical: "carrot"},
	})
}

// Lookup resolves a source term to its canonical value. Matching is
// case-insensitive and exact; no stemming, no fuzzy distance.
func (d *Dictionary) Lookup(term string) (string, bool) {
	canonical, ok := d.canon[strings.ToLower(strings.TrimSpace(term))]
	return canonical, ok
}

// Terms returns the source terms in insertion order, lowercased.
func (d *Dictionary) Terms() []string {
	return d.ordered
}

// Len returns the number of entries.
func (d *Dictionary) Len() int {
	return len(d.ordered)
}
