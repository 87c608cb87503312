package bank

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// matchThreshold is the minimum partial-similarity score (0..100) for a
// contact alias to be considered mentioned in an utterance.
const matchThreshold = 70

// Contact is a transfer recipient.
type Contact struct {
	DisplayName string
	CardNumber  string
}

// DirectoryEntry pairs an alias with its contact for directory construction.
type DirectoryEntry struct {
	Alias   string
	Contact Contact
}

// Directory is the read-only alias-to-contact mapping. Aliases are normalized
// (lowercased, trimmed) on construction; lookups are case-insensitive.
// Insertion order is preserved so fuzzy resolution ties break deterministically.
type Directory struct {
	order   []string
	byAlias map[string]Contact
}

// NewDirectory builds a directory from entries. Duplicate aliases keep the
// first entry.
func NewDirectory(entries []DirectoryEntry) *Directory {
	d := &Directory{byAlias: make(map[string]Contact, len(entries))}
	for _, e := range entries {
		alias := NormalizeAlias(e.Alias)
		if alias == "" {
			continue
		}
		if _, exists := d.byAlias[alias]; exists {
			continue
		}
		d.order = append(d.order, alias)
		d.byAlias[alias] = e.Contact
	}
	return d
}

// NormalizeAlias lowercases and trims an alias the same way the directory
// stores them.
func NormalizeAlias(alias string) string {
	return strings.ToLower(strings.TrimSpace(alias))
}

// Len returns the number of contacts.
func (d *Directory) Len() int { return len(d.order) }

// Lookup finds a contact by exact (normalized) alias.
func (d *Directory) Lookup(alias string) (Contact, bool) {
	c, ok := d.byAlias[NormalizeAlias(alias)]
	return c, ok
}

// Names returns the alias-to-display-name mapping, used when building the
// model prompt. Card numbers are deliberately not included.
func (d *Directory) Names() map[string]string {
	out := make(map[string]string, len(d.order))
	for alias, c := range d.byAlias {
		out[alias] = c.DisplayName
	}
	return out
}

// Resolve scores every alias against the whole utterance and returns the
// best-scoring alias at or above the match threshold. Ties keep the earlier
// directory entry. The utterance is matched as one string, not token by
// token, so inflected mentions ("маме") still resolve to their alias.
func (d *Directory) Resolve(utterance string) (string, Contact, bool) {
	utterance = strings.ToLower(strings.TrimSpace(utterance))
	if utterance == "" {
		return "", Contact{}, false
	}
	bestScore := 0
	bestAlias := ""
	for _, alias := range d.order {
		score := fuzzy.PartialRatio(alias, utterance)
		if score >= matchThreshold && score > bestScore {
			bestScore = score
			bestAlias = alias
		}
	}
	if bestAlias == "" {
		return "", Contact{}, false
	}
	return bestAlias, d.byAlias[bestAlias], true
}
