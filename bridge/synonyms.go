package bridge

import "strings"

// ---------------------------------------------------------------------------
// SynonymSet: primary-term synonym groups for keyword expansion
// ---------------------------------------------------------------------------

// SynonymSet maps terms onto canonical primary terms and back. All
// lookups are case-insensitive; stored terms are kept folded. A term
// belongs to at most one group.
type SynonymSet struct {
	primaries map[string]string   // folded term -> its folded primary
	groups    map[string][]string // folded primary -> ordered synonyms
}

// NewSynonymSet returns an empty set.
func NewSynonymSet() *SynonymSet {
	return &SynonymSet{
		primaries: make(map[string]string),
		groups:    make(map[string][]string),
	}
}

// Add registers synonyms under a primary term. Calling Add again with the
// same primary merges the new synonyms onto the existing group.
func (s *SynonymSet) Add(primary string, synonyms ...string) {
	p := fold(primary)
	s.primaries[p] = p
	group := s.groups[p]
	for _, syn := range synonyms {
		f := fold(syn)
		if f == p {
			continue
		}
		if _, seen := s.primaries[f]; !seen {
			group = append(group, f)
		}
		s.primaries[f] = p
	}
	s.groups[p] = group
}

// PrimaryOf returns the canonical primary for a term, or the term itself,
// folded, when the set does not track it.
func (s *SynonymSet) PrimaryOf(term string) string {
	f := fold(term)
	if p, ok := s.primaries[f]; ok {
		return p
	}
	return f
}

// AreSynonyms reports whether two terms normalize to the same primary.
// Equal terms are always synonyms of themselves, tracked or not.
func (s *SynonymSet) AreSynonyms(a, b string) bool {
	return s.PrimaryOf(a) == s.PrimaryOf(b)
}

// Expand returns the terms related to the inputs: for a primary, all its
// synonyms; for a synonym, its primary plus siblings, the input itself
// excluded. Untracked terms contribute nothing. The result is folded,
// deduplicated, and ordered by first appearance.
func (s *SynonymSet) Expand(terms []string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, term := range terms {
		for _, rel := range s.related(fold(term)) {
			if !seen[rel] {
				seen[rel] = true
				out = append(out, rel)
			}
		}
	}
	return out
}

// related lists the group members reachable from one folded term.
func (s *SynonymSet) related(term string) []string {
	p, ok := s.primaries[term]
	if !ok {
		return nil
	}
	group := s.groups[p]
	if term == p {
		return group
	}
	out := make([]string, 0, len(group))
	out = append(out, p)
	for _, syn := range group {
		if syn != term {
			out = append(out, syn)
		}
	}
	return out
}

func fold(s string) string { return strings.ToLower(s) }

// DefaultSynonyms seeds the standard capability vocabulary.
func DefaultSynonyms() *SynonymSet {
	s := NewSynonymSet()
	s.Add("compress", "shrink", "deflate", "pack", "zip", "squeeze")
	s.Add("decompress", "inflate", "unpack", "unzip", "expand")
	s.Add("hash", "digest", "checksum", "fingerprint")
	s.Add("encrypt", "cipher", "encipher", "seal")
	s.Add("decrypt", "decipher", "unseal")
	s.Add("encode", "convert", "transform", "serialize")
	s.Add("decode", "deserialize")
	s.Add("match", "pattern", "regex", "regexp")
	s.Add("time", "clock", "date", "timestamp")
	s.Add("read", "load", "fetch")
	s.Add("write", "save", "persist")
	s.Add("verify", "validate", "check")
	s.Add("certificate", "cert", "x509")
	return s
}
