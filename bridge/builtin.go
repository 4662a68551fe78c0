package bridge

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// BuiltinRegistry: curated in-process capabilities behind an interface
// ---------------------------------------------------------------------------

// Capability is one safe, in-process native operation. Implementations
// receive table-backed buffers, never raw pointers, and validate their
// own argument count and shape, reporting ErrInvalidArgCount or
// ErrBufferTooSmall as fits. Stateful capabilities implement the
// interface directly; stateless ones use CapabilityFunc.
type Capability interface {
	Invoke(args [][]byte) ([]byte, error)
}

// CapabilityFunc adapts a plain function to the Capability interface.
type CapabilityFunc func(args [][]byte) ([]byte, error)

func (f CapabilityFunc) Invoke(args [][]byte) ([]byte, error) { return f(args) }

// CapabilityInfo is the registration metadata for one capability. Arity
// is advisory; the closure itself rejects argument mismatches.
type CapabilityInfo struct {
	Name        string
	Description string
	Category    string
	Arity       int
	Keywords    []string
}

// CapabilityHit is one scored search result.
type CapabilityHit struct {
	Info  CapabilityInfo
	Score float64
}

type capabilityEntry struct {
	info     CapabilityInfo
	impl     Capability
	keywords []string // folded originals plus synonym expansion
	desc     string   // folded description
}

// BuiltinRegistry maps capability names to implementations and indexes
// synonym-expanded keywords for approximate lookup. Entries keep their
// insertion order; equal search scores resolve to the earliest entry.
type BuiltinRegistry struct {
	mu        sync.RWMutex
	entries   map[string]*capabilityEntry
	order     []string
	synonyms  *SynonymSet
	threshold float64
}

// NewBuiltinRegistry returns an empty registry expanding keywords through
// syn. A nil syn disables expansion.
func NewBuiltinRegistry(syn *SynonymSet) *BuiltinRegistry {
	if syn == nil {
		syn = NewSynonymSet()
	}
	return &BuiltinRegistry{
		entries:   make(map[string]*capabilityEntry),
		synonyms:  syn,
		threshold: DefaultSearchThreshold,
	}
}

// SetThreshold overrides the minimum score a search candidate needs.
func (r *BuiltinRegistry) SetThreshold(t float64) {
	r.mu.Lock()
	r.threshold = t
	r.mu.Unlock()
}

// Register adds a capability. Its keywords are folded and expanded
// through the synonym set before indexing, so a search for any related
// term finds the entry. Names are unique; a duplicate registration fails
// and changes nothing.
func (r *BuiltinRegistry) Register(info CapabilityInfo, impl Capability) error {
	if info.Name == "" {
		return fmt.Errorf("bridge: capability needs a name")
	}
	if impl == nil {
		return fmt.Errorf("bridge: capability %q has no implementation", info.Name)
	}

	keywords := make([]string, 0, len(info.Keywords)*2)
	seen := make(map[string]bool)
	for _, kw := range info.Keywords {
		f := fold(kw)
		if !seen[f] {
			seen[f] = true
			keywords = append(keywords, f)
		}
	}
	for _, exp := range r.synonyms.Expand(info.Keywords) {
		if !seen[exp] {
			seen[exp] = true
			keywords = append(keywords, exp)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entries[info.Name]; dup {
		return fmt.Errorf("bridge: capability %q already registered", info.Name)
	}
	r.entries[info.Name] = &capabilityEntry{
		info:     info,
		impl:     impl,
		keywords: keywords,
		desc:     fold(info.Description),
	}
	r.order = append(r.order, info.Name)
	return nil
}

// RegisterFunc is Register for a stateless closure.
func (r *BuiltinRegistry) RegisterFunc(info CapabilityInfo, fn func(args [][]byte) ([]byte, error)) error {
	return r.Register(info, CapabilityFunc(fn))
}

// Call dispatches by exact name. The capability's own validation decides
// whether the buffers fit.
func (r *BuiltinRegistry) Call(name string, args [][]byte) ([]byte, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: capability %s", ErrFunctionNotFound, name)
	}
	return entry.impl.Invoke(args)
}

// Lookup returns the registration metadata for an exact name.
func (r *BuiltinRegistry) Lookup(name string) (CapabilityInfo, bool) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return CapabilityInfo{}, false
	}
	return entry.info, true
}

// Names lists registered capabilities in insertion order.
func (r *BuiltinRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len reports the number of registered capabilities.
func (r *BuiltinRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Search returns the single best capability for a whitespace-tokenized
// query, scoring each token as 1.0 for an exact keyword match or 0.5 for
// a partial keyword overlap. Only a candidate at or above the threshold
// is returned; equal scores resolve to the earliest registration.
func (r *BuiltinRegistry) Search(query string) (CapabilityInfo, bool) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return CapabilityInfo{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *capabilityEntry
	var bestScore float64
	for _, name := range r.order {
		entry := r.entries[name]
		score := keywordScore(tokens, entry.keywords)
		if score > bestScore {
			best, bestScore = entry, score
		}
	}
	if best == nil || bestScore < r.threshold {
		return CapabilityInfo{}, false
	}
	return best.info, true
}

// SearchTop returns up to limit capabilities ranked for a query. Each
// token scores 2.0 when the description contains it, plus 1.0 for an
// exact keyword match or 0.5 for a partial overlap. The sort is stable,
// so equal scores keep insertion order.
func (r *BuiltinRegistry) SearchTop(query string, limit int) []CapabilityHit {
	tokens := queryTokens(query)
	if len(tokens) == 0 || limit <= 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hits := make([]CapabilityHit, 0, len(r.order))
	for _, name := range r.order {
		entry := r.entries[name]
		score := keywordScore(tokens, entry.keywords)
		for _, tok := range tokens {
			if strings.Contains(entry.desc, tok) {
				score += 2.0
			}
		}
		if score >= r.threshold {
			hits = append(hits, CapabilityHit{Info: entry.info, Score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// ---------------------------------------------------------------------------
// Shared scoring helpers
// ---------------------------------------------------------------------------

// DefaultSearchThreshold is the minimum accumulated score a candidate
// needs before either registry's search will surface it.
const DefaultSearchThreshold = 0.5

// queryTokens folds and whitespace-splits a query phrase.
func queryTokens(query string) []string {
	return strings.Fields(fold(query))
}

// keywordScore accumulates, per token, 1.0 for an exact keyword match or
// 0.5 when a keyword and the token contain one another partially.
func keywordScore(tokens, keywords []string) float64 {
	var score float64
	for _, tok := range tokens {
		exact, partial := false, false
		for _, kw := range keywords {
			if kw == tok {
				exact = true
				break
			}
			if !partial && (strings.Contains(kw, tok) || strings.Contains(tok, kw)) {
				partial = true
			}
		}
		if exact {
			score += 1.0
		} else if partial {
			score += 0.5
		}
	}
	return score
}
