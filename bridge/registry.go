package bridge

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Registry: qualified-name directory over dynamically loaded libraries
// ---------------------------------------------------------------------------

// nativeLibrary is what the registry needs from a loaded library. Tests
// substitute an in-process fake; production code always holds a
// *LoadedLibrary.
type nativeLibrary interface {
	Path() string
	Resolve(name string) (uintptr, error)
	Invoke(sig Signature, args []TaggedValue) (TaggedValue, error)
	Close() error
}

// FunctionInfo declares one native function under a library. The
// registry addresses it as "library:function". Signature.Name is the
// symbol resolved in the shared object; when empty it defaults to
// Function at registration.
type FunctionInfo struct {
	Library     string
	Function    string
	Signature   Signature
	Description string
	Keywords    []string
}

// QualifiedName returns the registry key, "library:function".
func (i FunctionInfo) QualifiedName() string { return i.Library + ":" + i.Function }

// FunctionHit is one scored search result.
type FunctionHit struct {
	Info  FunctionInfo
	Score float64
}

type functionEntry struct {
	info     FunctionInfo
	keywords []string // folded
	desc     string   // folded
}

// Registry owns the name to loaded-library map, the function directory,
// and the keyword inverted index. Lookups take a shared lock; library
// loads are serialized separately so concurrent loads of one name can
// never double-open it.
type Registry struct {
	mu        sync.RWMutex
	libraries map[string]nativeLibrary
	functions map[string]*functionEntry
	order     []string            // qualified names, registration order
	index     map[string][]string // folded keyword -> qualified names

	loadMu sync.Mutex

	buffers   *BufferTable
	paths     []string
	threshold float64
	open      func(path string) (nativeLibrary, error)
}

// NewRegistry returns an empty registry marshalling through the given
// buffer table. A nil table gets a private one.
func NewRegistry(buffers *BufferTable) *Registry {
	if buffers == nil {
		buffers = NewBufferTable()
	}
	return &Registry{
		libraries: make(map[string]nativeLibrary),
		functions: make(map[string]*functionEntry),
		index:     make(map[string][]string),
		buffers:   buffers,
		threshold: DefaultSearchThreshold,
		open: func(path string) (nativeLibrary, error) {
			return OpenLibrary(path)
		},
	}
}

// Buffers returns the table handles are resolved against.
func (r *Registry) Buffers() *BufferTable { return r.buffers }

// SetSearchPaths sets the extra directories consulted before the
// platform defaults when locating a library by name.
func (r *Registry) SetSearchPaths(paths []string) {
	r.mu.Lock()
	r.paths = append([]string(nil), paths...)
	r.mu.Unlock()
}

// SetThreshold overrides the minimum score a search candidate needs.
func (r *Registry) SetThreshold(t float64) {
	r.mu.Lock()
	r.threshold = t
	r.mu.Unlock()
}

// LoadLibrary makes a library available under name. An empty path means
// locate by platform filename through the search paths. Loading an
// already-loaded name succeeds without touching the native loader, and
// two concurrent loads of one name open it exactly once.
func (r *Registry) LoadLibrary(name, path string) error {
	if name == "" {
		return fmt.Errorf("%w: empty library name", ErrLoadFailed)
	}
	if r.isLoaded(name) {
		return nil
	}

	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.isLoaded(name) {
		return nil
	}

	if path == "" {
		located, err := LocateLibrary(name, r.searchPaths())
		if err != nil {
			return err
		}
		path = located
	}
	lib, err := r.open(path)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.libraries[name] = lib
	r.mu.Unlock()
	return nil
}

func (r *Registry) isLoaded(name string) bool {
	r.mu.RLock()
	_, ok := r.libraries[name]
	r.mu.RUnlock()
	return ok
}

func (r *Registry) searchPaths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paths
}

// LibraryPath reports where a loaded library came from.
func (r *Registry) LibraryPath(name string) (string, bool) {
	r.mu.RLock()
	lib, ok := r.libraries[name]
	r.mu.RUnlock()
	if !ok {
		return "", false
	}
	return lib.Path(), true
}

// Libraries lists loaded library names, sorted.
func (r *Registry) Libraries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.libraries))
	for name := range r.libraries {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RegisterFunction adds a function record under its qualified name. The
// library must already be loaded. Keywords are folded into the inverted
// index. A failed registration leaves the registry untouched.
func (r *Registry) RegisterFunction(info FunctionInfo) error {
	if info.Library == "" || info.Function == "" {
		return fmt.Errorf("%w: function needs a library and a name", ErrFunctionNotFound)
	}
	if info.Signature.Name == "" {
		info.Signature.Name = info.Function
	}

	qualified := info.QualifiedName()
	folded := make([]string, 0, len(info.Keywords))
	seen := make(map[string]bool)
	for _, kw := range info.Keywords {
		f := fold(kw)
		if !seen[f] {
			seen[f] = true
			folded = append(folded, f)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.libraries[info.Library]; !ok {
		return fmt.Errorf("%w: %s", ErrLibraryNotFound, info.Library)
	}
	if _, dup := r.functions[qualified]; dup {
		return fmt.Errorf("bridge: function %q already registered", qualified)
	}

	r.functions[qualified] = &functionEntry{
		info:     info,
		keywords: folded,
		desc:     fold(info.Description),
	}
	r.order = append(r.order, qualified)
	for _, kw := range folded {
		r.index[kw] = append(r.index[kw], qualified)
	}
	return nil
}

// Lookup returns the record registered under a qualified name.
func (r *Registry) Lookup(qualified string) (FunctionInfo, bool) {
	r.mu.RLock()
	entry, ok := r.functions[qualified]
	r.mu.RUnlock()
	if !ok {
		return FunctionInfo{}, false
	}
	return entry.info, true
}

// Functions lists registered qualified names in registration order.
func (r *Registry) Functions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Call invokes a registered function with raw register words. Each word
// is decoded against the declared parameter tag; string and buffer
// parameters treat their word as a buffer-table handle and hand the
// function the owned bytes. Arguments past the declared parameters of a
// variadic signature pass through as plain 64-bit words. A scalar result
// returns as its register word, a string result is copied into a fresh
// buffer and returns its handle, void returns zero. Failed calls leave
// the buffer table unchanged.
func (r *Registry) Call(qualified string, args []uint64) (uint64, error) {
	library, _, ok := strings.Cut(qualified, ":")
	if !ok {
		return 0, fmt.Errorf("%w: %q is not library:function", ErrFunctionNotFound, qualified)
	}

	r.mu.RLock()
	entry, found := r.functions[qualified]
	lib, loaded := r.libraries[library]
	r.mu.RUnlock()
	if !found {
		return 0, fmt.Errorf("%w: %s", ErrFunctionNotFound, qualified)
	}
	if !loaded {
		return 0, fmt.Errorf("%w: %s", ErrLibraryNotFound, library)
	}

	sig := entry.info.Signature
	if err := sig.ValidateArgs(len(args)); err != nil {
		return 0, err
	}

	vals := make([]TaggedValue, len(args))
	for i, word := range args {
		tag := TagU64
		if i < len(sig.Params) {
			tag = sig.Params[i]
		}
		switch tag {
		case TagString:
			buf, err := r.buffers.Get(word)
			if err != nil {
				return 0, fmt.Errorf("%s arg %d: %w", qualified, i, err)
			}
			vals[i] = Str(string(buf))
		case TagBuffer:
			buf, err := r.buffers.Get(word)
			if err != nil {
				return 0, fmt.Errorf("%s arg %d: %w", qualified, i, err)
			}
			vals[i] = Bytes(buf)
		default:
			vals[i] = FromRegister(word, tag)
		}
	}

	ret, err := lib.Invoke(sig, vals)
	if err != nil {
		return 0, err
	}
	switch {
	case ret.IsVoid():
		return 0, nil
	case ret.Tag() == TagString:
		return r.buffers.StoreString(ret.Text()), nil
	default:
		return ToRegister(ret), nil
	}
}

// Search ranks registered functions for a whitespace-tokenized query.
// Each token adds 1.0 for an exact keyword match and 0.5 when the
// description contains it. Candidates below the threshold are dropped.
// Results order by descending score; equal scores order by ascending
// qualified name.
func (r *Registry) Search(query string) []FunctionHit {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	hits := make([]FunctionHit, 0)
	for _, qualified := range r.order {
		entry := r.functions[qualified]
		var score float64
		for _, tok := range tokens {
			for _, qn := range r.index[tok] {
				if qn == qualified {
					score += 1.0
					break
				}
			}
			if entry.desc != "" && strings.Contains(entry.desc, tok) {
				score += 0.5
			}
		}
		if score >= r.threshold {
			hits = append(hits, FunctionHit{Info: entry.info, Score: score})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Info.QualifiedName() < hits[j].Info.QualifiedName()
	})
	return hits
}

// Close unloads every library. Terminal: function records are left in
// place but calls through them will fail once their library is closed.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for name, lib := range r.libraries {
		if err := lib.Close(); err != nil && first == nil {
			first = fmt.Errorf("closing %s: %w", name, err)
		}
		delete(r.libraries, name)
	}
	return first
}
