package bridge

import (
	"fmt"
	"strings"
	"sync"
)

// ---------------------------------------------------------------------------
// Bridge: one VM's view of native functionality
// ---------------------------------------------------------------------------

// Bridge bundles the buffer table, the native function registry, the
// built-in capability registry, and the synonym dictionary into one
// explicitly owned instance. Nothing here is ambient: two VMs in one
// process run two fully isolated bridges.
type Bridge struct {
	Buffers  *BufferTable
	Natives  *Registry
	Builtins *BuiltinRegistry
	Synonyms *SynonymSet

	threshold   float64
	searchPaths []string
	sandboxRoot string
	standard    bool

	mu      sync.Mutex
	remotes []*RemoteClient
}

// Option configures a Bridge under construction.
type Option func(*Bridge)

// WithSearchThreshold overrides the minimum keyword-search score for
// both registries.
func WithSearchThreshold(t float64) Option {
	return func(b *Bridge) { b.threshold = t }
}

// WithSearchPaths prepends directories to the library search order.
func WithSearchPaths(paths ...string) Option {
	return func(b *Bridge) { b.searchPaths = append(b.searchPaths, paths...) }
}

// WithSandboxRoot enables the fs capabilities, confined under root.
func WithSandboxRoot(root string) Option {
	return func(b *Bridge) { b.sandboxRoot = root }
}

// WithSynonyms replaces the default synonym dictionary.
func WithSynonyms(syn *SynonymSet) Option {
	return func(b *Bridge) { b.Synonyms = syn }
}

// WithoutStandardCapabilities skips installing the built-in capability
// set, leaving an empty registry for the host to populate.
func WithoutStandardCapabilities() Option {
	return func(b *Bridge) { b.standard = false }
}

// NewBridge builds a bridge with its own buffer table and registries.
func NewBridge(opts ...Option) (*Bridge, error) {
	b := &Bridge{
		threshold: DefaultSearchThreshold,
		standard:  true,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.Synonyms == nil {
		b.Synonyms = DefaultSynonyms()
	}

	b.Buffers = NewBufferTable()
	b.Natives = NewRegistry(b.Buffers)
	b.Natives.SetThreshold(b.threshold)
	b.Natives.SetSearchPaths(b.searchPaths)
	b.Builtins = NewBuiltinRegistry(b.Synonyms)
	b.Builtins.SetThreshold(b.threshold)

	if b.standard {
		if err := RegisterStandardCapabilities(b.Builtins); err != nil {
			return nil, err
		}
	}
	if b.sandboxRoot != "" {
		if err := NewFSProvider(b.sandboxRoot).Register(b.Builtins); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Dispatch is the extension-call entry point. The target is resolved in
// order: an exact built-in capability name, a registered
// "library:function" qualified name, then a keyword search across the
// built-in registry. Capability arguments and results travel as buffer
// handles; native calls interpret the words by their declared signature.
func (b *Bridge) Dispatch(target string, args []uint64) (uint64, error) {
	if _, ok := b.Builtins.Lookup(target); ok {
		return b.callBuiltin(target, args)
	}
	if strings.Contains(target, ":") {
		if _, ok := b.Natives.Lookup(target); ok {
			return b.Natives.Call(target, args)
		}
	}
	if info, ok := b.Builtins.Search(target); ok {
		return b.callBuiltin(info.Name, args)
	}
	return 0, fmt.Errorf("%w: %s", ErrFunctionNotFound, target)
}

// callBuiltin resolves handle words to buffers, invokes, and stores the
// result as a fresh handle. A failed call mints nothing.
func (b *Bridge) callBuiltin(name string, handles []uint64) (uint64, error) {
	bufs := make([][]byte, len(handles))
	for i, h := range handles {
		data, err := b.Buffers.Get(h)
		if err != nil {
			return 0, fmt.Errorf("%s arg %d: %w", name, i, err)
		}
		bufs[i] = data
	}
	out, err := b.Builtins.Call(name, bufs)
	if err != nil {
		return 0, err
	}
	return b.Buffers.Store(out), nil
}

// ConnectRemote dials a capability server and registers its unary
// methods as capabilities. The client is owned by the bridge and closed
// with it.
func (b *Bridge) ConnectRemote(target string) error {
	client, err := DialRemote(target)
	if err != nil {
		return err
	}
	if err := client.RegisterCapabilities(b.Builtins); err != nil {
		client.Close()
		return err
	}
	b.mu.Lock()
	b.remotes = append(b.remotes, client)
	b.mu.Unlock()
	return nil
}

// Remotes lists the targets of connected capability servers.
func (b *Bridge) Remotes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.remotes))
	for i, c := range b.remotes {
		out[i] = c.Target()
	}
	return out
}

// Close tears down remote connections and unloads native libraries. The
// caller sequences Close after in-flight calls complete.
func (b *Bridge) Close() error {
	b.mu.Lock()
	remotes := b.remotes
	b.remotes = nil
	b.mu.Unlock()

	var first error
	for _, c := range remotes {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	if err := b.Natives.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
