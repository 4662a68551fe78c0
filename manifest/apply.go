package manifest

import (
	"fmt"

	"github.com/chazu/willie/bridge"
)

// Options translates the [bridge] and [[synonyms]] sections into bridge
// construction options. Synonym groups have to exist before capability
// registration expands keywords, so they travel as an option rather
// than through Apply.
func (m *Manifest) Options() []bridge.Option {
	var opts []bridge.Option
	if m.Bridge.SearchThreshold > 0 {
		opts = append(opts, bridge.WithSearchThreshold(m.Bridge.SearchThreshold))
	}
	if paths := m.SearchPathList(); len(paths) > 0 {
		opts = append(opts, bridge.WithSearchPaths(paths...))
	}
	if root := m.SandboxPath(); root != "" {
		opts = append(opts, bridge.WithSandboxRoot(root))
	}
	if len(m.Synonyms) > 0 {
		syn := bridge.DefaultSynonyms()
		for _, g := range m.Synonyms {
			syn.Add(g.Primary, g.Terms...)
		}
		opts = append(opts, bridge.WithSynonyms(syn))
	}
	return opts
}

// Apply loads the declared libraries, registers their functions, and
// connects the remote capability server. The first failure stops the
// walk with everything before it already applied.
func (m *Manifest) Apply(b *bridge.Bridge) error {
	for _, lib := range m.Libraries {
		if err := b.Natives.LoadLibrary(lib.Name, m.resolvePath(lib.Path)); err != nil {
			return fmt.Errorf("loading library %s: %w", lib.Name, err)
		}
	}

	for _, fn := range m.Functions {
		sig, err := bridge.ParseSignature(fn.Signature)
		if err != nil {
			return fmt.Errorf("function %q in library %s: %w", fn.Signature, fn.Library, err)
		}
		info := bridge.FunctionInfo{
			Library:     fn.Library,
			Function:    sig.Name,
			Signature:   sig,
			Description: fn.Description,
			Keywords:    fn.Keywords,
		}
		if err := b.Natives.RegisterFunction(info); err != nil {
			return fmt.Errorf("registering %s:%s: %w", fn.Library, sig.Name, err)
		}
	}

	if m.Remote.Target != "" {
		if err := b.ConnectRemote(m.Remote.Target); err != nil {
			return fmt.Errorf("connecting %s: %w", m.Remote.Target, err)
		}
	}
	return nil
}

// Build constructs a bridge from the manifest and applies its library,
// function, and remote declarations. A nil manifest builds a plain
// bridge from the extra options alone.
func Build(m *Manifest, extra ...bridge.Option) (*bridge.Bridge, error) {
	if m == nil {
		return bridge.NewBridge(extra...)
	}
	b, err := bridge.NewBridge(append(m.Options(), extra...)...)
	if err != nil {
		return nil, err
	}
	if err := m.Apply(b); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}
