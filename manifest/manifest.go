// Package manifest handles willie.toml host configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a willie.toml configuration: bridge tuning,
// native libraries with their registered functions, extra synonym
// groups, and an optional remote capability server.
type Manifest struct {
	Bridge    BridgeConfig   `toml:"bridge"`
	Libraries []Library      `toml:"libraries"`
	Functions []Function     `toml:"functions"`
	Synonyms  []SynonymGroup `toml:"synonyms"`
	Remote    Remote         `toml:"remote"`

	// Dir is the directory containing the willie.toml file (set at load time).
	Dir string `toml:"-"`
}

// BridgeConfig tunes the bridge itself.
type BridgeConfig struct {
	SearchPaths     []string `toml:"search-paths"`
	SearchThreshold float64  `toml:"search-threshold"`
	SandboxRoot     string   `toml:"sandbox-root"`
}

// Library declares one native library to load. An empty path means the
// library is located by its platform filename through the search paths.
type Library struct {
	Name string `toml:"name"`
	Path string `toml:"path"`
}

// Function declares one native function under a loaded library. The
// signature string carries the function name and types, for example
// "u64 compressBound(u64 sourceLen)".
type Function struct {
	Library     string   `toml:"library"`
	Signature   string   `toml:"signature"`
	Description string   `toml:"description"`
	Keywords    []string `toml:"keywords"`
}

// SynonymGroup extends the capability vocabulary with one group.
type SynonymGroup struct {
	Primary string   `toml:"primary"`
	Terms   []string `toml:"terms"`
}

// Remote points the bridge at a capability server.
type Remote struct {
	Target string `toml:"target"`
}

// Load parses a willie.toml file from the given directory. The raw
// document is schema-checked before decoding.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "willie.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	if err := Validate(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Bridge.SearchThreshold == 0 {
		m.Bridge.SearchThreshold = 0.5
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a willie.toml file, then
// loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "willie.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// resolvePath makes a manifest-relative path absolute. Absolute paths
// and paths on an unanchored manifest pass through.
func (m *Manifest) resolvePath(p string) string {
	if p == "" || filepath.IsAbs(p) || m.Dir == "" {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// SearchPathList returns the configured library directories, resolved
// relative to the manifest directory.
func (m *Manifest) SearchPathList() []string {
	var paths []string
	for _, p := range m.Bridge.SearchPaths {
		paths = append(paths, m.resolvePath(p))
	}
	return paths
}

// SandboxPath returns the sandbox root resolved relative to the
// manifest directory, or "" when no sandbox is configured.
func (m *Manifest) SandboxPath() string {
	return m.resolvePath(m.Bridge.SandboxRoot)
}
