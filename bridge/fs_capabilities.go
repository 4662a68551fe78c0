package bridge

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ---------------------------------------------------------------------------
// Sandboxed filesystem capabilities
// ---------------------------------------------------------------------------

// FSProvider exposes file access as capabilities, confined to one root
// directory. Path arguments are cleaned and re-rooted, so ".." can never
// escape the sandbox.
type FSProvider struct {
	root string
}

// NewFSProvider confines file capabilities under root.
func NewFSProvider(root string) *FSProvider {
	return &FSProvider{root: filepath.Clean(root)}
}

// Root returns the sandbox directory.
func (p *FSProvider) Root() string { return p.root }

// resolve maps a VM-supplied path under the sandbox root.
func (p *FSProvider) resolve(raw []byte) string {
	rel := filepath.Clean("/" + string(raw))
	return filepath.Join(p.root, rel)
}

// Register installs fs.read, fs.write and fs.exists on a registry.
func (p *FSProvider) Register(reg *BuiltinRegistry) error {
	// fs.read: path -> contents
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "fs.read",
		Description: "Read a file under the sandbox root",
		Category:    "fs",
		Arity:       1,
		Keywords:    []string{"read", "file", "fs"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("fs.read", args, 1); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(p.resolve(args[0]))
		if err != nil {
			return nil, fmt.Errorf("fs.read: %w", err)
		}
		return data, nil
	}); err != nil {
		return err
	}

	// fs.write: path, data -> bytes written as decimal text
	if err := reg.RegisterFunc(CapabilityInfo{
		Name:        "fs.write",
		Description: "Write a file under the sandbox root, creating parent directories",
		Category:    "fs",
		Arity:       2,
		Keywords:    []string{"write", "file", "fs"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("fs.write", args, 2); err != nil {
			return nil, err
		}
		path := p.resolve(args[0])
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("fs.write: %w", err)
		}
		if err := os.WriteFile(path, args[1], 0644); err != nil {
			return nil, fmt.Errorf("fs.write: %w", err)
		}
		return strconv.AppendInt(nil, int64(len(args[1])), 10), nil
	}); err != nil {
		return err
	}

	// fs.exists: path -> "true" or "false"
	return reg.RegisterFunc(CapabilityInfo{
		Name:        "fs.exists",
		Description: "Report whether a path exists under the sandbox root",
		Category:    "fs",
		Arity:       1,
		Keywords:    []string{"exists", "stat", "file", "fs"},
	}, func(args [][]byte) ([]byte, error) {
		if err := wantArgs("fs.exists", args, 1); err != nil {
			return nil, err
		}
		_, err := os.Stat(p.resolve(args[0]))
		switch {
		case err == nil:
			return []byte("true"), nil
		case errors.Is(err, os.ErrNotExist):
			return []byte("false"), nil
		default:
			return nil, fmt.Errorf("fs.exists: %w", err)
		}
	})
}
