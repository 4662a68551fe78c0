// Package bridge lets a sandboxed bytecode VM invoke native functionality
// without ever holding a raw pointer.
//
// This package contains:
//   - type tags, tagged values and call signatures for marshalling
//   - a handle table that owns every buffer crossing the boundary
//   - a dynamic library loader with an arity-indexed call dispatcher
//   - registries for native functions and built-in capabilities
//   - synonym-expanded keyword search over both registries
package bridge
