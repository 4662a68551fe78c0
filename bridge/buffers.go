package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// ---------------------------------------------------------------------------
// BufferTable: owned byte buffers behind opaque handles
// ---------------------------------------------------------------------------

// BufferTable owns every byte buffer that crosses the native boundary.
// Callers hold opaque uint64 handles, never addresses. Handles are minted
// from an atomic counter and are unique for the life of the process; a
// removed handle is permanently invalid and is never reissued.
type BufferTable struct {
	mu      sync.RWMutex
	buffers map[uint64][]byte
	nextID  atomic.Uint64
}

// NewBufferTable returns an empty table. Handle numbering starts at 1 so
// that zero can stand for "no buffer" in register words.
func NewBufferTable() *BufferTable {
	return &BufferTable{
		buffers: make(map[uint64][]byte),
	}
}

// Store copies data into a fresh table-owned buffer and returns its
// handle. The caller's slice is not retained.
func (t *BufferTable) Store(data []byte) uint64 {
	owned := make([]byte, len(data))
	copy(owned, data)
	return t.adopt(owned)
}

// StoreString stores the bytes of s and returns the new handle.
func (t *BufferTable) StoreString(s string) uint64 {
	return t.adopt([]byte(s))
}

// adopt takes ownership of an already-private slice.
func (t *BufferTable) adopt(owned []byte) uint64 {
	id := t.nextID.Add(1)
	t.mu.Lock()
	t.buffers[id] = owned
	t.mu.Unlock()
	return id
}

// Lookup returns the buffer for a handle and whether it is live. The
// slice is borrowed: it stays valid until the handle is removed and must
// not be mutated by the caller.
func (t *BufferTable) Lookup(handle uint64) ([]byte, bool) {
	t.mu.RLock()
	buf, ok := t.buffers[handle]
	t.mu.RUnlock()
	return buf, ok
}

// Get is Lookup with a typed error for dead or never-issued handles.
func (t *BufferTable) Get(handle uint64) ([]byte, error) {
	buf, ok := t.Lookup(handle)
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", ErrHandleNotFound, handle)
	}
	return buf, nil
}

// Remove drops a handle and frees the table's reference to its buffer,
// reporting whether anything was removed. Removing a dead handle is a
// no-op returning false, so double-free cannot occur.
func (t *BufferTable) Remove(handle uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.buffers[handle]; !ok {
		return false
	}
	delete(t.buffers, handle)
	return true
}

// Take removes a handle and transfers its buffer to the caller in one
// step. After Take the handle is dead and the returned slice is owned by
// the caller.
func (t *BufferTable) Take(handle uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	buf, ok := t.buffers[handle]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", ErrHandleNotFound, handle)
	}
	delete(t.buffers, handle)
	return buf, nil
}

// Len reports the number of live handles.
func (t *BufferTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.buffers)
}
