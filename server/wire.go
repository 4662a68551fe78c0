package server

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Request is the JSON request from a client. Words and handles travel
// as decimal strings so 64-bit values survive JSON number parsing.
type Request struct {
	Op        string `json:"op"`
	SessionID string `json:"session_id,omitempty"`

	// Dispatch and registration
	Target      string   `json:"target,omitempty"`
	Library     string   `json:"library,omitempty"`
	Path        string   `json:"path,omitempty"`
	Signature   string   `json:"signature,omitempty"`
	Description string   `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`

	// Buffer traffic
	Data     string   `json:"data,omitempty"`     // hex payload for store
	Handle   string   `json:"handle,omitempty"`   // fetch/release
	Args     []string `json:"args,omitempty"`     // call words, decimal
	Payloads []string `json:"payloads,omitempty"` // call-capability, hex

	// Search and synonyms
	Limit int    `json:"limit,omitempty"`
	Term  string `json:"term,omitempty"`

	// Sessions
	Name string `json:"name,omitempty"`
}

// Response is the JSON response to a client.
type Response struct {
	Result   string        `json:"result,omitempty"` // decimal word or handle
	Data     string        `json:"data,omitempty"`   // hex payload
	Hits     []Hit         `json:"hits,omitempty"`
	Terms    []string      `json:"terms,omitempty"`
	Sessions []SessionInfo `json:"sessions,omitempty"`
	Status   *StatusInfo   `json:"status,omitempty"`
	Stats    []TargetStats `json:"stats,omitempty"`
	ExitCode int           `json:"exit_code"`
	Error    string        `json:"error,omitempty"`
}

// Hit is one scored search result over the wire.
type Hit struct {
	Name        string  `json:"name"`
	Kind        string  `json:"kind"` // "builtin" or "native"
	Description string  `json:"description,omitempty"`
	Score       float64 `json:"score"`
}

// SessionInfo is one persisted session over the wire.
type SessionInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Created  string `json:"created"`
	LastSeen string `json:"last_seen"`
	Calls    int64  `json:"calls"`
}

// StatusInfo reports daemon state for the status op.
type StatusInfo struct {
	Uptime       string   `json:"uptime"`
	Capabilities int      `json:"capabilities"`
	Functions    int      `json:"functions"`
	Libraries    []string `json:"libraries,omitempty"`
	Remotes      []string `json:"remotes,omitempty"`
	Buffers      int      `json:"buffers"`
}

// TargetStats aggregates the journal per dispatch target.
type TargetStats struct {
	Target    string  `json:"target"`
	Calls     int64   `json:"calls"`
	Failures  int64   `json:"failures"`
	AvgMicros float64 `json:"avg_micros"`
}

// cborEncMode holds CBOR encoding options with canonical mode for
// deterministic encoding.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("server: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// CallPayload is the CBOR document journaled per dispatched call.
type CallPayload struct {
	Args  []string `cbor:"args"`
	Error string   `cbor:"error"`
}

// MarshalCallPayload serializes a call payload to canonical CBOR bytes.
func MarshalCallPayload(p *CallPayload) ([]byte, error) {
	return cborEncMode.Marshal(p)
}

// UnmarshalCallPayload deserializes a call payload from CBOR bytes.
func UnmarshalCallPayload(data []byte) (*CallPayload, error) {
	var p CallPayload
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("server: unmarshal call payload: %w", err)
	}
	return &p, nil
}

// RegistrySnapshot is the CBOR document journaled at daemon startup.
type RegistrySnapshot struct {
	Builtins []string `cbor:"builtins"`
	Natives  []string `cbor:"natives"`
	Remotes  []string `cbor:"remotes"`
}

// MarshalSnapshot serializes a registry snapshot to canonical CBOR bytes.
func MarshalSnapshot(s *RegistrySnapshot) ([]byte, error) {
	return cborEncMode.Marshal(s)
}

// UnmarshalSnapshot deserializes a registry snapshot from CBOR bytes.
func UnmarshalSnapshot(data []byte) (*RegistrySnapshot, error) {
	var s RegistrySnapshot
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("server: unmarshal snapshot: %w", err)
	}
	return &s, nil
}
