package bridge

import (
	"context"
	"errors"
	"testing"

	"github.com/jhump/protoreflect/desc"
)

// closedClient builds a client that was shut down before use. Methods
// must fail up front without touching the connection.
func closedClient() *RemoteClient {
	c := &RemoteClient{
		target:  "unit:0",
		methods: make(map[string]*desc.MethodDescriptor),
	}
	c.closed.Store(true)
	return c
}

func TestRemoteClosedFailsCleanly(t *testing.T) {
	c := closedClient()

	if c.Connected() {
		t.Error("Connected() = true on a closed client")
	}
	if c.Target() != "unit:0" {
		t.Errorf("Target() = %q, want unit:0", c.Target())
	}
	if _, err := c.Services(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Services = %v, want ErrNotConnected", err)
	}
	if _, err := c.Methods("pkg.Service"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Methods = %v, want ErrNotConnected", err)
	}
	if _, err := c.Call(context.Background(), "pkg.Service/Do", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Call = %v, want ErrNotConnected", err)
	}
}

func TestRemoteCloseIdempotent(t *testing.T) {
	c := closedClient()
	// The first Swap already happened via closedClient; a second Close is
	// a no-op and must not touch the nil connection.
	if err := c.Close(); err != nil {
		t.Errorf("Close on closed client = %v, want nil", err)
	}
}

func TestRemoteMethodNameShape(t *testing.T) {
	c := &RemoteClient{
		target:  "unit:0",
		methods: make(map[string]*desc.MethodDescriptor),
	}

	// Malformed names are rejected before reflection ever runs.
	if _, err := c.Call(context.Background(), "NoSlashHere", nil); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("Call(NoSlashHere) = %v, want ErrFunctionNotFound", err)
	}
}

func TestRemoteCapabilityArity(t *testing.T) {
	c := closedClient()
	fn := c.capability("pkg.Service/Do")

	if _, err := fn([][]byte{[]byte("a"), []byte("b")}); !errors.Is(err, ErrInvalidArgCount) {
		t.Errorf("two buffers = %v, want ErrInvalidArgCount", err)
	}
	// One buffer passes the arity gate and then hits the closed check.
	if _, err := fn([][]byte{[]byte(`{}`)}); !errors.Is(err, ErrNotConnected) {
		t.Errorf("one buffer on closed client = %v, want ErrNotConnected", err)
	}
}

func TestDialRemoteLifecycle(t *testing.T) {
	// Dialing is lazy, so an unreachable target still yields a client.
	c, err := DialRemote("127.0.0.1:0")
	if err != nil {
		t.Fatalf("DialRemote: %v", err)
	}
	if !c.Connected() {
		t.Error("fresh client reports not connected")
	}
	if c.Target() != "127.0.0.1:0" {
		t.Errorf("Target() = %q", c.Target())
	}

	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if c.Connected() {
		t.Error("Connected() = true after Close")
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
	if _, err := c.Call(context.Background(), "pkg.Service/Do", nil); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Call after Close = %v, want ErrNotConnected", err)
	}
}
