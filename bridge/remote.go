package bridge

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jhump/protoreflect/desc"
	"github.com/jhump/protoreflect/dynamic"
	"github.com/jhump/protoreflect/grpcreflect"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	rpb "google.golang.org/grpc/reflection/grpc_reflection_v1alpha"
)

// ---------------------------------------------------------------------------
// RemoteClient: capability discovery over gRPC server reflection
// ---------------------------------------------------------------------------

// RemoteClient connects the bridge to a capability server. Services and
// methods are discovered through gRPC reflection, so no generated stubs
// are needed; requests and responses cross as JSON buffers mapped onto
// the server's message descriptors.
type RemoteClient struct {
	conn      *grpc.ClientConn
	refClient *grpcreflect.Client
	target    string
	closed    atomic.Bool

	mu      sync.Mutex
	methods map[string]*desc.MethodDescriptor
}

// DialRemote connects to a capability server. The transport is plaintext;
// these servers live inside the host's trust boundary.
func DialRemote(target string) (*RemoteClient, error) {
	conn, err := grpc.Dial(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotConnected, target, err)
	}
	refClient := grpcreflect.NewClientV1Alpha(context.Background(), rpb.NewServerReflectionClient(conn))
	return &RemoteClient{
		conn:      conn,
		refClient: refClient,
		target:    target,
		methods:   make(map[string]*desc.MethodDescriptor),
	}, nil
}

// Target returns the dialed address.
func (c *RemoteClient) Target() string { return c.target }

// Connected reports whether Close has not yet been called.
func (c *RemoteClient) Connected() bool { return !c.closed.Load() }

// Services lists the server's services, minus the reflection service
// itself.
func (c *RemoteClient) Services() ([]string, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.target)
	}
	services, err := c.refClient.ListServices()
	if err != nil {
		return nil, fmt.Errorf("%w: listing services on %s: %v", ErrCallFailed, c.target, err)
	}
	out := make([]string, 0, len(services))
	for _, svc := range services {
		if strings.HasPrefix(svc, "grpc.reflection") {
			continue
		}
		out = append(out, svc)
	}
	return out, nil
}

// Methods lists the method names of one service.
func (c *RemoteClient) Methods(service string) ([]string, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.target)
	}
	svcDesc, err := c.refClient.ResolveService(service)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve service %s: %v", ErrCallFailed, service, err)
	}
	methods := svcDesc.GetMethods()
	out := make([]string, len(methods))
	for i, m := range methods {
		out[i] = m.GetName()
	}
	return out, nil
}

// resolveMethod resolves "package.Service/Method" to its descriptor,
// caching descriptors per client.
func (c *RemoteClient) resolveMethod(fullMethod string) (*desc.MethodDescriptor, error) {
	c.mu.Lock()
	cached, ok := c.methods[fullMethod]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return nil, fmt.Errorf("%w: %q is not service/method", ErrFunctionNotFound, fullMethod)
	}
	svcDesc, err := c.refClient.ResolveService(service)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot resolve service %s: %v", ErrFunctionNotFound, service, err)
	}
	methodDesc := svcDesc.FindMethodByName(method)
	if methodDesc == nil {
		return nil, fmt.Errorf("%w: method %s not found in service %s", ErrFunctionNotFound, method, service)
	}

	c.mu.Lock()
	c.methods[fullMethod] = methodDesc
	c.mu.Unlock()
	return methodDesc, nil
}

// Call makes a unary RPC. The request buffer is JSON mapped onto the
// method's input descriptor; an empty buffer sends an empty message. The
// response comes back as JSON. Streaming methods are rejected.
func (c *RemoteClient) Call(ctx context.Context, fullMethod string, request []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrNotConnected, c.target)
	}
	methodDesc, err := c.resolveMethod(fullMethod)
	if err != nil {
		return nil, err
	}
	if methodDesc.IsClientStreaming() || methodDesc.IsServerStreaming() {
		return nil, fmt.Errorf("%w: %s is a streaming method", ErrNotSupported, fullMethod)
	}

	reqMsg := dynamic.NewMessage(methodDesc.GetInputType())
	if len(request) > 0 {
		if err := reqMsg.UnmarshalJSON(request); err != nil {
			return nil, fmt.Errorf("%w: request for %s: %v", ErrConversion, fullMethod, err)
		}
	}
	respMsg := dynamic.NewMessage(methodDesc.GetOutputType())

	if err := c.conn.Invoke(ctx, "/"+fullMethod, reqMsg, respMsg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCallFailed, fullMethod, err)
	}

	out, err := respMsg.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%w: response from %s: %v", ErrConversion, fullMethod, err)
	}
	return out, nil
}

// RegisterCapabilities discovers the server's unary methods and registers
// each as a capability named "remote:<service>/<Method>". The capability
// takes at most one JSON request buffer and returns the JSON response.
// Streaming methods are skipped.
func (c *RemoteClient) RegisterCapabilities(reg *BuiltinRegistry) error {
	services, err := c.Services()
	if err != nil {
		return err
	}
	for _, service := range services {
		svcDesc, err := c.refClient.ResolveService(service)
		if err != nil {
			return fmt.Errorf("%w: cannot resolve service %s: %v", ErrCallFailed, service, err)
		}
		short := service
		if i := strings.LastIndexByte(service, '.'); i >= 0 {
			short = service[i+1:]
		}
		for _, m := range svcDesc.GetMethods() {
			if m.IsClientStreaming() || m.IsServerStreaming() {
				continue
			}
			fullMethod := service + "/" + m.GetName()
			info := CapabilityInfo{
				Name:        "remote:" + fullMethod,
				Description: fmt.Sprintf("Remote call %s on %s", m.GetFullyQualifiedName(), c.target),
				Category:    "remote",
				Arity:       1,
				Keywords:    []string{"remote", "rpc", fold(short), fold(m.GetName())},
			}
			if err := reg.Register(info, c.capability(fullMethod)); err != nil {
				return err
			}
		}
	}
	return nil
}

// capability wraps one unary method as a Capability closure.
func (c *RemoteClient) capability(fullMethod string) CapabilityFunc {
	return func(args [][]byte) ([]byte, error) {
		if len(args) > 1 {
			return nil, fmt.Errorf("%w: remote:%s takes at most 1 buffer, got %d",
				ErrInvalidArgCount, fullMethod, len(args))
		}
		var request []byte
		if len(args) == 1 {
			request = args[0]
		}
		return c.Call(context.Background(), fullMethod, request)
	}
}

// Close tears down the connection. Further calls fail with a
// not-connected error. Closing twice is harmless.
func (c *RemoteClient) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	c.refClient.Reset()
	return c.conn.Close()
}
