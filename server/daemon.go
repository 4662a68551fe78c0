// Package server exposes a bridge over a line-delimited JSON protocol,
// on a Unix socket or stdin/stdout, and persists sessions and a call
// journal behind it.
package server

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/tliron/commonlog"

	"github.com/chazu/willie/bridge"
)

var log = commonlog.GetLogger("willied")

// Daemon serves bridge operations to clients. One daemon wraps one
// bridge; requests from all connections share its buffer table and
// registries.
type Daemon struct {
	bridge   *bridge.Bridge
	sessions *SessionStore
	journal  *Journal
	started  time.Time

	idleTimeout time.Duration
	idleTimer   *time.Timer
	timerMu     sync.Mutex
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// WithSessions enables persistent session tracking.
func WithSessions(s *SessionStore) DaemonOption {
	return func(d *Daemon) { d.sessions = s }
}

// WithJournal enables call journaling and the stats op.
func WithJournal(j *Journal) DaemonOption {
	return func(d *Daemon) { d.journal = j }
}

// WithIdleTimeout shuts the socket listener down after a quiet period.
// Zero means no timeout.
func WithIdleTimeout(timeout time.Duration) DaemonOption {
	return func(d *Daemon) { d.idleTimeout = timeout }
}

// NewDaemon wraps a bridge. The caller keeps ownership of the bridge,
// session store, and journal, and closes them after the daemon returns.
func NewDaemon(b *bridge.Bridge, opts ...DaemonOption) *Daemon {
	d := &Daemon{
		bridge:  b,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.journal != nil {
		err := d.journal.Snapshot(b.Builtins.Names(), b.Natives.Functions(), b.Remotes())
		if err != nil {
			log.Errorf("startup snapshot: %s", err.Error())
		}
	}
	return d
}

// RunStdin processes JSON requests from stdin, one per line.
func (d *Daemon) RunStdin() error {
	scanner := bufio.NewScanner(os.Stdin)
	// Large buffer: hex payloads for store can run long.
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			d.respond(os.Stdout, Response{ExitCode: 1, Error: "invalid JSON: " + err.Error()})
			continue
		}
		d.respond(os.Stdout, d.HandleRequest(req))
	}
	return scanner.Err()
}

// RunSocket serves the protocol on a Unix socket until a signal, the
// idle timeout, or a listener failure stops it.
func (d *Daemon) RunSocket(path string) error {
	// Remove a stale socket file from an earlier run.
	os.Remove(path)

	listener, err := net.Listen("unix", path)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", path, err)
	}
	defer listener.Close()
	defer os.Remove(path)

	// World-writable so unprivileged clients can connect.
	os.Chmod(path, 0777)

	pidPath := path + ".pid"
	os.WriteFile(pidPath, []byte(strconv.Itoa(os.Getpid())), 0644)
	defer os.Remove(pidPath)

	log.Infof("listening on %s (idle-timeout=%v)", path, d.idleTimeout)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		log.Info("shutting down on signal")
		listener.Close()
	}()

	if d.idleTimeout > 0 {
		d.resetIdleTimer(listener)
	}

	for {
		conn, err := listener.Accept()
		if err != nil {
			if strings.Contains(err.Error(), "use of closed network connection") {
				break
			}
			log.Errorf("accept: %s", err.Error())
			continue
		}

		if d.idleTimeout > 0 {
			d.resetIdleTimer(listener)
		}
		d.handleConnection(conn)
	}

	log.Info("exiting")
	return nil
}

// handleConnection serves requests on one connection until the client
// hangs up.
func (d *Daemon) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 1024*1024)
	scanner.Buffer(buf, len(buf))

	for {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		if line == "" {
			continue
		}

		var req Request
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			d.respond(conn, Response{ExitCode: 1, Error: "invalid JSON: " + err.Error()})
			continue
		}
		d.respond(conn, d.HandleRequest(req))
	}
}

// resetIdleTimer arms or re-arms the idle shutdown timer.
func (d *Daemon) resetIdleTimer(listener net.Listener) {
	d.timerMu.Lock()
	defer d.timerMu.Unlock()

	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(d.idleTimeout, func() {
		log.Info("idle timeout reached, shutting down")
		listener.Close()
	})
}

func (d *Daemon) respond(w io.Writer, resp Response) {
	output, _ := json.Marshal(resp)
	w.Write(append(output, '\n'))
}

// HandleRequest processes a single request.
func (d *Daemon) HandleRequest(req Request) Response {
	log.Debugf("request op=%s target=%s session=%s", req.Op, req.Target, req.SessionID)

	if req.SessionID != "" && d.sessions != nil && !strings.HasPrefix(req.Op, "session-") {
		if err := d.sessions.Touch(req.SessionID); err != nil {
			log.Errorf("session touch: %s", err.Error())
		}
	}

	switch req.Op {
	case "store":
		return d.handleStore(req)
	case "fetch":
		return d.handleFetch(req)
	case "release":
		return d.handleRelease(req)
	case "load":
		return d.handleLoad(req)
	case "register":
		return d.handleRegister(req)
	case "call":
		return d.handleCall(req)
	case "call-capability":
		return d.handleCallCapability(req)
	case "search":
		return d.handleSearch(req)
	case "search-top":
		return d.handleSearchTop(req)
	case "synonyms":
		return d.handleSynonyms(req)
	case "session-create":
		return d.handleSessionCreate(req)
	case "session-list":
		return d.handleSessionList(req)
	case "session-destroy":
		return d.handleSessionDestroy(req)
	case "status":
		return d.handleStatus()
	case "stats":
		return d.handleStats()
	default:
		return errResponse(fmt.Errorf("unknown op %q", req.Op))
	}
}

func errResponse(err error) Response {
	return Response{ExitCode: 1, Error: err.Error()}
}

func (d *Daemon) handleStore(req Request) Response {
	data, err := hex.DecodeString(req.Data)
	if err != nil {
		return errResponse(fmt.Errorf("store: payload is not hex: %w", err))
	}
	handle := d.bridge.Buffers.Store(data)
	return Response{Result: strconv.FormatUint(handle, 10)}
}

func (d *Daemon) handleFetch(req Request) Response {
	handle, err := strconv.ParseUint(req.Handle, 10, 64)
	if err != nil {
		return errResponse(fmt.Errorf("fetch: %q is not a handle", req.Handle))
	}
	data, err := d.bridge.Buffers.Get(handle)
	if err != nil {
		return errResponse(err)
	}
	return Response{Data: hex.EncodeToString(data)}
}

func (d *Daemon) handleRelease(req Request) Response {
	handle, err := strconv.ParseUint(req.Handle, 10, 64)
	if err != nil {
		return errResponse(fmt.Errorf("release: %q is not a handle", req.Handle))
	}
	if !d.bridge.Buffers.Remove(handle) {
		return errResponse(fmt.Errorf("%w: handle %d", bridge.ErrHandleNotFound, handle))
	}
	return Response{}
}

func (d *Daemon) handleLoad(req Request) Response {
	if req.Library == "" {
		return errResponse(fmt.Errorf("load: library name required"))
	}
	if err := d.bridge.Natives.LoadLibrary(req.Library, req.Path); err != nil {
		return errResponse(err)
	}
	path, _ := d.bridge.Natives.LibraryPath(req.Library)
	return Response{Result: path}
}

func (d *Daemon) handleRegister(req Request) Response {
	sig, err := bridge.ParseSignature(req.Signature)
	if err != nil {
		return errResponse(err)
	}
	info := bridge.FunctionInfo{
		Library:     req.Library,
		Function:    sig.Name,
		Signature:   sig,
		Description: req.Description,
		Keywords:    req.Keywords,
	}
	if err := d.bridge.Natives.RegisterFunction(info); err != nil {
		return errResponse(err)
	}
	return Response{Result: info.QualifiedName()}
}

func (d *Daemon) handleCall(req Request) Response {
	words := make([]uint64, len(req.Args))
	for i, arg := range req.Args {
		w, err := strconv.ParseUint(arg, 10, 64)
		if err != nil {
			return errResponse(fmt.Errorf("call: arg %d: %q is not a 64-bit word", i, arg))
		}
		words[i] = w
	}

	start := time.Now()
	result, err := d.bridge.Dispatch(req.Target, words)
	d.journalCall(req, start, err)
	if err != nil {
		return errResponse(err)
	}
	return Response{Result: strconv.FormatUint(result, 10)}
}

func (d *Daemon) handleCallCapability(req Request) Response {
	args := make([][]byte, len(req.Payloads))
	for i, p := range req.Payloads {
		data, err := hex.DecodeString(p)
		if err != nil {
			return errResponse(fmt.Errorf("call-capability: payload %d is not hex: %w", i, err))
		}
		args[i] = data
	}

	start := time.Now()
	out, err := d.bridge.Builtins.Call(req.Target, args)
	d.journalCall(req, start, err)
	if err != nil {
		return errResponse(err)
	}
	return Response{Data: hex.EncodeToString(out)}
}

func (d *Daemon) journalCall(req Request, start time.Time, callErr error) {
	if d.journal == nil {
		return
	}
	err := d.journal.Record(CallEvent{
		At:        start.UTC(),
		SessionID: req.SessionID,
		Target:    req.Target,
		Args:      req.Args,
		Err:       callErr,
		Elapsed:   time.Since(start),
	})
	if err != nil {
		log.Errorf("journal: %s", err.Error())
	}
}

// handleSearch merges native and built-in hits. Equal scores list
// native functions first.
func (d *Daemon) handleSearch(req Request) Response {
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}

	var hits []Hit
	for _, h := range d.bridge.Natives.Search(req.Target) {
		hits = append(hits, Hit{
			Name:        h.Info.QualifiedName(),
			Kind:        "native",
			Description: h.Info.Description,
			Score:       h.Score,
		})
	}
	for _, h := range d.bridge.Builtins.SearchTop(req.Target, limit) {
		hits = append(hits, Hit{
			Name:        h.Info.Name,
			Kind:        "builtin",
			Description: h.Info.Description,
			Score:       h.Score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return Response{Hits: hits}
}

func (d *Daemon) handleSearchTop(req Request) Response {
	limit := req.Limit
	if limit <= 0 {
		limit = 5
	}
	var hits []Hit
	for _, h := range d.bridge.Builtins.SearchTop(req.Target, limit) {
		hits = append(hits, Hit{
			Name:        h.Info.Name,
			Kind:        "builtin",
			Description: h.Info.Description,
			Score:       h.Score,
		})
	}
	return Response{Hits: hits}
}

func (d *Daemon) handleSynonyms(req Request) Response {
	if req.Term == "" {
		return errResponse(fmt.Errorf("synonyms: term required"))
	}
	return Response{
		Result: d.bridge.Synonyms.PrimaryOf(req.Term),
		Terms:  d.bridge.Synonyms.Expand([]string{req.Term}),
	}
}

func (d *Daemon) handleSessionCreate(req Request) Response {
	if d.sessions == nil {
		return errResponse(fmt.Errorf("sessions not enabled"))
	}
	info, err := d.sessions.Create(req.Name)
	if err != nil {
		return errResponse(err)
	}
	return Response{Result: info.ID, Sessions: []SessionInfo{*info}}
}

func (d *Daemon) handleSessionList(req Request) Response {
	if d.sessions == nil {
		return errResponse(fmt.Errorf("sessions not enabled"))
	}
	sessions, err := d.sessions.List()
	if err != nil {
		return errResponse(err)
	}
	return Response{Sessions: sessions}
}

func (d *Daemon) handleSessionDestroy(req Request) Response {
	if d.sessions == nil {
		return errResponse(fmt.Errorf("sessions not enabled"))
	}
	if req.SessionID == "" {
		return errResponse(fmt.Errorf("session-destroy: session_id required"))
	}
	if err := d.sessions.Destroy(req.SessionID); err != nil {
		return errResponse(err)
	}
	return Response{}
}

func (d *Daemon) handleStatus() Response {
	return Response{Status: &StatusInfo{
		Uptime:       time.Since(d.started).Round(time.Second).String(),
		Capabilities: d.bridge.Builtins.Len(),
		Functions:    len(d.bridge.Natives.Functions()),
		Libraries:    d.bridge.Natives.Libraries(),
		Remotes:      d.bridge.Remotes(),
		Buffers:      d.bridge.Buffers.Len(),
	}}
}

func (d *Daemon) handleStats() Response {
	if d.journal == nil {
		return errResponse(fmt.Errorf("stats: journal not enabled"))
	}
	stats, err := d.journal.Stats()
	if err != nil {
		return errResponse(err)
	}
	return Response{Stats: stats}
}
