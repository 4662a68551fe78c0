package server

import (
	"encoding/hex"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/willie/bridge"
)

func newTestDaemon(t *testing.T, opts ...DaemonOption) *Daemon {
	t.Helper()
	b, err := bridge.NewBridge()
	if err != nil {
		t.Fatalf("NewBridge: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return NewDaemon(b, opts...)
}

func mustHandle(t *testing.T, resp Response) uint64 {
	t.Helper()
	if resp.Error != "" {
		t.Fatalf("unexpected error response: %s", resp.Error)
	}
	handle, err := strconv.ParseUint(resp.Result, 10, 64)
	if err != nil {
		t.Fatalf("Result %q is not a handle: %v", resp.Result, err)
	}
	return handle
}

func TestDaemonStoreFetchRelease(t *testing.T) {
	d := newTestDaemon(t)

	stored := d.HandleRequest(Request{Op: "store", Data: "deadbeef"})
	mustHandle(t, stored)

	fetched := d.HandleRequest(Request{Op: "fetch", Handle: stored.Result})
	if fetched.Error != "" {
		t.Fatalf("fetch: %s", fetched.Error)
	}
	if fetched.Data != "deadbeef" {
		t.Errorf("fetch Data = %q, want deadbeef", fetched.Data)
	}

	released := d.HandleRequest(Request{Op: "release", Handle: stored.Result})
	if released.Error != "" {
		t.Fatalf("release: %s", released.Error)
	}

	gone := d.HandleRequest(Request{Op: "fetch", Handle: stored.Result})
	if gone.Error == "" || gone.ExitCode != 1 {
		t.Errorf("fetch after release = %+v, want error response", gone)
	}
}

func TestDaemonStoreRejectsBadHex(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "store", Data: "not hex"})
	if resp.Error == "" {
		t.Error("store accepted non-hex payload")
	}
}

func TestDaemonCallByDescription(t *testing.T) {
	d := newTestDaemon(t)

	payload := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 20)
	stored := d.HandleRequest(Request{Op: "store", Data: hex.EncodeToString([]byte(payload))})
	handle := mustHandle(t, stored)

	called := d.HandleRequest(Request{Op: "call", Target: "shrink this data", Args: []string{stored.Result}})
	packed := mustHandle(t, called)
	if packed == handle {
		t.Fatal("call returned the input handle")
	}

	fetched := d.HandleRequest(Request{Op: "fetch", Handle: called.Result})
	if fetched.Error != "" {
		t.Fatalf("fetch result buffer: %s", fetched.Error)
	}
	if len(fetched.Data) >= len(payload)*2 {
		t.Errorf("compressed payload is %d hex chars, want fewer than %d", len(fetched.Data), len(payload)*2)
	}
}

func TestDaemonCallRejectsBadWord(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "call", Target: "compress.zstd", Args: []string{"twelve"}})
	if !strings.Contains(resp.Error, "64-bit word") {
		t.Errorf("error = %q, want mention of 64-bit word", resp.Error)
	}
}

func TestDaemonCallUnknownTarget(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "call", Target: "launch the missiles"})
	if resp.Error == "" || resp.ExitCode != 1 {
		t.Errorf("response = %+v, want error", resp)
	}
}

func TestDaemonCallCapability(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{
		Op:       "call-capability",
		Target:   "digest.sha256",
		Payloads: []string{hex.EncodeToString([]byte("abc"))},
	})
	if resp.Error != "" {
		t.Fatalf("call-capability: %s", resp.Error)
	}

	out, err := hex.DecodeString(resp.Data)
	if err != nil {
		t.Fatalf("Data is not hex: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if string(out) != want {
		t.Errorf("digest = %q, want %q", out, want)
	}
}

func TestDaemonRegisterErrors(t *testing.T) {
	d := newTestDaemon(t)

	noLib := d.HandleRequest(Request{Op: "register", Library: "mathx", Signature: "int add(int, int)"})
	if noLib.Error == "" {
		t.Error("register accepted a function for an unloaded library")
	}

	badSig := d.HandleRequest(Request{Op: "register", Library: "mathx", Signature: "not a signature"})
	if badSig.Error == "" {
		t.Error("register accepted a malformed signature")
	}
}

func TestDaemonSearch(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "search", Target: "compress", Limit: 3})
	if resp.Error != "" {
		t.Fatalf("search: %s", resp.Error)
	}
	if len(resp.Hits) == 0 {
		t.Fatal("search returned no hits")
	}
	if len(resp.Hits) > 3 {
		t.Errorf("search returned %d hits, limit was 3", len(resp.Hits))
	}
	for i, h := range resp.Hits {
		if h.Kind != "builtin" {
			t.Errorf("hit %d Kind = %q, want builtin", i, h.Kind)
		}
		if h.Score <= 0 {
			t.Errorf("hit %d Score = %v, want > 0", i, h.Score)
		}
		if i > 0 && h.Score > resp.Hits[i-1].Score {
			t.Errorf("hits out of order at %d: %v after %v", i, h.Score, resp.Hits[i-1].Score)
		}
	}
}

func TestDaemonSearchTop(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "search-top", Target: "checksum", Limit: 2})
	if resp.Error != "" {
		t.Fatalf("search-top: %s", resp.Error)
	}
	if len(resp.Hits) == 0 || len(resp.Hits) > 2 {
		t.Fatalf("search-top returned %d hits, want 1 or 2", len(resp.Hits))
	}
	if !strings.HasPrefix(resp.Hits[0].Name, "digest.") {
		t.Errorf("top hit = %q, want a digest capability", resp.Hits[0].Name)
	}
}

func TestDaemonSynonyms(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "synonyms", Term: "shrink"})
	if resp.Error != "" {
		t.Fatalf("synonyms: %s", resp.Error)
	}
	if resp.Result != "compress" {
		t.Errorf("primary = %q, want compress", resp.Result)
	}
	found := false
	for _, term := range resp.Terms {
		if term == "compress" {
			found = true
		}
	}
	if !found {
		t.Errorf("Terms = %v, want to include compress", resp.Terms)
	}

	missing := d.HandleRequest(Request{Op: "synonyms"})
	if missing.Error == "" {
		t.Error("synonyms accepted an empty term")
	}
}

func TestDaemonStatus(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "status"})
	if resp.Error != "" {
		t.Fatalf("status: %s", resp.Error)
	}
	if resp.Status == nil {
		t.Fatal("status response carries no StatusInfo")
	}
	if resp.Status.Capabilities == 0 {
		t.Error("Capabilities = 0, want standard set")
	}
	if resp.Status.Buffers != 0 {
		t.Errorf("Buffers = %d, want 0", resp.Status.Buffers)
	}

	d.HandleRequest(Request{Op: "store", Data: "00ff"})
	after := d.HandleRequest(Request{Op: "status"})
	if after.Status.Buffers != 1 {
		t.Errorf("Buffers after store = %d, want 1", after.Status.Buffers)
	}
}

func TestDaemonUnknownOp(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "frobnicate"})
	if resp.ExitCode != 1 || !strings.Contains(resp.Error, "unknown op") {
		t.Errorf("response = %+v, want unknown op error", resp)
	}
}

func TestDaemonSessionLifecycle(t *testing.T) {
	store, err := OpenSessionStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("OpenSessionStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	d := newTestDaemon(t, WithSessions(store))

	created := d.HandleRequest(Request{Op: "session-create", Name: "repl"})
	if created.Error != "" {
		t.Fatalf("session-create: %s", created.Error)
	}
	if created.Result == "" {
		t.Fatal("session-create returned no ID")
	}
	if len(created.Sessions) != 1 || created.Sessions[0].Name != "repl" {
		t.Errorf("Sessions = %+v, want the created session", created.Sessions)
	}

	// A call carrying the session ID bumps its counter.
	call := d.HandleRequest(Request{
		Op:        "call-capability",
		Target:    "time.now.unix",
		SessionID: created.Result,
	})
	if call.Error != "" {
		t.Fatalf("call-capability: %s", call.Error)
	}

	listed := d.HandleRequest(Request{Op: "session-list"})
	if listed.Error != "" {
		t.Fatalf("session-list: %s", listed.Error)
	}
	if len(listed.Sessions) != 1 {
		t.Fatalf("session-list returned %d sessions, want 1", len(listed.Sessions))
	}
	if listed.Sessions[0].Calls != 1 {
		t.Errorf("Calls = %d, want 1", listed.Sessions[0].Calls)
	}

	destroyed := d.HandleRequest(Request{Op: "session-destroy", SessionID: created.Result})
	if destroyed.Error != "" {
		t.Fatalf("session-destroy: %s", destroyed.Error)
	}
	after := d.HandleRequest(Request{Op: "session-list"})
	if len(after.Sessions) != 0 {
		t.Errorf("sessions after destroy = %+v, want none", after.Sessions)
	}
}

func TestDaemonSessionOpsDisabled(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "session-create", Name: "x"})
	if !strings.Contains(resp.Error, "sessions not enabled") {
		t.Errorf("error = %q, want sessions not enabled", resp.Error)
	}
}

func TestDaemonStats(t *testing.T) {
	journal, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })
	d := newTestDaemon(t, WithJournal(journal))

	ok := d.HandleRequest(Request{
		Op:       "call-capability",
		Target:   "digest.sha256",
		Payloads: []string{hex.EncodeToString([]byte("abc"))},
	})
	if ok.Error != "" {
		t.Fatalf("call-capability: %s", ok.Error)
	}
	// Wrong arity fails inside the registry and is journaled as a failure.
	bad := d.HandleRequest(Request{
		Op:       "call-capability",
		Target:   "digest.sha256",
		Payloads: []string{"00", "11"},
	})
	if bad.Error == "" {
		t.Fatal("two-argument digest call succeeded")
	}

	resp := d.HandleRequest(Request{Op: "stats"})
	if resp.Error != "" {
		t.Fatalf("stats: %s", resp.Error)
	}
	if len(resp.Stats) != 1 {
		t.Fatalf("Stats = %+v, want one target", resp.Stats)
	}
	ts := resp.Stats[0]
	if ts.Target != "digest.sha256" || ts.Calls != 2 || ts.Failures != 1 {
		t.Errorf("stats = %+v, want digest.sha256 with 2 calls and 1 failure", ts)
	}
}

func TestDaemonStatsDisabled(t *testing.T) {
	d := newTestDaemon(t)

	resp := d.HandleRequest(Request{Op: "stats"})
	if !strings.Contains(resp.Error, "journal not enabled") {
		t.Errorf("error = %q, want journal not enabled", resp.Error)
	}
}

func TestDaemonStartupSnapshot(t *testing.T) {
	journal, err := OpenJournal("")
	if err != nil {
		t.Fatalf("OpenJournal: %v", err)
	}
	t.Cleanup(func() { journal.Close() })
	newTestDaemon(t, WithJournal(journal))

	snap, err := journal.LastSnapshot()
	if err != nil {
		t.Fatalf("LastSnapshot: %v", err)
	}
	if len(snap.Builtins) == 0 {
		t.Error("startup snapshot lists no capabilities")
	}
}
