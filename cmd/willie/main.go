// willie is the command-line client for the bridge daemon. Each
// invocation sends one request over the daemon's Unix socket and
// prints the response.
package main

import (
	"bufio"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/chazu/willie/server"
)

var (
	socketPath = flag.String("socket", "/tmp/willied.sock", "Daemon socket path")
	sessionID  = flag.String("session", "", "Session ID to attach to the request")
	timeout    = flag.Int("timeout", 30, "Request timeout in seconds")
	limit      = flag.Int("limit", 5, "Maximum search hits")
	keywords   = flag.String("keywords", "", "Comma-separated keywords for register")
	rawOutput  = flag.Bool("raw", false, "Write fetched buffer bytes instead of hex")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: willie [options] <op> [args...]\n\n")
		fmt.Fprintf(os.Stderr, "Operations:\n")
		fmt.Fprintf(os.Stderr, "  store <hex|->                 Store a buffer (- reads raw bytes from stdin)\n")
		fmt.Fprintf(os.Stderr, "  fetch <handle>                Print a buffer's contents\n")
		fmt.Fprintf(os.Stderr, "  release <handle>              Release a buffer\n")
		fmt.Fprintf(os.Stderr, "  load <library> [path]         Load a native library\n")
		fmt.Fprintf(os.Stderr, "  register <library> <signature> [description...]\n")
		fmt.Fprintf(os.Stderr, "  call <target> [words...]      Dispatch by name or description\n")
		fmt.Fprintf(os.Stderr, "  cap <name> [hex...]           Call a built-in capability directly\n")
		fmt.Fprintf(os.Stderr, "  search <query...>             Search functions and capabilities\n")
		fmt.Fprintf(os.Stderr, "  synonyms <term>               Expand a search term\n")
		fmt.Fprintf(os.Stderr, "  status | stats                Daemon status / call statistics\n")
		fmt.Fprintf(os.Stderr, "  sessions | session-new [name] | session-rm <id>\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  willie store deadbeef\n")
		fmt.Fprintf(os.Stderr, "  willie call \"shrink this data\" 1\n")
		fmt.Fprintf(os.Stderr, "  willie register zlib \"uint32 crc32(uint32, buffer, uint64)\" CRC-32 checksum\n")
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	req, err := buildRequest(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "willie: %v\n", err)
		os.Exit(2)
	}
	if req.SessionID == "" {
		req.SessionID = *sessionID
	}

	resp, err := send(*socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "willie: %v\n", err)
		os.Exit(1)
	}
	if resp.Error != "" {
		fmt.Fprintf(os.Stderr, "willie: %s\n", resp.Error)
		code := resp.ExitCode
		if code == 0 {
			code = 1
		}
		os.Exit(code)
	}

	printResponse(args[0], resp)
}

func buildRequest(args []string) (server.Request, error) {
	op := args[0]
	rest := args[1:]

	switch op {
	case "store":
		if len(rest) != 1 {
			return server.Request{}, fmt.Errorf("usage: store <hex|->")
		}
		data := rest[0]
		if data == "-" {
			raw, err := io.ReadAll(os.Stdin)
			if err != nil {
				return server.Request{}, fmt.Errorf("reading stdin: %w", err)
			}
			data = hex.EncodeToString(raw)
		}
		return server.Request{Op: "store", Data: data}, nil

	case "fetch", "release":
		if len(rest) != 1 {
			return server.Request{}, fmt.Errorf("usage: %s <handle>", op)
		}
		return server.Request{Op: op, Handle: rest[0]}, nil

	case "load":
		if len(rest) < 1 || len(rest) > 2 {
			return server.Request{}, fmt.Errorf("usage: load <library> [path]")
		}
		req := server.Request{Op: "load", Library: rest[0]}
		if len(rest) == 2 {
			req.Path = rest[1]
		}
		return req, nil

	case "register":
		if len(rest) < 2 {
			return server.Request{}, fmt.Errorf("usage: register <library> <signature> [description...]")
		}
		req := server.Request{
			Op:          "register",
			Library:     rest[0],
			Signature:   rest[1],
			Description: strings.Join(rest[2:], " "),
		}
		if *keywords != "" {
			req.Keywords = strings.Split(*keywords, ",")
		}
		return req, nil

	case "call":
		if len(rest) < 1 {
			return server.Request{}, fmt.Errorf("usage: call <target> [words...]")
		}
		return server.Request{Op: "call", Target: rest[0], Args: rest[1:]}, nil

	case "cap":
		if len(rest) < 1 {
			return server.Request{}, fmt.Errorf("usage: cap <name> [hex...]")
		}
		return server.Request{Op: "call-capability", Target: rest[0], Payloads: rest[1:]}, nil

	case "search", "search-top":
		if len(rest) < 1 {
			return server.Request{}, fmt.Errorf("usage: %s <query...>", op)
		}
		return server.Request{Op: op, Target: strings.Join(rest, " "), Limit: *limit}, nil

	case "synonyms":
		if len(rest) != 1 {
			return server.Request{}, fmt.Errorf("usage: synonyms <term>")
		}
		return server.Request{Op: "synonyms", Term: rest[0]}, nil

	case "status", "stats":
		return server.Request{Op: op}, nil

	case "sessions":
		return server.Request{Op: "session-list"}, nil

	case "session-new":
		req := server.Request{Op: "session-create"}
		if len(rest) > 0 {
			req.Name = strings.Join(rest, " ")
		}
		return req, nil

	case "session-rm":
		if len(rest) != 1 {
			return server.Request{}, fmt.Errorf("usage: session-rm <id>")
		}
		return server.Request{Op: "session-destroy", SessionID: rest[0]}, nil

	default:
		return server.Request{}, fmt.Errorf("unknown operation %q", op)
	}
}

// send delivers one request and reads one response line.
func send(socketPath string, req server.Request) (*server.Response, error) {
	wait := time.Duration(*timeout) * time.Second

	conn, err := net.DialTimeout("unix", socketPath, wait)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w (is willied running?)", socketPath, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(wait))

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var resp server.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return &resp, nil
}

func printResponse(op string, resp *server.Response) {
	switch {
	case resp.Status != nil:
		fmt.Printf("Uptime: %s\n", resp.Status.Uptime)
		fmt.Printf("Capabilities: %d\n", resp.Status.Capabilities)
		fmt.Printf("Functions: %d\n", resp.Status.Functions)
		if len(resp.Status.Libraries) > 0 {
			fmt.Printf("Libraries: %s\n", strings.Join(resp.Status.Libraries, ", "))
		}
		if len(resp.Status.Remotes) > 0 {
			fmt.Printf("Remotes: %s\n", strings.Join(resp.Status.Remotes, ", "))
		}
		fmt.Printf("Buffers: %d\n", resp.Status.Buffers)

	case op == "stats":
		if len(resp.Stats) == 0 {
			fmt.Println("No calls journaled")
			return
		}
		fmt.Printf("%-32s %8s %8s %12s\n", "TARGET", "CALLS", "FAILED", "AVG")
		for _, ts := range resp.Stats {
			fmt.Printf("%-32s %8d %8d %10.1fus\n", ts.Target, ts.Calls, ts.Failures, ts.AvgMicros)
		}

	case op == "search" || op == "search-top":
		if len(resp.Hits) == 0 {
			fmt.Println("No matches")
			return
		}
		for _, h := range resp.Hits {
			fmt.Printf("%5.2f  %-28s %-8s %s\n", h.Score, h.Name, h.Kind, h.Description)
		}

	case op == "sessions" || op == "session-new":
		for _, s := range resp.Sessions {
			name := s.Name
			if name == "" {
				name = "-"
			}
			fmt.Printf("%s  %-16s calls=%d last-seen=%s\n", s.ID, name, s.Calls, s.LastSeen)
		}

	case op == "synonyms":
		fmt.Printf("primary: %s\n", resp.Result)
		fmt.Printf("terms: %s\n", strings.Join(resp.Terms, ", "))

	case resp.Data != "":
		if *rawOutput {
			raw, err := hex.DecodeString(resp.Data)
			if err != nil {
				fmt.Fprintf(os.Stderr, "willie: corrupt response payload: %v\n", err)
				os.Exit(1)
			}
			os.Stdout.Write(raw)
			return
		}
		fmt.Println(resp.Data)

	case resp.Result != "":
		fmt.Println(resp.Result)

	default:
		fmt.Println("ok")
	}
}
