// willied is the bridge daemon. It loads native libraries and built-in
// capabilities per willie.toml, then serves the line-delimited JSON
// protocol on a Unix socket or stdin.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/willie/manifest"
	"github.com/chazu/willie/server"
)

// Default socket path when not specified
const defaultSocketPath = "/tmp/willied.sock"

var (
	socketPath    = flag.String("socket", "", "Unix socket path (enables socket mode)")
	idleTimeout   = flag.Int("idle-timeout", 0, "Idle timeout in seconds (socket mode only, 0 = no timeout)")
	manifestDir   = flag.String("manifest", "", "Directory containing willie.toml (default: walk up from cwd)")
	sessionsDB    = flag.String("sessions-db", "", "Session database path (default: ~/.willie/sessions.db, 'off' disables)")
	journalDB     = flag.String("journal-db", "", "Call journal path (default: ~/.willie/journal.duckdb, 'off' disables)")
	verbosity     = flag.Int("verbose", 0, "Log verbosity (0 = quiet)")
	showStatus    = flag.Bool("status", false, "Show daemon status (running/stopped, PID) and exit")
	killDaemon    = flag.Bool("kill", false, "Kill the running daemon and exit")
	restartDaemon = flag.Bool("restart", false, "Restart the daemon (kill existing + start new)")
)

func main() {
	flag.Parse()
	commonlog.Configure(*verbosity, nil)

	// Determine socket path for management commands
	sock := *socketPath
	if sock == "" {
		sock = defaultSocketPath
	}
	pidFile := sock + ".pid"

	// Handle -status and -kill commands (don't start the daemon)
	if *showStatus {
		handleStatus(sock, pidFile)
		return
	}
	if *killDaemon {
		handleKill(sock, pidFile)
		return
	}

	// Handle -restart: kill the existing daemon silently, then start fresh
	// on the socket it was serving.
	if *restartDaemon {
		handleKillSilent(sock, pidFile)
		*socketPath = sock
	}

	m, err := loadManifest()
	if err != nil {
		fmt.Fprintf(os.Stderr, "willied: %v\n", err)
		os.Exit(1)
	}

	b, err := manifest.Build(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "willied: %v\n", err)
		os.Exit(1)
	}
	defer b.Close()

	opts := []server.DaemonOption{
		server.WithIdleTimeout(time.Duration(*idleTimeout) * time.Second),
	}

	if path := statePath(*sessionsDB, "sessions.db"); path != "" {
		sessions, err := server.OpenSessionStore(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "willied: %v\n", err)
			os.Exit(1)
		}
		defer sessions.Close()
		opts = append(opts, server.WithSessions(sessions))
	}
	if path := statePath(*journalDB, "journal.duckdb"); path != "" {
		journal, err := server.OpenJournal(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "willied: %v\n", err)
			os.Exit(1)
		}
		defer journal.Close()
		opts = append(opts, server.WithJournal(journal))
	}

	d := server.NewDaemon(b, opts...)

	if *socketPath != "" {
		err = d.RunSocket(*socketPath)
	} else {
		err = d.RunStdin()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "willied: %v\n", err)
		os.Exit(1)
	}
}

// loadManifest loads willie.toml from -manifest or by walking up from
// the working directory. A missing manifest is not an error; the daemon
// starts with the standard capabilities only.
func loadManifest() (*manifest.Manifest, error) {
	if *manifestDir != "" {
		dir := *manifestDir
		if strings.HasSuffix(dir, ".toml") {
			dir = filepath.Dir(dir)
		}
		return manifest.Load(dir)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil
	}
	return manifest.FindAndLoad(cwd)
}

// statePath resolves a state file path. Empty means the default under
// ~/.willie; "off" disables the store.
func statePath(flagValue, name string) string {
	if flagValue == "off" {
		return ""
	}
	if flagValue != "" {
		return flagValue
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".willie")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ""
	}
	return filepath.Join(dir, name)
}

// handleStatus shows daemon status and exits
func handleStatus(socketPath, pidFile string) {
	pidBytes, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Println("Status: stopped")
		fmt.Println("PID: none")
		fmt.Printf("Socket: %s (not found)\n", socketPath)
		return
	}

	pid := strings.TrimSpace(string(pidBytes))
	pidInt, err := strconv.Atoi(pid)
	if err != nil {
		fmt.Println("Status: stopped (invalid PID file)")
		fmt.Printf("PID file: %s\n", pidFile)
		return
	}

	process, err := os.FindProcess(pidInt)
	if err != nil {
		fmt.Println("Status: stopped")
		fmt.Printf("PID: %d (not found)\n", pidInt)
		return
	}

	// On Unix, FindProcess always succeeds - need to send signal 0 to check
	if err := process.Signal(syscall.Signal(0)); err != nil {
		fmt.Println("Status: stopped")
		fmt.Printf("PID: %d (not running)\n", pidInt)
		return
	}

	fmt.Println("Status: running")
	fmt.Printf("PID: %d\n", pidInt)
	fmt.Printf("Socket: %s\n", socketPath)

	// Ask the daemon itself for registry counts
	if status := queryStatus(socketPath); status != nil {
		fmt.Printf("Uptime: %s\n", status.Uptime)
		fmt.Printf("Capabilities: %d\n", status.Capabilities)
		fmt.Printf("Functions: %d\n", status.Functions)
		if len(status.Libraries) > 0 {
			fmt.Printf("Libraries: %s\n", strings.Join(status.Libraries, ", "))
		}
		if len(status.Remotes) > 0 {
			fmt.Printf("Remotes: %s\n", strings.Join(status.Remotes, ", "))
		}
		fmt.Printf("Buffers: %d\n", status.Buffers)
	}
}

// queryStatus sends a status request over the socket. Returns nil if
// the daemon doesn't answer in time.
func queryStatus(socketPath string) *server.StatusInfo {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return nil
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(2 * time.Second))

	payload, _ := json.Marshal(server.Request{Op: "status"})
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return nil
	}

	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return nil
	}
	var resp server.Response
	if err := json.Unmarshal([]byte(line), &resp); err != nil {
		return nil
	}
	return resp.Status
}

// handleKill stops the running daemon and exits
func handleKill(socketPath, pidFile string) {
	pidBytes, err := os.ReadFile(pidFile)
	if err != nil {
		fmt.Println("No daemon running (PID file not found)")
		return
	}

	pid := strings.TrimSpace(string(pidBytes))
	pidInt, err := strconv.Atoi(pid)
	if err != nil {
		fmt.Printf("Invalid PID file: %s\n", pidFile)
		os.Remove(pidFile)
		return
	}

	process, err := os.FindProcess(pidInt)
	if err != nil {
		fmt.Printf("Process %d not found\n", pidInt)
		os.Remove(pidFile)
		os.Remove(socketPath)
		return
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		fmt.Printf("Failed to kill process %d: %v\n", pidInt, err)
		// Clean up stale files anyway
		os.Remove(pidFile)
		os.Remove(socketPath)
		return
	}

	// Wait briefly for the process to exit
	time.Sleep(100 * time.Millisecond)

	os.Remove(pidFile)
	os.Remove(socketPath)

	fmt.Printf("Killed daemon (PID %d)\n", pidInt)
}

// handleKillSilent stops the running daemon without output (for -restart)
func handleKillSilent(socketPath, pidFile string) {
	pidBytes, err := os.ReadFile(pidFile)
	if err != nil {
		// No daemon running, nothing to kill
		return
	}

	pid := strings.TrimSpace(string(pidBytes))
	pidInt, err := strconv.Atoi(pid)
	if err != nil {
		os.Remove(pidFile)
		return
	}

	process, err := os.FindProcess(pidInt)
	if err != nil {
		os.Remove(pidFile)
		os.Remove(socketPath)
		return
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		// Process may already be dead
		os.Remove(pidFile)
		os.Remove(socketPath)
		return
	}

	// Wait up to 2 seconds for the process to exit
	for i := 0; i < 20; i++ {
		time.Sleep(100 * time.Millisecond)
		if err := process.Signal(syscall.Signal(0)); err != nil {
			break
		}
	}

	os.Remove(pidFile)
	os.Remove(socketPath)
}
