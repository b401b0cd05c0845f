// Command warmcli is the thin client for the persistent command server: it
// hands its stdio and argv to a running warmclid over a UNIX socket,
// spawning the daemon on first use, and falls back to exec'ing the real aws
// tool directly if the daemon cannot be reached in time.
package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/antigravity-dev/warmcli/internal/server"
)

const (
	spawnWaitAttempts = 10
	spawnWaitInterval = 100 * time.Millisecond
)

func main() {
	os.Exit(run())
}

func run() int {
	sockPath := socketPath()

	if err := dispatch(sockPath, os.Args[1:]); err == nil {
		return lastExitCode
	}

	if spawnDaemon(sockPath) {
		if err := dispatch(sockPath, os.Args[1:]); err == nil {
			return lastExitCode
		}
	}

	return execRealTool(os.Args[1:])
}

// lastExitCode carries the exit code returned by a successful dispatch; it
// exists because dispatch communicates failure via error but success via a
// plain int, and main needs both without an extra return tuple squeezed
// through os.Exit's call site.
var lastExitCode int

func socketPath() string {
	if v := os.Getenv("AWS_CLI_SOCKET"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/warmclid.sock"
	}
	return filepath.Join(home, ".aws", "cli", "command_server.sock")
}

// dispatch connects to the daemon, hands over this process's real
// stdin/stdout/stderr as ancillary-data file descriptors (so the worker can
// dup them individually onto its own fds 0/1/2, leaving stdout and stderr
// distinguishable and isatty()-correct), then sends the JSON request frame
// over the same connection and reads back the PID header and, at the end,
// the plain ASCII exit code. The connection never carries any of the
// invoked command's own output — that goes straight to the passed FDs.
func dispatch(sockPath string, argv []string) error {
	addr, err := net.ResolveUnixAddr("unix", sockPath)
	if err != nil {
		return fmt.Errorf("warmcli: resolve socket: %w", err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return fmt.Errorf("warmcli: dial socket: %w", err)
	}
	defer conn.Close()

	if err := server.SendFDs(conn, []int{int(os.Stdin.Fd()), int(os.Stdout.Fd()), int(os.Stderr.Fd())}); err != nil {
		return fmt.Errorf("warmcli: send stdio fds: %w", err)
	}

	frame, err := buildRequestFrame(argv)
	if err != nil {
		return fmt.Errorf("warmcli: build request: %w", err)
	}
	if _, err := conn.Write(frame); err != nil {
		return fmt.Errorf("warmcli: write request: %w", err)
	}

	var pidBuf [8]byte
	if _, err := readFull(conn, pidBuf[:]); err != nil {
		return fmt.Errorf("warmcli: read worker pid: %w", err)
	}
	pid := int(le64(pidBuf[:]))
	if pid == 0 {
		return fmt.Errorf("warmcli: server could not service request")
	}

	code, err := readExitCode(conn)
	if err != nil {
		return fmt.Errorf("warmcli: read exit code: %w", err)
	}
	lastExitCode = code
	return nil
}

// readExitCode reads the worker's trailing ASCII decimal exit code, the
// only thing left on this connection once the command's own FDs have
// carried its actual output.
func readExitCode(conn net.Conn) (int, error) {
	var trailer []byte
	buf := make([]byte, 32)
	for {
		n, err := conn.Read(buf)
		trailer = append(trailer, buf[:n]...)
		if err != nil {
			break
		}
	}

	code, convErr := strconv.Atoi(strings.TrimSpace(string(trailer)))
	if convErr != nil {
		return 0, fmt.Errorf("parse exit code %q: %w", trailer, convErr)
	}
	return code, nil
}

func buildRequestFrame(argv []string) ([]byte, error) {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) == 2 {
			env[parts[0]] = parts[1]
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getwd: %w", err)
	}

	elements := make([]any, 0, 2+len(argv))
	elements = append(elements, env, cwd)
	for _, a := range argv {
		elements = append(elements, a)
	}
	body, err := json.Marshal(elements)
	if err != nil {
		return nil, err
	}
	return append(body, '\n'), nil
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func le64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// spawnDaemon starts warmclid detached and waits up to 1s for its socket to
// appear.
func spawnDaemon(sockPath string) bool {
	execPath, err := os.Executable()
	if err != nil {
		return false
	}
	daemonPath := filepath.Join(filepath.Dir(execPath), "warmclid")
	if _, err := os.Stat(daemonPath); err != nil {
		daemonPath = "warmclid"
	}

	cmd := exec.Command(daemonPath)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	cmd.Stdin, cmd.Stdout, cmd.Stderr = nil, nil, nil
	if err := cmd.Start(); err != nil {
		return false
	}
	_ = cmd.Process.Release()

	for i := 0; i < spawnWaitAttempts; i++ {
		if _, err := os.Stat(sockPath); err == nil {
			return true
		}
		time.Sleep(spawnWaitInterval)
	}
	return false
}

// execRealTool execs the real aws tool directly, found via a PATH search
// that excludes this binary itself (matched by device+inode, so a
// wrapper named "aws" doesn't recurse into itself).
func execRealTool(argv []string) int {
	self, err := os.Executable()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warmcli: cannot resolve own path:", err)
		return 1
	}
	selfInfo, err := os.Stat(self)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warmcli: cannot stat own path:", err)
		return 1
	}

	target, err := findRealTool("aws", selfInfo)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warmcli:", err)
		return 1
	}

	fullArgv := append([]string{target}, argv...)
	if err := syscall.Exec(target, fullArgv, os.Environ()); err != nil {
		fmt.Fprintln(os.Stderr, "warmcli: exec real tool:", err)
		return 1
	}
	return 0 // unreachable: syscall.Exec only returns on error
}

func findRealTool(name string, self os.FileInfo) (string, error) {
	pathEnv := os.Getenv("PATH")
	for _, dir := range strings.Split(pathEnv, string(os.PathListSeparator)) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, name)
		info, err := os.Stat(candidate)
		if err != nil || info.IsDir() {
			continue
		}
		if os.SameFile(info, self) {
			continue
		}
		return candidate, nil
	}
	return "", fmt.Errorf("no %q found on PATH other than this wrapper", name)
}
