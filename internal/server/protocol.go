// Package server implements the persistent command server: a forking,
// re-exec'd UNIX-socket daemon with a pooled worker supervisor, idle
// reaping, FD-passing between client and worker, and a loopback stats
// endpoint.
package server

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net"
)

// Request is the decoded client-to-server frame: an environment map, the
// client's working directory, and the command's argv.
type Request struct {
	Env  map[string]string
	Cwd  string
	Argv []string
}

// DecodeRequest parses a client request frame: `[env_map, cwd_string, arg0,
// arg1, …]`.
func DecodeRequest(data []byte) (*Request, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("server: decode request: %w", err)
	}
	if len(raw) < 2 {
		return nil, fmt.Errorf("server: request frame too short: need env and cwd, got %d elements", len(raw))
	}

	var env map[string]string
	if err := json.Unmarshal(raw[0], &env); err != nil {
		return nil, fmt.Errorf("server: request env must be a map: %w", err)
	}

	var cwd string
	if err := json.Unmarshal(raw[1], &cwd); err != nil {
		return nil, fmt.Errorf("server: request cwd must be a string: %w", err)
	}

	argv := make([]string, 0, len(raw)-2)
	for _, r := range raw[2:] {
		var arg string
		if err := json.Unmarshal(r, &arg); err != nil {
			return nil, fmt.Errorf("server: request argv element must be a string: %w", err)
		}
		argv = append(argv, arg)
	}

	return &Request{Env: env, Cwd: cwd, Argv: argv}, nil
}

// IsReloadCommand reports whether argv is the special
// ".start-command-server /reload" directive.
func (r *Request) IsReloadCommand() bool {
	return len(r.Argv) >= 2 && r.Argv[0] == ".start-command-server" && r.Argv[1] == "/reload"
}

// WritePID writes the worker's PID as an 8-byte native-width little-endian
// unsigned integer, the first thing sent back to the client after a worker
// has been assigned.
func WritePID(conn net.Conn, pid int) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(pid))
	_, err := conn.Write(buf[:])
	if err != nil {
		return fmt.Errorf("server: write pid: %w", err)
	}
	return nil
}

// WriteExitCode writes the ASCII decimal exit code at request completion.
// The command's own stdout/stderr never touch this connection — the client
// hands those over as real FDs via SendFDs, so this control channel only
// ever carries the PID, the request frame, and this trailing exit code.
func WriteExitCode(conn net.Conn, code int) error {
	_, err := fmt.Fprintf(conn, "%d", code)
	if err != nil {
		return fmt.Errorf("server: write exit code: %w", err)
	}
	return nil
}

// unrecoverableFailurePID is sent when the server cannot service a request
// at all; the client falls back to exec'ing the real tool directly.
const unrecoverableFailurePID = 0
