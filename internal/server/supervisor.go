package server

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/antigravity-dev/warmcli/internal/lock"
)

// Supervisor owns the listening socket, the worker pool, and the idle
// timer. The accept loop runs on the goroutine that called Start and hands
// each accepted connection to its own goroutine; those goroutines and the
// pool's per-worker reaper goroutines change the live-worker set under the
// pool's mutex. Signals are handled on a separate goroutine.
type Supervisor struct {
	socketPath string
	lockPath   string
	idleTimeout time.Duration

	pool *WorkerPool
	log  *slog.Logger

	listener *net.UnixListener
	lockFile *os.File

	mu       sync.Mutex
	lastAccept time.Time
}

// NewSupervisor builds a Supervisor. execPath is passed through to the
// worker pool so it knows what to re-exec.
func NewSupervisor(socketPath, lockPath, execPath string, maxWorkers int, idleTimeout time.Duration, log *slog.Logger) *Supervisor {
	return &Supervisor{
		socketPath:  socketPath,
		lockPath:    lockPath,
		idleTimeout: idleTimeout,
		pool:        NewWorkerPool(execPath, maxWorkers),
		log:         log,
	}
}

// Start binds the listening socket, refusing to start if the socket path
// already exists, installs signal handlers, and begins the accept loop.
// Start blocks until the supervisor shuts down.
func (s *Supervisor) Start() error {
	if _, err := os.Stat(s.socketPath); err == nil {
		return fmt.Errorf("server: refusing to start, socket already exists: %s", s.socketPath)
	}

	lockFile, err := lock.AcquireFlock(s.lockPath)
	if err != nil {
		return fmt.Errorf("server: acquire instance lock: %w", err)
	}
	s.lockFile = lockFile

	addr, err := net.ResolveUnixAddr("unix", s.socketPath)
	if err != nil {
		lock.ReleaseFlock(s.lockFile)
		return fmt.Errorf("server: resolve socket addr: %w", err)
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		lock.ReleaseFlock(s.lockFile)
		return fmt.Errorf("server: listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	sigCh := make(chan os.Signal, 8)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGCHLD)
	go s.handleSignals(sigCh)

	s.log.Info("supervisor listening", "socket", s.socketPath)
	return s.acceptLoop()
}

func (s *Supervisor) handleSignals(sigCh <-chan os.Signal) {
	for sig := range sigCh {
		switch sig {
		case syscall.SIGTERM:
			s.log.Info("received SIGTERM, shutting down")
			s.Shutdown()
			os.Exit(0)
		case syscall.SIGUSR1:
			s.log.Info("received SIGUSR1, reloading via execve")
			s.reload()
		case syscall.SIGCHLD:
			// Exited worker PIDs are reaped by WorkerPool.reapOnExit via
			// cmd.Wait() in its own goroutine; SIGCHLD itself requires no
			// action here beyond waking any blocked accept() via the signal
			// delivery, which the runtime already handles for us.
		}
	}
}

// reload execve's the supervisor binary in place, inheriting the listening
// socket's file descriptor so in-flight and future connections are not
// dropped during the swap.
func (s *Supervisor) reload() {
	execPath, err := os.Executable()
	if err != nil {
		s.log.Error("reload: resolve executable path", "error", err)
		return
	}

	listenerFile, err := s.listener.File()
	if err != nil {
		s.log.Error("reload: duplicate listener fd", "error", err)
		return
	}
	defer listenerFile.Close()

	env := os.Environ()
	argv := append([]string{execPath}, os.Args[1:]...)

	if err := syscall.Exec(execPath, argv, env); err != nil {
		s.log.Error("reload: execve failed", "error", err)
	}
}

// acceptLoop accepts connections with an idle timeout: the timeout only
// fires when the live-worker set is empty, otherwise the deadline is
// continually pushed out.
func (s *Supervisor) acceptLoop() error {
	for {
		deadline := time.Time{}
		if s.pool.Count() == 0 {
			deadline = time.Now().Add(s.idleTimeout)
		}
		s.listener.SetDeadline(deadline)

		conn, err := s.listener.AcceptUnix()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() && s.pool.Count() == 0 {
				s.log.Info("idle timeout reached with no live workers, shutting down")
				s.Shutdown()
				return nil
			}
			if err == net.ErrClosed {
				return nil
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Supervisor) handleConnection(conn *net.UnixConn) {
	defer conn.Close()

	// The client hands over its real stdin/stdout/stderr via SCM_RIGHTS
	// ancillary data before anything else, so the worker can dup them
	// individually onto its own fds 0/1/2 and the invoked command's
	// output never has to share a wire with this control connection.
	stdio, err := RecvFDs(conn, 3)
	if err != nil {
		s.log.Warn("recv client stdio fds", "error", err)
		return
	}
	defer func() {
		for _, f := range stdio {
			f.Close()
		}
	}()

	pid := s.pool.IdleWorker()
	if pid == 0 {
		dispatchSupervisorEnd, dispatchWorkerEnd, err := newSocketPair()
		if err != nil {
			s.log.Error("create dispatch socketpair", "error", err)
			WritePID(conn, unrecoverableFailurePID)
			return
		}
		defer dispatchSupervisorEnd.Close()

		spawned, err := s.pool.Spawn(dispatchWorkerEnd)
		if err != nil {
			s.log.Error("spawn worker", "error", err)
			WritePID(conn, unrecoverableFailurePID)
			return
		}
		pid = spawned
	}

	if err := WritePID(conn, pid); err != nil {
		s.log.Warn("write pid to client", "error", err)
		return
	}

	s.pool.MarkBusy(pid)
	dispatchConn, ok := unixConnFromFile(s.pool.DispatchFD(pid))
	if !ok {
		s.log.Error("no dispatch fd recorded for worker", "pid", pid)
		return
	}

	clientFile, err := conn.File()
	if err != nil {
		s.log.Error("get client conn file", "error", err)
		return
	}
	defer clientFile.Close()

	fds := []int{int(clientFile.Fd()), int(stdio[0].Fd()), int(stdio[1].Fd()), int(stdio[2].Fd())}
	if err := SendFDs(dispatchConn, fds); err != nil {
		s.log.Error("dispatch client fds to worker", "pid", pid, "error", err)
		return
	}
}

// Pool returns the supervisor's worker pool, for wiring into a StatsServer.
func (s *Supervisor) Pool() *WorkerPool {
	return s.pool
}

// Shutdown closes the listener and releases the instance lock.
func (s *Supervisor) Shutdown() {
	if s.listener != nil {
		s.listener.Close()
		os.Remove(s.socketPath)
	}
	if s.lockFile != nil {
		lock.ReleaseFlock(s.lockFile)
	}
}

func newSocketPair() (supervisorEnd *net.UnixConn, workerEnd *os.File, err error) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("server: socketpair: %w", err)
	}

	f0 := os.NewFile(uintptr(fds[0]), "dispatch-supervisor")
	conn, err := net.FileConn(f0)
	f0.Close()
	if err != nil {
		return nil, nil, fmt.Errorf("server: wrap socketpair fd: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, nil, fmt.Errorf("server: socketpair did not yield a unix conn")
	}

	f1 := os.NewFile(uintptr(fds[1]), "dispatch-worker")
	return unixConn, f1, nil
}

func unixConnFromFile(f *os.File) (*net.UnixConn, bool) {
	if f == nil {
		return nil, false
	}
	conn, err := net.FileConn(f)
	if err != nil {
		return nil, false
	}
	unixConn, ok := conn.(*net.UnixConn)
	return unixConn, ok
}
