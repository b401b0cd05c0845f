package server

import (
	"bufio"
	"fmt"
	"log/slog"
	"net"
	"os"
	"syscall"
	"time"
)

// Worker services requests dispatched to it by the supervisor over a
// socketpair, one at a time. It owns the three duplicated stdio FDs for the
// duration of each request and restores them when done.
type Worker struct {
	dispatchConn  *net.UnixConn
	inactivityTTL time.Duration
	log           *slog.Logger

	// Handle runs one decoded request to completion and returns its exit
	// code. It is invoked with stdin/stdout/stderr already dup'd onto 0/1/2
	// and the working directory and environment already swapped in.
	Handle func(req *Request) int
}

// NewWorker wraps dispatchFD (fd 3 inherited from the supervisor, per
// cmd.ExtraFiles convention) as the worker's dispatch connection.
func NewWorker(dispatchFD *os.File, inactivityTTL time.Duration, log *slog.Logger) (*Worker, error) {
	conn, err := net.FileConn(dispatchFD)
	if err != nil {
		return nil, fmt.Errorf("server: wrap dispatch fd: %w", err)
	}
	unixConn, ok := conn.(*net.UnixConn)
	if !ok {
		conn.Close()
		return nil, fmt.Errorf("server: dispatch fd is not a unix socket")
	}
	return &Worker{dispatchConn: unixConn, inactivityTTL: inactivityTTL, log: log}, nil
}

// Run calls setsid() and then loops: block-read one client fd from the
// dispatch socket with an inactivity timeout, service the request, repeat.
// It returns when the dispatch socket reaches EOF or the inactivity timeout
// fires.
func (w *Worker) Run() {
	if _, err := syscall.Setsid(); err != nil {
		w.log.Warn("setsid failed", "error", err)
	}

	for {
		w.dispatchConn.SetReadDeadline(time.Now().Add(w.inactivityTTL))

		// [0] is the client's control connection (request frame in, exit
		// code out); [1:4] are the client's own stdin/stdout/stderr,
		// handed over by the supervisor exactly as the client sent them.
		files, err := RecvFDs(w.dispatchConn, 4)
		if err != nil {
			w.log.Info("worker exiting", "reason", err)
			return
		}

		w.serviceOne(files[0], files[1], files[2], files[3])
	}
}

func (w *Worker) serviceOne(clientFile, stdin, stdout, stderr *os.File) {
	conn, err := net.FileConn(clientFile)
	if err != nil {
		w.log.Error("wrap client fd", "error", err)
		clientFile.Close()
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return
	}
	defer conn.Close()
	defer stdin.Close()
	defer stdout.Close()
	defer stderr.Close()
	unixConn, _ := conn.(*net.UnixConn)

	done := make(chan struct{})
	go w.watchLiveness(unixConn, done)
	defer close(done)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	if err != nil {
		w.log.Warn("read request frame", "error", err)
		return
	}

	req, err := DecodeRequest(line)
	if err != nil {
		w.log.Warn("decode request", "error", err)
		WriteExitCode(conn, 1)
		return
	}

	if req.IsReloadCommand() {
		syscall.Kill(os.Getppid(), syscall.SIGUSR1)
		WriteExitCode(conn, 0)
		return
	}

	exitCode := w.runScoped(req, stdin, stdout, stderr)
	WriteExitCode(conn, exitCode)
}

// watchLiveness blocks in a read on the client socket while a request is
// being serviced; if the client closes before the worker finishes, it sends
// SIGTERM to this process, followed one second later by a hard exit. This
// enforces client-cancellation semantics: a client that disconnects takes
// its in-flight work down with it.
func (w *Worker) watchLiveness(conn *net.UnixConn, done <-chan struct{}) {
	if conn == nil {
		return
	}

	buf := make([]byte, 1)
	readDone := make(chan struct{})
	go func() {
		conn.Read(buf)
		close(readDone)
	}()

	select {
	case <-done:
		return
	case <-readDone:
		w.log.Info("client disconnected mid-request, terminating")
		syscall.Kill(os.Getpid(), syscall.SIGTERM)
		time.AfterFunc(time.Second, func() { os.Exit(1) })
	}
}

// runScoped installs a scoped environment replacement and chdir, dups the
// client's own stdin/stdout/stderr FDs individually onto 0/1/2 (restoring
// the originals on return), and runs the request handler. Because each
// stream is the client's real FD rather than a shared socket, the invoked
// command's stdout and stderr stay distinguishable and isatty() checks
// against them reflect the client's actual terminal, not the daemon's.
func (w *Worker) runScoped(req *Request, stdin, stdout, stderr *os.File) (exitCode int) {
	savedEnviron := os.Environ()
	savedWD, _ := os.Getwd()

	defer func() {
		os.Clearenv()
		for _, kv := range savedEnviron {
			for i := 0; i < len(kv); i++ {
				if kv[i] == '=' {
					os.Setenv(kv[:i], kv[i+1:])
					break
				}
			}
		}
		if savedWD != "" {
			os.Chdir(savedWD)
		}
	}()

	os.Clearenv()
	for k, v := range req.Env {
		os.Setenv(k, v)
	}
	if req.Cwd != "" {
		if err := os.Chdir(req.Cwd); err != nil {
			w.log.Warn("chdir to request cwd", "cwd", req.Cwd, "error", err)
		}
	}

	savedStdin, err1 := DupOver(stdin, 0)
	savedStdout, err2 := DupOver(stdout, 1)
	savedStderr, err3 := DupOver(stderr, 2)
	defer func() {
		if savedStdin != nil {
			RestoreFD(savedStdin, 0)
		}
		if savedStdout != nil {
			RestoreFD(savedStdout, 1)
		}
		if savedStderr != nil {
			RestoreFD(savedStderr, 2)
		}
	}()
	if err1 != nil || err2 != nil || err3 != nil {
		w.log.Error("dup stdio onto client fd", "error", firstNonNil(err1, err2, err3))
		return 1
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "panic handling request: %v\n", r)
			exitCode = 1
		}
	}()

	return w.Handle(req)
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
