package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StatsServer exposes a read-only diagnostic HTTP surface over a loopback
// or unix-socket address: worker counts, uptime, and nothing requiring
// authentication, since the bind address is never reachable off-host.
type StatsServer struct {
	pool      *WorkerPool
	startedAt time.Time
	log       *slog.Logger

	httpServer *http.Server
}

// NewStatsServer builds a StatsServer bound to addr. addr may be a
// host:port loopback address or a filesystem path for a unix socket.
func NewStatsServer(addr string, pool *WorkerPool, log *slog.Logger) *StatsServer {
	s := &StatsServer{pool: pool, startedAt: time.Now(), log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/workers", s.handleWorkers)

	s.httpServer = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start listens and serves until ctx is cancelled or the server is closed.
// network is "tcp" for a host:port addr or "unix" for a socket path.
func (s *StatsServer) Start(ctx context.Context, network string) error {
	listener, err := net.Listen(network, s.httpServer.Addr)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		s.httpServer.Close()
	}()

	err = s.httpServer.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the stats HTTP server down immediately.
func (s *StatsServer) Close() error {
	return s.httpServer.Close()
}

func (s *StatsServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"uptime_seconds": time.Since(s.startedAt).Seconds(),
		"worker_count":   s.pool.Count(),
	})
}

func (s *StatsServer) handleWorkers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"pids": s.pool.PIDs(),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeError(w, http.StatusInternalServerError, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
