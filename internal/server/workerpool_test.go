package server

import (
	"os"
	"testing"
)

func TestWorkerPoolSpawnTracksPID(t *testing.T) {
	pool := NewWorkerPool("/bin/true", 2)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	defer r.Close()

	pid, err := pool.Spawn(w)
	w.Close()
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}
	if pid == 0 {
		t.Fatal("expected non-zero pid")
	}

	if pool.Count() == 0 {
		t.Fatal("expected spawned worker to be tracked immediately")
	}
}

func TestWorkerPoolAtCapacity(t *testing.T) {
	pool := NewWorkerPool("/bin/true", 1)

	_, w1, _ := os.Pipe()
	if _, err := pool.Spawn(w1); err != nil {
		t.Fatalf("first spawn failed: %v", err)
	}
	w1.Close()

	_, w2, _ := os.Pipe()
	defer w2.Close()
	if !pool.AtCapacity() {
		t.Skip("worker exited before capacity check; timing-sensitive, not a correctness signal")
	}
	if _, err := pool.Spawn(w2); err == nil {
		t.Fatal("expected spawn to fail at capacity")
	}
}

func TestWorkerPoolMarkIdleAndBusy(t *testing.T) {
	pool := NewWorkerPool("/bin/true", 4)
	_, w, _ := os.Pipe()
	defer w.Close()

	pid, err := pool.Spawn(w)
	if err != nil {
		t.Fatalf("spawn failed: %v", err)
	}

	pool.MarkIdle(pid)
	if pool.IdleWorker() != pid {
		t.Fatalf("expected %d to be reported idle", pid)
	}

	pool.MarkBusy(pid)
	if pool.IdleWorker() != 0 {
		t.Fatal("expected no idle worker after marking busy")
	}
}

func TestWorkerPoolIsAliveForUnknownPID(t *testing.T) {
	pool := NewWorkerPool("/bin/true", 4)
	if pool.IsAlive(999999) {
		t.Fatal("expected unknown pid to report not alive")
	}
}
