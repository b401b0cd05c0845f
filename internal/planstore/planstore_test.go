package planstore

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plans.db")
	s, err := Open(path, ttl, "sdk-v1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAndLookupRoundTrip(t *testing.T) {
	s := openTestStore(t, time.Hour)

	key := Key("s3", "PutObject", "bucket name")
	plan := Plan{Service: "s3", Method: "ListBuckets", OutputPath: "Buckets[].Name"}

	if err := s.Store(key, plan); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	got, ok, err := s.Lookup(key)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a cache hit")
	}
	if got != plan {
		t.Fatalf("got %+v, want %+v", got, plan)
	}
}

func TestLookupMissForUnknownKey(t *testing.T) {
	s := openTestStore(t, time.Hour)

	_, ok, err := s.Lookup("does-not-exist")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected a cache miss")
	}
}

func TestLookupMissOnExpiredEntry(t *testing.T) {
	s := openTestStore(t, time.Nanosecond)

	key := Key("ec2", "RunInstances", "instance id")
	if err := s.Store(key, Plan{Service: "ec2", Method: "DescribeInstances", OutputPath: "Reservations[].Instances[].InstanceId"}); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	_, ok, err := s.Lookup(key)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected expired entry to miss")
	}
}

func TestLookupMissOnSDKVersionMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.db")

	s1, err := Open(path, time.Hour, "sdk-v1")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	key := Key("s3", "PutObject", "bucket name")
	if err := s1.Store(key, Plan{Service: "s3", Method: "ListBuckets", OutputPath: "Buckets[].Name"}); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	s1.Close()

	s2, err := Open(path, time.Hour, "sdk-v2")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	_, ok, err := s2.Lookup(key)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected a miss after SDK version changed")
	}
}

func TestEvictRemovesEntry(t *testing.T) {
	s := openTestStore(t, time.Hour)

	key := Key("s3", "PutObject", "bucket name")
	if err := s.Store(key, Plan{Service: "s3", Method: "ListBuckets", OutputPath: "Buckets[].Name"}); err != nil {
		t.Fatalf("store failed: %v", err)
	}
	if err := s.Evict(key); err != nil {
		t.Fatalf("evict failed: %v", err)
	}

	_, ok, err := s.Lookup(key)
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if ok {
		t.Fatal("expected evicted entry to miss")
	}
}

func TestKeyIsDeterministic(t *testing.T) {
	a := Key("s3", "PutObject", "bucket name")
	b := Key("s3", "PutObject", "bucket name")
	if a != b {
		t.Fatal("expected identical inputs to produce identical keys")
	}

	c := Key("s3", "PutObject", "bucket arn")
	if a == c {
		t.Fatal("expected different inputs to produce different keys")
	}
}
