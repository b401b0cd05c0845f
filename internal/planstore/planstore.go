// Package planstore persists resolved argument-discovery plans across
// daemon restarts so a cold worker doesn't have to re-run best-first search
// for a key it has already solved.
package planstore

import (
	"database/sql"
	"fmt"
	"hash/fnv"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS plans (
	cache_key   TEXT PRIMARY KEY,
	service     TEXT NOT NULL,
	method      TEXT NOT NULL,
	output_path TEXT NOT NULL,
	sdk_version TEXT NOT NULL,
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_plans_service ON plans(service);
`

// Store is a SQLite-backed cache of resolved plans, keyed by service,
// calling method, and requested key.
type Store struct {
	db         *sql.DB
	ttl        time.Duration
	sdkVersion string
}

// Open opens (creating if necessary) the SQLite database at path and runs
// its migration. ttl is the maximum age of a cached entry before it is
// treated as a miss; sdkVersion is stamped onto every write and checked on
// read, so a daemon rebuilt against a newer SDK never serves stale shapes.
func Open(path string, ttl time.Duration, sdkVersion string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("planstore: open %s: %w", path, err)
	}

	s := &Store{db: db, ttl: ttl, sdkVersion: sdkVersion}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("planstore: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Key derives a deterministic cache key from a service name, a calling
// method name, and the requested key string.
func Key(service, method, requestedKey string) string {
	h := fnv.New64a()
	h.Write([]byte(service))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(requestedKey))
	return fmt.Sprintf("%016x", h.Sum64())
}

// Plan is a cached resolution outcome: which method, against which output
// path, answered a given key.
type Plan struct {
	Service    string
	Method     string
	OutputPath string
}

// Lookup returns the cached plan for cacheKey, or ok=false on a miss
// (not found, expired, or stamped with a different SDK version).
func (s *Store) Lookup(cacheKey string) (Plan, bool, error) {
	row := s.db.QueryRow(
		`SELECT service, method, output_path, sdk_version, created_at FROM plans WHERE cache_key = ?`,
		cacheKey,
	)

	var p Plan
	var sdkVersion string
	var createdAtUnix int64
	if err := row.Scan(&p.Service, &p.Method, &p.OutputPath, &sdkVersion, &createdAtUnix); err != nil {
		if err == sql.ErrNoRows {
			return Plan{}, false, nil
		}
		return Plan{}, false, fmt.Errorf("planstore: lookup %s: %w", cacheKey, err)
	}

	if sdkVersion != s.sdkVersion {
		return Plan{}, false, nil
	}
	if s.ttl > 0 && time.Since(time.Unix(createdAtUnix, 0)) > s.ttl {
		return Plan{}, false, nil
	}

	return p, true, nil
}

// Store persists a resolved plan under cacheKey, overwriting any existing
// entry.
func (s *Store) Store(cacheKey string, p Plan) error {
	_, err := s.db.Exec(
		`INSERT INTO plans (cache_key, service, method, output_path, sdk_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
			service = excluded.service,
			method = excluded.method,
			output_path = excluded.output_path,
			sdk_version = excluded.sdk_version,
			created_at = excluded.created_at`,
		cacheKey, p.Service, p.Method, p.OutputPath, s.sdkVersion, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("planstore: store %s: %w", cacheKey, err)
	}
	return nil
}

// Evict removes a single cached entry, used when a plan is found to have
// gone stale at execution time (e.g. the method it named was removed from
// the service in a newer SDK).
func (s *Store) Evict(cacheKey string) error {
	if _, err := s.db.Exec(`DELETE FROM plans WHERE cache_key = ?`, cacheKey); err != nil {
		return fmt.Errorf("planstore: evict %s: %w", cacheKey, err)
	}
	return nil
}
