// Package config loads and validates the warmclid TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "60s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config is the root warmclid configuration, loaded from a single TOML file.
type Config struct {
	Server    Server    `toml:"server"`
	ChangeSet ChangeSet `toml:"changeset"`
	RateLimit RateLimit `toml:"rate_limit"`
	PlanCache PlanCache `toml:"plan_cache"`
	Log       Log       `toml:"log"`
}

// Server controls the supervisor's socket, worker pool, and stats endpoint.
type Server struct {
	// SocketPath is the UNIX domain socket the supervisor listens on.
	SocketPath string `toml:"socket_path"`
	// LockPath guards against two supervisors starting against the same socket.
	LockPath string `toml:"lock_path"`
	// MaxWorkers bounds the number of concurrently re-exec'd worker processes.
	MaxWorkers int `toml:"max_workers"`
	// IdleTimeout is how long the supervisor waits for a new connection while
	// no workers are live before it shuts down.
	IdleTimeout Duration `toml:"idle_timeout"`
	// StatsBind is the loopback address the diagnostic HTTP endpoint listens
	// on. Empty disables the endpoint entirely.
	StatsBind string `toml:"stats_bind"`
}

// ChangeSet holds the preview/gate settings for mutating AWS calls. They are
// defaulted and validated by this package; no other package reads them.
type ChangeSet struct {
	// GateMode is one of "confirm", "always", or "never".
	GateMode string `toml:"gate_mode"`
	// MutatingPrefixes lists CLI verb prefixes treated as change-making
	// (e.g. "create-", "delete-", "put-", "update-").
	MutatingPrefixes []string `toml:"mutating_prefixes"`
}

// RateLimit holds the outbound AWS API call rate settings. They are defaulted
// and validated by this package; no other package reads them, and the
// completion engine builds its executor with fixed limits of its own.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// PlanCache controls the persisted argument-discovery plan cache.
type PlanCache struct {
	// Path is the SQLite database file backing the cache. An empty Path is
	// replaced by ~/.warmcli/plans.db when defaults are applied.
	Path string   `toml:"path"`
	TTL  Duration `toml:"ttl"`
}

// Log controls structured logging output.
type Log struct {
	Level string `toml:"level"`
	// Dev enables a human-readable handler instead of JSON.
	Dev bool `toml:"dev"`
}

// Clone returns a deep copy of cfg so callers can mutate their copy freely.
func (cfg *Config) Clone() *Config {
	if cfg == nil {
		return nil
	}
	out := *cfg
	out.ChangeSet.MutatingPrefixes = cloneStringSlice(cfg.ChangeSet.MutatingPrefixes)
	return &out
}

func cloneStringSlice(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Load reads, defaults, normalizes, and validates a warmclid TOML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)
	normalizePaths(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Reload reads and validates a warmclid TOML configuration file.
//
// This mirrors Load but is intentionally named to reflect runtime refresh paths.
func Reload(path string) (*Config, error) {
	return Load(path)
}

// LoadManager reads config from path and returns an RWMutex-backed thread-safe manager.
func LoadManager(path string) (ConfigManager, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path is required")
	}

	cfg, err := Reload(path)
	if err != nil {
		return nil, err
	}
	return NewRWMutexManager(cfg), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.SocketPath == "" {
		cfg.Server.SocketPath = "~/.aws/cli/command_server.sock"
	}
	if cfg.Server.LockPath == "" {
		cfg.Server.LockPath = "~/.warmcli/daemon.lock"
	}
	if cfg.Server.MaxWorkers <= 0 {
		cfg.Server.MaxWorkers = 8
	}
	if cfg.Server.IdleTimeout.Duration == 0 {
		cfg.Server.IdleTimeout.Duration = 5 * time.Minute
	}

	if cfg.ChangeSet.GateMode == "" {
		cfg.ChangeSet.GateMode = "confirm"
	}
	if len(cfg.ChangeSet.MutatingPrefixes) == 0 {
		cfg.ChangeSet.MutatingPrefixes = []string{
			"create-", "delete-", "put-", "update-", "remove-",
			"terminate-", "attach-", "detach-", "modify-", "run-",
			"start-", "stop-", "reboot-", "associate-", "disassociate-",
		}
	}

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}

	if cfg.PlanCache.Path == "" {
		cfg.PlanCache.Path = "~/.warmcli/plans.db"
	}
	if cfg.PlanCache.TTL.Duration == 0 {
		cfg.PlanCache.TTL.Duration = 24 * time.Hour
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func normalizePaths(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Server.SocketPath = ExpandHome(strings.TrimSpace(cfg.Server.SocketPath))
	cfg.Server.LockPath = ExpandHome(strings.TrimSpace(cfg.Server.LockPath))
	cfg.PlanCache.Path = ExpandHome(strings.TrimSpace(cfg.PlanCache.Path))
}

// isLocalBind checks if a bind address is local (localhost, 127.0.0.1, or unix socket).
func isLocalBind(bind string) bool {
	if bind == "" {
		return true
	}
	if bind[0] == '/' || bind[0] == '@' {
		return true
	}
	if strings.HasPrefix(bind, "localhost:") || strings.HasPrefix(bind, "127.0.0.1:") || strings.HasPrefix(bind, ":") {
		return true
	}
	return false
}

func validate(cfg *Config) error {
	switch cfg.ChangeSet.GateMode {
	case "confirm", "always", "never":
	default:
		return fmt.Errorf("changeset.gate_mode must be one of confirm, always, never, got %q", cfg.ChangeSet.GateMode)
	}

	if cfg.Server.MaxWorkers <= 0 {
		return fmt.Errorf("server.max_workers must be positive")
	}
	if cfg.Server.IdleTimeout.Duration <= 0 {
		return fmt.Errorf("server.idle_timeout must be positive")
	}
	if cfg.Server.StatsBind != "" && !isLocalBind(cfg.Server.StatsBind) {
		return fmt.Errorf("server.stats_bind %q must be a loopback or unix socket address", cfg.Server.StatsBind)
	}

	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("rate_limit.requests_per_second must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.burst must be positive")
	}

	if cfg.PlanCache.TTL.Duration < 0 {
		return fmt.Errorf("plan_cache.ttl must not be negative")
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got %q", cfg.Log.Level)
	}

	return nil
}

// ExpandHome replaces a leading "~" with the current user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
