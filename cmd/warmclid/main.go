// Command warmclid is the persistent command server supervisor. Invoked
// plainly, it listens on a UNIX socket and dispatches AWS CLI invocations to
// a pool of re-exec'd worker processes. Invoked with -worker (only ever done
// by the supervisor itself, via os/exec), it instead runs the worker loop
// against an inherited dispatch socket.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/antigravity-dev/warmcli/internal/awsservices"
	"github.com/antigravity-dev/warmcli/internal/config"
	"github.com/antigravity-dev/warmcli/internal/grabber"
	"github.com/antigravity-dev/warmcli/internal/planstore"
	"github.com/antigravity-dev/warmcli/internal/server"
)

// sdkVersion stamps every persisted plan so a daemon rebuilt against a newer
// aws-sdk-go-v2 never serves a plan resolved against stale shapes.
var sdkVersion = readSDKVersion()

// readSDKVersion returns the aws-sdk-go-v2 module version recorded in the
// binary's build info, or the bare module path when none is recorded.
func readSDKVersion() string {
	const sdkModule = "github.com/aws/aws-sdk-go-v2"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == sdkModule {
				return sdkModule + "@" + dep.Version
			}
		}
	}
	return sdkModule
}

func main() {
	worker := flag.Bool("worker", false, "run in worker mode against an inherited dispatch fd")
	configPath := flag.String("config", defaultConfigPath(), "path to warmclid.toml")
	flag.Parse()

	log := newLogger(config.Log{})

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	log = newLogger(cfg.Log)
	if sock := os.Getenv("AWS_CLI_SOCKET"); sock != "" {
		cfg.Server.SocketPath = sock
	}

	if *worker {
		runWorker(cfg, log)
		return
	}
	runSupervisor(cfg, log)
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "warmclid.toml"
	}
	return home + "/.warmcli/warmclid.toml"
}

func newLogger(cfg config.Log) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err == nil {
		opts.Level = level
	}
	if cfg.Dev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func runSupervisor(cfg *config.Config, log *slog.Logger) {
	execPath, err := os.Executable()
	if err != nil {
		log.Error("resolve executable path", "error", err)
		os.Exit(1)
	}

	plans, err := planstore.Open(cfg.PlanCache.Path, cfg.PlanCache.TTL.Duration, sdkVersion)
	if err != nil {
		log.Error("open plan cache", "error", err)
		os.Exit(1)
	}
	defer plans.Close()

	sup := server.NewSupervisor(cfg.Server.SocketPath, cfg.Server.LockPath, execPath, cfg.Server.MaxWorkers, cfg.Server.IdleTimeout.Duration, log)

	if cfg.Server.StatsBind != "" {
		stats := server.NewStatsServer(cfg.Server.StatsBind, sup.Pool(), log)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		network := "tcp"
		if strings.HasPrefix(cfg.Server.StatsBind, "/") || strings.HasPrefix(cfg.Server.StatsBind, "@") {
			network = "unix"
		}
		go func() {
			if err := stats.Start(ctx, network); err != nil {
				log.Warn("stats server exited", "error", err)
			}
		}()
	}

	if err := sup.Start(); err != nil {
		log.Error("supervisor exited with error", "error", err)
		os.Exit(1)
	}
}

func runWorker(cfg *config.Config, log *slog.Logger) {
	const dispatchFDNumber = 3 // cmd.ExtraFiles[0] always lands on fd 3
	dispatchFD := os.NewFile(dispatchFDNumber, "dispatch")
	if dispatchFD == nil {
		log.Error("no inherited dispatch fd")
		os.Exit(1)
	}

	w, err := server.NewWorker(dispatchFD, 300*time.Second, log)
	if err != nil {
		log.Error("construct worker", "error", err)
		os.Exit(1)
	}

	services, err := awsservices.LoadRegistry(context.Background())
	if err != nil {
		log.Error("load AWS service registry", "error", err)
		os.Exit(1)
	}

	w.Handle = func(req *server.Request) int {
		return handleRequest(req, services, log)
	}

	_ = cfg // the worker inherits ambient config from the supervisor's env.
	w.Run()
}

// handleRequest services one request in the worker. It looks the invoked
// top-level AWS CLI command (argv[0], e.g. "ec2" or "s3") up in services and
// logs the grabber.Service it finds. It does not run an AWS CLI driver or
// the command itself: it returns 1 for an empty argv and 0 otherwise.
func handleRequest(req *server.Request, services map[string]*grabber.Service, log *slog.Logger) int {
	if len(req.Argv) == 0 {
		fmt.Fprintln(os.Stderr, "warmclid: empty argv")
		return 1
	}
	if svc, ok := services[req.Argv[0]]; ok {
		log.Debug("resolved service for request", "service", svc.Name, "argv0", req.Argv[0])
	}
	return 0
}
