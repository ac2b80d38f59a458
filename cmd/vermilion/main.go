package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/edirooss/vermilion/internal/command"
	"github.com/edirooss/vermilion/internal/config"
	"github.com/edirooss/vermilion/internal/logging"
	"github.com/edirooss/vermilion/internal/persistence/aof"
	"github.com/edirooss/vermilion/internal/persistence/snapshot"
	"github.com/edirooss/vermilion/internal/replication"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/storage"
)

func main() {
	cfg := config.Default()

	// A bare leading positional argument names a config file, matching
	// redis-server's own `redis-server /path/to/redis.conf` convention.
	if len(os.Args) > 1 && !isFlag(os.Args[1]) {
		if err := config.LoadFile(cfg, os.Args[1]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		os.Args = append(os.Args[:1], os.Args[2:]...)
	}

	fs := flag.NewFlagSet("vermilion", flag.ExitOnError)
	config.BindFlags(cfg, fs)
	_ = fs.Parse(os.Args[1:])

	log, err := logging.New(logging.Options{
		Level:      cfg.LogLevel,
		Production: cfg.LogFile != "",
		Logfile:    cfg.LogFile,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()
	log = log.Named("main")

	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		log.Fatal("create data dir", zap.Error(err))
	}

	engine := storage.NewEngine(cfg.Databases)

	snapshotPath := filepath.Join(cfg.Dir, cfg.DBFilename)
	if err := snapshot.Load(snapshotPath, engine); err != nil {
		log.Warn("snapshot load skipped", zap.Error(err))
	}

	srv := server.New(cfg, log, engine)
	dispatcher := command.New(srv)
	srv.SetDispatcher(dispatcher)

	if cfg.AppendOnly {
		aofPath := filepath.Join(cfg.Dir, cfg.AppendFilename)
		replayConn := command.NewApplyConn()
		if err := aof.Replay(aofPath, func(args []string) {
			dispatcher.ApplyReplicated(replayConn, args)
		}); err != nil {
			log.Fatal("aof replay failed", zap.Error(err))
		}
		w, err := aof.Open(aofPath, cfg.AppendFsync)
		if err != nil {
			log.Fatal("aof open failed", zap.Error(err))
		}
		srv.AOF = w
		defer w.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ReplicaOf != "" {
		go runReplica(ctx, log, cfg, srv, dispatcher)
	}

	log.Info("starting", zap.String("bind", cfg.Bind), zap.Int("port", cfg.Port))
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("server failed", zap.Error(err))
	}
	log.Info("shutdown complete")
}

// runReplica drives the client side of replication for as long as
// cfg.ReplicaOf names a master, reconnecting with backoff on error.
func runReplica(ctx context.Context, log *zap.Logger, cfg *config.Config, srv *server.Server, dispatcher *command.Dispatcher) {
	applyConn := command.NewApplyConn()
	replica := replication.NewReplica(
		log.Named("replica"),
		func(args []string) { dispatcher.ApplyReplicated(applyConn, args) },
		func(r *bufio.Reader, size int64) error {
			return snapshot.DecodeStream(r, size, srv.Engine())
		},
	)

	host, port, err := splitHostPort(cfg.ReplicaOf)
	if err != nil {
		log.Error("invalid replicaof", zap.Error(err))
		return
	}
	myPort := fmt.Sprintf("%d", cfg.Port)
	if err := replica.Run(ctx, host+":"+port, myPort); err != nil && ctx.Err() == nil {
		log.Error("replica stopped", zap.Error(err))
	}
}

func splitHostPort(replicaOf string) (host, port string, err error) {
	var h, p string
	n, err := fmt.Sscanf(replicaOf, "%s %s", &h, &p)
	if err != nil || n != 2 {
		return "", "", fmt.Errorf("malformed replicaof %q", replicaOf)
	}
	return h, p, nil
}

func isFlag(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}
