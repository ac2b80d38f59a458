// Package config reads the server's "name value"-per-line configuration
// file and applies command-line flag overrides, the way spec §6 describes.
package config

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EvictionPolicy enumerates the declared (not enforced) maxmemory policies.
type EvictionPolicy string

const (
	NoEviction     EvictionPolicy = "noeviction"
	AllKeysLRU     EvictionPolicy = "allkeys-lru"
	VolatileLRU    EvictionPolicy = "volatile-lru"
	AllKeysRandom  EvictionPolicy = "allkeys-random"
	VolatileRandom EvictionPolicy = "volatile-random"
	VolatileTTL    EvictionPolicy = "volatile-ttl"
)

// FsyncPolicy enumerates append-log durability modes.
type FsyncPolicy string

const (
	FsyncAlways       FsyncPolicy = "always"
	FsyncEverySecond  FsyncPolicy = "everysec"
	FsyncNo           FsyncPolicy = "no"
)

// Config holds every recognised option from spec §6.
type Config struct {
	Bind            string
	Port            int
	RequirePass     string
	MaxClients      int
	Timeout         int // idle seconds, 0 = disabled
	TCPKeepAlive    int
	Dir             string
	DBFilename      string
	SaveRules       []SaveRule
	AppendOnly      bool
	AppendFilename  string
	AppendFsync     FsyncPolicy
	MaxMemory       int64
	MaxMemoryPolicy EvictionPolicy
	ReplicaOf       string // "host port" or ""
	ReplBacklogSize int64
	ReplTimeout     int
	ReplDisklessSync bool
	LogLevel        string
	LogFile         string
	Daemonize       bool
	Databases       int
}

// SaveRule is one "save <seconds> <changes>" trigger for automatic bgsave.
type SaveRule struct {
	Seconds int
	Changes int
}

// Default returns the stock-Redis-like defaults.
func Default() *Config {
	return &Config{
		Bind:            "0.0.0.0",
		Port:            6379,
		MaxClients:      10000,
		Timeout:         0,
		TCPKeepAlive:    300,
		Dir:             "./",
		DBFilename:      "dump.rdb",
		SaveRules:       []SaveRule{{900, 1}, {300, 10}, {60, 10000}},
		AppendOnly:      false,
		AppendFilename:  "appendonly.aof",
		AppendFsync:     FsyncEverySecond,
		MaxMemoryPolicy: NoEviction,
		ReplBacklogSize: 1 << 20,
		ReplTimeout:     60,
		LogLevel:        "info",
		Databases:       16,
	}
}

// LoadFile parses a config file, applying recognised keys over cfg in place.
// Unknown keys are ignored, matching the teacher's tolerant-parsing style
// elsewhere in the repo (e.g. jsonx's best-effort decoding); a strict mode
// was considered and rejected since Redis' own config loader is permissive.
func LoadFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config file: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 1 {
			continue
		}
		key := strings.ToLower(fields[0])
		args := fields[1:]
		if err := applyKey(cfg, key, args); err != nil {
			return fmt.Errorf("config file %s line %d: %w", path, lineNo, err)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

func applyKey(cfg *Config, key string, args []string) error {
	arg := func(i int) string {
		if i < len(args) {
			return args[i]
		}
		return ""
	}

	switch key {
	case "bind":
		cfg.Bind = arg(0)
	case "port":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid port: %w", err)
		}
		cfg.Port = n
	case "requirepass":
		cfg.RequirePass = arg(0)
	case "maxclients":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid maxclients: %w", err)
		}
		cfg.MaxClients = n
	case "timeout":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid timeout: %w", err)
		}
		cfg.Timeout = n
	case "tcp-keepalive":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid tcp-keepalive: %w", err)
		}
		cfg.TCPKeepAlive = n
	case "dir":
		cfg.Dir = arg(0)
	case "dbfilename":
		cfg.DBFilename = arg(0)
	case "save":
		sec, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid save seconds: %w", err)
		}
		chg, err := strconv.Atoi(arg(1))
		if err != nil {
			return fmt.Errorf("invalid save changes: %w", err)
		}
		cfg.SaveRules = append(cfg.SaveRules, SaveRule{Seconds: sec, Changes: chg})
	case "appendonly":
		b, err := ParseBool(arg(0))
		if err != nil {
			return err
		}
		cfg.AppendOnly = b
	case "appendfilename":
		cfg.AppendFilename = arg(0)
	case "appendfsync":
		cfg.AppendFsync = FsyncPolicy(arg(0))
	case "maxmemory":
		n, err := ParseSize(arg(0))
		if err != nil {
			return err
		}
		cfg.MaxMemory = n
	case "maxmemory-policy":
		cfg.MaxMemoryPolicy = EvictionPolicy(arg(0))
	case "replicaof", "slaveof":
		if strings.EqualFold(arg(0), "no") && strings.EqualFold(arg(1), "one") {
			cfg.ReplicaOf = ""
		} else {
			cfg.ReplicaOf = arg(0) + " " + arg(1)
		}
	case "repl-backlog-size":
		n, err := ParseSize(arg(0))
		if err != nil {
			return err
		}
		cfg.ReplBacklogSize = n
	case "repl-timeout":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid repl-timeout: %w", err)
		}
		cfg.ReplTimeout = n
	case "repl-diskless-sync":
		b, err := ParseBool(arg(0))
		if err != nil {
			return err
		}
		cfg.ReplDisklessSync = b
	case "loglevel":
		cfg.LogLevel = arg(0)
	case "logfile":
		cfg.LogFile = arg(0)
	case "daemonize":
		b, err := ParseBool(arg(0))
		if err != nil {
			return err
		}
		cfg.Daemonize = b
	case "databases":
		n, err := strconv.Atoi(arg(0))
		if err != nil {
			return fmt.Errorf("invalid databases: %w", err)
		}
		cfg.Databases = n
	}
	return nil
}

// ParseBool accepts Redis-style yes/no booleans.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes":
		return true, nil
	case "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q (want yes|no)", s)
	}
}

// BindFlags layers command-line flags over cfg, overriding file values,
// per spec §6 ("overridden by command-line flags").
func BindFlags(cfg *Config, fs *flag.FlagSet) {
	fs.StringVar(&cfg.Bind, "bind", cfg.Bind, "bind address")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "listen port")
	fs.StringVar(&cfg.RequirePass, "requirepass", cfg.RequirePass, "required auth password")
	fs.IntVar(&cfg.MaxClients, "maxclients", cfg.MaxClients, "max concurrent clients")
	fs.StringVar(&cfg.Dir, "dir", cfg.Dir, "working directory for persistence files")
	fs.StringVar(&cfg.DBFilename, "dbfilename", cfg.DBFilename, "snapshot filename")
	fs.BoolVar(&cfg.AppendOnly, "appendonly", cfg.AppendOnly, "enable append-only file")
	fs.StringVar(&cfg.LogLevel, "loglevel", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFile, "logfile", cfg.LogFile, "log file path (empty = stderr)")
	fs.IntVar(&cfg.Databases, "databases", cfg.Databases, "number of logical databases")
}
