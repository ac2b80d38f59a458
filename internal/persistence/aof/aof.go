// Package aof implements the append-only command log from spec §4.4:
// every write command is serialized as a RESP array and appended to a
// file, replayed in full on startup, with three fsync durability
// policies and a compacting rewrite. The atomic-temp-file-then-rename
// rewrite mirrors internal/persistence/snapshot's Save, the only other
// place this server writes a file it cares about surviving a crash.
package aof

import (
	"bufio"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/edirooss/vermilion/internal/config"
	"github.com/edirooss/vermilion/internal/resp"
	"github.com/edirooss/vermilion/internal/storage"
)

// Writer appends commands to an AOF file under one of three
// durability policies (spec §4.4): always (fsync every write),
// everysec (a background ticker fsyncs at most once a second), or no
// (rely on the OS to flush eventually).
type Writer struct {
	mu     sync.Mutex
	f      *os.File
	bw     *bufio.Writer
	rw     *resp.Writer
	policy config.FsyncPolicy

	dirty bool
	done  chan struct{}
}

// Open opens (creating if necessary) the AOF file at path for
// appending and starts the background fsync ticker for "everysec".
func Open(path string, policy config.FsyncPolicy) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	bw := bufio.NewWriter(f)
	w := &Writer{
		f:      f,
		bw:     bw,
		rw:     resp.NewWriter(bw),
		policy: policy,
		done:   make(chan struct{}),
	}
	if policy == config.FsyncEverySecond {
		go w.fsyncLoop()
	}
	return w, nil
}

func (w *Writer) fsyncLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.dirty {
				_ = w.bw.Flush()
				_ = w.f.Sync()
				w.dirty = false
			}
			w.mu.Unlock()
		}
	}
}

// Append serializes args as a RESP command array and writes it to the
// log, applying the configured fsync policy.
func (w *Writer) Append(args []string) error {
	elems := make([]*resp.Frame, len(args))
	for i, a := range args {
		elems[i] = resp.NewBulkStringFrom(a)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.rw.WriteFrame(resp.NewArray(elems...)); err != nil {
		return err
	}
	if err := w.rw.Flush(); err != nil {
		return err
	}
	switch w.policy {
	case config.FsyncAlways:
		return w.f.Sync()
	case config.FsyncEverySecond:
		w.dirty = true
		return nil
	default: // FsyncNo
		return nil
	}
}

// Close stops the fsync ticker and closes the underlying file.
func (w *Writer) Close() error {
	close(w.done)
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.bw.Flush()
	return w.f.Close()
}

// Replay reads every command from the AOF at path and calls apply for
// each, in file order. A missing file replays nothing.
func Replay(path string, apply func(args []string)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	r := resp.NewReader(bufio.NewReader(f))
	for {
		args, err := r.ReadCommand()
		if err != nil {
			return nil // EOF or truncated tail: stop, keep what replayed cleanly
		}
		if len(args) == 0 {
			continue
		}
		apply(args)
	}
}

// Rewrite compacts the log at path to the minimal set of commands
// that reconstruct engine's current contents, atomically replacing
// the previous file so a crash mid-rewrite never loses the original.
func Rewrite(path string, engine *storage.Engine) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".aof-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	bw := bufio.NewWriter(tmp)
	rw := resp.NewWriter(bw)

	for i, db := range engine.Databases() {
		keys := db.Keys()
		if len(keys) == 0 {
			continue
		}
		if err := writeCmd(rw, "SELECT", strconv.Itoa(i)); err != nil {
			return multierr.Append(err, tmp.Close())
		}
		for _, key := range keys {
			if err := rewriteKey(rw, db, key); err != nil {
				return multierr.Append(err, tmp.Close())
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Sync(); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func rewriteKey(rw *resp.Writer, db *storage.Database, key string) error {
	kind, exists := db.Type(key)
	if !exists {
		return nil
	}
	switch kind {
	case storage.KindString:
		v, err := db.Get(key)
		if err != nil {
			return err
		}
		if err := writeCmd(rw, "SET", key, string(v)); err != nil {
			return err
		}
	case storage.KindList:
		vals, err := db.LRange(key, 0, -1)
		if err != nil {
			return err
		}
		args := append([]string{"RPUSH", key}, bytesToStrings(vals)...)
		if err := writeCmd(rw, args...); err != nil {
			return err
		}
	case storage.KindSet:
		members, err := db.SMembers(key)
		if err != nil {
			return err
		}
		args := append([]string{"SADD", key}, members...)
		if err := writeCmd(rw, args...); err != nil {
			return err
		}
	case storage.KindHash:
		fields, err := db.HGetAll(key)
		if err != nil {
			return err
		}
		args := []string{"HSET", key}
		for f, v := range fields {
			args = append(args, f, v)
		}
		if err := writeCmd(rw, args...); err != nil {
			return err
		}
	case storage.KindZSet:
		entries, err := db.ZRange(key, 0, -1, false)
		if err != nil {
			return err
		}
		args := []string{"ZADD", key}
		for _, e := range entries {
			args = append(args, resp.FormatFloat(e.Score), e.Member)
		}
		if err := writeCmd(rw, args...); err != nil {
			return err
		}
	default:
		return nil // streams have no AOF replay form yet, matching the snapshot format
	}
	if ttl, ok := db.TTL(key); ok && ttl != nil {
		return writeCmd(rw, "PEXPIRE", key, strconv.FormatInt(ttl.Milliseconds(), 10))
	}
	return nil
}

func writeCmd(rw *resp.Writer, args ...string) error {
	elems := make([]*resp.Frame, len(args))
	for i, a := range args {
		elems[i] = resp.NewBulkStringFrom(a)
	}
	if err := rw.WriteFrame(resp.NewArray(elems...)); err != nil {
		return err
	}
	return rw.Flush()
}

func bytesToStrings(bs [][]byte) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = string(b)
	}
	return out
}

