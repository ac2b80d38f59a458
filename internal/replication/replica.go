package replication

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edirooss/vermilion/internal/resp"
)

// ReplicaState mirrors the handshake state machine from spec §4.5.
type ReplicaState int

const (
	StateConnecting ReplicaState = iota
	StateSynchronizing
	StateUp
	StateDown
)

// ApplyFunc executes one replicated command against local storage.
type ApplyFunc func(args []string)

// LoadSnapshotFunc installs a freshly received RDB image.
type LoadSnapshotFunc func(r *bufio.Reader, size int64) error

// Replica is the client side of replication: it connects to a
// master, performs the PSYNC handshake, and streams the command feed
// into Apply. Reconnection uses capped exponential backoff, the shape
// go-redis's client options expose for its own retry knobs.
type Replica struct {
	log          *zap.Logger
	apply        ApplyFunc
	loadSnapshot LoadSnapshotFunc

	state  ReplicaState
	offset int64
}

func NewReplica(log *zap.Logger, apply ApplyFunc, loadSnapshot LoadSnapshotFunc) *Replica {
	return &Replica{log: log, apply: apply, loadSnapshot: loadSnapshot}
}

func (r *Replica) State() ReplicaState { return r.state }
func (r *Replica) Offset() int64       { return r.offset }

// Run connects to masterAddr and streams replication until ctx is
// cancelled, reconnecting with backoff on error.
func (r *Replica) Run(ctx context.Context, masterAddr, myPort string) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.state = StateConnecting
		if err := r.syncOnce(ctx, masterAddr, myPort); err != nil {
			r.state = StateDown
			r.log.Warn("replication link down", zap.Error(err), zap.Duration("retry_in", backoff))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second
	}
}

func (r *Replica) syncOnce(ctx context.Context, masterAddr, myPort string) error {
	nc, err := net.Dial("tcp", masterAddr)
	if err != nil {
		return err
	}
	defer nc.Close()

	br := bufio.NewReader(nc)
	rw := resp.NewWriter(nc)

	sendCmd := func(args ...string) error {
		frame := resp.NewArray(stringsToFrames(args)...)
		if err := rw.WriteFrame(frame); err != nil {
			return err
		}
		return rw.Flush()
	}

	if err := sendCmd("PING"); err != nil {
		return err
	}
	if _, err := br.ReadString('\n'); err != nil {
		return err
	}
	if err := sendCmd("REPLCONF", "listening-port", myPort); err != nil {
		return err
	}
	if _, err := br.ReadString('\n'); err != nil {
		return err
	}
	if err := sendCmd("REPLCONF", "capa", "eof", "capa", "psync2"); err != nil {
		return err
	}
	if _, err := br.ReadString('\n'); err != nil {
		return err
	}

	r.state = StateSynchronizing
	if err := sendCmd("PSYNC", "?", "-1"); err != nil {
		return err
	}

	line, err := br.ReadString('\n')
	if err != nil {
		return err
	}
	line = strings.TrimSuffix(strings.TrimPrefix(line, "+"), "\r\n")
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != "FULLRESYNC" {
		return fmt.Errorf("unexpected PSYNC reply: %q", line)
	}
	offset, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return err
	}

	bulkHeader, err := br.ReadString('\n')
	if err != nil {
		return err
	}
	bulkHeader = strings.TrimSuffix(bulkHeader, "\r\n")
	if !strings.HasPrefix(bulkHeader, "$") {
		return fmt.Errorf("expected RDB bulk header, got %q", bulkHeader)
	}
	size, err := strconv.ParseInt(bulkHeader[1:], 10, 64)
	if err != nil {
		return err
	}
	if err := r.loadSnapshot(br, size); err != nil {
		return err
	}

	r.offset = offset
	r.state = StateUp
	r.log.Info("replica fully synced", zap.Int64("offset", offset))

	reader := resp.NewReader(br)
	ackTicker := time.NewTicker(time.Second)
	defer ackTicker.Stop()

	done := make(chan error, 1)
	go func() {
		for {
			args, err := reader.ReadCommand()
			if err != nil {
				done <- err
				return
			}
			if len(args) == 0 {
				continue
			}
			r.apply(args)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-done:
			return err
		case <-ackTicker.C:
			if err := sendCmd("REPLCONF", "ACK", strconv.FormatInt(r.offset, 10)); err != nil {
				return err
			}
		}
	}
}

func stringsToFrames(ss []string) []*resp.Frame {
	out := make([]*resp.Frame, len(ss))
	for i, s := range ss {
		out[i] = resp.NewBulkStringFrom(s)
	}
	return out
}
