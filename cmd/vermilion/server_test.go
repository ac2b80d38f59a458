package main

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/edirooss/vermilion/internal/command"
	"github.com/edirooss/vermilion/internal/config"
	"github.com/edirooss/vermilion/internal/server"
	"github.com/edirooss/vermilion/internal/storage"
)

// startTestServer boots a reactor on an ephemeral loopback port and
// returns a go-redis client pointed at it, torn down on test cleanup.
func startTestServer(t *testing.T) *redis.Client {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	cfg := config.Default()
	cfg.Bind = "127.0.0.1"
	cfg.Port = port
	cfg.Dir = t.TempDir()

	log := zap.NewNop()
	engine := storage.NewEngine(cfg.Databases)
	srv := server.New(cfg, log, engine)
	dispatcher := command.New(srv)
	srv.SetDispatcher(dispatcher)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx)
	}()

	addr := net.JoinHostPort(cfg.Bind, strconv.Itoa(cfg.Port))
	client := redis.NewClient(&redis.Options{Addr: addr})

	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := client.Ping(context.Background()).Err(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never came up on %s", addr)
		}
		time.Sleep(5 * time.Millisecond)
	}

	t.Cleanup(func() {
		client.Close()
		cancel()
		<-done
	})
	return client
}

func TestStringRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.Set(ctx, "greeting", "hello", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	got, err := c.Get(ctx, "greeting").Result()
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if got != "hello" {
		t.Fatalf("GET = %q, want %q", got, "hello")
	}

	n, err := c.Exists(ctx, "greeting", "missing").Result()
	if err != nil {
		t.Fatalf("EXISTS: %v", err)
	}
	if n != 1 {
		t.Fatalf("EXISTS = %d, want 1", n)
	}
}

func TestIncrDecr(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	for i := int64(1); i <= 3; i++ {
		got, err := c.Incr(ctx, "counter").Result()
		if err != nil {
			t.Fatalf("INCR: %v", err)
		}
		if got != i {
			t.Fatalf("INCR = %d, want %d", got, i)
		}
	}
	got, err := c.DecrBy(ctx, "counter", 2).Result()
	if err != nil {
		t.Fatalf("DECRBY: %v", err)
	}
	if got != 1 {
		t.Fatalf("DECRBY = %d, want 1", got)
	}
}

func TestExpireAndTTL(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.Set(ctx, "ephemeral", "v", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	ok, err := c.Expire(ctx, "ephemeral", 100*time.Second).Result()
	if err != nil || !ok {
		t.Fatalf("EXPIRE: ok=%v err=%v", ok, err)
	}
	ttl, err := c.TTL(ctx, "ephemeral").Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > 100*time.Second {
		t.Fatalf("TTL = %v, want within (0, 100s]", ttl)
	}

	if err := c.Persist(ctx, "ephemeral").Err(); err != nil {
		t.Fatalf("PERSIST: %v", err)
	}
	ttl, err = c.TTL(ctx, "ephemeral").Result()
	if err != nil {
		t.Fatalf("TTL after PERSIST: %v", err)
	}
	if ttl != -1 {
		t.Fatalf("TTL after PERSIST = %v, want -1", ttl)
	}
}

func TestListOps(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.RPush(ctx, "mylist", "a", "b", "c").Err(); err != nil {
		t.Fatalf("RPUSH: %v", err)
	}
	vals, err := c.LRange(ctx, "mylist", 0, -1).Result()
	if err != nil {
		t.Fatalf("LRANGE: %v", err)
	}
	want := []string{"a", "b", "c"}
	if len(vals) != len(want) {
		t.Fatalf("LRANGE = %v, want %v", vals, want)
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("LRANGE[%d] = %q, want %q", i, vals[i], want[i])
		}
	}

	v, err := c.LPop(ctx, "mylist").Result()
	if err != nil {
		t.Fatalf("LPOP: %v", err)
	}
	if v != "a" {
		t.Fatalf("LPOP = %q, want %q", v, "a")
	}
}

func TestHashOps(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.HSet(ctx, "user:1", "name", "ada", "age", "36").Err(); err != nil {
		t.Fatalf("HSET: %v", err)
	}
	name, err := c.HGet(ctx, "user:1", "name").Result()
	if err != nil {
		t.Fatalf("HGET: %v", err)
	}
	if name != "ada" {
		t.Fatalf("HGET = %q, want %q", name, "ada")
	}

	n, err := c.HIncrBy(ctx, "user:1", "age", 1).Result()
	if err != nil {
		t.Fatalf("HINCRBY: %v", err)
	}
	if n != 37 {
		t.Fatalf("HINCRBY = %d, want 37", n)
	}
}

func TestSetOps(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.SAdd(ctx, "tags", "go", "redis", "go").Err(); err != nil {
		t.Fatalf("SADD: %v", err)
	}
	n, err := c.SCard(ctx, "tags").Result()
	if err != nil {
		t.Fatalf("SCARD: %v", err)
	}
	if n != 2 {
		t.Fatalf("SCARD = %d, want 2", n)
	}
	ok, err := c.SIsMember(ctx, "tags", "go").Result()
	if err != nil || !ok {
		t.Fatalf("SISMEMBER go: ok=%v err=%v", ok, err)
	}
}

func TestZSetOps(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.ZAdd(ctx, "leaderboard",
		redis.Z{Score: 10, Member: "alice"},
		redis.Z{Score: 20, Member: "bob"},
	).Err(); err != nil {
		t.Fatalf("ZADD: %v", err)
	}
	members, err := c.ZRange(ctx, "leaderboard", 0, -1).Result()
	if err != nil {
		t.Fatalf("ZRANGE: %v", err)
	}
	if len(members) != 2 || members[0] != "alice" || members[1] != "bob" {
		t.Fatalf("ZRANGE = %v, want [alice bob]", members)
	}
}

func TestMultiExecCommits(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	pipe := c.TxPipeline()
	pipe.Set(ctx, "a", "1", 0)
	pipe.Incr(ctx, "a")
	_, err := pipe.Exec(ctx)
	if err != nil {
		t.Fatalf("EXEC: %v", err)
	}
	got, err := c.Get(ctx, "a").Result()
	if err != nil {
		t.Fatalf("GET after EXEC: %v", err)
	}
	if got != "2" {
		t.Fatalf("GET after EXEC = %q, want %q", got, "2")
	}
}

func TestWatchAbortsOnConflict(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.Set(ctx, "watched", "1", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}

	err := c.Watch(ctx, func(tx *redis.Tx) error {
		// A concurrent, unwatched client modifies the key between
		// WATCH and EXEC, so the transaction must abort.
		other := startTestServerClient(t, c)
		if err := other.Set(ctx, "watched", "2", 0).Err(); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Get(ctx, "watched")
			return nil
		})
		return err
	}, "watched")

	if err != redis.TxFailedErr {
		t.Fatalf("Watch err = %v, want TxFailedErr", err)
	}
}

// startTestServerClient returns a second client talking to the same
// already-running server as ref.
func startTestServerClient(t *testing.T, ref *redis.Client) *redis.Client {
	t.Helper()
	opts := ref.Options()
	client := redis.NewClient(&redis.Options{Addr: opts.Addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestPubSub(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)
	sub := startTestServerClient(t, c)

	ps := sub.Subscribe(ctx, "news")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		t.Fatalf("subscribe confirmation: %v", err)
	}

	n, err := c.Publish(ctx, "news", "hello").Result()
	if err != nil {
		t.Fatalf("PUBLISH: %v", err)
	}
	if n != 1 {
		t.Fatalf("PUBLISH receivers = %d, want 1", n)
	}

	select {
	case msg := <-ps.Channel():
		if msg.Payload != "hello" {
			t.Fatalf("message payload = %q, want %q", msg.Payload, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published message")
	}
}

func TestEval(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	res, err := c.Eval(ctx, "redis.call('SET', KEYS[1], ARGV[1]); return redis.call('GET', KEYS[1])",
		[]string{"scripted"}, "value").Result()
	if err != nil {
		t.Fatalf("EVAL: %v", err)
	}
	if res != "value" {
		t.Fatalf("EVAL result = %v, want %q", res, "value")
	}

	got, err := c.Get(ctx, "scripted").Result()
	if err != nil {
		t.Fatalf("GET after EVAL: %v", err)
	}
	if got != "value" {
		t.Fatalf("GET after EVAL = %q, want %q", got, "value")
	}
}

func TestSelectIsolatesDatabases(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	db1 := redis.NewClient(&redis.Options{Addr: c.Options().Addr, DB: 1})
	defer db1.Close()

	if err := c.Set(ctx, "k", "db0", 0).Err(); err != nil {
		t.Fatalf("SET on db0: %v", err)
	}
	_, err := db1.Get(ctx, "k").Result()
	if err != redis.Nil {
		t.Fatalf("GET on db1 = %v, want redis.Nil", err)
	}
}

func TestWrongTypeError(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.Set(ctx, "str", "v", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	err := c.LPush(ctx, "str", "x").Err()
	if err == nil {
		t.Fatal("expected WRONGTYPE error, got nil")
	}
	if got := err.Error(); got[:9] != "WRONGTYPE" {
		t.Fatalf("error = %q, want WRONGTYPE prefix", got)
	}
}

func TestSaveAndBgRewriteAOF(t *testing.T) {
	ctx := context.Background()
	c := startTestServer(t)

	if err := c.Set(ctx, "persisted", "v", 0).Err(); err != nil {
		t.Fatalf("SET: %v", err)
	}
	if err := c.Save(ctx).Err(); err != nil {
		t.Fatalf("SAVE: %v", err)
	}
	if err := c.BgRewriteAOF(ctx).Err(); err != nil {
		t.Fatalf("BGREWRITEAOF: %v", err)
	}
}
