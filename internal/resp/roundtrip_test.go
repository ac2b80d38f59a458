package resp

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func roundTrip(t *testing.T, f *Frame) *Frame {
	t.Helper()
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.WriteFrame(f); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	r := NewReader(&buf)
	got, err := r.ReadFrame()
	if err != nil {
		t.Fatalf("read: %v\nwire: %q", err, buf.String())
	}
	return got
}

func TestRoundTripSimpleString(t *testing.T) {
	got := roundTrip(t, NewSimpleString("OK"))
	if got.Type != SimpleString || got.Str != "OK" {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripError(t *testing.T) {
	got := roundTrip(t, NewError("WRONGTYPE bad"))
	if got.Type != Error || got.Str != "WRONGTYPE bad" {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripInteger(t *testing.T) {
	got := roundTrip(t, NewInteger(-42))
	if got.Type != Integer || got.Int != -42 {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripBulkString(t *testing.T) {
	got := roundTrip(t, NewBulkStringFrom("bar"))
	if got.Type != BulkString || string(got.Bulk) != "bar" {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripNilBulk(t *testing.T) {
	got := roundTrip(t, NilBulk())
	if got.Type != BulkString || !got.IsNil {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripNilArray(t *testing.T) {
	got := roundTrip(t, NilArray())
	if got.Type != Array || !got.IsNil {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
}

func TestRoundTripArray(t *testing.T) {
	in := NewArray(NewBulkStringFrom("a"), NewInteger(1), NewSimpleString("x"))
	got := roundTrip(t, in)
	if got.Type != Array || len(got.Elems) != 3 {
		t.Fatalf("unexpected frame: %s", spew.Sdump(got))
	}
	if string(got.Elems[0].Bulk) != "a" || got.Elems[1].Int != 1 || got.Elems[2].Str != "x" {
		t.Fatalf("unexpected elements: %s", spew.Sdump(got))
	}
}

func TestRoundTripRESP3(t *testing.T) {
	cases := []*Frame{
		{Type: Null, IsNil: true},
		{Type: Boolean, Bool: true},
		{Type: Boolean, Bool: false},
		{Type: Double, Dbl: 3.0},
	}
	for _, f := range cases {
		got := roundTrip(t, f)
		if got.Type != f.Type {
			t.Fatalf("type mismatch: want %v got %v", f.Type, got.Type)
		}
	}
}

func TestReadCommand(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n")
	r := NewReader(&buf)
	args, err := r.ReadCommand()
	if err != nil {
		t.Fatalf("read command: %v", err)
	}
	if len(args) != 2 || args[0] != "GET" || args[1] != "foo" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestReadInlineCommand(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("PING\r\n")
	r := NewReader(&buf)
	args, err := r.ReadCommand()
	if err != nil {
		t.Fatalf("read command: %v", err)
	}
	if len(args) != 1 || args[0] != "PING" {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestProtocolErrorOnBadLength(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("$abc\r\n")
	r := NewReader(&buf)
	if _, err := r.ReadFrame(); err == nil {
		t.Fatal("expected protocol error")
	}
}

func TestGlobMatch(t *testing.T) {
	cases := []struct {
		pattern, s string
		want       bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"h?llo", "hello", true},
		{"h?llo", "hllo", false},
		{"h*llo", "heeello", true},
		{"h[ae]llo", "h[ae]llo", true}, // bracket classes are not special here
		{`\*`, "*", true},
		{`\*`, "x", false},
		{"news.*", "news.tech", true},
		{"news.*", "news", false},
	}
	for _, c := range cases {
		if got := Match(c.pattern, c.s); got != c.want {
			t.Errorf("Match(%q, %q) = %v, want %v", c.pattern, c.s, got, c.want)
		}
	}
}
