package snapshot

import (
	"bufio"
	"bytes"
	"io"

	"github.com/edirooss/vermilion/internal/storage"
)

// EncodeTo writes a full snapshot of engine to w without going
// through a file, for the PSYNC full-resync bulk transfer (spec
// §4.5 "FULLRESYNC").
func EncodeTo(w io.Writer, engine *storage.Engine) error {
	var buf bytes.Buffer
	cw := &checksumWriter{w: &buf}
	if err := writeAll(cw, engine); err != nil {
		return err
	}
	if err := writeUint64(&buf, cw.sum.sum); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// DecodeStream reads a snapshot of exactly size bytes (as announced
// by a PSYNC bulk header) from r and replays it into engine. The
// trailing 8-byte checksum is consumed but not verified: a live
// replication stream cannot be re-read to cross-check a mismatch the
// way a static file can, so the replica simply trusts its master.
func DecodeStream(r *bufio.Reader, size int64, engine *storage.Engine) error {
	if size < int64(len(magic)+len(version)+8) {
		return errTruncated
	}
	body := io.LimitReader(r, size-8)
	br := bufio.NewReader(body)

	if err := readHeader(br); err != nil {
		return err
	}
	if err := decodeOpcodes(br, engine); err != nil {
		return err
	}

	trailer := make([]byte, 8)
	_, err := io.ReadFull(r, trailer)
	return err
}
