package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/edirooss/vermilion/internal/storage"
	"github.com/edirooss/vermilion/internal/zset"
)

var (
	errTruncated = errors.New("ERR Bad data format: truncated snapshot")
	errBadMagic  = errors.New("ERR Bad data format: missing REDIS magic")
)

// Load reads a snapshot file written by Save and replays it into
// engine, which must already be flushed/empty.
func Load(path string, engine *storage.Engine) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()
	return decode(f, engine)
}

func decode(f *os.File, engine *storage.Engine) error {
	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < int64(len(magic)+len(version)+8) {
		return errTruncated
	}

	body := io.NewSectionReader(f, 0, info.Size()-8)

	sum := &rollingChecksum{}
	tee := io.TeeReader(body, sum)
	r := bufio.NewReader(tee)

	if err := readHeader(r); err != nil {
		return err
	}
	if err := decodeOpcodes(r, engine); err != nil {
		return err
	}
	return verifyChecksum(f, info.Size(), sum.sum)
}

func readHeader(r *bufio.Reader) error {
	hdr := make([]byte, len(magic)+len(version))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return err
	}
	if string(hdr[:len(magic)]) != magic {
		return errBadMagic
	}
	return nil
}

// decodeOpcodes reads the body of a snapshot (everything after the
// magic/version header, up to and including the EOF opcode) and
// replays it into engine. It is shared by the file-backed Load path
// and the live PSYNC full-resync stream, which differ only in how
// they frame the bytes around this loop and whether the trailing
// checksum can be cross-checked afterward.
func decodeOpcodes(r *bufio.Reader, engine *storage.Engine) error {
	dbIndex := 0
	var pendingExpireAt *time.Time

	for {
		tag, err := r.ReadByte()
		if err != nil {
			return err
		}
		switch tag {
		case opEOF:
			return nil
		case opAux:
			if _, err := readString(r); err != nil {
				return err
			}
			if _, err := readString(r); err != nil {
				return err
			}
		case opResizeDB:
			if _, err := readLength(r); err != nil {
				return err
			}
			if _, err := readLength(r); err != nil {
				return err
			}
		case opSelectDB:
			n, err := readLength(r)
			if err != nil {
				return err
			}
			dbIndex = int(n)
		case opExpireMs:
			ms, err := readUint64(r)
			if err != nil {
				return err
			}
			t := time.UnixMilli(int64(ms))
			pendingExpireAt = &t
		case opExpireSec:
			secs, err := readUint64(r)
			if err != nil {
				return err
			}
			t := time.Unix(int64(secs), 0)
			pendingExpireAt = &t
		case tagString, tagList, tagSet, tagHash, tagZSet:
			db, err := engine.DB(dbIndex)
			if err != nil {
				return err
			}
			if err := decodeEntry(r, db, tag, pendingExpireAt); err != nil {
				return err
			}
			pendingExpireAt = nil
		default:
			return fmt.Errorf("ERR Bad data format: unknown opcode 0x%02x", tag)
		}
	}
}

func verifyChecksum(f *os.File, size int64, got uint64) error {
	want := make([]byte, 8)
	if _, err := f.ReadAt(want, size-8); err != nil {
		return err
	}
	var wantN uint64
	for i := 0; i < 8; i++ {
		wantN |= uint64(want[i]) << (8 * i)
	}
	if wantN != got {
		return fmt.Errorf("ERR Bad data format: checksum mismatch")
	}
	return nil
}

func decodeEntry(r *bufio.Reader, db *storage.Database, tag byte, expireAt *time.Time) error {
	key, err := readString(r)
	if err != nil {
		return err
	}

	switch tag {
	case tagString:
		v, err := readString(r)
		if err != nil {
			return err
		}
		_, err = db.Set(string(key), v, storage.SetOptions{})
		if err != nil {
			return err
		}
	case tagList:
		n, err := readLength(r)
		if err != nil {
			return err
		}
		vals := make([][]byte, n)
		for i := range vals {
			v, err := readString(r)
			if err != nil {
				return err
			}
			vals[i] = v
		}
		if _, err := db.RPush(string(key), vals); err != nil {
			return err
		}
	case tagSet:
		n, err := readLength(r)
		if err != nil {
			return err
		}
		members := make([]string, n)
		for i := range members {
			v, err := readString(r)
			if err != nil {
				return err
			}
			members[i] = string(v)
		}
		if _, err := db.SAdd(string(key), members); err != nil {
			return err
		}
	case tagHash:
		n, err := readLength(r)
		if err != nil {
			return err
		}
		pairs := make(map[string]string, n)
		for i := uint64(0); i < n; i++ {
			f, err := readString(r)
			if err != nil {
				return err
			}
			v, err := readString(r)
			if err != nil {
				return err
			}
			pairs[string(f)] = string(v)
		}
		if _, err := db.HSet(string(key), pairs); err != nil {
			return err
		}
	case tagZSet:
		n, err := readLength(r)
		if err != nil {
			return err
		}
		entries := make([]zset.Entry, n)
		for i := uint64(0); i < n; i++ {
			m, err := readString(r)
			if err != nil {
				return err
			}
			score, err := readFloat(r)
			if err != nil {
				return err
			}
			entries[i] = zset.Entry{Member: string(m), Score: score}
		}
		if _, err := db.ZAdd(string(key), entries); err != nil {
			return err
		}
	}

	if expireAt != nil {
		db.Expire(string(key), *expireAt)
	}
	return nil
}

func readLength(r *bufio.Reader) (uint64, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b0 & 0xC0 {
	case lenMask6:
		return uint64(b0 & 0x3F), nil
	case lenMask14:
		b1, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		return uint64(b0&0x3F)<<8 | uint64(b1), nil
	default:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return 0, err
		}
		return uint64(buf[0])<<24 | uint64(buf[1])<<16 | uint64(buf[2])<<8 | uint64(buf[3]), nil
	}
}

func readString(r *bufio.Reader) ([]byte, error) {
	n, err := readLength(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func readUint64(r *bufio.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	var n uint64
	for i := 0; i < 8; i++ {
		n |= uint64(buf[i]) << (8 * i)
	}
	return n, nil
}

func readFloat(r *bufio.Reader) (float64, error) {
	n, err := readUint64(r)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(n), nil
}
