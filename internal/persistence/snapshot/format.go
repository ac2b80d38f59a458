// Package snapshot implements the RDB-like point-in-time dump format
// from spec §4.4: a "REDIS" magic header, a version number, AUX
// metadata fields, one block per non-empty database, and a trailing
// checksum.
package snapshot

const (
	magic   = "REDIS"
	version = "0007"

	opEOF          byte = 0xFF
	opSelectDB     byte = 0xFE
	opExpireMs     byte = 0xFC
	opExpireSec    byte = 0xFD
	opAux          byte = 0xFA
	opResizeDB     byte = 0xFB

	// Value-kind tags. Only these five are recognised; decoding any
	// other tag is a hard error rather than an attempt to guess at an
	// undocumented extension (spec §9 leaves this ambiguous, resolved
	// here in favor of strict rejection).
	tagString byte = 0x00
	tagList   byte = 0x01
	tagSet    byte = 0x02
	tagHash   byte = 0x04
	tagZSet   byte = 0x03
)

// Length-encoding tiers, mirroring stock Redis' RDB length prefix:
// the top two bits of the first byte select a 6-bit, 14-bit, or
// 32-bit length (and one bit pattern reserved for special encodings,
// unused here since every value is stored as plain bytes/strings).
const (
	lenMask6  = 0x00 // 00xxxxxx: 6-bit length in the remaining bits
	lenMask14 = 0x40 // 01xxxxxx: 14-bit length, next byte continues it
	lenMask32 = 0x80 // 10000000: 32-bit length follows in 4 bytes
)
