package snapshot

// rollingChecksum is the snapshot's trailing integrity check: a weak,
// non-cryptographic rolling sum, not a CRC, matching the format's
// stated goal of catching truncation and accidental corruption rather
// than authoritatively verifying the payload.
type rollingChecksum struct {
	sum uint64
}

func (c *rollingChecksum) update(p []byte) {
	for _, b := range p {
		c.sum = c.sum<<1 | c.sum>>63
		c.sum += uint64(b)
	}
}

func (c *rollingChecksum) Write(p []byte) (int, error) {
	c.update(p)
	return len(p), nil
}
