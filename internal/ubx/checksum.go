package ubx

// checksum is the UBX 8-bit Fletcher accumulator pair.
type checksum struct {
	a, b byte
}

func (c *checksum) add(p []byte) {
	for _, v := range p {
		c.a += v
		c.b += c.a
	}
}

func (c checksum) matches(ckA, ckB byte) bool {
	return c.a == ckA && c.b == ckB
}

// Checksum computes CK_A, CK_B over data, which must start at the class
// byte (the sync bytes are not covered).
func Checksum(data []byte) (ckA, ckB byte) {
	var c checksum
	c.add(data)
	return c.a, c.b
}
