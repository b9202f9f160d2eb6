package ubx

// ringSize is the byte capacity of the receive ring. It comfortably holds
// several NAV-PVT frames (100 bytes each on the wire).
const ringSize = 512

// ringBuffer is a fixed-capacity FIFO of bytes.
//
// Storage is one inline array indexed by head/count, so the value can be
// copied or moved freely; no method retains a pointer into buf.
type ringBuffer struct {
	buf   [ringSize]byte
	head  int // next byte to read
	count int // bytes buffered
}

func (r *ringBuffer) len() int  { return r.count }
func (r *ringBuffer) free() int { return ringSize - r.count }

func (r *ringBuffer) push(b byte) bool {
	if r.count == ringSize {
		return false
	}
	r.buf[(r.head+r.count)%ringSize] = b
	r.count++
	return true
}

func (r *ringBuffer) pop() (byte, bool) {
	if r.count == 0 {
		return 0, false
	}
	b := r.buf[r.head]
	r.head = (r.head + 1) % ringSize
	r.count--
	return b, true
}

// peek returns the byte i positions after the head without consuming it.
func (r *ringBuffer) peek(i int) (byte, bool) {
	if i < 0 || i >= r.count {
		return 0, false
	}
	return r.buf[(r.head+i)%ringSize], true
}

// readMany is all-or-nothing: it fills dst completely or consumes nothing
// and returns 0.
func (r *ringBuffer) readMany(dst []byte) int {
	n := len(dst)
	if n > r.count {
		return 0
	}
	first := ringSize - r.head
	if first > n {
		first = n
	}
	copy(dst, r.buf[r.head:r.head+first])
	copy(dst[first:], r.buf[:n-first])
	r.head = (r.head + n) % ringSize
	r.count -= n
	return n
}

// discard drops exactly n bytes, or nothing when fewer are buffered.
func (r *ringBuffer) discard(n int) int {
	if n < 0 || n > r.count {
		return 0
	}
	r.head = (r.head + n) % ringSize
	r.count -= n
	return n
}

func (r *ringBuffer) reset() {
	r.head = 0
	r.count = 0
}
