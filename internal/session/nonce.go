package session

import (
	"encoding/binary"
	"math"
	"sync"

	"vpntun/internal/vpnerr"
)

// maxHigh24 bounds the high 24 bits of the 88-bit sequence number: once the
// counter would require a 25th bit, the session is exhausted and must be
// torn down rather than reused.
const maxHigh24 = 0x00FFFFFF

// NonceSeq is a strictly-monotonic 96-bit nonce counter split as an 88-bit
// little-endian sequence number followed by an 8-bit role tag. It is safe
// for concurrent use.
type NonceSeq struct {
	mu   sync.Mutex
	low  uint64
	high uint32 // only the low 24 bits are ever significant
	role byte
}

func newNonceSeq(role byte) *NonceSeq {
	return &NonceSeq{role: role}
}

// Next returns the next 12-byte nonce and advances the counter. It fails
// with ErrNonceExhausted once the 88-bit counter has no room left, rather
// than silently wrapping.
func (n *NonceSeq) Next() ([12]byte, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.high > maxHigh24 {
		return [12]byte{}, vpnerr.ErrNonceExhausted
	}

	var nonce [12]byte
	binary.LittleEndian.PutUint64(nonce[0:8], n.low)
	nonce[8] = byte(n.high)
	nonce[9] = byte(n.high >> 8)
	nonce[10] = byte(n.high >> 16)
	nonce[11] = n.role

	if n.low == math.MaxUint64 {
		n.low = 0
		n.high++
	} else {
		n.low++
	}

	return nonce, nil
}
