package types

import (
	"encoding/hex"
	"fmt"
)

// Hash is a 32-byte double-SHA-256 digest, stored in the byte order it is
// computed in (internal order, not the reversed display convention).
type Hash [32]byte

// String returns the hex form of h in internal byte order.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// NewHashFromString parses a 64-character hex string into a Hash.
func NewHashFromString(s string) (Hash, error) {
	var h Hash
	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("invalid hex: %w", err)
	}
	if len(b) != len(h) {
		return h, fmt.Errorf("hash must be 32 bytes, got %d", len(b))
	}
	copy(h[:], b)
	return h, nil
}

// IsZero reports whether h is the all-zero hash, the null previous-block
// reference carried by genesis and by coinbase inputs.
func (h Hash) IsZero() bool {
	return h == Hash{}
}

// Reverse returns h with its bytes reversed, converting between internal
// order and the big-endian convention block explorers display.
func (h Hash) Reverse() Hash {
	var reversed Hash
	for i := range h {
		reversed[i] = h[len(h)-1-i]
	}
	return reversed
}
