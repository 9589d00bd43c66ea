package crypto

import (
	"crypto/sha256"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// DoubleSHA256 is Bitcoin's hash function: SHA-256 applied twice, which
// sidesteps SHA-256's length-extension property.
func DoubleSHA256(data []byte) types.Hash {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second
}

// HashTransaction computes a transaction's id from its serialization.
func HashTransaction(data []byte) types.Hash {
	return DoubleSHA256(data)
}

// HashBlockHeader computes a block's hash from its 80-byte header serialization.
func HashBlockHeader(data []byte) types.Hash {
	return DoubleSHA256(data)
}
