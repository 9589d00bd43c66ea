package storage

import (
	"encoding/binary"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Key prefixes, one byte per table sharing the database.
const (
	// Chain state: 'c' + key -> value
	PrefixChainState = 'c'

	// UTXO set: 'u' + tx_hash -> serialized Coins record
	PrefixCoins = 'u'

	// Block index entries (header metadata): 'n' + block_hash -> serialized entry
	PrefixBlockIndex = 'n'

	// File info records backing the block/undo file store: 'F' + file_num -> serialized info
	PrefixFileInfo = 'F'

	// Last block file in use: single key, no suffix
	PrefixLastFile = 'l'
)

// KeyBestBlockHash is the chain-state key holding the active tip's hash.
const KeyBestBlockHash = "bestblock"

// ChainStateKey creates key for chain state
// Format: 'c' + string_key
func ChainStateKey(key string) []byte {
	result := make([]byte, 1+len(key))
	result[0] = PrefixChainState
	copy(result[1:], []byte(key))
	return result
}

// CoinsKey creates key for a UTXO Coins record
// Format: 'u' + tx_hash
func CoinsKey(hash types.Hash) []byte {
	key := make([]byte, 1+32)
	key[0] = PrefixCoins
	copy(key[1:], hash[:])
	return key
}

// BlockIndexKey creates key for a block index entry
// Format: 'n' + block_hash
func BlockIndexKey(hash types.Hash) []byte {
	key := make([]byte, 1+32)
	key[0] = PrefixBlockIndex
	copy(key[1:], hash[:])
	return key
}

// FileInfoKey creates key for a block/undo file info record
// Format: 'F' + file_num (4 bytes, big-endian)
func FileInfoKey(fileNum uint32) []byte {
	key := make([]byte, 1+4)
	key[0] = PrefixFileInfo
	binary.BigEndian.PutUint32(key[1:], fileNum)
	return key
}
