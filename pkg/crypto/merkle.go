package crypto

import (
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// ComputeMerkleRoot calculates the root from transaction hashes, duplicating
// the last hash at any level that has an odd count. Prefer
// ComputeMerkleRootMutated when the result feeds block validation: this
// variant alone cannot tell a legitimately odd-sized level from one an
// attacker produced by duplicating the last transaction (CVE-2012-2459).
func ComputeMerkleRoot(txHashes []types.Hash) types.Hash {
	root, _ := ComputeMerkleRootMutated(txHashes)
	return root
}

// ComputeMerkleRootMutated computes the Merkle root and additionally
// reports whether the tree is "mutated": at some level, two adjacent
// hashes were identical before the odd-length padding step, which is how
// CVE-2012-2459 lets an attacker duplicate a transaction (or a whole
// subtree) to reproduce an existing root with a different, invalid
// transaction list. A block whose root matches but which reports mutated
// must be rejected as CORRUPTION_POSSIBLE, not INVALID: the same root can
// later arrive attached to the correct, un-mutated transaction list.
func ComputeMerkleRootMutated(txHashes []types.Hash) (types.Hash, bool) {
	if len(txHashes) == 0 {
		return types.Hash{}, false
	}

	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)

	mutated := false
	for len(level) > 1 {
		for i := 0; i+1 < len(level); i += 2 {
			if level[i] == level[i+1] {
				mutated = true
			}
		}

		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}

		next := make([]types.Hash, len(level)/2)
		for i := range next {
			var combined [64]byte
			copy(combined[:32], level[2*i][:])
			copy(combined[32:], level[2*i+1][:])
			next[i] = DoubleSHA256(combined[:])
		}
		level = next
	}

	return level[0], mutated
}

// BuildMerkleTree returns all levels of the tree, base level first.
func BuildMerkleTree(txHashes []types.Hash) [][]types.Hash {
	if len(txHashes) == 0 {
		return nil
	}

	var tree [][]types.Hash
	level := make([]types.Hash, len(txHashes))
	copy(level, txHashes)
	tree = append(tree, level)

	for len(level) > 1 {
		next := make([]types.Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			left := level[i]
			right := left
			if i+1 < len(level) {
				right = level[i+1]
			}
			var combined [64]byte
			copy(combined[:32], left[:])
			copy(combined[32:], right[:])
			next = append(next, DoubleSHA256(combined[:]))
		}
		tree = append(tree, next)
		level = next
	}

	return tree
}
