package validation

import (
	"time"

	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// CheckBlockHeader runs the context-free checks a header must pass on its
// own: well-formed proof-of-work and a sane timestamp.
func CheckBlockHeader(header *types.BlockHeader, hash types.Hash, powLimitBits uint32) *chainerr.Error {
	if consensus.IsOverflowingTarget(header.Bits, powLimitBits) {
		return chainerr.Invalidf("bad-diffbits")
	}
	if !consensus.CheckProofOfWork(hash, header.Bits) {
		return chainerr.Invalidf("high-hash")
	}

	maxFuture := uint32(time.Now().Add(consensus.MaxFutureBlockTime).Unix())
	if header.Timestamp > maxFuture {
		return chainerr.Invalidf("time-too-new")
	}
	return nil
}

// CheckBlock runs the context-free structural checks on a full block:
// header validity, Merkle root, coinbase placement, every
// transaction's own context-free check, and the per-block sigop ceiling.
func CheckBlock(block *types.Block, hash types.Hash, powLimitBits uint32, maxSigops uint32) *chainerr.Error {
	if err := CheckBlockHeader(&block.Header, hash, powLimitBits); err != nil {
		return err
	}

	if len(block.Transactions) == 0 {
		return chainerr.Invalidf("bad-blk-length")
	}
	if !block.Transactions[0].IsCoinbase() {
		return chainerr.Invalidf("bad-cb-missing")
	}
	for _, tx := range block.Transactions[1:] {
		if tx.IsCoinbase() {
			return chainerr.Invalidf("bad-cb-multiple")
		}
	}

	txHashes := make([]types.Hash, len(block.Transactions))
	for i := range block.Transactions {
		h, err := serialization.HashTransaction(&block.Transactions[i])
		if err != nil {
			return chainerr.Internalf(err, "hash transaction %d for merkle root", i)
		}
		txHashes[i] = h
	}
	root, mutated := crypto.ComputeMerkleRootMutated(txHashes)
	if mutated {
		return chainerr.Mutated("bad-txns-duplicate")
	}
	if root != block.Header.MerkleRoot {
		return chainerr.Invalidf("bad-txnmrklroot")
	}

	totalSigops := 0
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		if err := CheckTransaction(tx); err != nil {
			return err
		}
		totalSigops += LegacySigOps(tx)
	}
	if uint32(totalSigops) > maxSigops {
		return chainerr.Invalidf("bad-blk-sigops")
	}

	return nil
}
