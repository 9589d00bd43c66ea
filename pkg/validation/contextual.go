package validation

import (
	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// PrevView is what CheckHeaderContextual/CheckBlockContextual need from the
// block's immediate predecessor: everything consensus.HeaderView needs,
// plus the predecessor's own height and chain-work-derived retarget
// ancestry. pkg/blockindex.Entry implements this directly.
type PrevView interface {
	consensus.HeaderView
	consensus.AncestorTimes
}

// CheckHeaderContextual runs the checks a header must pass given its
// parent: correct retarget bits, time strictly after the
// parent's median-time-past, and the historical supermajority version
// rules.
func CheckHeaderContextual(p *consensus.Params, header *types.BlockHeader, prevHeight uint64, prev PrevView) *chainerr.Error {
	requiredBits := consensus.NextWorkRequired(p, prevHeight, prev.BitsBack(0), prev.TimestampBack(0), prev)
	if header.Bits != requiredBits {
		return chainerr.Invalidf("bad-diffbits")
	}

	if header.Timestamp <= consensus.MedianTimePast(prev) {
		return chainerr.Invalidf("time-too-old")
	}

	required := p.RequiredHeaderVersion(prev)
	if header.Version < required {
		return chainerr.New(chainerr.Obsolete, "bad-version").WithDoS(0)
	}

	return nil
}

// LockTimeCutoff returns the effective lock-time cutoff for a block
// extending prev: median-time-past once BIP113 is active at the connecting
// height, otherwise the block's own timestamp.
func LockTimeCutoff(p *consensus.Params, height uint64, blockTime uint32, prev consensus.HeaderView) uint32 {
	if height >= p.BIP113Height {
		return consensus.MedianTimePast(prev)
	}
	return blockTime
}

// CheckBlockContextual runs the checks a full block must pass given its
// parent: per-tx finality, BIP34 height-in-coinbase once
// active, and the block-size schedule.
func CheckBlockContextual(p *consensus.Params, block *types.Block, height uint64, serializedSize int, prev consensus.HeaderView) *chainerr.Error {
	cutoff := LockTimeCutoff(p, height, block.Header.Timestamp, prev)
	for i := range block.Transactions {
		if !IsFinal(&block.Transactions[i], height, cutoff) {
			return chainerr.Invalidf("bad-txns-nonfinal")
		}
	}

	if height >= p.BIP34Height {
		sigScript := block.Transactions[0].Inputs[0].SignatureScript
		decoded, ok := consensus.DecodeHeightScript(sigScript)
		if !ok || decoded != height {
			return chainerr.Invalidf("bad-cb-height")
		}
	}

	maxSize := p.MaxBlockSize(block.Header.Timestamp)
	if uint32(serializedSize) > maxSize {
		return chainerr.Invalidf("bad-blk-length")
	}

	return nil
}
