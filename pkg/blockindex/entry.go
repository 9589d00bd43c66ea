// Package blockindex is the arena-indexed header DAG: every
// header ever seen, valid or not, connected to its parent or parked in the
// unlinked map until its parent shows up.
package blockindex

import (
	"math/big"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Status is a bitset of what has been verified about and done with an
// entry's block data, independent of Validity.
type Status uint32

const (
	StatusHaveData    Status = 1 << iota // full block (not just header) is on disk
	StatusHaveUndo                       // undo data for disconnecting this block is on disk
	StatusFailed                         // this block itself failed validation
	StatusFailedChild                    // an ancestor failed validation
)

// Validity tiers an entry has been checked to, each a strict superset of
// the work done at the tier before it.
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityHeader           // header-only checks: PoW, timestamp, size bound on bits
	ValidityTree             // context-free structural checks on the full block
	ValidityChain            // contextual checks against the chain the block extends
	ValidityScripts          // every input script verified
)

// Entry is one node in the index: a header plus everything computed from
// walking its ancestry, plus bookkeeping for the activator and candidate
// set. Entries are arena-owned by Index and referred to by pointer; once
// created, an Entry is never moved or reallocated.
type Entry struct {
	Hash   types.Hash
	Header types.BlockHeader
	Height uint64

	Parent *Entry
	Skip   *Entry // skip-list pointer, set once on insert

	ChainWork *big.Int // cumulative work from genesis through this entry

	Status   Status
	Validity Validity

	SequenceID int64 // insertion order, used to break candidate-set ties

	TxCount      uint64 // transactions in this block alone; 0 until HAVE_DATA
	ChainTxCount uint64 // transactions in this block and all ancestors; 0 until ancestry is complete

	FileNo     uint32 // blk{FileNo}.dat this block's body lives in
	DataOffset uint32 // byte offset of the framed block within that file
	UndoOffset uint32 // byte offset of the framed undo record within rev{FileNo}.dat
}

// IsValid reports whether the entry has been checked to at least tier.
func (e *Entry) IsValid(tier Validity) bool {
	if e.Status&StatusFailed != 0 || e.Status&StatusFailedChild != 0 {
		return false
	}
	return e.Validity >= tier
}

// skipHeight is Bitcoin Core's CSkipListGetAncestorHeight function: the
// height a skip pointer inserted at `height` should jump to. It returns 0
// for heights below 2 and alternates between two patterns depending on whether the
// height's lowest set bits look more like an "isolated bit" or a "run of
// bits", giving O(log n) ancestor walks without a full skip-list rebuild.
func skipHeight(height uint64) uint64 {
	if height < 2 {
		return 0
	}
	if (height & 1) != 0 {
		return invertLowestOne(invertLowestOne(height-1)) + 1
	}
	return invertLowestOne(height)
}

func invertLowestOne(h uint64) uint64 {
	return h & (h - 1)
}

// BuildSkip sets e.Skip once e.Parent and e.Height are known.
func (e *Entry) BuildSkip() {
	if e.Height == 0 || e.Parent == nil {
		return
	}
	target := skipHeight(e.Height)
	walk := e
	for walk.Height > target {
		if walk.Skip != nil && walk.Skip.Height >= target {
			walk = walk.Skip
		} else {
			walk = walk.Parent
		}
	}
	e.Skip = walk
}

// AncestorAt walks skip pointers to the entry at height, or nil if height
// is beyond this entry's own height. Mirrors Bitcoin Core's
// CBlockIndex::GetAncestor: at each step, take the skip pointer only when
// it doesn't overshoot past the target, else step to the direct parent.
func (e *Entry) AncestorAt(height uint64) *Entry {
	if height > e.Height {
		return nil
	}
	walk := e
	walkHeight := e.Height
	for walkHeight > height {
		skipH := skipHeight(walkHeight)
		var skipPrevH uint64
		if walkHeight > 0 {
			skipPrevH = skipHeight(walkHeight - 1)
		}
		if walk.Skip != nil && (skipH == height ||
			(skipH > height && !(skipPrevH >= height && skipPrevH+2 > skipH))) {
			walk = walk.Skip
			walkHeight = skipH
		} else {
			walk = walk.Parent
			walkHeight--
		}
	}
	return walk
}

// TimestampBack/BitsBack/VersionBack/HeightBack implement
// consensus.AncestorTimes/HeaderView/WindowView, letting an *Entry stand in
// directly wherever those packages need an ancestor-walk view.
func (e *Entry) TimestampBack(n uint64) uint32 {
	a := e.AncestorAt(e.Height - n)
	if a == nil {
		return 0
	}
	return a.Header.Timestamp
}

func (e *Entry) BitsBack(n uint64) uint32 {
	a := e.AncestorAt(e.Height - n)
	if a == nil {
		return 0
	}
	return a.Header.Bits
}

func (e *Entry) VersionBack(n uint64) int32 {
	a := e.AncestorAt(e.Height - n)
	if a == nil {
		return 0
	}
	return a.Header.Version
}

// MedianTimePastBack returns the median-time-past computed as of the
// ancestor n blocks behind e, used by the BIP9 deployment state machine
// and BIP68 relative locks.
func (e *Entry) MedianTimePastBack(n uint64) uint32 {
	a := e.AncestorAt(e.Height - n)
	if a == nil {
		return 0
	}
	return consensus.MedianTimePast(a)
}

func (e *Entry) HeightBack(n uint64) uint64 {
	if n > e.Height {
		return 0
	}
	return e.Height - n
}

var (
	_ consensus.AncestorTimes = (*Entry)(nil)
	_ consensus.HeaderView    = (*Entry)(nil)
	_ consensus.WindowView    = (*Entry)(nil)
)
