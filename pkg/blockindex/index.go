package blockindex

import (
	"math/big"
	"sort"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Index owns every Entry ever inserted, arena-style: entries are never
// freed or moved once created, and are addressed by pointer everywhere
// else in the chain-validation code.
type Index struct {
	byHash   map[types.Hash]*Entry
	unlinked map[types.Hash][]*Entry // keyed by missing parent hash
	children map[*Entry][]*Entry     // parent -> linked children, for BFS walks
	dirty    map[*Entry]bool         // entries changed since the last Flush
	nextSeq  int64

	tip *Entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		byHash:   make(map[types.Hash]*Entry),
		unlinked: make(map[types.Hash][]*Entry),
		children: make(map[*Entry][]*Entry),
		dirty:    make(map[*Entry]bool),
	}
}

// Get returns the entry for hash, or nil if unknown.
func (idx *Index) Get(hash types.Hash) *Entry {
	return idx.byHash[hash]
}

// Tip returns the current best-validity tip, or nil if the index is empty.
func (idx *Index) Tip() *Entry {
	return idx.tip
}

// InsertGenesis installs the genesis entry with no parent.
func (idx *Index) InsertGenesis(hash types.Hash, header types.BlockHeader) *Entry {
	e := &Entry{
		Hash:       hash,
		Header:     header,
		Height:     0,
		ChainWork:  consensus.BlockWork(header.Bits),
		SequenceID: idx.nextSeq,
	}
	idx.nextSeq++
	idx.byHash[hash] = e
	idx.linkChildren(e)
	idx.MarkDirty(e)
	return e
}

// InsertHeader adds a new header entry. If the
// parent isn't known yet, the entry is still created (height 0, no
// chain-work) and parked in the unlinked map; it is relinked automatically
// once its parent is inserted.
func (idx *Index) InsertHeader(hash types.Hash, header types.BlockHeader) *Entry {
	if existing, ok := idx.byHash[hash]; ok {
		return existing
	}

	e := &Entry{
		Hash:       hash,
		Header:     header,
		SequenceID: idx.nextSeq,
	}
	idx.nextSeq++
	idx.byHash[hash] = e

	if parent, ok := idx.byHash[header.PrevBlockHash]; ok {
		idx.attach(e, parent)
	} else {
		idx.unlinked[header.PrevBlockHash] = append(idx.unlinked[header.PrevBlockHash], e)
	}

	idx.linkChildren(e)
	idx.MarkDirty(e)
	return e
}

// attach wires e below parent: height, chain-work, skip pointer.
func (idx *Index) attach(e, parent *Entry) {
	e.Parent = parent
	e.Height = parent.Height + 1
	e.ChainWork = new(big.Int).Add(parent.ChainWork, consensus.BlockWork(e.Header.Bits))
	e.BuildSkip()
	if parent.Status&(StatusFailed|StatusFailedChild) != 0 {
		e.Status |= StatusFailedChild
	}
	idx.children[parent] = append(idx.children[parent], e)
	idx.MarkDirty(e)
}

// linkChildren attaches any previously-unlinked entries whose parent is e.
func (idx *Index) linkChildren(e *Entry) {
	children, ok := idx.unlinked[e.Hash]
	if !ok {
		return
	}
	delete(idx.unlinked, e.Hash)
	for _, child := range children {
		idx.attach(child, e)
		idx.linkChildren(child)
	}
}

// MarkData records that e's full block body is now on disk at
// (fileNo, dataOffset) with txCount transactions, and walks e's already-
// linked descendants to compute chain_tx_count for any whose ancestry has
// just become complete.
func (idx *Index) MarkData(e *Entry, fileNo, dataOffset uint32, txCount uint64) {
	e.Status |= StatusHaveData
	e.TxCount = txCount
	e.FileNo = fileNo
	e.DataOffset = dataOffset
	idx.MarkDirty(e)
	idx.tryComputeChainTxCount(e)
}

// MarkUndo records that e's undo data is now on disk at undoOffset.
func (idx *Index) MarkUndo(e *Entry, undoOffset uint32) {
	e.Status |= StatusHaveUndo
	e.UndoOffset = undoOffset
	idx.MarkDirty(e)
}

// tryComputeChainTxCount sets e.ChainTxCount once every ancestor has
// HAVE_DATA, and recurses into e's children since their own ancestry may
// now be complete too. A no-op if e itself lacks data yet, its ancestry is
// still incomplete, or it was already computed.
func (idx *Index) tryComputeChainTxCount(e *Entry) {
	if e.ChainTxCount > 0 || e.Status&StatusHaveData == 0 {
		return
	}
	var parentCount uint64
	if e.Parent != nil {
		if e.Parent.ChainTxCount == 0 {
			return
		}
		parentCount = e.Parent.ChainTxCount
	}
	e.ChainTxCount = parentCount + e.TxCount
	idx.MarkDirty(e)
	for _, child := range idx.children[e] {
		idx.tryComputeChainTxCount(child)
	}
}

// MarkFailed flags e (and propagates StatusFailedChild to its descendants
// already in the index) as having failed validation.
func (idx *Index) MarkFailed(e *Entry) {
	e.Status |= StatusFailed
	idx.MarkDirty(e)
	idx.propagateFailedChild(e)
}

func (idx *Index) propagateFailedChild(e *Entry) {
	for _, child := range idx.children[e] {
		if child.Status&StatusFailedChild == 0 {
			child.Status |= StatusFailedChild
			idx.MarkDirty(child)
			idx.propagateFailedChild(child)
		}
	}
}

// ClearFailed reverses MarkFailed/propagation on e and its descendants,
// the index half of the activator's reconsider operation.
func (idx *Index) ClearFailed(e *Entry) {
	e.Status &^= StatusFailed
	e.Status &^= StatusFailedChild
	idx.MarkDirty(e)
	for _, child := range idx.children[e] {
		idx.ClearFailed(child)
	}
}

// ClearDataForFile drops the HAVE_DATA/HAVE_UNDO bits on every entry whose
// block bytes live in fileNo, ahead of that file being unlinked. The
// entries themselves stay: pruning never deletes the index, and
// ChainTxCount keeps recording that the data existed.
func (idx *Index) ClearDataForFile(fileNo uint32) {
	for _, e := range idx.byHash {
		if e.Status&StatusHaveData != 0 && e.FileNo == fileNo {
			e.Status &^= StatusHaveData | StatusHaveUndo
			idx.MarkDirty(e)
		}
	}
}

// RaiseValidity bumps e's validated tier to tier if that's an improvement,
// and reports whether it changed anything.
func (idx *Index) RaiseValidity(e *Entry, tier Validity) bool {
	if e.Validity >= tier {
		return false
	}
	e.Validity = tier
	idx.MarkDirty(e)
	return true
}

// SetTip updates the index's notion of the current best-validity tip. The
// activator calls this once it has actually connected e as the new best
// block; the index itself does not decide chain selection.
func (idx *Index) SetTip(e *Entry) {
	idx.tip = e
}

// FindFork returns the common ancestor of a and b, walking both up to the
// lower height first via skip pointers, then stepping one at a time until
// they meet. Returns nil only if a or b is nil.
func FindFork(a, b *Entry) *Entry {
	if a == nil || b == nil {
		return nil
	}
	if a.Height > b.Height {
		a = a.AncestorAt(b.Height)
	} else if b.Height > a.Height {
		b = b.AncestorAt(a.Height)
	}
	for a != b {
		a = a.Parent
		b = b.Parent
		if a == nil || b == nil {
			return nil
		}
	}
	return a
}

// CandidateSet returns every entry eligible to be considered as a new best
// tip: validated to at least minValidity, ancestry fully known
// (ChainTxCount > 0), not failed, ordered by chain_work descending,
// sequence_id ascending: most work first, and among equal work the one
// seen first wins.
func (idx *Index) CandidateSet(minValidity Validity) []*Entry {
	var out []*Entry
	for _, e := range idx.byHash {
		if e.Status&(StatusFailed|StatusFailedChild) != 0 {
			continue
		}
		if e.ChainTxCount == 0 {
			continue
		}
		if !e.IsValid(minValidity) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		cmp := out[i].ChainWork.Cmp(out[j].ChainWork)
		if cmp != 0 {
			return cmp > 0
		}
		return out[i].SequenceID < out[j].SequenceID
	})
	return out
}

// BestCandidate is the single best entry CandidateSet would rank first, or
// nil if none qualifies.
func (idx *Index) BestCandidate(minValidity Validity) *Entry {
	best := idx.CandidateSet(minValidity)
	if len(best) == 0 {
		return nil
	}
	return best[0]
}
