package blockindex

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// chain builds a linear index of n+1 entries (genesis plus n headers),
// genesis at height 0, and returns them in height order.
func chain(t *testing.T, n int) (*Index, []*Entry) {
	t.Helper()
	idx := NewIndex()
	genesisHeader := types.BlockHeader{Version: 1, Timestamp: 1231006505, Bits: 0x1d00ffff}
	genesisHash := types.Hash{0}
	entries := []*Entry{idx.InsertGenesis(genesisHash, genesisHeader)}

	prevHash := genesisHash
	for i := 1; i <= n; i++ {
		h := types.Hash{byte(i)}
		header := types.BlockHeader{Version: 1, PrevBlockHash: prevHash, Timestamp: uint32(1231006505 + i*600), Bits: 0x1d00ffff}
		e := idx.InsertHeader(h, header)
		entries = append(entries, e)
		prevHash = h
	}
	return idx, entries
}

// AncestorAt must match the naive prev-walk for every height.
func TestAncestorAtMatchesNaiveWalk(t *testing.T) {
	_, entries := chain(t, 40)
	tip := entries[len(entries)-1]

	for h := uint64(0); h <= tip.Height; h++ {
		naive := tip
		for naive.Height > h {
			naive = naive.Parent
		}
		got := tip.AncestorAt(h)
		if got != naive {
			t.Fatalf("AncestorAt(%d) = %v (height %d), want %v (height %d)", h, got.Hash, got.Height, naive.Hash, naive.Height)
		}
	}
}

func TestFindForkOnDivergingBranches(t *testing.T) {
	idx, entries := chain(t, 3)
	fork := entries[1] // height 1

	a1 := idx.InsertHeader(types.Hash{0xA1}, types.BlockHeader{PrevBlockHash: fork.Hash, Timestamp: 2000, Bits: 0x1d00ffff})
	a2 := idx.InsertHeader(types.Hash{0xA2}, types.BlockHeader{PrevBlockHash: a1.Hash, Timestamp: 2600, Bits: 0x1d00ffff})

	b1 := idx.InsertHeader(types.Hash{0xB1}, types.BlockHeader{PrevBlockHash: fork.Hash, Timestamp: 2000, Bits: 0x1d00ffff})

	if got := FindFork(a2, b1); got != fork {
		t.Fatalf("FindFork = %v, want %v", got.Hash, fork.Hash)
	}
	if got := FindFork(a2, entries[3]); got != fork {
		t.Fatalf("FindFork(a2, original tip) = %v, want %v", got.Hash, fork.Hash)
	}
}

// The candidate set is closed under "better than tip" and never
// contains a FAILED_CHILD entry.
func TestCandidateSetClosureAndFailedChildExclusion(t *testing.T) {
	idx, entries := chain(t, 2)
	for _, e := range entries {
		idx.MarkData(e, 0, 0, 1)
		idx.RaiseValidity(e, ValidityChain)
	}

	candidates := idx.CandidateSet(ValidityTree)
	if len(candidates) != len(entries) {
		t.Fatalf("candidate set has %d entries, want %d", len(candidates), len(entries))
	}
	if idx.BestCandidate(ValidityTree) != entries[len(entries)-1] {
		t.Fatalf("best candidate should be the highest-work (deepest) entry")
	}

	idx.MarkFailed(entries[1])
	candidates = idx.CandidateSet(ValidityTree)
	for _, c := range candidates {
		if c == entries[1] || c == entries[2] {
			t.Fatalf("candidate set still contains a failed or failed-child entry: %v", c.Hash)
		}
	}
	if entries[2].IsValid(ValidityTree) {
		t.Fatalf("entry with a failed ancestor should report invalid")
	}
	if entries[2].Status&StatusFailedChild == 0 {
		t.Fatalf("descendant of a failed entry should carry StatusFailedChild")
	}
}

// After invalidate then reconsider, the candidate set returns to its
// pre-invalidate state.
func TestMarkFailedThenClearFailedRestoresCandidateSet(t *testing.T) {
	idx, entries := chain(t, 2)
	for _, e := range entries {
		idx.MarkData(e, 0, 0, 1)
		idx.RaiseValidity(e, ValidityChain)
	}
	before := idx.CandidateSet(ValidityTree)

	idx.MarkFailed(entries[1])
	idx.ClearFailed(entries[1])

	after := idx.CandidateSet(ValidityTree)
	if len(after) != len(before) {
		t.Fatalf("candidate set size after reconsider = %d, want %d", len(after), len(before))
	}
	for _, e := range entries[1:] {
		if e.Status&(StatusFailed|StatusFailedChild) != 0 {
			t.Fatalf("entry %v should have no failure flags after ClearFailed", e.Hash)
		}
	}
}

func TestMarkDataComputesChainTxCountOnlyOnceAncestryComplete(t *testing.T) {
	idx, entries := chain(t, 2)

	// mark the tip's data first: its ChainTxCount can't be computed yet
	// because its parent's ancestry is still unknown.
	idx.MarkData(entries[2], 0, 0, 1)
	if entries[2].ChainTxCount != 0 {
		t.Fatalf("ChainTxCount should stay 0 until every ancestor has data")
	}

	idx.MarkData(entries[0], 0, 0, 1)
	idx.MarkData(entries[1], 0, 0, 1)

	if entries[2].ChainTxCount != 3 {
		t.Fatalf("ChainTxCount = %d, want 3 once every ancestor has data", entries[2].ChainTxCount)
	}
}
