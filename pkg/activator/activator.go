// Package activator implements activate_best_chain and the disconnect/
// connect/invalidate/reconsider operations that move the active tip
// between candidates in pkg/blockindex, applying and reversing blocks
// against the UTXO view as the tip moves.
package activator

import (
	"sync"
	"time"

	"github.com/pouria-shahmiri/chaincore/pkg/blockindex"
	"github.com/pouria-shahmiri/chaincore/pkg/blockstore"
	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/events"
	"github.com/pouria-shahmiri/chaincore/pkg/monitoring"
	"github.com/pouria-shahmiri/chaincore/pkg/script"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
	"github.com/pouria-shahmiri/chaincore/pkg/utxo"
	"github.com/pouria-shahmiri/chaincore/pkg/validation"
)

// maxStepBatch bounds how many blocks activate_best_chain connects before
// re-evaluating the best candidate, so a long catch-up doesn't hold
// chain_lock indefinitely.
const maxStepBatch = 32

// Activator owns the chain_lock: the one mutex that serializes every
// mutation of the active chain, the block index, and the UTXO view.
// Script verification itself runs on Queue's worker pool outside the
// lock; Activator only holds it while enqueuing and joining.
type Activator struct {
	mu   sync.Mutex
	cond *sync.Cond

	idx    *blockindex.Index
	db     *storage.Database
	utxo   *utxo.Store
	blocks *blockstore.Store
	params *consensus.Params
	queue  *script.CheckQueue
	bus    *events.Bus
}

// New wires an Activator over the given components. queue is shared for
// the life of the node; callers stop it themselves on shutdown.
func New(idx *blockindex.Index, db *storage.Database, utxoStore *utxo.Store, blocks *blockstore.Store, params *consensus.Params, queue *script.CheckQueue, bus *events.Bus) *Activator {
	a := &Activator{
		idx:    idx,
		db:     db,
		utxo:   utxoStore,
		blocks: blocks,
		params: params,
		queue:  queue,
		bus:    bus,
	}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Lock/Unlock expose chain_lock so chainstate's ingestion path (insert_header/
// mark_data, which also mutate the index) can serialize against activation.
func (a *Activator) Lock()   { a.mu.Lock() }
func (a *Activator) Unlock() { a.mu.Unlock() }

// WaitForTipAtLeast blocks until the active tip reaches height, signaled by
// the best-block condition variable on every tip update. Callers
// must not hold chain_lock when calling this.
func (a *Activator) WaitForTipAtLeast(height uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for a.idx.Tip() == nil || a.idx.Tip().Height < height {
		a.cond.Wait()
	}
}

func (a *Activator) flushIndex() error {
	batch := a.db.NewBatch()
	if err := a.idx.Flush(batch); err != nil {
		return chainerr.Internalf(err, "activator: serialize index batch")
	}
	if err := batch.Write(); err != nil {
		return chainerr.Internalf(err, "activator: write index batch")
	}
	return nil
}

// ActivateBestChain runs activate_best_chain to completion: repeatedly pick
// the best candidate, unwind to the fork point, then wind forward in
// batches of at most maxStepBatch blocks, re-evaluating the best candidate
// between batches so a heavier branch discovered mid-catch-up preempts the
// one in progress. prefetched, if non-nil, is used verbatim the first time
// its own entry is connected (the caller just validated and inserted it),
// avoiding a redundant disk read.
//
// Returns (false, err) when a step fails for a reason other than a
// consensus rejection of the block: an INTERNAL failure, a
// corruption-possible rejection, or a block or undo record that cannot be
// read back from disk. A purely consensus-level rejection is handled
// internally (the offending branch is marked failed and the loop continues
// with whatever candidate is now best).
func (a *Activator) ActivateBestChain(prefetched *types.Block) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var prefetchedHash types.Hash
	if prefetched != nil {
		hash, err := serialization.HashBlockHeader(&prefetched.Header)
		if err != nil {
			return false, chainerr.Internalf(err, "activate_best_chain: hash prefetched header")
		}
		prefetchedHash = hash
	}

	startTip := a.idx.Tip()
	defer func() {
		if tip := a.idx.Tip(); tip != nil && tip != startTip {
			a.bus.PublishUpdatedTip(events.UpdatedTipEvent{Tip: tip})
		}
	}()

	for {
		best := a.idx.BestCandidate(blockindex.ValidityTree)
		tip := a.idx.Tip()
		if best == nil || best == tip {
			return true, nil
		}

		fork := blockindex.FindFork(tip, best)
		var disconnected uint64
		for a.idx.Tip() != fork && a.idx.Tip() != nil {
			if err := a.disconnectTip(); err != nil {
				return false, err
			}
			disconnected++
		}
		if disconnected > 0 {
			monitoring.GetGlobalMetrics().RecordReorg(disconnected)
		}

		target := best.Height
		if a.idx.Tip() != nil && a.idx.Tip().Height+maxStepBatch < target {
			target = a.idx.Tip().Height + maxStepBatch
		}

		steps := ancestorsDescending(best, target, a.idx.Tip())
		failed := false
		for i := len(steps) - 1; i >= 0; i-- {
			step := steps[i]
			var useBlock *types.Block
			if prefetched != nil && step.Hash == prefetchedHash {
				useBlock = prefetched
			}
			ok, err := a.connectTip(step, useBlock)
			if err != nil {
				return false, err
			}
			if !ok {
				failed = true
				break
			}
		}
		if failed {
			continue // best candidate just got marked failed; re-pick
		}
		// loop again: re-evaluate in case a heavier candidate appeared,
		// or continue winding toward `best` if target < best.Height
	}
}

// ancestorsDescending returns the chain of entries strictly between tip
// (exclusive) and best (inclusive, capped at targetHeight), ordered from
// best/targetHeight down to tip+1, the order connect_tip must process
// them in (lowest height first is achieved by the caller iterating this
// slice in reverse).
func ancestorsDescending(best *blockindex.Entry, targetHeight uint64, tip *blockindex.Entry) []*blockindex.Entry {
	var out []*blockindex.Entry
	walk := best.AncestorAt(targetHeight)
	for walk != nil {
		if tip != nil && walk == tip {
			break
		}
		out = append(out, walk)
		walk = walk.Parent
	}
	return out
}

// disconnectTip reverses the active tip's connection: read its block and
// undo from disk, apply the undo to a fresh view (last tx to first,
// removing the tx's own outputs then restoring any inputs it spent),
// update best_block, and move the active pointer to the parent.
func (a *Activator) disconnectTip() error {
	tip := a.idx.Tip()
	if tip == nil || tip.Parent == nil {
		return chainerr.Internalf(nil, "disconnect_tip: no block to disconnect")
	}

	block, err := a.blocks.ReadBlock(tip.FileNo, tip.DataOffset)
	if err != nil {
		return err
	}
	undo, err := a.blocks.ReadUndo(tip.FileNo, tip.UndoOffset, tip.Header.PrevBlockHash)
	if err != nil {
		return err
	}

	view := utxo.NewView(a.utxo)
	if err := applyUndo(view, block, undo); err != nil {
		return err
	}
	view.SetBestBlock(tip.Header.PrevBlockHash)
	if err := view.Flush(); err != nil {
		return chainerr.Internalf(err, "disconnect_tip: flush view")
	}

	a.idx.SetTip(tip.Parent)
	if err := a.flushIndex(); err != nil {
		return err
	}

	a.bus.PublishBlockDisconnected(events.BlockDisconnectedEvent{Entry: tip, Block: block})
	a.cond.Broadcast()
	return nil
}

// applyUndo reverses block's effect on view: for each transaction, last to
// first, its own outputs are removed (derivable straight from the block,
// no undo needed), and if it isn't the coinbase its spent inputs are
// restored from undo.
func applyUndo(view *utxo.View, block *types.Block, undo *types.BlockUndo) error {
	undoIdx := len(undo.TxUndo) - 1
	for i := len(block.Transactions) - 1; i >= 0; i-- {
		tx := &block.Transactions[i]
		txHash, err := serialization.HashTransaction(tx)
		if err != nil {
			return chainerr.Internalf(err, "disconnect_tip: hash tx %d", i)
		}
		for outIdx := range tx.Outputs {
			if _, _, err := view.SpendOutput(types.Outpoint{Hash: txHash, Index: uint32(outIdx)}); err != nil {
				return chainerr.Internalf(err, "disconnect_tip: remove output %d of tx %d", outIdx, i)
			}
		}
		if i == 0 {
			continue // coinbase has no inputs to restore
		}
		if undoIdx < 0 {
			return chainerr.Internalf(nil, "disconnect_tip: undo record short of transactions")
		}
		txUndo := undo.TxUndo[undoIdx]
		undoIdx--
		for j := len(tx.Inputs) - 1; j >= 0; j-- {
			in := tx.Inputs[j]
			u := txUndo[j]
			meta := &types.Coins{Height: u.Height, IsCoinbase: u.IsCoinbase, Version: u.Version}
			out := u.Output
			if err := view.RestoreOutput(in.Outpoint(), &out, meta); err != nil {
				return chainerr.Internalf(err, "disconnect_tip: restore input %d of tx %d", j, i)
			}
		}
	}
	return nil
}

// connectTip runs connect_block against entry, then on success writes any
// missing undo data, raises validity, advances the active pointer, and
// notifies observers. Returns (false, nil) for a consensus-level rejection
// (entry is marked FAILED_VALID and the caller should re-pick a candidate);
// returns a non-nil error for an INTERNAL failure, a corruption-possible
// rejection, or a block that cannot be read back from disk.
func (a *Activator) connectTip(entry *blockindex.Entry, prefetched *types.Block) (bool, error) {
	block := prefetched
	if block == nil {
		var err error
		block, err = a.blocks.ReadBlock(entry.FileNo, entry.DataOffset)
		if err != nil {
			return false, err
		}
	}

	view := utxo.NewView(a.utxo)
	control := script.NewControl(a.queue)

	start := time.Now()
	undo, cerr := a.connectBlock(block, entry, view, control)
	if cerr != nil {
		if cerr.Code == chainerr.Internal || cerr.CorruptionPossible {
			// A mutation-suspect block read back from disk may be damaged
			// rather than the chain being bad; surface the error without
			// condemning the entry.
			return false, cerr
		}
		a.markAndFlushFailed(entry)
		return false, nil
	}
	if !control.Wait() {
		a.markAndFlushFailed(entry)
		return false, nil
	}

	if entry.Status&blockindex.StatusHaveUndo == 0 && entry.Parent != nil {
		offset, err := a.blocks.WriteUndo(entry.FileNo, entry.Header.PrevBlockHash, undo)
		if err != nil {
			return false, err
		}
		a.idx.MarkUndo(entry, offset)
	}
	a.idx.RaiseValidity(entry, blockindex.ValidityScripts)

	view.SetBestBlock(entry.Hash)
	if err := view.Flush(); err != nil {
		return false, chainerr.Internalf(err, "connect_tip: flush view")
	}

	a.idx.SetTip(entry)
	if err := a.flushIndex(); err != nil {
		return false, err
	}

	metrics := monitoring.GetGlobalMetrics()
	metrics.RecordBlockProcessed(time.Since(start))
	for range block.Transactions {
		metrics.RecordTxProcessed(0)
	}

	a.bus.PublishBlockConnected(events.BlockConnectedEvent{Entry: entry, Block: block})
	a.cond.Broadcast()
	return true, nil
}

func (a *Activator) markAndFlushFailed(entry *blockindex.Entry) {
	a.idx.MarkFailed(entry)
	// Flush errors here are logged by the caller's abort path if fatal;
	// the in-memory index state is authoritative regardless.
	_ = a.flushIndex()
}

// connectBlock is the per-block state transition:
// re-verify context-free checks, handle the genesis special case, derive
// active script flags, enforce BIP30, stream transactions updating view
// and building the undo record while holding the running sigop total
// (legacy plus, once P2SH is active, redeem-script sigops) under the
// per-block ceiling, and check the coinbase amount. Script
// checks are only enqueued on control, not waited on; connectTip joins
// on control right after this returns, once per block.
func (a *Activator) connectBlock(block *types.Block, entry *blockindex.Entry, view *utxo.View, control *script.Control) (*types.BlockUndo, *chainerr.Error) {
	raw, err := serialization.SerializeBlock(block)
	if err != nil {
		return nil, chainerr.Internalf(err, "connect_block: serialize for size check")
	}
	if cerr := validation.CheckBlock(block, entry.Hash, a.params.PowLimitBits, a.params.MaxBlockSigops(block.Header.Timestamp)); cerr != nil {
		return nil, cerr
	}

	if entry.Parent == nil {
		// Genesis: no transaction application, just the best-block marker.
		return &types.BlockUndo{}, nil
	}

	if cerr := validation.CheckHeaderContextual(a.params, &block.Header, entry.Parent.Height, entry.Parent); cerr != nil {
		return nil, cerr
	}
	if cerr := validation.CheckBlockContextual(a.params, block, entry.Height, len(raw), entry.Parent); cerr != nil {
		return nil, cerr
	}

	flags := validation.ActiveFlags(a.params, entry.Height)

	coinbaseHash, err := serialization.HashTransaction(&block.Transactions[0])
	if err != nil {
		return nil, chainerr.Internalf(err, "connect_block: hash coinbase")
	}
	if !consensus.IsBIP30Exception(entry.Height, coinbaseHash) {
		have, err := view.HaveCoins(coinbaseHash)
		if err != nil {
			return nil, chainerr.Internalf(err, "connect_block: bip30 lookup")
		}
		if have {
			return nil, chainerr.Invalidf("bad-txns-BIP30")
		}
	}

	maxSigops := a.params.MaxBlockSigops(block.Header.Timestamp)
	undo := &types.BlockUndo{}
	var totalFees int64
	blockSigops := 0
	for i := range block.Transactions {
		tx := &block.Transactions[i]
		txHash, err := serialization.HashTransaction(tx)
		if err != nil {
			return nil, chainerr.Internalf(err, "connect_block: hash tx %d", i)
		}

		blockSigops += validation.LegacySigOps(tx)
		if uint32(blockSigops) > maxSigops {
			return nil, chainerr.Invalidf("bad-blk-sigops")
		}

		if i == 0 {
			if err := view.AddTx(txHash, tx, entry.Height); err != nil {
				return nil, chainerr.Internalf(err, "connect_block: add coinbase outputs")
			}
			continue
		}

		if flags&script.FlagP2SH != 0 {
			p2shSigops, cerr := validation.P2SHSigOps(tx, view)
			if cerr != nil {
				return nil, cerr
			}
			blockSigops += p2shSigops
			if uint32(blockSigops) > maxSigops {
				return nil, chainerr.Invalidf("bad-blk-sigops")
			}
		}

		fee, cerr := validation.CheckInputs(a.params, tx, view, entry.Height, flags, control, entry.Parent)
		if cerr != nil {
			return nil, cerr
		}
		totalFees += fee

		txUndo := make([]types.TxInUndo, len(tx.Inputs))
		for j, in := range tx.Inputs {
			out, meta, err := view.SpendOutput(in.Outpoint())
			if err != nil {
				return nil, chainerr.Internalf(err, "connect_block: spend input %d of tx %d", j, i)
			}
			if out == nil {
				return nil, chainerr.Invalidf("bad-txns-inputs-missingorspent")
			}
			txUndo[j] = types.TxInUndo{Output: *out, Height: meta.Height, IsCoinbase: meta.IsCoinbase, Version: meta.Version}
		}
		undo.TxUndo = append(undo.TxUndo, txUndo)

		if err := view.AddTx(txHash, tx, entry.Height); err != nil {
			return nil, chainerr.Internalf(err, "connect_block: add tx outputs")
		}
	}

	subsidy := consensus.BlockSubsidy(entry.Height)
	var coinbaseOut int64
	for _, out := range block.Transactions[0].Outputs {
		coinbaseOut += out.Value
	}
	if coinbaseOut > subsidy+totalFees {
		return nil, chainerr.Invalidf("bad-cb-amount")
	}

	return undo, nil
}

// Invalidate marks entry FAILED_VALID, unwinds the active chain off of it
// if necessary, and re-seeds the candidate set from whatever remains
// eligible.
func (a *Activator) Invalidate(entry *blockindex.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.idx.MarkFailed(entry)
	if err := a.flushIndex(); err != nil {
		return err
	}

	for a.activeContainsLocked(entry) {
		if err := a.disconnectTip(); err != nil {
			return err
		}
	}
	return nil
}

// Reconsider clears FAILED_VALID/FAILED_CHILD on entry and its
// descendants, re-admitting them to the candidate set. It does
// not itself re-activate; callers follow with ActivateBestChain.
func (a *Activator) Reconsider(entry *blockindex.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.idx.ClearFailed(entry)
	return a.flushIndex()
}

func (a *Activator) activeContainsLocked(e *blockindex.Entry) bool {
	tip := a.idx.Tip()
	if tip == nil || e.Height > tip.Height {
		return false
	}
	return tip.AncestorAt(e.Height) == e
}
