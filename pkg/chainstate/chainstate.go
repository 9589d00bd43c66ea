// Package chainstate wires the block index, chain activator, UTXO store,
// block store, and event bus into the single entry point callers outside
// this repository use: hand it headers and blocks, it runs every
// context-free and contextual check, updates the active chain, and
// publishes the result.
package chainstate

import (
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/activator"
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

// ChainState owns every on-disk component of the validation core and
// exposes the ingestion operations a caller (a peer's block-download loop,
// a bulk reindex tool, a test harness) drives.
type ChainState struct {
	db          *storage.Database
	idx         *blockindex.Index
	blocks      *blockstore.Store
	utxo        *utxo.Store
	queue       *script.CheckQueue
	bus         *events.Bus
	params      *consensus.Params
	checkpoints *consensus.CheckpointVerifier
	activate    *activator.Activator
	prune       bool
}

// Open loads or creates the validation core's on-disk state under dataDir:
// a LevelDB database for the block index, UTXO set, and chain-state
// markers, plus the block/undo file store. scriptCheckThreads sizes the
// parallel script-verification worker pool.
func Open(dataDir string, params *consensus.Params, scriptCheckThreads int, bus *events.Bus) (*ChainState, error) {
	db, err := storage.OpenDatabase(dataDir + "/chainstate")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	blocks, err := blockstore.Open(dataDir+"/blocks", db, params)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open block store: %w", err)
	}

	idx, err := blockindex.Load(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load block index: %w", err)
	}
	if tipHash, err := bestBlockHash(db); err != nil {
		db.Close()
		return nil, err
	} else if entry := idx.Get(tipHash); entry != nil {
		idx.SetTip(entry)
	}

	utxoStore := utxo.NewStore(db)
	queue := script.NewCheckQueue(scriptCheckThreads)

	cs := &ChainState{
		db:          db,
		idx:         idx,
		blocks:      blocks,
		utxo:        utxoStore,
		queue:       queue,
		bus:         bus,
		params:      params,
		checkpoints: consensus.NewCheckpointVerifierForNetwork(params.Name, true),
	}
	cs.activate = activator.New(idx, db, utxoStore, blocks, params, queue, bus)
	return cs, nil
}

// bestBlockHash reads the persisted active-tip hash, or the zero hash if
// the chain state is empty (no genesis accepted yet).
func bestBlockHash(db *storage.Database) (types.Hash, error) {
	raw, err := db.Get(storage.ChainStateKey(storage.KeyBestBlockHash))
	if err != nil {
		return types.Hash{}, fmt.Errorf("read best block hash: %w", err)
	}
	var hash types.Hash
	copy(hash[:], raw)
	return hash, nil
}

// Close stops the script-check worker pool and releases the database
// handle. It does not close the event bus; the caller owns that.
func (cs *ChainState) Close() error {
	cs.queue.Stop()
	return cs.db.Close()
}

// Tip returns the current active-chain tip, or nil before genesis has been
// accepted.
func (cs *ChainState) Tip() *blockindex.Entry {
	return cs.idx.Tip()
}

// Entry looks up a known header/block by hash, or nil if unseen.
func (cs *ChainState) Entry(hash types.Hash) *blockindex.Entry {
	return cs.idx.Get(hash)
}

// AcceptHeader runs the header's context-free checks and
// inserts it into the block index at ValidityHeader, without requiring the
// block body. A duplicate header is a no-op that returns the existing
// entry. The very first header accepted (no existing tip, no known parent)
// is treated as genesis: contextual checks don't apply to it.
func (cs *ChainState) AcceptHeader(header types.BlockHeader) (*blockindex.Entry, error) {
	cs.activate.Lock()
	defer cs.activate.Unlock()

	hash, err := serialization.HashBlockHeader(&header)
	if err != nil {
		return nil, chainerr.Internalf(err, "accept_header: hash header")
	}
	if existing := cs.idx.Get(hash); existing != nil {
		return existing, nil
	}

	isGenesis := cs.idx.Tip() == nil && cs.idx.Get(header.PrevBlockHash) == nil
	var zero types.Hash
	if isGenesis && header.PrevBlockHash != zero {
		return nil, chainerr.Invalidf("prev-blk-not-found")
	}

	if cerr := validation.CheckBlockHeader(&header, hash, cs.params.PowLimitBits); cerr != nil {
		return nil, cerr
	}

	var entry *blockindex.Entry
	if isGenesis {
		entry = cs.idx.InsertGenesis(hash, header)
	} else {
		parent := cs.idx.Get(header.PrevBlockHash)
		if parent == nil {
			return nil, chainerr.Invalidf("prev-blk-not-found")
		}
		height := parent.Height + 1
		if err := cs.checkpoints.VerifyCheckpoint(height, hash); err != nil {
			return nil, chainerr.New(chainerr.Checkpoint, "checkpoint-mismatch").WithDoS(100)
		}
		if tip := cs.idx.Tip(); tip != nil {
			if cp := cs.checkpoints.GetLastCheckpoint(tip.Height); cp != nil && height <= cp.Height {
				return nil, chainerr.New(chainerr.Checkpoint, "bad-fork-prior-to-checkpoint").WithDoS(100)
			}
		}
		if cerr := validation.CheckHeaderContextual(cs.params, &header, parent.Height, parent); cerr != nil {
			return nil, cerr
		}
		entry = cs.idx.InsertHeader(hash, header)
	}
	cs.idx.RaiseValidity(entry, blockindex.ValidityHeader)
	return entry, cs.flushIndex()
}

// AcceptBlock runs a full block's context-free and contextual structural
// checks, stores its body, raises it to ValidityTree, and drives
// ActivateBestChain so it (or whatever is now the heaviest valid chain)
// becomes the active tip. AcceptHeader is implied; callers may skip
// calling it separately.
func (cs *ChainState) AcceptBlock(block *types.Block) (*blockindex.Entry, error) {
	entry, err := cs.AcceptHeader(block.Header)
	if err != nil {
		return nil, err
	}

	cs.activate.Lock()
	if entry.Status&blockindex.StatusHaveData != 0 {
		cs.activate.Unlock()
		return entry, nil // already have this block's body
	}

	raw, serr := serialization.SerializeBlock(block)
	if serr != nil {
		cs.activate.Unlock()
		return nil, chainerr.Internalf(serr, "accept_block: serialize for size check")
	}
	if cerr := validation.CheckBlock(block, entry.Hash, cs.params.PowLimitBits, cs.params.MaxBlockSigops(block.Header.Timestamp)); cerr != nil {
		cs.activate.Unlock()
		return nil, cerr
	}
	if entry.Parent != nil {
		if cerr := validation.CheckBlockContextual(cs.params, block, entry.Height, len(raw), entry.Parent); cerr != nil {
			cs.activate.Unlock()
			return nil, cerr
		}
	}

	fileNo, offset, werr := cs.blocks.WriteBlock(block, entry.Height)
	if werr != nil {
		cs.activate.Unlock()
		return nil, chainerr.Internalf(werr, "accept_block: write block")
	}
	cs.idx.MarkData(entry, fileNo, offset, uint64(len(block.Transactions)))
	cs.idx.RaiseValidity(entry, blockindex.ValidityTree)
	if ferr := cs.flushIndex(); ferr != nil {
		cs.activate.Unlock()
		return nil, ferr
	}
	cs.activate.Unlock()

	monitoring.Debugf("accepted block %x at height %d", entry.Hash[:4], entry.Height)
	if _, err := cs.activate.ActivateBestChain(block); err != nil {
		return entry, err
	}
	if cs.prune {
		if err := cs.maybePrune(); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

// SetPruning enables unlinking of block/undo files once every block in
// them is buried deeper than the retention window. The block index itself
// is never pruned.
func (cs *ChainState) SetPruning(enabled bool) {
	cs.prune = enabled
}

// maybePrune unlinks every file whose blocks have all fallen out of the
// retention window, clearing HAVE_DATA/HAVE_UNDO on the affected index
// entries first so nothing ever points at unlinked bytes.
func (cs *ChainState) maybePrune() error {
	tip := cs.idx.Tip()
	if tip == nil {
		return nil
	}
	for _, fileNo := range cs.blocks.FilesEligibleForPruning(tip.Height) {
		cs.activate.Lock()
		cs.idx.ClearDataForFile(fileNo)
		err := cs.flushIndex()
		cs.activate.Unlock()
		if err != nil {
			return err
		}
		if err := cs.blocks.Prune(fileNo); err != nil {
			return err
		}
		monitoring.Infof("pruned block file %05d", fileNo)
	}
	return nil
}

// Invalidate marks entry and its descendants permanently failed and rewinds
// the active chain off them if necessary.
func (cs *ChainState) Invalidate(entry *blockindex.Entry) error {
	return cs.activate.Invalidate(entry)
}

// Reconsider clears a previously invalidated entry's failed status so it
// can compete for the active tip again.
func (cs *ChainState) Reconsider(entry *blockindex.Entry) error {
	if err := cs.activate.Reconsider(entry); err != nil {
		return err
	}
	_, err := cs.activate.ActivateBestChain(nil)
	return err
}

// WaitForTipAtLeast blocks the caller until the active tip reaches height.
func (cs *ChainState) WaitForTipAtLeast(height uint64) {
	cs.activate.WaitForTipAtLeast(height)
}

func (cs *ChainState) flushIndex() error {
	batch := cs.db.NewBatch()
	if err := cs.idx.Flush(batch); err != nil {
		return chainerr.Internalf(err, "flush index")
	}
	if err := batch.Write(); err != nil {
		return chainerr.Internalf(err, "write index batch")
	}
	return nil
}
