package utxo

import (
	"github.com/pouria-shahmiri/chaincore/pkg/monitoring"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// entryFlags tracks how a cached Coins record relates to the backing
// store: FRESH means the parent has no record at all (so a spend can
// be discarded rather than tombstoned on flush), DIRTY means the cached
// value must be written back regardless.
type entryFlags uint8

const (
	flagDirty entryFlags = 1 << iota
	flagFresh
)

type cacheEntry struct {
	coins *types.Coins // nil means spent-to-nothing, only valid combined with flagDirty
	flags entryFlags
}

// View is an in-memory overlay over Store: the working set a block or
// batch of blocks touches, applied to the backing store in one Flush.
type View struct {
	store     *Store
	cache     map[types.Hash]*cacheEntry
	bestBlock types.Hash
}

// NewView opens a cache over store.
func NewView(store *Store) *View {
	return &View{
		store: store,
		cache: make(map[types.Hash]*cacheEntry),
	}
}

// fetch returns the cache entry for txHash, loading it from the backing
// store on a cache miss. A miss that also misses the store caches a FRESH
// nil entry so repeated misses don't re-hit the store.
func (v *View) fetch(txHash types.Hash) (*cacheEntry, error) {
	if e, ok := v.cache[txHash]; ok {
		monitoring.GetGlobalMetrics().RecordUTXOCacheHit()
		return e, nil
	}
	monitoring.GetGlobalMetrics().RecordUTXOCacheMiss()
	coins, err := v.store.GetCoins(txHash)
	if err != nil {
		return nil, err
	}
	e := &cacheEntry{coins: coins}
	if coins == nil {
		e.flags = flagFresh
	}
	v.cache[txHash] = e
	return e, nil
}

// GetCoins returns the live Coins record for txHash, or nil if spent/unknown.
func (v *View) GetCoins(txHash types.Hash) (*types.Coins, error) {
	e, err := v.fetch(txHash)
	if err != nil {
		return nil, err
	}
	return e.coins, nil
}

// HaveCoins reports whether txHash has any unspent output recorded.
func (v *View) HaveCoins(txHash types.Hash) (bool, error) {
	c, err := v.GetCoins(txHash)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}

// AddTx installs every output of tx as a new Coins record at height,
// marking fresh cache misses FRESH so a later same-block spend never
// reaches the backing store at all.
func (v *View) AddTx(txHash types.Hash, tx *types.Transaction, height uint64) error {
	existing, err := v.fetch(txHash)
	if err != nil {
		return err
	}
	fresh := existing.coins == nil && existing.flags&flagDirty == 0
	coins := types.NewCoinsFromTx(tx, height)
	flags := flagDirty
	if fresh {
		flags |= flagFresh
	}
	v.cache[txHash] = &cacheEntry{coins: coins, flags: flags}
	return nil
}

// SpendOutput removes the referenced output, returning it and its parent
// record's height/coinbase/version metadata for the undo record. Returns
// (nil, nil, nil) if the outpoint is already unknown/spent.
func (v *View) SpendOutput(op types.Outpoint) (*types.TxOutput, *types.Coins, error) {
	e, err := v.fetch(op.Hash)
	if err != nil {
		return nil, nil, err
	}
	if e.coins == nil {
		return nil, nil, nil
	}

	if e.coins.IsSpent(op.Index) {
		return nil, nil, nil
	}
	meta := &types.Coins{Height: e.coins.Height, IsCoinbase: e.coins.IsCoinbase, Version: e.coins.Version}
	out := e.coins.Spend(op.Index)

	flags := e.flags | flagDirty
	var newCoins *types.Coins
	if e.coins.IsPruneable() {
		if flags&flagFresh != 0 {
			delete(v.cache, op.Hash)
			return out, meta, nil
		}
		newCoins = nil
	} else {
		newCoins = e.coins
	}
	v.cache[op.Hash] = &cacheEntry{coins: newCoins, flags: flags}
	return out, meta, nil
}

// RestoreOutput reinstates a previously spent output from its undo
// record. meta carries the coinbase flag,
// height and version for an outpoint whose parent transaction is wholly
// unknown in the cache (the common "undo restores the whole record" case).
func (v *View) RestoreOutput(op types.Outpoint, out *types.TxOutput, meta *types.Coins) error {
	e, err := v.fetch(op.Hash)
	if err != nil {
		return err
	}

	if e.coins == nil {
		coins := &types.Coins{Height: meta.Height, IsCoinbase: meta.IsCoinbase, Version: meta.Version}
		coins.Unspend(op.Index, out)
		flags := flagDirty | (e.flags & flagFresh)
		v.cache[op.Hash] = &cacheEntry{coins: coins, flags: flags}
		return nil
	}

	e.coins.Unspend(op.Index, out)
	e.flags |= flagDirty
	return nil
}

// BestBlock returns the block hash the view's state corresponds to.
func (v *View) BestBlock() types.Hash {
	return v.bestBlock
}

// SetBestBlock updates the view's best-block marker; persisted on Flush.
func (v *View) SetBestBlock(hash types.Hash) {
	v.bestBlock = hash
}

// Flush writes every DIRTY entry to the backing store in one atomic batch
// and clears the cache. Either the whole batch commits or none of it does.
func (v *View) Flush() error {
	batch := v.store.NewBatch()

	for txHash, e := range v.cache {
		if e.flags&flagDirty == 0 {
			continue
		}
		if e.coins == nil || e.coins.IsPruneable() {
			if e.flags&flagFresh == 0 {
				v.store.BatchDeleteCoins(batch, txHash)
			}
			continue
		}
		if err := v.store.BatchPutCoins(batch, txHash, e.coins); err != nil {
			return err
		}
	}

	var zero types.Hash
	if v.bestBlock != zero {
		batch.Put(storage.ChainStateKey(storage.KeyBestBlockHash), v.bestBlock[:])
	}

	if err := batch.Write(); err != nil {
		return err
	}
	v.cache = make(map[types.Hash]*cacheEntry)
	return nil
}
