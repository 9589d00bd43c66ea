package types

// Coins is the per-transaction record kept in the UTXO set: the outputs
// of one transaction, any of which may already be
// spent. A spent output is represented as a nil entry in Outputs ("tombstone");
// trailing tombstones are trimmed by Spend, and a Coins value
// with every output spent is dropped entirely rather than kept empty.
type Coins struct {
	Height     uint64
	IsCoinbase bool
	Version    int32
	Outputs    []*TxOutput
}

// NewCoinsFromTx builds a Coins record for a freshly-seen transaction: every
// output starts out live.
func NewCoinsFromTx(tx *Transaction, height uint64) *Coins {
	outs := make([]*TxOutput, len(tx.Outputs))
	for i := range tx.Outputs {
		o := tx.Outputs[i]
		outs[i] = &o
	}
	return &Coins{
		Height:     height,
		IsCoinbase: tx.IsCoinbase(),
		Version:    tx.Version,
		Outputs:    outs,
	}
}

// IsSpent reports whether output index is a tombstone or out of range.
func (c *Coins) IsSpent(index uint32) bool {
	if int(index) >= len(c.Outputs) {
		return true
	}
	return c.Outputs[index] == nil
}

// Get returns the live output at index, or nil if spent/out of range.
func (c *Coins) Get(index uint32) *TxOutput {
	if int(index) >= len(c.Outputs) {
		return nil
	}
	return c.Outputs[index]
}

// Spend tombstones output index and returns the output that was there, for
// undo-record purposes. Returns nil if already spent.
func (c *Coins) Spend(index uint32) *TxOutput {
	if int(index) >= len(c.Outputs) {
		return nil
	}
	out := c.Outputs[index]
	c.Outputs[index] = nil
	c.trim()
	return out
}

// Unspend restores a previously-spent output, growing Outputs if needed.
// Used by undo application during disconnect.
func (c *Coins) Unspend(index uint32, out *TxOutput) {
	if int(index) >= len(c.Outputs) {
		grown := make([]*TxOutput, index+1)
		copy(grown, c.Outputs)
		c.Outputs = grown
	}
	c.Outputs[index] = out
}

// IsPruneable reports whether every output has been spent, meaning the
// whole Coins record can be dropped from the set.
func (c *Coins) IsPruneable() bool {
	for _, o := range c.Outputs {
		if o != nil {
			return false
		}
	}
	return true
}

// trim drops trailing tombstones so the slice doesn't grow unboundedly
// across repeated spend/unspend cycles on the same record.
func (c *Coins) trim() {
	n := len(c.Outputs)
	for n > 0 && c.Outputs[n-1] == nil {
		n--
	}
	c.Outputs = c.Outputs[:n]
}

// TxInUndo is the information needed to restore one spent input during a
// disconnect (the undo record: previous outputs for each spent
// input), carrying the full Coins metadata for the transaction that output
// belonged to so the cache can recreate the whole record if it was fully
// spent (and therefore pruned) since.
type TxInUndo struct {
	Output     TxOutput
	Height     uint64
	IsCoinbase bool
	Version    int32
}

// BlockUndo is everything needed to reverse one block's effect on the UTXO
// set: per non-coinbase transaction (parallel to Block.Transactions,
// skipping the coinbase), one TxInUndo per input.
type BlockUndo struct {
	TxUndo [][]TxInUndo
}

// Clone returns a deep copy, used when a cache entry must be mutated
// without aliasing the version another view might hold.
func (c *Coins) Clone() *Coins {
	cp := &Coins{Height: c.Height, IsCoinbase: c.IsCoinbase, Version: c.Version}
	cp.Outputs = make([]*TxOutput, len(c.Outputs))
	for i, o := range c.Outputs {
		if o == nil {
			continue
		}
		v := *o
		cp.Outputs[i] = &v
	}
	return cp
}
