// Package validation is the stateless and contextual rule-check engine:
// pure predicates over transactions, blocks, and headers that
// return a *chainerr.Error on rejection. It knows nothing of persistence —
// pkg/blockindex and pkg/activator call into it and persist the results.
package validation

import (
	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// MaxTxSize bounds a transaction's serialized size.
const MaxTxSize = 1000000

// CheckTransaction runs the context-free structural checks every
// transaction must pass regardless of chain state.
func CheckTransaction(tx *types.Transaction) *chainerr.Error {
	if len(tx.Inputs) == 0 {
		return chainerr.Invalidf("bad-txns-vin-empty")
	}
	if len(tx.Outputs) == 0 {
		return chainerr.Invalidf("bad-txns-vout-empty")
	}

	serialized, err := serialization.SerializeTransaction(tx)
	if err != nil {
		return chainerr.Internalf(err, "serialize transaction for size check")
	}
	if len(serialized) > MaxTxSize {
		return chainerr.Invalidf("bad-txns-oversize")
	}

	totalOut := int64(0)
	for _, output := range tx.Outputs {
		if !consensus.CheckMoneyRange(output.Value) {
			return chainerr.Invalidf("bad-txns-vout-negative")
		}
		totalOut += output.Value
		if !consensus.CheckMoneyRange(totalOut) {
			return chainerr.Invalidf("bad-txns-txouttotal-toolarge")
		}
	}

	seen := make(map[types.Outpoint]bool, len(tx.Inputs))
	for _, input := range tx.Inputs {
		op := input.Outpoint()
		if seen[op] {
			return chainerr.Invalidf("bad-txns-inputs-duplicate")
		}
		seen[op] = true
	}

	if tx.IsCoinbase() {
		sigScriptLen := len(tx.Inputs[0].SignatureScript)
		if sigScriptLen < 2 || sigScriptLen > 100 {
			return chainerr.Invalidf("bad-cb-length")
		}
	} else {
		for _, input := range tx.Inputs {
			if input.IsNull() {
				return chainerr.Invalidf("bad-txns-prevout-null")
			}
		}
	}

	return nil
}

// IsFinal reports whether tx is final at (height, cutoff): lock_time ==
// 0, or (below LocktimeThreshold: height-based; at/above: cutoff-based),
// or every input opted out via SEQUENCE_FINAL.
func IsFinal(tx *types.Transaction, height uint64, cutoff uint32) bool {
	if tx.LockTime == 0 {
		return true
	}

	var satisfied bool
	if tx.LockTime < types.LocktimeThreshold {
		satisfied = uint64(tx.LockTime) < height
	} else {
		satisfied = tx.LockTime < cutoff
	}
	if satisfied {
		return true
	}

	for _, in := range tx.Inputs {
		if in.Sequence != types.SequenceFinal {
			return false
		}
	}
	return true
}
