package validation

import (
	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/script"
	"github.com/pouria-shahmiri/chaincore/pkg/transaction"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
	"github.com/pouria-shahmiri/chaincore/pkg/utxo"
)

// sequenceLockTimeDisableFlag (bit 31) opts an input out of BIP68 entirely;
// sequenceLockTypeFlag (bit 22) switches the low 16 bits from a block-height
// delta to a 512-second-unit time delta.
const (
	sequenceLockTimeDisableFlag uint32 = 1 << 31
	sequenceLockTypeFlag        uint32 = 1 << 22
	sequenceLockTimeMask        uint32 = 0x0000ffff
	sequenceLockTimeGranularity        = 512
)

// ActiveFlags derives the script verification flag union active for a
// block at height, from the network's height-activated soft forks:
// P2SH, DERSIG, CLTV, CSV are each gated on their own activation
// height, layered on top of StrictEnc/LowS which are always included by
// this implementation (no legacy pre-BIP66 relay path exists here).
func ActiveFlags(p *consensus.Params, height uint64) script.Flags {
	flags := script.FlagStrictEnc | script.FlagLowS
	if height >= p.BIP16Height {
		flags |= script.FlagP2SH
	}
	if height >= p.BIP66Height {
		flags |= script.FlagDERSIG
	}
	if height >= p.BIP65Height {
		flags |= script.FlagCLTV
	}
	if height >= p.BIP112Height {
		flags |= script.FlagCSV
	}
	return flags
}

// CheckSequenceLocks evaluates BIP68 relative-lock constraints for every
// input of tx against the coin heights it spends, given prev (the block
// being extended)'s ancestry for computing median-time-past at arbitrary
// earlier heights. A no-op unless tx opts
// into BIP68 (version >= 2) and the deployment is active at height.
func CheckSequenceLocks(p *consensus.Params, tx *types.Transaction, height uint64, coinHeights []uint64, prev consensus.WindowView) *chainerr.Error {
	if height < p.BIP68Height || tx.Version < 2 {
		return nil
	}

	blockMTP := prev.MedianTimePastBack(0)
	prevHeight := prev.HeightBack(0)

	for i, in := range tx.Inputs {
		if in.Sequence&sequenceLockTimeDisableFlag != 0 {
			continue
		}
		coinHeight := coinHeights[i]

		if in.Sequence&sequenceLockTypeFlag != 0 {
			units := in.Sequence & sequenceLockTimeMask
			back := uint64(0)
			if coinHeight > 0 {
				back = prevHeight - (coinHeight - 1)
			}
			ancestorMTP := prev.MedianTimePastBack(back)
			required := ancestorMTP + units*sequenceLockTimeGranularity
			if blockMTP < required {
				return chainerr.Invalidf("bad-txns-nonfinal")
			}
		} else {
			required := coinHeight + uint64(in.Sequence&sequenceLockTimeMask)
			if height < required {
				return chainerr.Invalidf("bad-txns-nonfinal")
			}
		}
	}

	return nil
}

// LegacySigOps is the context-free signature-operation count of tx: every
// input and output script scanned in non-accurate mode.
func LegacySigOps(tx *types.Transaction) int {
	count := 0
	for _, in := range tx.Inputs {
		count += script.CountSigOps(in.SignatureScript, false)
	}
	for _, out := range tx.Outputs {
		count += script.CountSigOps(out.PubKeyScript, false)
	}
	return count
}

// P2SHSigOps counts the extra signature operations tx's redeem scripts
// carry: for each input spending a pay-to-script-hash output, the accurate
// sigop count of the redeem script the scriptSig pushes. Requires every
// spent coin to be present in view, so callers run it before spending
// tx's inputs.
func P2SHSigOps(tx *types.Transaction, view *utxo.View) (int, *chainerr.Error) {
	if tx.IsCoinbase() {
		return 0, nil
	}
	total := 0
	for i, in := range tx.Inputs {
		op := in.Outpoint()
		coins, err := view.GetCoins(op.Hash)
		if err != nil {
			return 0, chainerr.Internalf(err, "load coin for p2sh sigops, input %d", i)
		}
		if coins == nil {
			return 0, chainerr.Invalidf("bad-txns-inputs-missingorspent")
		}
		out := coins.Get(op.Index)
		if out == nil {
			return 0, chainerr.Invalidf("bad-txns-inputs-missingorspent")
		}
		if script.IsPayToScriptHash(out.PubKeyScript) {
			total += script.CountP2SHSigOps(in.SignatureScript)
		}
	}
	return total, nil
}

// CheckInputs validates a non-coinbase transaction's inputs against
// view: coin existence, coinbase maturity, BIP68 relative locks,
// and fee bounds, and enqueues its script checks onto control. Returns the
// transaction's fee. The caller must call control.Wait() once every
// transaction in the block has been enqueued, and fail the block if it
// returns false.
func CheckInputs(p *consensus.Params, tx *types.Transaction, view *utxo.View, height uint64, flags script.Flags, control *script.Control, prev consensus.WindowView) (int64, *chainerr.Error) {
	totalIn := int64(0)
	coinHeights := make([]uint64, len(tx.Inputs))
	var checks []script.Check

	for i, in := range tx.Inputs {
		op := in.Outpoint()
		coins, err := view.GetCoins(op.Hash)
		if err != nil {
			return 0, chainerr.Internalf(err, "load coin for input %d", i)
		}
		if coins == nil || coins.IsSpent(op.Index) {
			return 0, chainerr.Invalidf("bad-txns-inputs-missingorspent")
		}
		out := coins.Get(op.Index)

		if coins.IsCoinbase && height-coins.Height < consensus.CoinbaseMaturity {
			return 0, chainerr.Invalidf("bad-txns-premature-spend-of-coinbase")
		}

		if !consensus.CheckMoneyRange(out.Value) {
			return 0, chainerr.Invalidf("bad-txns-inputvalues-outofrange")
		}
		totalIn += out.Value
		if !consensus.CheckMoneyRange(totalIn) {
			return 0, chainerr.Invalidf("bad-txns-inputvalues-outofrange")
		}

		coinHeights[i] = coins.Height

		inputIdx := i
		checks = append(checks, script.Check{
			ScriptSig: in.SignatureScript,
			ScriptPub: out.PubKeyScript,
			Flags:     flags,
			SigChecker: func(subscript []byte, hashType uint32) ([]byte, error) {
				return transaction.CalcSignatureHash(tx, inputIdx, subscript, transaction.SigHashType(hashType))
			},
		})
	}

	if err := CheckSequenceLocks(p, tx, height, coinHeights, prev); err != nil {
		return 0, err
	}

	totalOut := int64(0)
	for _, out := range tx.Outputs {
		totalOut += out.Value
	}
	fee := totalIn - totalOut
	if fee < 0 {
		return 0, chainerr.Invalidf("bad-txns-in-belowout")
	}
	if !consensus.CheckMoneyRange(fee) {
		return 0, chainerr.Invalidf("bad-txns-fee-outofrange")
	}

	control.Add(checks)
	return fee, nil
}
