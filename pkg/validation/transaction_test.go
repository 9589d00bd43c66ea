package validation

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

func coinbaseTx(sigScriptLen int) *types.Transaction {
	return &types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{{
			PrevTxHash:      types.Hash{},
			OutputIndex:     0xffffffff,
			SignatureScript: make([]byte, sigScriptLen),
		}},
		Outputs: []types.TxOutput{{Value: 5000000000, PubKeyScript: []byte{0x51}}},
	}
}

func TestCheckTransactionRejectsEmptyInputsOrOutputs(t *testing.T) {
	tx := &types.Transaction{Inputs: nil, Outputs: []types.TxOutput{{Value: 1}}}
	if err := CheckTransaction(tx); err == nil || err.Reason != "bad-txns-vin-empty" {
		t.Fatalf("got %v, want bad-txns-vin-empty", err)
	}

	tx = &types.Transaction{Inputs: []types.TxInput{{}}, Outputs: nil}
	if err := CheckTransaction(tx); err == nil || err.Reason != "bad-txns-vout-empty" {
		t.Fatalf("got %v, want bad-txns-vout-empty", err)
	}
}

func TestCheckTransactionRejectsOutOfRangeOutputValue(t *testing.T) {
	tx := &types.Transaction{
		Inputs:  []types.TxInput{{PrevTxHash: types.Hash{1}, OutputIndex: 0}},
		Outputs: []types.TxOutput{{Value: -1}},
	}
	if err := CheckTransaction(tx); err == nil || err.Code != chainerr.Invalid {
		t.Fatalf("negative output value: got %v, want INVALID", err)
	}

	tx.Outputs[0].Value = consensus.MaxMoney + 1
	if err := CheckTransaction(tx); err == nil || err.Reason != "bad-txns-vout-negative" {
		t.Fatalf("over-max output value: got %v", err)
	}
}

func TestCheckTransactionRejectsDuplicateInputs(t *testing.T) {
	dup := types.TxInput{PrevTxHash: types.Hash{9}, OutputIndex: 0}
	tx := &types.Transaction{
		Inputs:  []types.TxInput{dup, dup},
		Outputs: []types.TxOutput{{Value: 1}},
	}
	if err := CheckTransaction(tx); err == nil || err.Reason != "bad-txns-inputs-duplicate" {
		t.Fatalf("got %v, want bad-txns-inputs-duplicate", err)
	}
}

// A coinbase script_sig length must be in [2, 100].
func TestCheckTransactionCoinbaseSigScriptBounds(t *testing.T) {
	if err := CheckTransaction(coinbaseTx(1)); err == nil || err.Reason != "bad-cb-length" {
		t.Fatalf("1-byte sigscript: got %v, want bad-cb-length", err)
	}
	if err := CheckTransaction(coinbaseTx(101)); err == nil || err.Reason != "bad-cb-length" {
		t.Fatalf("101-byte sigscript: got %v, want bad-cb-length", err)
	}
	if err := CheckTransaction(coinbaseTx(2)); err != nil {
		t.Fatalf("2-byte sigscript should be accepted, got %v", err)
	}
	if err := CheckTransaction(coinbaseTx(100)); err != nil {
		t.Fatalf("100-byte sigscript should be accepted, got %v", err)
	}
}

func TestCheckTransactionRejectsNullPrevoutOnNonCoinbase(t *testing.T) {
	tx := &types.Transaction{
		Inputs: []types.TxInput{
			{PrevTxHash: types.Hash{1}, OutputIndex: 0},
			{PrevTxHash: types.Hash{}, OutputIndex: 0xffffffff},
		},
		Outputs: []types.TxOutput{{Value: 1}},
	}
	if err := CheckTransaction(tx); err == nil || err.Reason != "bad-txns-prevout-null" {
		t.Fatalf("got %v, want bad-txns-prevout-null", err)
	}
}

// lock_time == LocktimeThreshold-1 is height-based;
// == LocktimeThreshold is time-based.
func TestIsFinalLockTimeThresholdBoundary(t *testing.T) {
	heightLock := &types.Transaction{
		LockTime: types.LocktimeThreshold - 1,
		Inputs:   []types.TxInput{{Sequence: 0}},
	}
	if IsFinal(heightLock, uint64(types.LocktimeThreshold), 0) != true {
		t.Fatalf("height-based locktime satisfied by height should be final")
	}
	if IsFinal(heightLock, uint64(types.LocktimeThreshold)-2, 0) != false {
		t.Fatalf("height-based locktime not yet reached should not be final")
	}

	timeLock := &types.Transaction{
		LockTime: types.LocktimeThreshold,
		Inputs:   []types.TxInput{{Sequence: 0}},
	}
	if IsFinal(timeLock, 1_000_000, types.LocktimeThreshold+1) != true {
		t.Fatalf("time-based locktime satisfied by cutoff should be final")
	}
	if IsFinal(timeLock, 1_000_000, types.LocktimeThreshold-1) != false {
		t.Fatalf("time-based locktime not yet reached should not be final")
	}
}

func TestIsFinalSequenceOptOut(t *testing.T) {
	tx := &types.Transaction{
		LockTime: 1_000_000_000,
		Inputs:   []types.TxInput{{Sequence: types.SequenceFinal}, {Sequence: types.SequenceFinal}},
	}
	if !IsFinal(tx, 1, 0) {
		t.Fatalf("every input at SEQUENCE_FINAL should make tx final regardless of lock_time")
	}
}

func TestIsFinalZeroLockTimeAlwaysFinal(t *testing.T) {
	tx := &types.Transaction{LockTime: 0, Inputs: []types.TxInput{{Sequence: 0}}}
	if !IsFinal(tx, 0, 0) {
		t.Fatalf("lock_time 0 should always be final")
	}
}
