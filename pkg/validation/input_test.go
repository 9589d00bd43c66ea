package validation

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/script"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
	"github.com/pouria-shahmiri/chaincore/pkg/utxo"
)

func newTestControl(t *testing.T) *script.Control {
	t.Helper()
	q := script.NewCheckQueue(1)
	t.Cleanup(q.Stop)
	return script.NewControl(q)
}

func setupCoinbaseSpend(t *testing.T, coinbaseHeight uint64) (*utxo.View, *types.Transaction) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenDatabase(dir)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	view := utxo.NewView(utxo.NewStore(db))
	coinbaseHash := types.Hash{7}
	coinbaseTx := &types.Transaction{
		Version: 1,
		Inputs:  []types.TxInput{{PrevTxHash: types.Hash{}, OutputIndex: 0xffffffff}},
		Outputs: []types.TxOutput{{Value: 5000000000, PubKeyScript: []byte{0x51}}},
	}
	if err := view.AddTx(coinbaseHash, coinbaseTx, coinbaseHeight); err != nil {
		t.Fatalf("AddTx coinbase: %v", err)
	}

	spend := &types.Transaction{
		Version: 1,
		Inputs:  []types.TxInput{{PrevTxHash: coinbaseHash, OutputIndex: 0}},
		Outputs: []types.TxOutput{{Value: 4000000000, PubKeyScript: []byte{0x51}}},
	}
	return view, spend
}

// Coinbase maturity exactly at depth 99 rejects; at depth 100 accepts.
func TestCheckInputsCoinbaseMaturityBoundary(t *testing.T) {
	p := consensus.RegtestParams()
	control := newTestControl(t)

	view, spend := setupCoinbaseSpend(t, 1)
	if _, err := CheckInputs(p, spend, view, 100, ActiveFlags(p, 100), control, nil); err == nil || err.Reason != "bad-txns-premature-spend-of-coinbase" {
		t.Fatalf("depth 99: got %v, want bad-txns-premature-spend-of-coinbase", err)
	}

	view, spend = setupCoinbaseSpend(t, 1)
	if _, err := CheckInputs(p, spend, view, 101, ActiveFlags(p, 101), control, nil); err != nil {
		t.Fatalf("depth 100: got %v, want accept", err)
	}
}

func TestCheckInputsRejectsMissingCoin(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.OpenDatabase(dir)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()
	view := utxo.NewView(utxo.NewStore(db))

	p := consensus.RegtestParams()
	control := newTestControl(t)
	spend := &types.Transaction{
		Inputs:  []types.TxInput{{PrevTxHash: types.Hash{99}, OutputIndex: 0}},
		Outputs: []types.TxOutput{{Value: 1}},
	}
	if _, err := CheckInputs(p, spend, view, 1, ActiveFlags(p, 1), control, nil); err == nil || err.Reason != "bad-txns-inputs-missingorspent" {
		t.Fatalf("got %v, want bad-txns-inputs-missingorspent", err)
	}
}

func TestCheckInputsComputesFee(t *testing.T) {
	p := consensus.RegtestParams()
	control := newTestControl(t)
	view, spend := setupCoinbaseSpend(t, 1)

	fee, err := CheckInputs(p, spend, view, 200, ActiveFlags(p, 200), control, nil)
	if err != nil {
		t.Fatalf("CheckInputs: %v", err)
	}
	wantFee := int64(5000000000 - 4000000000)
	if fee != wantFee {
		t.Fatalf("fee = %d, want %d", fee, wantFee)
	}
}

func TestCheckInputsRejectsSpendAboveAvailableValue(t *testing.T) {
	p := consensus.RegtestParams()
	control := newTestControl(t)
	view, spend := setupCoinbaseSpend(t, 1)
	spend.Outputs[0].Value = 6000000000

	if _, err := CheckInputs(p, spend, view, 200, ActiveFlags(p, 200), control, nil); err == nil || err.Reason != "bad-txns-in-belowout" {
		t.Fatalf("got %v, want bad-txns-in-belowout", err)
	}
}
