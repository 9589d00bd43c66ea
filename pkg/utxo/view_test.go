package utxo

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

func openTestView(t *testing.T) (*View, *Store, func()) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenDatabase(dir)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	s := NewStore(db)
	return NewView(s), s, func() { db.Close() }
}

func testTx(value int64) *types.Transaction {
	return &types.Transaction{
		Version: 1,
		Inputs:  []types.TxInput{{PrevTxHash: types.Hash{1}, OutputIndex: 0}},
		Outputs: []types.TxOutput{{Value: value, PubKeyScript: []byte{0x51}}},
	}
}

func TestAddTxThenSpendRoundTrip(t *testing.T) {
	v, _, cleanup := openTestView(t)
	defer cleanup()

	txHash := types.Hash{2}
	tx := testTx(5000000000)
	if err := v.AddTx(txHash, tx, 10); err != nil {
		t.Fatalf("AddTx: %v", err)
	}

	have, err := v.HaveCoins(txHash)
	if err != nil || !have {
		t.Fatalf("HaveCoins after AddTx: have=%v err=%v", have, err)
	}

	op := types.Outpoint{Hash: txHash, Index: 0}
	out, meta, err := v.SpendOutput(op)
	if err != nil {
		t.Fatalf("SpendOutput: %v", err)
	}
	if out == nil || out.Value != 5000000000 {
		t.Fatalf("SpendOutput returned %+v, want value 5000000000", out)
	}
	if meta.Height != 10 {
		t.Fatalf("undo meta height = %d, want 10", meta.Height)
	}

	have, err = v.HaveCoins(txHash)
	if err != nil {
		t.Fatalf("HaveCoins after spend: %v", err)
	}
	if have {
		t.Fatalf("fully-spent single-output record should report not present")
	}
}

// disconnect(connect(B, V)) == V: restoring a spent output via the undo
// record must reproduce the original live Coins state.
func TestSpendThenRestoreRoundTrip(t *testing.T) {
	v, _, cleanup := openTestView(t)
	defer cleanup()

	txHash := types.Hash{3}
	tx := testTx(1000)
	if err := v.AddTx(txHash, tx, 5); err != nil {
		t.Fatalf("AddTx: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	op := types.Outpoint{Hash: txHash, Index: 0}
	out, meta, err := v.SpendOutput(op)
	if err != nil || out == nil {
		t.Fatalf("SpendOutput: out=%v err=%v", out, err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("Flush after spend: %v", err)
	}

	have, _ := v.HaveCoins(txHash)
	if have {
		t.Fatalf("record should be pruned after flush of a fully-spent single-output tx")
	}

	if err := v.RestoreOutput(op, out, meta); err != nil {
		t.Fatalf("RestoreOutput: %v", err)
	}
	coins, err := v.GetCoins(txHash)
	if err != nil {
		t.Fatalf("GetCoins after restore: %v", err)
	}
	if coins == nil || coins.IsSpent(0) {
		t.Fatalf("restored output should be live again, got %+v", coins)
	}
	if coins.Height != meta.Height || coins.IsCoinbase != meta.IsCoinbase {
		t.Fatalf("restored Coins metadata mismatch: got %+v, want height=%d coinbase=%v", coins, meta.Height, meta.IsCoinbase)
	}
}

func TestFreshEntrySpentBeforeFlushIsNeverWritten(t *testing.T) {
	v, s, cleanup := openTestView(t)
	defer cleanup()

	txHash := types.Hash{4}
	if err := v.AddTx(txHash, testTx(1), 1); err != nil {
		t.Fatalf("AddTx: %v", err)
	}
	if _, _, err := v.SpendOutput(types.Outpoint{Hash: txHash, Index: 0}); err != nil {
		t.Fatalf("SpendOutput: %v", err)
	}
	if err := v.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	coins, err := s.GetCoins(txHash)
	if err != nil {
		t.Fatalf("GetCoins from backing store: %v", err)
	}
	if coins != nil {
		t.Fatalf("a FRESH record fully spent before flush must never reach the backing store, got %+v", coins)
	}
}

func TestFlushPersistsBestBlock(t *testing.T) {
	v, s, cleanup := openTestView(t)
	defer cleanup()

	want := types.Hash{0xAA}
	v.SetBestBlock(want)
	if err := v.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if got := v.BestBlock(); got != want {
		t.Fatalf("BestBlock() = %x, want %x", got, want)
	}
	raw, err := s.db.Get(storage.ChainStateKey(storage.KeyBestBlockHash))
	if err != nil {
		t.Fatalf("read persisted best block: %v", err)
	}
	if string(raw) != string(want[:]) {
		t.Fatalf("persisted best block = %x, want %x", raw, want)
	}
}
