package blockstore

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

func testBlock(nonce uint32) *types.Block {
	return &types.Block{
		Header: types.BlockHeader{
			Version:   1,
			Timestamp: 1231006505,
			Bits:      0x1d00ffff,
			Nonce:     nonce,
		},
		Transactions: []types.Transaction{
			{
				Version: 1,
				Inputs:  []types.TxInput{{PrevTxHash: types.Hash{}, OutputIndex: 0xffffffff}},
				Outputs: []types.TxOutput{{Value: 5000000000, PubKeyScript: []byte{0x51}}},
			},
		},
	}
}

func openTestStore(t *testing.T) (*Store, func()) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.OpenDatabase(dir + "/db")
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	s, err := Open(dir+"/blocks", db, consensus.RegtestParams())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s, func() { db.Close() }
}

func TestWriteReadBlockRoundTrip(t *testing.T) {
	s, cleanup := openTestStore(t)
	defer cleanup()

	block := testBlock(1)
	fileNo, offset, err := s.WriteBlock(block, 0)
	if err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	got, err := s.ReadBlock(fileNo, offset)
	if err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if got.Header.Nonce != block.Header.Nonce {
		t.Errorf("nonce = %d, want %d", got.Header.Nonce, block.Header.Nonce)
	}
	if len(got.Transactions) != 1 {
		t.Fatalf("transactions = %d, want 1", len(got.Transactions))
	}
}

func TestWriteReadUndoRoundTrip(t *testing.T) {
	s, cleanup := openTestStore(t)
	defer cleanup()

	prevHash := types.Hash{0xaa, 0xbb}
	undo := &types.BlockUndo{
		TxUndo: [][]types.TxInUndo{
			{
				{
					Output:     types.TxOutput{Value: 100, PubKeyScript: []byte{0x76, 0xa9}},
					Height:     42,
					IsCoinbase: false,
					Version:    1,
				},
			},
		},
	}

	offset, err := s.WriteUndo(0, prevHash, undo)
	if err != nil {
		t.Fatalf("WriteUndo: %v", err)
	}

	got, err := s.ReadUndo(0, offset, prevHash)
	if err != nil {
		t.Fatalf("ReadUndo: %v", err)
	}
	if len(got.TxUndo) != 1 || len(got.TxUndo[0]) != 1 {
		t.Fatalf("unexpected undo shape: %+v", got)
	}
	if got.TxUndo[0][0].Output.Value != 100 {
		t.Errorf("value = %d, want 100", got.TxUndo[0][0].Output.Value)
	}
}

func TestReadUndoRejectsWrongPrevHash(t *testing.T) {
	s, cleanup := openTestStore(t)
	defer cleanup()

	prevHash := types.Hash{0x01}
	undo := &types.BlockUndo{TxUndo: [][]types.TxInUndo{{}}}
	offset, err := s.WriteUndo(0, prevHash, undo)
	if err != nil {
		t.Fatalf("WriteUndo: %v", err)
	}

	wrongHash := types.Hash{0x02}
	if _, err := s.ReadUndo(0, offset, wrongHash); err == nil {
		t.Fatal("expected checksum mismatch error, got nil")
	}
}

func TestFilesEligibleForPruning(t *testing.T) {
	s, cleanup := openTestStore(t)
	defer cleanup()

	if _, _, err := s.WriteBlock(testBlock(1), 100); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}
	s.lastFileNo = 1 // simulate rolling to a new file past height 100's

	eligible := s.FilesEligibleForPruning(100 + MinBlocksToKeep + 1)
	if len(eligible) != 1 || eligible[0] != 0 {
		t.Fatalf("eligible = %v, want [0]", eligible)
	}

	if err := s.Prune(0); err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if _, ok := s.files[0]; ok {
		t.Error("file info should be removed after prune")
	}
}
