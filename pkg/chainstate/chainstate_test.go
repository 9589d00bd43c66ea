package chainstate

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/events"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

func openTestState(t *testing.T) *ChainState {
	t.Helper()
	dir := t.TempDir()
	cs, err := Open(dir, consensus.RegtestParams(), 2, events.NewBus())
	if err != nil {
		t.Fatalf("open chainstate: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

// mineBlock builds a single-coinbase block extending parent (nil for
// genesis) at height and brute-forces a nonce satisfying regtest's easy
// proof-of-work target, the same technique pkg/activator's tests use.
func mineBlock(params *consensus.Params, parent *types.BlockHeader, height uint64, salt byte) *types.Block {
	var prevHash types.Hash
	parentTime := uint32(1231006505)
	if parent != nil {
		hash, err := serialization.HashBlockHeader(parent)
		if err != nil {
			panic(err)
		}
		prevHash = hash
		parentTime = parent.Timestamp
	}

	sigScript := []byte{0x01, salt}
	if height > 0 {
		sigScript = append(consensus.EncodeHeightScript(height), salt)
	}

	coinbase := types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{
			{PrevTxHash: types.Hash{}, OutputIndex: 0xffffffff, SignatureScript: sigScript, Sequence: types.SequenceFinal},
		},
		Outputs: []types.TxOutput{
			{Value: consensus.BlockSubsidy(height), PubKeyScript: []byte{0x51}},
		},
	}

	txHash, err := serialization.HashTransaction(&coinbase)
	if err != nil {
		panic(err)
	}
	root, _ := crypto.ComputeMerkleRootMutated([]types.Hash{txHash})

	header := types.BlockHeader{
		Version:       1,
		PrevBlockHash: prevHash,
		MerkleRoot:    root,
		Timestamp:     parentTime + 600,
		Bits:          params.PowLimitBits,
	}
	for nonce := uint32(0); ; nonce++ {
		header.Nonce = nonce
		hash, err := serialization.HashBlockHeader(&header)
		if err != nil {
			panic(err)
		}
		if consensus.CheckProofOfWork(hash, header.Bits) {
			break
		}
	}

	return &types.Block{Header: header, Transactions: []types.Transaction{coinbase}}
}

func TestAcceptBlock_LinearExtension(t *testing.T) {
	cs := openTestState(t)

	genesis := mineBlock(cs.params, nil, 0, 0)
	if _, err := cs.AcceptBlock(genesis); err != nil {
		t.Fatalf("accept genesis: %v", err)
	}
	if cs.Tip() == nil || cs.Tip().Height != 0 {
		t.Fatalf("tip = %s, want genesis at height 0", spew.Sdump(cs.Tip()))
	}

	parent := genesis.Header
	for height := uint64(1); height <= 3; height++ {
		block := mineBlock(cs.params, &parent, height, 0)
		if _, err := cs.AcceptBlock(block); err != nil {
			t.Fatalf("accept block at height %d: %v", height, err)
		}
		if cs.Tip().Height != height {
			t.Fatalf("tip height = %d, want %d:\n%s", cs.Tip().Height, height, spew.Sdump(cs.Tip()))
		}
		parent = block.Header
	}
}

func TestAcceptBlock_Reorg(t *testing.T) {
	cs := openTestState(t)

	genesis := mineBlock(cs.params, nil, 0, 0)
	if _, err := cs.AcceptBlock(genesis); err != nil {
		t.Fatalf("accept genesis: %v", err)
	}

	a1 := mineBlock(cs.params, &genesis.Header, 1, 0xA1)
	if _, err := cs.AcceptBlock(a1); err != nil {
		t.Fatalf("accept a1: %v", err)
	}
	a2 := mineBlock(cs.params, &a1.Header, 2, 0xA2)
	if _, err := cs.AcceptBlock(a2); err != nil {
		t.Fatalf("accept a2: %v", err)
	}
	if cs.Tip().Height != 2 {
		t.Fatalf("tip after branch A = %s", spew.Sdump(cs.Tip()))
	}

	b1 := mineBlock(cs.params, &genesis.Header, 1, 0xB1)
	if _, err := cs.AcceptBlock(b1); err != nil {
		t.Fatalf("accept b1: %v", err)
	}
	b2 := mineBlock(cs.params, &b1.Header, 2, 0xB2)
	if _, err := cs.AcceptBlock(b2); err != nil {
		t.Fatalf("accept b2: %v", err)
	}
	b3 := mineBlock(cs.params, &b2.Header, 3, 0xB3)
	if _, err := cs.AcceptBlock(b3); err != nil {
		t.Fatalf("accept b3: %v", err)
	}

	b3Hash, _ := serialization.HashBlockHeader(&b3.Header)
	if cs.Tip().Height != 3 || cs.Tip().Hash != b3Hash {
		t.Fatalf("tip after reorg = %s, want b3", spew.Sdump(cs.Tip()))
	}
}

func TestAcceptBlock_RejectsBadProofOfWork(t *testing.T) {
	cs := openTestState(t)

	genesis := mineBlock(cs.params, nil, 0, 0)
	if _, err := cs.AcceptBlock(genesis); err != nil {
		t.Fatalf("accept genesis: %v", err)
	}

	bad := mineBlock(cs.params, &genesis.Header, 1, 0)
	bad.Header.Bits = 0x1d00ffff // far harder than regtest's limit, won't satisfy CheckProofOfWork at found nonce
	if _, err := cs.AcceptBlock(bad); err == nil {
		t.Fatalf("expected rejection for bad proof of work, got nil error; block: %s", spew.Sdump(bad))
	}
	if cs.Tip().Height != 0 {
		t.Fatalf("tip advanced past a rejected block: %s", spew.Sdump(cs.Tip()))
	}
}
