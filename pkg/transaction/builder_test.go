package transaction

import (
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/keys"
	"github.com/pouria-shahmiri/chaincore/pkg/script"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
)

// A signed P2PKH spend must verify through the same engine path block
// connection uses, and stop verifying once the signed bytes change.
func TestSignInputVerifiesThroughEngine(t *testing.T) {
	key, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PublicKey().P2PKHAddress()

	prev, err := CreateCoinbase(1, 50_0000_0000, addr, []byte("test"))
	if err != nil {
		t.Fatalf("create coinbase: %v", err)
	}
	prevHash, err := serialization.HashTransaction(prev)
	if err != nil {
		t.Fatalf("hash coinbase: %v", err)
	}
	prevScript := prev.Outputs[0].PubKeyScript

	builder, err := NewTxBuilder().AddInput(prevHash, 0).AddP2PKHOutput(49_0000_0000, addr)
	if err != nil {
		t.Fatalf("add output: %v", err)
	}
	spend, err := builder.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if err := SignInput(spend, 0, key, prevScript, SigHashAll); err != nil {
		t.Fatalf("sign input: %v", err)
	}

	check := script.Check{
		ScriptSig: spend.Inputs[0].SignatureScript,
		ScriptPub: prevScript,
		Flags:     script.StandardFlags,
		SigChecker: func(subscript []byte, hashType uint32) ([]byte, error) {
			return CalcSignatureHash(spend, 0, subscript, SigHashType(hashType))
		},
	}
	if !check.Run() {
		t.Fatalf("signed input failed verification\nscriptSig: %s\nscriptPub: %s",
			script.DisassembleScript(spend.Inputs[0].SignatureScript),
			script.DisassembleScript(prevScript))
	}

	// Changing a signed byte must invalidate the signature.
	spend.Outputs[0].Value--
	if check.Run() {
		t.Fatalf("tampered output value still verified")
	}
}

// CreateCoinbase's script_sig must lead with a height push the
// height-in-coinbase check decodes back to the same value.
func TestCreateCoinbaseHeightRoundTrip(t *testing.T) {
	key, err := keys.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := key.PublicKey().P2PKHAddress()

	for _, height := range []uint64{1, 16, 17, 255, 256, 300000} {
		cb, err := CreateCoinbase(height, 50_0000_0000, addr, []byte("miner"))
		if err != nil {
			t.Fatalf("create coinbase at %d: %v", height, err)
		}
		got, ok := consensus.DecodeHeightScript(cb.Inputs[0].SignatureScript)
		if !ok || got != height {
			t.Fatalf("height %d round-tripped to (%d, %v)", height, got, ok)
		}
	}
}
