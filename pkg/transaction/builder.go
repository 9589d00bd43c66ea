package transaction

import (
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/keys"
	"github.com/pouria-shahmiri/chaincore/pkg/script"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// TxBuilder accumulates inputs and outputs into an unsigned transaction.
type TxBuilder struct {
	version  int32
	inputs   []types.TxInput
	outputs  []types.TxOutput
	lockTime uint32
}

// NewTxBuilder returns an empty version-1 builder.
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{version: 1}
}

// AddInput appends an input spending (prevTxHash, outputIndex). The
// signature script stays empty until SignInput fills it.
func (b *TxBuilder) AddInput(prevTxHash types.Hash, outputIndex uint32) *TxBuilder {
	b.inputs = append(b.inputs, types.TxInput{
		PrevTxHash:  prevTxHash,
		OutputIndex: outputIndex,
		Sequence:    types.SequenceFinal,
	})
	return b
}

// AddOutput appends an output paying value to scriptPubKey.
func (b *TxBuilder) AddOutput(value int64, scriptPubKey []byte) *TxBuilder {
	b.outputs = append(b.outputs, types.TxOutput{
		Value:        value,
		PubKeyScript: scriptPubKey,
	})
	return b
}

// AddP2PKHOutput appends an output paying value to the pubkey hash a
// base58check address encodes.
func (b *TxBuilder) AddP2PKHOutput(value int64, address string) (*TxBuilder, error) {
	addr, err := keys.DecodeAddress(address)
	if err != nil {
		return b, fmt.Errorf("invalid address: %w", err)
	}
	scriptPubKey, err := script.P2PKH(addr.Hash())
	if err != nil {
		return b, fmt.Errorf("build P2PKH script: %w", err)
	}
	return b.AddOutput(value, scriptPubKey), nil
}

// SetLockTime sets the transaction lock time.
func (b *TxBuilder) SetLockTime(lockTime uint32) *TxBuilder {
	b.lockTime = lockTime
	return b
}

// Build returns the unsigned transaction.
func (b *TxBuilder) Build() (*types.Transaction, error) {
	if len(b.inputs) == 0 {
		return nil, fmt.Errorf("transaction must have at least one input")
	}
	if len(b.outputs) == 0 {
		return nil, fmt.Errorf("transaction must have at least one output")
	}
	return &types.Transaction{
		Version:  b.version,
		Inputs:   b.inputs,
		Outputs:  b.outputs,
		LockTime: b.lockTime,
	}, nil
}

// SignInput signs input inputIdx of tx with privKey against the output
// script it spends, installing the P2PKH unlocking script.
func SignInput(tx *types.Transaction, inputIdx int, privKey *keys.PrivateKey, prevScript []byte, hashType SigHashType) error {
	if inputIdx < 0 || inputIdx >= len(tx.Inputs) {
		return fmt.Errorf("invalid input index: %d", inputIdx)
	}

	sigHash, err := CalcSignatureHash(tx, inputIdx, prevScript, hashType)
	if err != nil {
		return fmt.Errorf("compute signature hash: %w", err)
	}

	signature, err := privKey.Sign(sigHash)
	if err != nil {
		return fmt.Errorf("sign input %d: %w", inputIdx, err)
	}

	// DER signature followed by the one-byte hash type, as the verifier
	// splits it back apart.
	sigBytes := append(signature.Serialize(), byte(hashType))
	pubKeyBytes := privKey.PublicKey().Bytes(true)

	tx.Inputs[inputIdx].SignatureScript = script.P2PKHUnlockingScript(sigBytes, pubKeyBytes)
	return nil
}

// CreateCoinbase builds the coinbase transaction for a block at
// blockHeight paying reward to address. The script_sig leads with the
// minimal height push the height-in-coinbase rule expects, followed by any
// extraData.
func CreateCoinbase(blockHeight uint64, reward int64, address string, extraData []byte) (*types.Transaction, error) {
	addr, err := keys.DecodeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	scriptSig := consensus.EncodeHeightScript(blockHeight)
	if len(extraData) > 0 {
		scriptSig = append(scriptSig, script.NewBuilder().AddData(extraData).Script()...)
	}

	scriptPubKey, err := script.P2PKH(addr.Hash())
	if err != nil {
		return nil, err
	}

	return &types.Transaction{
		Version: 1,
		Inputs: []types.TxInput{{
			PrevTxHash:      types.Hash{},
			OutputIndex:     0xFFFFFFFF,
			SignatureScript: scriptSig,
			Sequence:        types.SequenceFinal,
		}},
		Outputs: []types.TxOutput{{
			Value:        reward,
			PubKeyScript: scriptPubKey,
		}},
	}, nil
}
