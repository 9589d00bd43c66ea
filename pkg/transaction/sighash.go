// Package transaction builds and signs transactions: sighash.go computes
// the digest OP_CHECKSIG commits a signature to, builder.go assembles and
// signs spends and coinbases over it.
package transaction

import (
	"encoding/binary"
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// SigHashType selects which parts of the spending transaction a signature
// commits to.
type SigHashType uint32

const (
	// SigHashAll commits to every input and output.
	SigHashAll SigHashType = 0x01
	// SigHashNone commits to every input but no outputs.
	SigHashNone SigHashType = 0x02
	// SigHashSingle commits to every input and the one output whose index
	// matches the signed input's.
	SigHashSingle SigHashType = 0x03
	// SigHashAnyOneCanPay restricts the commitment to the signed input
	// alone; combined with one of the base types above.
	SigHashAnyOneCanPay SigHashType = 0x80
)

// CalcSignatureHash computes the digest a signature on input inputIdx
// commits to: the transaction with every signature script cleared, the
// spent output's script (subscript) substituted into the signed input, the
// hashType's modifications applied, and the 4-byte hash type appended,
// all double-SHA-256'd.
func CalcSignatureHash(tx *types.Transaction, inputIdx int, subscript []byte, hashType SigHashType) ([]byte, error) {
	if inputIdx < 0 || inputIdx >= len(tx.Inputs) {
		return nil, fmt.Errorf("invalid input index: %d", inputIdx)
	}

	txCopy := copyTransaction(tx)

	for i := range txCopy.Inputs {
		txCopy.Inputs[i].SignatureScript = nil
	}
	txCopy.Inputs[inputIdx].SignatureScript = subscript

	switch hashType & 0x1f {
	case SigHashAll:
		// Full commitment; nothing to strip.

	case SigHashNone:
		txCopy.Outputs = nil
		for i := range txCopy.Inputs {
			if i != inputIdx {
				txCopy.Inputs[i].Sequence = 0
			}
		}

	case SigHashSingle:
		if inputIdx >= len(txCopy.Outputs) {
			return nil, fmt.Errorf("SigHashSingle: input index exceeds output count")
		}
		txCopy.Outputs = txCopy.Outputs[inputIdx : inputIdx+1]
		for i := range txCopy.Inputs {
			if i != inputIdx {
				txCopy.Inputs[i].Sequence = 0
			}
		}

	default:
		return nil, fmt.Errorf("unsupported signature hash type: %d", hashType)
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.Inputs = []types.TxInput{txCopy.Inputs[inputIdx]}
	}

	serialized, err := serialization.SerializeTransaction(txCopy)
	if err != nil {
		return nil, fmt.Errorf("serialize for signature hash: %w", err)
	}
	serialized = binary.LittleEndian.AppendUint32(serialized, uint32(hashType))

	digest := crypto.DoubleSHA256(serialized)
	return digest[:], nil
}

// copyTransaction deep-copies tx so sighash mutations never alias the
// caller's scripts.
func copyTransaction(tx *types.Transaction) *types.Transaction {
	txCopy := &types.Transaction{
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Inputs:   make([]types.TxInput, len(tx.Inputs)),
		Outputs:  make([]types.TxOutput, len(tx.Outputs)),
	}

	for i, input := range tx.Inputs {
		txCopy.Inputs[i] = types.TxInput{
			PrevTxHash:  input.PrevTxHash,
			OutputIndex: input.OutputIndex,
			Sequence:    input.Sequence,
		}
		if input.SignatureScript != nil {
			txCopy.Inputs[i].SignatureScript = append([]byte(nil), input.SignatureScript...)
		}
	}

	for i, output := range tx.Outputs {
		txCopy.Outputs[i] = types.TxOutput{Value: output.Value}
		if output.PubKeyScript != nil {
			txCopy.Outputs[i].PubKeyScript = append([]byte(nil), output.PubKeyScript...)
		}
	}

	return txCopy
}

// SignatureHashInfo renders hashType for diagnostics, e.g. "ALL" or
// "SINGLE|ANYONECANPAY".
func SignatureHashInfo(hashType SigHashType) string {
	var info string
	switch hashType & 0x1f {
	case SigHashAll:
		info = "ALL"
	case SigHashNone:
		info = "NONE"
	case SigHashSingle:
		info = "SINGLE"
	default:
		info = fmt.Sprintf("UNKNOWN(%d)", uint32(hashType&0x1f))
	}
	if hashType&SigHashAnyOneCanPay != 0 {
		info += "|ANYONECANPAY"
	}
	return info
}
