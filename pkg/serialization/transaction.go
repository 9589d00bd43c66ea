package serialization

import (
	"bytes"
	"io"

	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// SerializeTransaction encodes tx: version, input count, inputs (prevout,
// script, sequence), output count, outputs (value, script), lock time.
// The transaction id is the double-SHA-256 of exactly these bytes.
func SerializeTransaction(tx *types.Transaction) ([]byte, error) {
	var buf bytes.Buffer

	if err := WriteInt32(&buf, tx.Version); err != nil {
		return nil, err
	}

	if err := WriteVarInt(&buf, uint64(len(tx.Inputs))); err != nil {
		return nil, err
	}
	for _, in := range tx.Inputs {
		buf.Write(in.PrevTxHash[:])
		if err := WriteUint32(&buf, in.OutputIndex); err != nil {
			return nil, err
		}
		if err := WriteBytes(&buf, in.SignatureScript); err != nil {
			return nil, err
		}
		if err := WriteUint32(&buf, in.Sequence); err != nil {
			return nil, err
		}
	}

	if err := WriteVarInt(&buf, uint64(len(tx.Outputs))); err != nil {
		return nil, err
	}
	for _, out := range tx.Outputs {
		if err := WriteUint64(&buf, uint64(out.Value)); err != nil {
			return nil, err
		}
		if err := WriteBytes(&buf, out.PubKeyScript); err != nil {
			return nil, err
		}
	}

	if err := WriteUint32(&buf, tx.LockTime); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DeserializeTransaction is the inverse of SerializeTransaction.
func DeserializeTransaction(r io.Reader) (*types.Transaction, error) {
	var tx types.Transaction
	var err error

	if tx.Version, err = ReadInt32(r); err != nil {
		return nil, err
	}

	inputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]types.TxInput, inputCount)
	for i := range tx.Inputs {
		in := &tx.Inputs[i]
		if _, err = io.ReadFull(r, in.PrevTxHash[:]); err != nil {
			return nil, err
		}
		if in.OutputIndex, err = ReadUint32(r); err != nil {
			return nil, err
		}
		if in.SignatureScript, err = ReadBytes(r); err != nil {
			return nil, err
		}
		if in.Sequence, err = ReadUint32(r); err != nil {
			return nil, err
		}
	}

	outputCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]types.TxOutput, outputCount)
	for i := range tx.Outputs {
		out := &tx.Outputs[i]
		value, err := ReadUint64(r)
		if err != nil {
			return nil, err
		}
		out.Value = int64(value)
		if out.PubKeyScript, err = ReadBytes(r); err != nil {
			return nil, err
		}
	}

	if tx.LockTime, err = ReadUint32(r); err != nil {
		return nil, err
	}

	return &tx, nil
}

// HashTransaction computes tx's id from its serialization.
func HashTransaction(tx *types.Transaction) (types.Hash, error) {
	serialized, err := SerializeTransaction(tx)
	if err != nil {
		return types.Hash{}, err
	}
	return crypto.HashTransaction(serialized), nil
}
