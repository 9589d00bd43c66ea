package serialization

import (
	"bytes"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// SerializeBlockUndo encodes a BlockUndo the same way SerializeBlock
// encodes a Block: a VarInt count of per-transaction undo vectors, then
// each vector as a VarInt input count followed by the TxInUndo records.
func SerializeBlockUndo(u *types.BlockUndo) ([]byte, error) {
	var buf bytes.Buffer

	if err := WriteVarInt(&buf, uint64(len(u.TxUndo))); err != nil {
		return nil, err
	}
	for _, txUndo := range u.TxUndo {
		if err := WriteVarInt(&buf, uint64(len(txUndo))); err != nil {
			return nil, err
		}
		for _, in := range txUndo {
			if err := WriteUint64(&buf, uint64(in.Output.Value)); err != nil {
				return nil, err
			}
			if err := WriteBytes(&buf, in.Output.PubKeyScript); err != nil {
				return nil, err
			}
			if err := WriteUint64(&buf, in.Height); err != nil {
				return nil, err
			}
			coinbase := byte(0)
			if in.IsCoinbase {
				coinbase = 1
			}
			buf.WriteByte(coinbase)
			if err := WriteInt32(&buf, in.Version); err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

// DeserializeBlockUndo is the inverse of SerializeBlockUndo.
func DeserializeBlockUndo(data []byte) (*types.BlockUndo, error) {
	r := bytes.NewReader(data)

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	u := &types.BlockUndo{TxUndo: make([][]types.TxInUndo, txCount)}
	for i := range u.TxUndo {
		inCount, err := ReadVarInt(r)
		if err != nil {
			return nil, err
		}
		ins := make([]types.TxInUndo, inCount)
		for j := range ins {
			value, err := ReadUint64(r)
			if err != nil {
				return nil, err
			}
			script, err := ReadBytes(r)
			if err != nil {
				return nil, err
			}
			height, err := ReadUint64(r)
			if err != nil {
				return nil, err
			}
			coinbaseByte := make([]byte, 1)
			if _, err := r.Read(coinbaseByte); err != nil {
				return nil, err
			}
			version, err := ReadInt32(r)
			if err != nil {
				return nil, err
			}
			ins[j] = types.TxInUndo{
				Output:     types.TxOutput{Value: int64(value), PubKeyScript: script},
				Height:     height,
				IsCoinbase: coinbaseByte[0] == 1,
				Version:    version,
			}
		}
		u.TxUndo[i] = ins
	}

	return u, nil
}
