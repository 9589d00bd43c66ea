package serialization

import (
	"bytes"
	"io"

	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// headerSize is the fixed serialized length of a block header; the block
// hash and the proof-of-work check are both defined over these 80 bytes.
const headerSize = 80

// SerializeBlockHeader encodes bh: version, previous block hash, merkle
// root, timestamp, difficulty bits, nonce.
func SerializeBlockHeader(bh *types.BlockHeader) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, headerSize))

	if err := WriteInt32(buf, bh.Version); err != nil {
		return nil, err
	}
	buf.Write(bh.PrevBlockHash[:])
	buf.Write(bh.MerkleRoot[:])
	if err := WriteUint32(buf, bh.Timestamp); err != nil {
		return nil, err
	}
	if err := WriteUint32(buf, bh.Bits); err != nil {
		return nil, err
	}
	if err := WriteUint32(buf, bh.Nonce); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DeserializeBlockHeader is the inverse of SerializeBlockHeader.
func DeserializeBlockHeader(r io.Reader) (*types.BlockHeader, error) {
	var bh types.BlockHeader
	var err error

	if bh.Version, err = ReadInt32(r); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, bh.PrevBlockHash[:]); err != nil {
		return nil, err
	}
	if _, err = io.ReadFull(r, bh.MerkleRoot[:]); err != nil {
		return nil, err
	}
	if bh.Timestamp, err = ReadUint32(r); err != nil {
		return nil, err
	}
	if bh.Bits, err = ReadUint32(r); err != nil {
		return nil, err
	}
	if bh.Nonce, err = ReadUint32(r); err != nil {
		return nil, err
	}

	return &bh, nil
}

// HashBlockHeader computes the block hash from bh's 80-byte serialization.
func HashBlockHeader(bh *types.BlockHeader) (types.Hash, error) {
	serialized, err := SerializeBlockHeader(bh)
	if err != nil {
		return types.Hash{}, err
	}
	if len(serialized) != headerSize {
		panic("serialization: block header must be exactly 80 bytes")
	}
	return crypto.HashBlockHeader(serialized), nil
}

// SerializeBlock encodes the header followed by a compact-size transaction
// count and each transaction in order.
func SerializeBlock(block *types.Block) ([]byte, error) {
	var buf bytes.Buffer

	headerBytes, err := SerializeBlockHeader(&block.Header)
	if err != nil {
		return nil, err
	}
	buf.Write(headerBytes)

	if err := WriteVarInt(&buf, uint64(len(block.Transactions))); err != nil {
		return nil, err
	}
	for i := range block.Transactions {
		txBytes, err := SerializeTransaction(&block.Transactions[i])
		if err != nil {
			return nil, err
		}
		buf.Write(txBytes)
	}

	return buf.Bytes(), nil
}

// DeserializeBlock is the inverse of SerializeBlock.
func DeserializeBlock(data []byte) (*types.Block, error) {
	r := bytes.NewReader(data)

	header, err := DeserializeBlockHeader(r)
	if err != nil {
		return nil, err
	}

	txCount, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}
	txs := make([]types.Transaction, txCount)
	for i := range txs {
		tx, err := DeserializeTransaction(r)
		if err != nil {
			return nil, err
		}
		txs[i] = *tx
	}

	return &types.Block{Header: *header, Transactions: txs}, nil
}
