package blockindex

import (
	"bytes"
	"fmt"
	"math/big"

	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// SerializeEntry encodes e for the block-index KV store. Parent is stored
// as a hash (not a pointer: entries are reloaded before pointers can be
// rebuilt), everything else follows the field layout in entry.go.
func SerializeEntry(e *Entry) ([]byte, error) {
	var buf bytes.Buffer

	buf.Write(e.Header.PrevBlockHash[:]) // redundant with Header but kept for a cheap prev lookup
	headerBytes, err := serialization.SerializeBlockHeader(&e.Header)
	if err != nil {
		return nil, err
	}
	if err := serialization.WriteBytes(&buf, headerBytes); err != nil {
		return nil, err
	}

	if err := serialization.WriteUint64(&buf, e.Height); err != nil {
		return nil, err
	}
	if err := serialization.WriteBytes(&buf, e.ChainWork.Bytes()); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint32(&buf, uint32(e.Status)); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint32(&buf, uint32(e.Validity)); err != nil {
		return nil, err
	}
	if err := serialization.WriteInt32(&buf, 0); err != nil { // reserved, keeps the wire layout stable across a possible future field
		return nil, err
	}
	if err := serialization.WriteUint64(&buf, uint64(e.SequenceID)); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint64(&buf, e.TxCount); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint64(&buf, e.ChainTxCount); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint32(&buf, e.FileNo); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint32(&buf, e.DataOffset); err != nil {
		return nil, err
	}
	if err := serialization.WriteUint32(&buf, e.UndoOffset); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// DeserializeEntry is the inverse of SerializeEntry. The returned Entry's
// Parent/Skip pointers are unset; Index.Load wires them in a second pass
// once every entry has been read back.
func DeserializeEntry(hash types.Hash, data []byte) (*Entry, error) {
	buf := bytes.NewReader(data)

	var prevHash types.Hash
	if _, err := buf.Read(prevHash[:]); err != nil {
		return nil, fmt.Errorf("read prev hash: %w", err)
	}

	headerBytes, err := serialization.ReadBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	header, err := serialization.DeserializeBlockHeader(bytes.NewReader(headerBytes))
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}

	e := &Entry{Hash: hash, Header: *header}

	if e.Height, err = serialization.ReadUint64(buf); err != nil {
		return nil, fmt.Errorf("read height: %w", err)
	}
	workBytes, err := serialization.ReadBytes(buf)
	if err != nil {
		return nil, fmt.Errorf("read chain work: %w", err)
	}
	e.ChainWork = new(big.Int).SetBytes(workBytes)

	status, err := serialization.ReadUint32(buf)
	if err != nil {
		return nil, fmt.Errorf("read status: %w", err)
	}
	e.Status = Status(status)

	validity, err := serialization.ReadUint32(buf)
	if err != nil {
		return nil, fmt.Errorf("read validity: %w", err)
	}
	e.Validity = Validity(validity)

	if _, err := serialization.ReadInt32(buf); err != nil {
		return nil, fmt.Errorf("read reserved field: %w", err)
	}

	seq, err := serialization.ReadUint64(buf)
	if err != nil {
		return nil, fmt.Errorf("read sequence id: %w", err)
	}
	e.SequenceID = int64(seq)

	if e.TxCount, err = serialization.ReadUint64(buf); err != nil {
		return nil, fmt.Errorf("read tx count: %w", err)
	}
	if e.ChainTxCount, err = serialization.ReadUint64(buf); err != nil {
		return nil, fmt.Errorf("read chain tx count: %w", err)
	}
	if e.FileNo, err = serialization.ReadUint32(buf); err != nil {
		return nil, fmt.Errorf("read file no: %w", err)
	}
	if e.DataOffset, err = serialization.ReadUint32(buf); err != nil {
		return nil, fmt.Errorf("read data offset: %w", err)
	}
	if e.UndoOffset, err = serialization.ReadUint32(buf); err != nil {
		return nil, fmt.Errorf("read undo offset: %w", err)
	}

	return e, nil
}

// MarkDirty flags e to be written out on the next Flush. Every Index
// method that mutates an entry calls this.
func (idx *Index) MarkDirty(e *Entry) {
	idx.dirty[e] = true
}

// Flush drains every entry MarkDirty has accumulated into batch. The
// caller commits batch atomically, typically alongside the UTXO view's
// own flush and the best-block marker.
func (idx *Index) Flush(batch *storage.Batch) error {
	for e := range idx.dirty {
		raw, err := SerializeEntry(e)
		if err != nil {
			return fmt.Errorf("serialize entry %s: %w", e.Hash, err)
		}
		batch.Put(storage.BlockIndexKey(e.Hash), raw)
	}
	idx.dirty = make(map[*Entry]bool)
	return nil
}

// Load rebuilds an Index from every entry record in db: a first pass
// reads all entries, a second pass wires Parent/Skip pointers and the
// children map from each entry's stored PrevBlockHash, and a third walks
// forward from genesis filling in ChainTxCount for HAVE_DATA entries
// persisted without one. The walk stops at any entry that already has a
// ChainTxCount, so persisted values are kept as loaded.
func Load(db *storage.Database) (*Index, error) {
	idx := NewIndex()

	iter := db.NewIterator([]byte{storage.PrefixBlockIndex})
	defer iter.Release()

	for iter.Next() {
		key := iter.Key()
		if len(key) != 33 {
			continue
		}
		var hash types.Hash
		copy(hash[:], key[1:])

		e, err := DeserializeEntry(hash, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("load entry %s: %w", hash, err)
		}
		idx.byHash[hash] = e
		if e.SequenceID >= idx.nextSeq {
			idx.nextSeq = e.SequenceID + 1
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	var genesis *Entry
	for _, e := range idx.byHash {
		var zero types.Hash
		if e.Header.PrevBlockHash == zero {
			genesis = e
			continue
		}
		parent, ok := idx.byHash[e.Header.PrevBlockHash]
		if !ok {
			idx.unlinked[e.Header.PrevBlockHash] = append(idx.unlinked[e.Header.PrevBlockHash], e)
			continue
		}
		e.Parent = parent
		idx.children[parent] = append(idx.children[parent], e)
	}
	for _, e := range idx.byHash {
		e.BuildSkip()
	}

	if genesis != nil {
		idx.tryComputeChainTxCount(genesis)
	}

	return idx, nil
}
