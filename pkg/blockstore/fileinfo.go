// Package blockstore is the append-only blk*.dat/rev*.dat block and undo
// file layer: the block index only ever records (file_no,
// offset) pairs; this package owns the bytes those pairs point at.
package blockstore

import (
	"bytes"

	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
)

// MaxBlockFileSize is the point past which a new blk/rev file pair is
// opened rather than appended to further.
const MaxBlockFileSize = 128 * 1024 * 1024

// PreallocateChunkSize is how much a file grows at a time when it's about
// to exceed its current allocation, keeping fragmentation low.
const PreallocateChunkSize = 16 * 1024 * 1024

// FileInfo is the per-file summary persisted alongside each
// blk{nnnnn}.dat/rev{nnnnn}.dat pair.
type FileInfo struct {
	Size        uint32
	UndoSize    uint32
	HeightFirst uint64
	HeightLast  uint64
	TimeFirst   uint32
	TimeLast    uint32
	BlockCount  uint32
}

// recordBlock folds one newly-written block's stats into fi.
func (fi *FileInfo) recordBlock(frameLen uint32, height uint64, blockTime uint32) {
	if fi.BlockCount == 0 || height < fi.HeightFirst {
		fi.HeightFirst = height
	}
	if height > fi.HeightLast {
		fi.HeightLast = height
	}
	if fi.BlockCount == 0 || blockTime < fi.TimeFirst {
		fi.TimeFirst = blockTime
	}
	if blockTime > fi.TimeLast {
		fi.TimeLast = blockTime
	}
	fi.BlockCount++
	fi.Size += frameLen
}

// SerializeFileInfo encodes fi for the 'F' prefix table.
func SerializeFileInfo(fi *FileInfo) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range []uint32{fi.Size, fi.UndoSize} {
		if err := serialization.WriteUint32(&buf, v); err != nil {
			return nil, err
		}
	}
	for _, v := range []uint64{fi.HeightFirst, fi.HeightLast} {
		if err := serialization.WriteUint64(&buf, v); err != nil {
			return nil, err
		}
	}
	for _, v := range []uint32{fi.TimeFirst, fi.TimeLast, fi.BlockCount} {
		if err := serialization.WriteUint32(&buf, v); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// DeserializeFileInfo is the inverse of SerializeFileInfo.
func DeserializeFileInfo(data []byte) (*FileInfo, error) {
	r := bytes.NewReader(data)
	fi := &FileInfo{}
	var err error
	if fi.Size, err = serialization.ReadUint32(r); err != nil {
		return nil, err
	}
	if fi.UndoSize, err = serialization.ReadUint32(r); err != nil {
		return nil, err
	}
	if fi.HeightFirst, err = serialization.ReadUint64(r); err != nil {
		return nil, err
	}
	if fi.HeightLast, err = serialization.ReadUint64(r); err != nil {
		return nil, err
	}
	if fi.TimeFirst, err = serialization.ReadUint32(r); err != nil {
		return nil, err
	}
	if fi.TimeLast, err = serialization.ReadUint32(r); err != nil {
		return nil, err
	}
	if fi.BlockCount, err = serialization.ReadUint32(r); err != nil {
		return nil, err
	}
	return fi, nil
}
