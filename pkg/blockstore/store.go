package blockstore

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pouria-shahmiri/chaincore/pkg/chainerr"
	"github.com/pouria-shahmiri/chaincore/pkg/consensus"
	"github.com/pouria-shahmiri/chaincore/pkg/crypto"
	"github.com/pouria-shahmiri/chaincore/pkg/serialization"
	"github.com/pouria-shahmiri/chaincore/pkg/storage"
	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Store is the append-only blk{nnnnn}.dat/rev{nnnnn}.dat layer: blocks and
// their undo data are written once and never rewritten in place, with the
// block index holding the (file_no, offset) pairs needed to find them
// again. Each record is framed magic || length || payload, the same way
// peer messages are framed on the wire; undo records are additionally
// trailed by a checksum binding them to their block's parent.
type Store struct {
	mu sync.Mutex

	dir    string
	db     *storage.Database
	magic  uint32
	params *consensus.Params

	lastFileNo uint32
	files      map[uint32]*FileInfo
}

// Open creates or reopens a Store rooted at dir, backed by db for its
// FileInfo/last-file-number bookkeeping.
func Open(dir string, db *storage.Database, params *consensus.Params) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, chainerr.Internalf(err, "blockstore: create dir")
	}
	s := &Store{
		dir:    dir,
		db:     db,
		magic:  params.Magic,
		params: params,
		files:  make(map[uint32]*FileInfo),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	raw, err := s.db.Get([]byte{storage.PrefixLastFile})
	if err != nil {
		return chainerr.Internalf(err, "blockstore: read last file no")
	}
	if len(raw) == 4 {
		s.lastFileNo = binary.BigEndian.Uint32(raw)
	}

	it := s.db.NewIterator([]byte{storage.PrefixFileInfo})
	defer it.Release()
	for it.Next() {
		key := it.Key()
		if len(key) != 5 {
			continue
		}
		fileNo := binary.BigEndian.Uint32(key[1:])
		fi, err := DeserializeFileInfo(it.Value())
		if err != nil {
			return chainerr.Internalf(err, "blockstore: corrupt file info record")
		}
		s.files[fileNo] = fi
	}
	return it.Error()
}

func (s *Store) blockPath(fileNo uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("blk%05d.dat", fileNo))
}

func (s *Store) undoPath(fileNo uint32) string {
	return filepath.Join(s.dir, fmt.Sprintf("rev%05d.dat", fileNo))
}

func (s *Store) fileInfo(fileNo uint32) *FileInfo {
	fi, ok := s.files[fileNo]
	if !ok {
		fi = &FileInfo{}
		s.files[fileNo] = fi
	}
	return fi
}

func (s *Store) persistFileInfo(fileNo uint32) error {
	data, err := SerializeFileInfo(s.files[fileNo])
	if err != nil {
		return chainerr.Internalf(err, "blockstore: serialize file info")
	}
	if err := s.db.Put(storage.FileInfoKey(fileNo), data); err != nil {
		return chainerr.Internalf(err, "blockstore: persist file info")
	}
	return nil
}

func (s *Store) persistLastFileNo() error {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, s.lastFileNo)
	if err := s.db.Put([]byte{storage.PrefixLastFile}, buf); err != nil {
		return chainerr.Internalf(err, "blockstore: persist last file no")
	}
	return nil
}

// frame is magic(4) || length(4) || payload, wire-style message framing
// applied to on-disk files.
func (s *Store) frame(payload []byte) []byte {
	out := make([]byte, 8+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], s.magic)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	copy(out[8:], payload)
	return out
}

// WriteBlock appends block's serialized form to the current (or next, if
// full) block file and returns where it landed.
func (s *Store) WriteBlock(block *types.Block, height uint64) (fileNo, offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := serialization.SerializeBlock(block)
	if err != nil {
		return 0, 0, chainerr.Internalf(err, "blockstore: serialize block")
	}
	framed := s.frame(payload)

	fileNo, err = s.fileForAppend(len(framed))
	if err != nil {
		return 0, 0, err
	}

	// Offsets come from the persisted FileInfo, not the on-disk size:
	// preallocation grows files past their logical end.
	fi := s.fileInfo(fileNo)
	offset = fi.Size
	if err := writeAtPreallocated(s.blockPath(fileNo), framed, offset); err != nil {
		return 0, 0, err
	}

	fi.recordBlock(uint32(len(framed)), height, block.Header.Timestamp)
	if err := s.persistFileInfo(fileNo); err != nil {
		return 0, 0, err
	}
	return fileNo, offset, nil
}

// writeAtPreallocated writes data at offset, first growing the file in
// PreallocateChunkSize steps whenever the write would pass its current
// allocation, keeping fragmentation low under steady append load.
func writeAtPreallocated(path string, data []byte, offset uint32) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return chainerr.Internalf(err, "blockstore: open file for append")
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return chainerr.Internalf(err, "blockstore: stat file")
	}
	end := int64(offset) + int64(len(data))
	if end > stat.Size() {
		chunks := (end + PreallocateChunkSize - 1) / PreallocateChunkSize
		if err := f.Truncate(chunks * PreallocateChunkSize); err != nil {
			return chainerr.Internalf(err, "blockstore: preallocate file")
		}
	}

	if _, err := f.WriteAt(data, int64(offset)); err != nil {
		return chainerr.Internalf(err, "blockstore: write at offset")
	}
	return nil
}

// fileForAppend returns the file number new data of the given length should
// land in, rolling lastFileNo forward if the current file would exceed
// MaxBlockFileSize.
func (s *Store) fileForAppend(length int) (uint32, error) {
	fi := s.fileInfo(s.lastFileNo)
	if fi.BlockCount > 0 && uint64(fi.Size)+uint64(length) > MaxBlockFileSize {
		s.lastFileNo++
		if err := s.persistLastFileNo(); err != nil {
			return 0, err
		}
	}
	return s.lastFileNo, nil
}

// ReadBlock reads back the block written at (fileNo, offset).
func (s *Store) ReadBlock(fileNo, offset uint32) (*types.Block, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.blockPath(fileNo))
	if err != nil {
		return nil, chainerr.Internalf(err, "blockstore: open block file")
	}
	defer f.Close()

	payload, err := readFrame(f, offset, s.magic)
	if err != nil {
		return nil, err
	}
	block, err := serialization.DeserializeBlock(payload)
	if err != nil {
		return nil, chainerr.Internalf(err, "blockstore: deserialize block")
	}
	return block, nil
}

// WriteUndo appends undo's serialized form, checksummed against
// prevBlockHash, to fileNo's undo file. Undo files share their block
// file's numbering, one rev file per blk file.
func (s *Store) WriteUndo(fileNo uint32, prevBlockHash types.Hash, undo *types.BlockUndo) (offset uint32, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := serialization.SerializeBlockUndo(undo)
	if err != nil {
		return 0, chainerr.Internalf(err, "blockstore: serialize undo")
	}
	checksum := undoChecksum(prevBlockHash, payload)
	framed := s.frame(append(payload, checksum[:]...))

	fi := s.fileInfo(fileNo)
	offset = fi.UndoSize
	if err := writeAtPreallocated(s.undoPath(fileNo), framed, offset); err != nil {
		return 0, err
	}

	fi.UndoSize += uint32(len(framed))
	if err := s.persistFileInfo(fileNo); err != nil {
		return 0, err
	}
	return offset, nil
}

// ReadUndo reads back the undo record written at (fileNo, offset),
// rejecting it if the checksum no longer matches prevBlockHash.
func (s *Store) ReadUndo(fileNo, offset uint32, prevBlockHash types.Hash) (*types.BlockUndo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.undoPath(fileNo))
	if err != nil {
		return nil, chainerr.Internalf(err, "blockstore: open undo file")
	}
	defer f.Close()

	raw, err := readFrame(f, offset, s.magic)
	if err != nil {
		return nil, err
	}
	if len(raw) < 32 {
		return nil, chainerr.Internalf(nil, "blockstore: undo record too short")
	}
	payload, checksum := raw[:len(raw)-32], raw[len(raw)-32:]
	want := undoChecksum(prevBlockHash, payload)
	if !bytes.Equal(checksum, want[:]) {
		return nil, chainerr.Invalidf("undo-checksum-mismatch")
	}

	undo, err := serialization.DeserializeBlockUndo(payload)
	if err != nil {
		return nil, chainerr.Internalf(err, "blockstore: deserialize undo")
	}
	return undo, nil
}

// undoChecksum is hash(prev_block_hash || undo_payload), binding an undo
// record to the block whose connection it reverses.
func undoChecksum(prevBlockHash types.Hash, payload []byte) types.Hash {
	buf := make([]byte, 0, 32+len(payload))
	buf = append(buf, prevBlockHash[:]...)
	buf = append(buf, payload...)
	return crypto.DoubleSHA256(buf)
}

// readFrame seeks to offset, validates the magic and length header, and
// returns the payload (for undo records, payload includes the trailing
// checksum; callers split it off).
func readFrame(f *os.File, offset, wantMagic uint32) ([]byte, error) {
	if _, err := f.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, chainerr.Internalf(err, "blockstore: seek")
	}
	var header [8]byte
	if _, err := io.ReadFull(f, header[:]); err != nil {
		return nil, chainerr.Internalf(err, "blockstore: read frame header")
	}
	magic := binary.LittleEndian.Uint32(header[0:4])
	if magic != wantMagic {
		return nil, chainerr.Invalidf("bad-file-magic")
	}
	length := binary.LittleEndian.Uint32(header[4:8])
	payload := make([]byte, length)
	if _, err := io.ReadFull(f, payload); err != nil {
		return nil, chainerr.Internalf(err, "blockstore: read frame payload")
	}
	return payload, nil
}

// MinBlocksToKeep is how close to the tip a file's highest block must be to
// stay exempt from pruning.
const MinBlocksToKeep = 288

// FilesEligibleForPruning returns the file numbers whose HeightLast is more
// than MinBlocksToKeep below tipHeight, and therefore safe to unlink. It
// never touches the block index: clearing HAVE_DATA/HAVE_UNDO on the
// affected entries is the caller's responsibility, and the index itself
// is never pruned.
func (s *Store) FilesEligibleForPruning(tipHeight uint64) []uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []uint32
	for fileNo, fi := range s.files {
		if fileNo == s.lastFileNo {
			continue // never prune the file still being appended to
		}
		if fi.BlockCount == 0 {
			continue
		}
		if fi.HeightLast+MinBlocksToKeep < tipHeight {
			out = append(out, fileNo)
		}
	}
	return out
}

// Prune unlinks the blk/rev file pair for fileNo and drops its FileInfo
// record. Callers must have already cleared HAVE_DATA/HAVE_UNDO on every
// index entry that pointed into this file.
func (s *Store) Prune(fileNo uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.blockPath(fileNo)); err != nil && !os.IsNotExist(err) {
		return chainerr.Internalf(err, "blockstore: remove block file")
	}
	if err := os.Remove(s.undoPath(fileNo)); err != nil && !os.IsNotExist(err) {
		return chainerr.Internalf(err, "blockstore: remove undo file")
	}
	delete(s.files, fileNo)
	if err := s.db.Delete(storage.FileInfoKey(fileNo)); err != nil {
		return chainerr.Internalf(err, "blockstore: delete file info")
	}
	return nil
}
