// Package serialization implements the consensus wire encoding: every
// multi-byte integer is little-endian, variable-length counts use the
// compact-size form, and byte strings are length-prefixed. Block and
// transaction hashes are computed over exactly these encodings, so any
// deviation here changes identities, not just bytes.
package serialization

import (
	"encoding/binary"
	"io"
)

// WriteUint32 writes v in little-endian.
func WriteUint32(w io.Writer, v uint32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// WriteInt32 writes v in little-endian.
func WriteInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// WriteUint64 writes v in little-endian.
func WriteUint64(w io.Writer, v uint64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

// WriteVarInt writes v in compact-size form: one byte below 0xFD, else a
// 0xFD/0xFE/0xFF marker followed by a 2/4/8-byte little-endian value.
func WriteVarInt(w io.Writer, v uint64) error {
	switch {
	case v < 0xFD:
		_, err := w.Write([]byte{byte(v)})
		return err

	case v <= 0xFFFF:
		if _, err := w.Write([]byte{0xFD}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint16(v))

	case v <= 0xFFFFFFFF:
		if _, err := w.Write([]byte{0xFE}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, uint32(v))

	default:
		if _, err := w.Write([]byte{0xFF}); err != nil {
			return err
		}
		return binary.Write(w, binary.LittleEndian, v)
	}
}

// WriteBytes writes data with a compact-size length prefix.
func WriteBytes(w io.Writer, data []byte) error {
	if err := WriteVarInt(w, uint64(len(data))); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

// ReadUint32 reads a little-endian uint32.
func ReadUint32(r io.Reader) (uint32, error) {
	var v uint32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// ReadInt32 reads a little-endian int32.
func ReadInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// ReadUint64 reads a little-endian uint64.
func ReadUint64(r io.Reader) (uint64, error) {
	var v uint64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// ReadVarInt reads a compact-size value.
func ReadVarInt(r io.Reader) (uint64, error) {
	var first [1]byte
	if _, err := io.ReadFull(r, first[:]); err != nil {
		return 0, err
	}

	switch first[0] {
	case 0xFD:
		var v uint16
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 0xFE:
		var v uint32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return uint64(v), nil
	case 0xFF:
		var v uint64
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return 0, err
		}
		return v, nil
	default:
		return uint64(first[0]), nil
	}
}

// ReadBytes reads a compact-size length prefix followed by that many bytes.
func ReadBytes(r io.Reader) ([]byte, error) {
	length, err := ReadVarInt(r)
	if err != nil {
		return nil, err
	}

	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
