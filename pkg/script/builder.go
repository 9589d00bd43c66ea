package script

import (
	"encoding/binary"
)

// Builder accumulates a script, choosing the minimal push encoding for
// each datum appended.
type Builder struct {
	script []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddOp appends a bare opcode.
func (b *Builder) AddOp(opcode byte) *Builder {
	b.script = append(b.script, opcode)
	return b
}

// AddData appends data behind the shortest push opcode that fits it:
// a direct push up to 75 bytes, then OP_PUSHDATA1/2/4.
func (b *Builder) AddData(data []byte) *Builder {
	switch length := len(data); {
	case length == 0:
		b.script = append(b.script, OP_0)
	case length <= 75:
		b.script = append(b.script, byte(length))
		b.script = append(b.script, data...)
	case length <= 0xff:
		b.script = append(b.script, OP_PUSHDATA1, byte(length))
		b.script = append(b.script, data...)
	case length <= 0xffff:
		b.script = append(b.script, OP_PUSHDATA2)
		b.script = binary.LittleEndian.AppendUint16(b.script, uint16(length))
		b.script = append(b.script, data...)
	default:
		b.script = append(b.script, OP_PUSHDATA4)
		b.script = binary.LittleEndian.AppendUint32(b.script, uint32(length))
		b.script = append(b.script, data...)
	}
	return b
}

// AddInt appends n using the small-integer opcodes where one exists
// (OP_1NEGATE, OP_0, OP_1..OP_16) and the script-number encoding otherwise.
func (b *Builder) AddInt(n int64) *Builder {
	switch {
	case n == -1:
		b.script = append(b.script, OP_1NEGATE)
	case n == 0:
		b.script = append(b.script, OP_0)
	case n >= 1 && n <= 16:
		b.script = append(b.script, byte(OP_1+n-1))
	default:
		return b.AddData(int64ToScriptNum(n))
	}
	return b
}

// Script returns the bytes built so far. The slice aliases the builder's
// buffer; Reset invalidates it.
func (b *Builder) Script() []byte {
	return b.script
}

// Reset empties the builder for reuse.
func (b *Builder) Reset() *Builder {
	b.script = b.script[:0]
	return b
}
