package script

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/keys"
	"golang.org/x/crypto/ripemd160"
)

// SigChecker computes the signature hash an input's OP_CHECKSIG must verify
// against, for the given subscript and hash type. pkg/script has no notion
// of a Transaction; the caller (pkg/transaction's legacy sighash algorithm,
// wired by whatever validates the input) supplies this so the two packages
// don't import each other.
type SigChecker func(subscript []byte, hashType uint32) ([]byte, error)

// Engine executes Bitcoin scripts
type Engine struct {
	stack    *Stack
	altStack *Stack
	script   []byte
	pc       int // Program counter

	subscript  []byte // scriptPubKey OP_CHECKSIG signs against
	sigChecker SigChecker
	flags      Flags
}

// SetFlags sets the verification flags this run enforces; the
// zero value enforces nothing beyond the opcodes' own structural rules.
func (e *Engine) SetFlags(flags Flags) {
	e.flags = flags
}

// NewEngine creates a new script execution engine
func NewEngine(script []byte) *Engine {
	return &Engine{
		stack:    NewStack(),
		altStack: NewStack(),
		script:   script,
		pc:       0,
	}
}

// Execute runs the script
func (e *Engine) Execute() error {
	for e.pc < len(e.script) {
		if err := e.step(); err != nil {
			return fmt.Errorf("execution failed at pc=%d: %w", e.pc, err)
		}
	}

	// Script succeeds if stack top is true
	if e.stack.Size() == 0 {
		return fmt.Errorf("script failed: empty stack")
	}

	top, err := e.stack.Peek()
	if err != nil {
		return err
	}

	if !castToBool(top) {
		return fmt.Errorf("script failed: false on stack")
	}

	return nil
}

// step executes one opcode
func (e *Engine) step() error {
	if e.pc >= len(e.script) {
		return fmt.Errorf("program counter out of bounds")
	}

	opcode := e.script[e.pc]
	e.pc++

	// Handle data push opcodes (0x01-0x4b push that many bytes)
	if opcode > 0 && opcode <= 0x4b {
		return e.executePush(int(opcode))
	}

	// Handle specific opcodes
	switch opcode {
	case OP_0:
		e.stack.Push([]byte{})

	case OP_1NEGATE:
		e.stack.PushInt(-1)

	case OP_1, OP_2, OP_3, OP_4, OP_5, OP_6, OP_7, OP_8,
		OP_9, OP_10, OP_11, OP_12, OP_13, OP_14, OP_15, OP_16:
		e.stack.PushInt(int64(SmallIntValue(opcode)))

	case OP_NOP:
		// Do nothing

	case OP_VERIFY:
		return e.opVerify()

	case OP_RETURN:
		return fmt.Errorf("OP_RETURN executed")

	case OP_DUP:
		return e.stack.Dup()

	case OP_EQUAL:
		return e.opEqual()

	case OP_EQUALVERIFY:
		if err := e.opEqual(); err != nil {
			return err
		}
		return e.opVerify()

	case OP_HASH160:
		return e.opHash160()

	case OP_SHA256:
		return e.opSHA256()

	case OP_CHECKSIG:
		return e.opCheckSig()

	case OP_CHECKSIGVERIFY:
		if err := e.opCheckSig(); err != nil {
			return err
		}
		return e.opVerify()

	case OP_DROP:
		_, err := e.stack.Pop()
		return err

	case OP_SWAP:
		return e.stack.Swap()

	default:
		return fmt.Errorf("unimplemented opcode: %s", OpcodeName(opcode))
	}

	return nil
}

// executePush pushes N bytes onto stack
func (e *Engine) executePush(n int) error {
	if e.pc+n > len(e.script) {
		return fmt.Errorf("push %d bytes exceeds script length", n)
	}

	data := make([]byte, n)
	copy(data, e.script[e.pc:e.pc+n])
	e.pc += n

	e.stack.Push(data)
	return nil
}

// opVerify pops top and fails if false
func (e *Engine) opVerify() error {
	item, err := e.stack.Pop()
	if err != nil {
		return err
	}

	if !castToBool(item) {
		return fmt.Errorf("VERIFY failed")
	}

	return nil
}

// opEqual pops two items and pushes true if equal
func (e *Engine) opEqual() error {
	a, err := e.stack.Pop()
	if err != nil {
		return err
	}

	b, err := e.stack.Pop()
	if err != nil {
		return err
	}

	if bytes.Equal(a, b) {
		e.stack.Push([]byte{1})
	} else {
		e.stack.Push([]byte{})
	}

	return nil
}

// opHash160 performs RIPEMD160(SHA256(x))
func (e *Engine) opHash160() error {
	item, err := e.stack.Pop()
	if err != nil {
		return err
	}

	// SHA256
	sha := sha256.Sum256(item)

	// RIPEMD160
	ripe := ripemd160.New()
	ripe.Write(sha[:])
	hash := ripe.Sum(nil)

	e.stack.Push(hash)
	return nil
}

// opSHA256 performs SHA256(x)
func (e *Engine) opSHA256() error {
	item, err := e.stack.Pop()
	if err != nil {
		return err
	}

	hash := sha256.Sum256(item)
	e.stack.Push(hash[:])

	return nil
}

// opCheckSig verifies signature pubKeyBytes over the transaction's
// signature hash. The engine treats the signature hash as an opaque 32
// bytes supplied by its sigChecker, and never reaches back into the
// transaction/UTXO layers itself.
func (e *Engine) opCheckSig() error {
	pubKeyBytes, err := e.stack.Pop()
	if err != nil {
		return err
	}
	sigBytes, err := e.stack.Pop()
	if err != nil {
		return err
	}

	ok := e.checkSig(sigBytes, pubKeyBytes)
	if ok {
		e.stack.Push([]byte{1})
	} else {
		e.stack.Push([]byte{})
	}
	return nil
}

// checkSig verifies a DER-encoded signature (with its trailing sighash-type
// byte) against pubKeyBytes, returning false rather than an error for any
// malformed input: an invalid signature is a script failure, not an
// execution error.
func (e *Engine) checkSig(sigBytes, pubKeyBytes []byte) bool {
	if len(sigBytes) == 0 || len(pubKeyBytes) == 0 {
		return false
	}
	if e.sigChecker == nil {
		return false
	}

	hashType := uint32(sigBytes[len(sigBytes)-1])
	derSig := sigBytes[:len(sigBytes)-1]

	if e.flags.Has(FlagStrictEnc) && !isDefinedHashType(hashType) {
		return false
	}

	// decred's ParseDERSignature already rejects non-strict (BER but not
	// DER) encodings, which is what BIP66/FlagDERSIG requires; older,
	// looser parsing would need an explicit opt-out here, which this
	// engine never offers.
	sig, err := keys.ParseSignature(derSig)
	if err != nil {
		return false
	}
	pubKey, err := keys.ParsePublicKey(pubKeyBytes)
	if err != nil {
		return false
	}

	sigHash, err := e.sigChecker(e.subscript, hashType)
	if err != nil {
		return false
	}

	return pubKey.Verify(sigHash, sig)
}

// isDefinedHashType reports whether hashType is one of the four sighash
// types the protocol defines (base type ALL/NONE/SINGLE, optionally
// OR'd with ANYONECANPAY); BIP62 malleability policy rejects anything else.
func isDefinedHashType(hashType uint32) bool {
	base := hashType &^ 0x80
	return base >= 1 && base <= 3
}

// castToBool converts script item to boolean
func castToBool(b []byte) bool {
	for i := 0; i < len(b); i++ {
		if b[i] != 0 {
			// Check for negative zero
			if i == len(b)-1 && b[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// Stack returns the main stack (for debugging)
func (e *Engine) Stack() *Stack {
	return e.stack
}

// SetSigChecker wires the subscript and hash-computing callback OP_CHECKSIG
// and OP_CHECKSIGVERIFY use; the caller holds the transaction/input context
// the script engine itself never sees.
func (e *Engine) SetSigChecker(subscript []byte, checker SigChecker) {
	e.subscript = subscript
	e.sigChecker = checker
}
