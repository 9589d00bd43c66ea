package script

import (
	"fmt"
)

// P2PKH builds the pay-to-pubkey-hash locking script
// OP_DUP OP_HASH160 <20-byte hash> OP_EQUALVERIFY OP_CHECKSIG.
func P2PKH(pubKeyHash []byte) ([]byte, error) {
	if len(pubKeyHash) != 20 {
		return nil, fmt.Errorf("pubKeyHash must be 20 bytes, got %d", len(pubKeyHash))
	}
	return NewBuilder().
		AddOp(OP_DUP).
		AddOp(OP_HASH160).
		AddData(pubKeyHash).
		AddOp(OP_EQUALVERIFY).
		AddOp(OP_CHECKSIG).
		Script(), nil
}

// P2PKHUnlockingScript builds the <signature> <pubKey> unlocking script
// that satisfies a P2PKH output.
func P2PKHUnlockingScript(signature, pubKey []byte) []byte {
	return NewBuilder().AddData(signature).AddData(pubKey).Script()
}

// IsP2PKH reports whether script matches the P2PKH template exactly.
func IsP2PKH(script []byte) bool {
	return len(script) == 25 &&
		script[0] == OP_DUP &&
		script[1] == OP_HASH160 &&
		script[2] == 20 &&
		script[23] == OP_EQUALVERIFY &&
		script[24] == OP_CHECKSIG
}

// ExtractP2PKHAddress returns the pubkey hash a P2PKH script pays to.
func ExtractP2PKHAddress(script []byte) ([]byte, error) {
	if !IsP2PKH(script) {
		return nil, fmt.Errorf("not a P2PKH script")
	}
	return script[3:23], nil
}

// IsPayToScriptHash reports whether script matches the BIP16 template
// OP_HASH160 <20-byte hash> OP_EQUAL exactly.
func IsPayToScriptHash(script []byte) bool {
	return len(script) == 23 &&
		script[0] == OP_HASH160 &&
		script[1] == 20 &&
		script[22] == OP_EQUAL
}

// CountP2SHSigOps returns the accurate sigop count of the redeem script a
// P2SH spend carries: the last datum scriptSig pushes. A scriptSig that
// contains any non-push opcode, or pushes nothing, counts zero; script
// verification rejects such a spend on its own.
func CountP2SHSigOps(scriptSig []byte) int {
	redeem := lastPushedData(scriptSig)
	if redeem == nil {
		return 0
	}
	return CountSigOps(redeem, true)
}

// lastPushedData walks a push-only script and returns the final pushed
// datum, or nil if the script is empty or contains a non-push opcode.
func lastPushedData(script []byte) []byte {
	var last []byte
	i := 0
	for i < len(script) {
		op := script[i]
		i++
		var n int
		switch {
		case op >= 1 && op <= 75:
			n = int(op)
		case op == OP_PUSHDATA1:
			if i >= len(script) {
				return nil
			}
			n = int(script[i])
			i++
		case op == OP_PUSHDATA2:
			if i+2 > len(script) {
				return nil
			}
			n = int(script[i]) | int(script[i+1])<<8
			i += 2
		case op == OP_PUSHDATA4:
			if i+4 > len(script) {
				return nil
			}
			n = int(script[i]) | int(script[i+1])<<8 | int(script[i+2])<<16 | int(script[i+3])<<24
			i += 4
		case op == OP_0 || op == OP_1NEGATE || (op >= OP_1 && op <= OP_16):
			last = nil // small-constant push; carries no redeem script
			continue
		default:
			return nil
		}
		if i+n > len(script) {
			return nil
		}
		last = script[i : i+n]
		i += n
	}
	return last
}

// DisassembleScript renders script as space-separated opcode names with
// pushed data in hex, for diagnostics.
func DisassembleScript(script []byte) string {
	var result string
	pc := 0
	for pc < len(script) {
		opcode := script[pc]
		pc++
		if opcode > 0 && opcode <= 0x4b {
			if pc+int(opcode) > len(script) {
				result += fmt.Sprintf("[INVALID PUSH %d] ", opcode)
				break
			}
			data := script[pc : pc+int(opcode)]
			pc += int(opcode)
			result += fmt.Sprintf("[%x] ", data)
		} else {
			result += OpcodeName(opcode) + " "
		}
	}
	return result
}
