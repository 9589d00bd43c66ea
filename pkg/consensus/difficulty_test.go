package consensus

import (
	"math/big"
	"testing"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

func TestCompactBigRoundTrip(t *testing.T) {
	cases := []uint32{0x1d00ffff, 0x207fffff, 0x1b0404cb, 0x01010000}
	for _, bits := range cases {
		got := BigToCompact(CompactToBig(bits))
		if got != bits {
			t.Errorf("round trip %#08x -> %#08x, want %#08x", bits, got, bits)
		}
	}
}

func TestIsOverflowingTarget(t *testing.T) {
	powLimitBits := uint32(0x1d00ffff)

	if IsOverflowingTarget(powLimitBits, powLimitBits) {
		t.Error("target equal to powLimit should not overflow")
	}
	// A harder (stricter) target is still within powLimit, not above it.
	if IsOverflowingTarget(0x1b0404cb, powLimitBits) {
		t.Error("stricter target should not be reported as overflowing")
	}
	// A looser (easier) target than powLimit must be rejected.
	if !IsOverflowingTarget(0x2100ffff, powLimitBits) {
		t.Error("target looser than powLimit should overflow")
	}
	if !IsOverflowingTarget(0x00000000, powLimitBits) {
		t.Error("zero target should overflow")
	}
}

func TestCheckProofOfWork(t *testing.T) {
	bits := uint32(0x207fffff) // regtest's maximally easy target
	target := CompactToBig(bits)

	// A hash exactly at target (big-endian) must pass.
	atTarget := bigToHash(target)
	if !CheckProofOfWork(atTarget, bits) {
		t.Error("hash equal to target should satisfy proof of work")
	}

	// A hash one above target must fail.
	above := new(big.Int).Add(target, big.NewInt(1))
	if CheckProofOfWork(bigToHash(above), bits) {
		t.Error("hash above target should not satisfy proof of work")
	}

	if CheckProofOfWork(types.Hash{}, 0) {
		t.Error("zero bits should never satisfy proof of work")
	}
}

func TestBlockWorkMonotonic(t *testing.T) {
	easy := BlockWork(0x207fffff)
	hard := BlockWork(0x1b0404cb)
	if hard.Cmp(easy) <= 0 {
		t.Errorf("harder target should represent more work: easy=%s hard=%s", easy, hard)
	}
}

// bigToHash renders target as a 32-byte big-endian value, then reverses it
// to the little-endian-displayed form CheckProofOfWork expects its caller
// to pass (matching crypto.DoubleSHA256's output convention).
func bigToHash(v *big.Int) types.Hash {
	var buf [32]byte
	v.FillBytes(buf[:])
	h := types.Hash(buf)
	return h.Reverse()
}
