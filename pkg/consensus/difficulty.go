package consensus

import (
	"math/big"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// CompactToBig decodes a compact ("bits") difficulty target into a big.Int,
// the same representation a block header's Bits field carries.
func CompactToBig(bits uint32) *big.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	negative := bits&0x00800000 != 0

	target := new(big.Int)
	if exponent <= 3 {
		mantissa >>= 8 * (3 - exponent)
		target.SetUint64(uint64(mantissa))
	} else {
		target.SetUint64(uint64(mantissa))
		target.Lsh(target, uint(8*(exponent-3)))
	}

	if negative {
		target.Neg(target)
	}
	return target
}

// BigToCompact encodes a big.Int target into compact ("bits") form.
func BigToCompact(target *big.Int) uint32 {
	if target.Sign() == 0 {
		return 0
	}

	negative := target.Sign() < 0
	abs := new(big.Int).Abs(target)

	exponent := uint32((abs.BitLen() + 7) / 8)
	var mantissa uint32
	if exponent <= 3 {
		mantissa = uint32(abs.Uint64()) << (8 * (3 - exponent))
	} else {
		shifted := new(big.Int).Rsh(abs, uint(8*(exponent-3)))
		mantissa = uint32(shifted.Uint64())
	}

	// If the sign bit of the mantissa would be set, shift one byte into the
	// exponent so the value is never misread as negative.
	if mantissa&0x00800000 != 0 {
		mantissa >>= 8
		exponent++
	}

	compact := exponent<<24 | mantissa
	if negative {
		compact |= 0x00800000
	}
	return compact
}

// IsOverflowingTarget reports whether bits decodes to a negative target, a
// zero target, or a target above PoWLimit; any of these makes the header
// unconditionally invalid regardless of its hash.
func IsOverflowingTarget(bits uint32, powLimitBits uint32) bool {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return true
	}
	return target.Cmp(CompactToBig(powLimitBits)) > 0
}

// CheckProofOfWork reports whether hash, interpreted as a big-endian
// unsigned integer, is at or below the target bits decodes to.
//
// Bitcoin hashes are conventionally displayed (and targets compared) in
// big-endian order even though the wire/serialization format is
// little-endian; callers pass the hash as produced by crypto.DoubleSHA256,
// reversed to big-endian here.
func CheckProofOfWork(hash types.Hash, bits uint32) bool {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return false
	}

	reversed := hash.Reverse()
	hashInt := new(big.Int).SetBytes(reversed[:])
	return hashInt.Cmp(target) <= 0
}

// BlockWork is the expected number of hash attempts a block's difficulty
// represents: work(e) = 2^256 / (target(e) + 1).
func BlockWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}

	maxTarget := new(big.Int).Lsh(big.NewInt(1), 256)
	denom := new(big.Int).Add(target, big.NewInt(1))
	return new(big.Int).Div(maxTarget, denom)
}

// AncestorTimes is the minimal view the retarget function needs over a
// header's ancestry: block timestamps and bits, indexed by "blocks back
// from (and including) the given entry".
type AncestorTimes interface {
	// TimestampBack returns the timestamp of the ancestor n blocks behind
	// (0 = the entry itself).
	TimestampBack(n uint64) uint32
	BitsBack(n uint64) uint32
	HeightBack(n uint64) uint64
}

// NextWorkRequired computes the retarget result for the block that extends
// prev, given prev's ancestry. On a retarget boundary
// (height % RetargetInterval == 0, for height = prev.height+1) it rescales
// the previous target by the ratio of actual-to-target timespan, clamped to
// [timespan/4, timespan*4]; otherwise it returns prev's bits unchanged
// (with the testnet/regtest "allow min difficulty after 20 minutes" rule
// applied first when AllowMinDifficulty is set).
func NextWorkRequired(p *Params, prevHeight uint64, prevBits uint32, prevTime uint32, ancestry AncestorTimes) uint32 {
	height := prevHeight + 1

	if p.AllowMinDifficulty && height%p.RetargetInterval != 0 {
		// A block more than 2x the target spacing late may mine at min
		// difficulty; non-boundary blocks otherwise just repeat prevBits,
		// except this regtest/testnet carve-out.
		targetSpacing := uint32(p.RetargetTimespan) / uint32(p.RetargetInterval)
		if prevTime+2*targetSpacing < nowApprox(ancestry) {
			return p.PowLimitBits
		}
		return lastNonMinDifficultyBits(p, prevBits, ancestry)
	}

	if height%p.RetargetInterval != 0 {
		return prevBits
	}

	firstTime := ancestry.TimestampBack(p.RetargetInterval)

	actualTimespan := int64(prevTime) - int64(firstTime)
	minSpan := p.RetargetTimespan / 4
	maxSpan := p.RetargetTimespan * 4
	if actualTimespan < minSpan {
		actualTimespan = minSpan
	}
	if actualTimespan > maxSpan {
		actualTimespan = maxSpan
	}

	newTarget := CompactToBig(prevBits)
	newTarget.Mul(newTarget, big.NewInt(actualTimespan))
	newTarget.Div(newTarget, big.NewInt(p.RetargetTimespan))

	powLimit := CompactToBig(p.PowLimitBits)
	if newTarget.Cmp(powLimit) > 0 {
		newTarget = powLimit
	}

	return BigToCompact(newTarget)
}

// nowApprox and lastNonMinDifficultyBits implement the testnet/regtest
// "allow minimum difficulty" rule; mainnet never calls them because
// AllowMinDifficulty is false there.
func nowApprox(ancestry AncestorTimes) uint32 {
	return ancestry.TimestampBack(0)
}

func lastNonMinDifficultyBits(p *Params, prevBits uint32, ancestry AncestorTimes) uint32 {
	powLimit := BigToCompact(CompactToBig(p.PowLimitBits))
	for n := uint64(0); ; n++ {
		height := ancestry.HeightBack(n)
		if height%p.RetargetInterval == 0 {
			return ancestry.BitsBack(n)
		}
		bits := ancestry.BitsBack(n)
		if bits != powLimit {
			return bits
		}
		if height == 0 {
			return powLimit
		}
	}
}
