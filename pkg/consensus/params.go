// Package consensus holds network-wide protocol parameters and the pure
// functions derived from them: difficulty/work, subsidy, the max-block-size
// schedule, super-majority version voting, and the deployment state
// machine. None of it touches the block index or the UTXO set directly —
// pkg/validation and pkg/activator call into it.
package consensus

import "time"

// TwoMegForkTime is the fork boundary for the max-block-size schedule,
// 2016-03-01T00:00:00Z.
const TwoMegForkTime uint32 = 1456790400

// Consensus-critical constants that do not vary by network.
const (
	MaxMoney               int64  = 21000000 * 100000000
	CoinbaseMaturity       uint64 = 100
	SubsidyHalvingInterval uint64 = 210000
	InitialSubsidy         int64  = 50 * 100000000
	MedianTimeSpan         int    = 11
	MaxFutureBlockTime            = 2 * time.Hour
	MaxBlockSigopsDivisor  uint32 = 50
)

// Params is the set of parameters that do vary by network.
type Params struct {
	Name string

	MaxBlockSizeLegacy  uint32 // size before TwoMegForkTime
	MaxBlockSizeCurrent uint32 // size at and after TwoMegForkTime

	PowLimitBits       uint32 // compact-form minimum difficulty (maximum target)
	RetargetInterval   uint64 // blocks between difficulty retargets
	RetargetTimespan   int64  // seconds the retarget window is supposed to span
	AllowMinDifficulty bool   // regtest/testnet special-min-difficulty rule

	BIP16Height  uint64 // P2SH
	BIP30Height  uint64 // duplicate-transactions ban (superseded by BIP34)
	BIP34Height  uint64 // height-in-coinbase
	BIP65Height  uint64 // CHECKLOCKTIMEVERIFY
	BIP66Height  uint64 // strict DER
	BIP68Height  uint64 // relative locktime
	BIP112Height uint64 // CHECKSEQUENCEVERIFY
	BIP113Height uint64 // median-time-past locktime

	MajorityWindow    int // ancestors examined by the supermajority predicate
	MajorityRejectV2  int
	MajorityEnforceV2 int
	MajorityRejectV3  int
	MajorityEnforceV3 int
	MajorityRejectV4  int
	MajorityEnforceV4 int

	MinerConfirmationWindow       uint64 // version-bits voting window
	RuleChangeActivationThreshold uint64 // votes needed within the window

	Magic uint32 // message_magic framing blk*.dat/rev*.dat and any wire layer share

	Genesis *GenesisSpec
}

// GenesisSpec pins the one configured genesis block a node will accept.
type GenesisSpec struct {
	Version    int32
	Timestamp  uint32
	Bits       uint32
	Nonce      uint32
	MerkleRoot [32]byte
}

// MainnetParams mirrors Bitcoin mainnet's historical activation heights.
func MainnetParams() *Params {
	return &Params{
		Name: "mainnet",

		MaxBlockSizeLegacy:  1000000,
		MaxBlockSizeCurrent: 2000000,

		PowLimitBits:       0x1d00ffff,
		RetargetInterval:   2016,
		RetargetTimespan:   14 * 24 * 60 * 60,
		AllowMinDifficulty: false,

		BIP16Height:  173805,
		BIP30Height:  0,
		BIP34Height:  227931,
		BIP65Height:  388381,
		BIP66Height:  363725,
		BIP68Height:  419328,
		BIP112Height: 419328,
		BIP113Height: 419328,

		MajorityWindow:    1000,
		MajorityRejectV2:  950,
		MajorityEnforceV2: 750,
		MajorityRejectV3:  950,
		MajorityEnforceV3: 750,
		MajorityRejectV4:  950,
		MajorityEnforceV4: 750,

		MinerConfirmationWindow:       2016,
		RuleChangeActivationThreshold: 1916,

		Magic: 0xD9B4BEF9,
	}
}

// TestnetParams relaxes activation heights to 0 and keeps mainnet's
// size/work schedule.
func TestnetParams() *Params {
	p := MainnetParams()
	p.Name = "testnet"
	p.BIP16Height, p.BIP30Height, p.BIP34Height = 0, 0, 0
	p.BIP65Height, p.BIP66Height = 0, 0
	p.BIP68Height, p.BIP112Height, p.BIP113Height = 0, 0, 0
	p.AllowMinDifficulty = true
	p.Magic = 0x0709110B
	return p
}

// RegtestParams builds on TestnetParams (every height-activated fork live
// from height 0) with the easiest proof-of-work limit, a 150-block retarget
// interval and a 144-block version-bits window with a 108-block threshold,
// for deterministic local testing.
func RegtestParams() *Params {
	p := TestnetParams()
	p.Name = "regtest"
	p.RetargetInterval = 150
	p.MinerConfirmationWindow = 144
	p.RuleChangeActivationThreshold = 108
	p.PowLimitBits = 0x207fffff
	p.Magic = 0xDAB5BFFA
	return p
}
