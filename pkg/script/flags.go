package script

// Flags is a bitset naming the optional verification rules in force for an
// interpreter run. Of these, Engine consults only FlagStrictEnc; the
// activator consults FlagP2SH when counting a block's sigops. A script is
// run once under the flags it is given: no second run under a weaker set
// is made, so a failure is not classified as nonstandard versus invalid.
type Flags uint32

const (
	// FlagP2SH marks BIP16 pay-to-script-hash as active; the activator then
	// counts P2SH sigops toward the block limit. Engine does not evaluate
	// redeem scripts.
	FlagP2SH Flags = 1 << iota
	// FlagDERSIG marks BIP66 as active. Signatures are parsed as strict DER
	// whether or not it is set.
	FlagDERSIG
	// FlagCLTV marks BIP65 as active. Engine does not execute
	// OP_CHECKLOCKTIMEVERIFY.
	FlagCLTV
	// FlagCSV marks BIP112 as active. Engine does not execute
	// OP_CHECKSEQUENCEVERIFY.
	FlagCSV
	// FlagStrictEnc makes signature checks fail when the signature's
	// sighash type is not a defined one.
	FlagStrictEnc
	// FlagLowS names the BIP62 low-S rule. Engine does not check S values.
	FlagLowS
)

// MandatoryFlags groups the consensus soft-fork flags; validation.ActiveFlags
// sets each of them per block from the network's activation heights.
const MandatoryFlags = FlagP2SH | FlagDERSIG | FlagCLTV | FlagCSV

// StandardFlags is MandatoryFlags plus the policy flags StrictEnc and LowS.
// Nothing in this repository runs scripts under it.
const StandardFlags = MandatoryFlags | FlagStrictEnc | FlagLowS

// Has reports whether f includes every bit set in other.
func (f Flags) Has(other Flags) bool {
	return f&other == other
}
