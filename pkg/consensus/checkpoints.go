package consensus

import (
	"fmt"

	"github.com/pouria-shahmiri/chaincore/pkg/types"
)

// Checkpoint pins a known-good block hash at a height. A candidate chain
// that disagrees with a checkpoint, or forks below the latest one the
// active chain has reached, is rejected without further validation.
type Checkpoint struct {
	Height uint64
	Hash   types.Hash
}

// CheckpointVerifier holds the checkpoint table for one network.
type CheckpointVerifier struct {
	byHeight map[uint64]types.Hash
	ordered  []Checkpoint
	enabled  bool
}

// NewCheckpointVerifier returns a verifier over the mainnet table.
func NewCheckpointVerifier(enabled bool) *CheckpointVerifier {
	return NewCheckpointVerifierForNetwork("mainnet", enabled)
}

// NewCheckpointVerifierForNetwork selects the built-in table matching the
// network name a Params value reports; regtest has none.
func NewCheckpointVerifierForNetwork(network string, enabled bool) *CheckpointVerifier {
	var table []Checkpoint
	switch network {
	case "testnet":
		table = testnetCheckpoints
	case "regtest":
		table = nil
	default:
		table = mainnetCheckpoints
	}

	cv := &CheckpointVerifier{
		byHeight: make(map[uint64]types.Hash, len(table)),
		enabled:  enabled,
	}
	for _, cp := range table {
		cv.add(cp.Height, cp.Hash)
	}
	return cv
}

var mainnetCheckpoints = []Checkpoint{
	{Height: 11111, Hash: hashFromString("0000000069e244f73d78e8fd29ba2fd2ed618bd6fa2ee92559f542fdb26e7c1d")},
	{Height: 33333, Hash: hashFromString("000000002dd5588a74784eaa7ab0507a18ad16a236e7b1ce69f00d7ddfb5d0a6")},
	{Height: 74000, Hash: hashFromString("0000000000573993a3c9e41ce34471c079dcf5f52a0e824a81e7f953b8661a20")},
	{Height: 105000, Hash: hashFromString("00000000000291ce28027faea320c8d2b054b2e0fe44a773f3eefb151d6bdc97")},
	{Height: 134444, Hash: hashFromString("00000000000005b12ffd4cd315cd34ffd4a594f430ac814c91184a0d42d2b0fe")},
	{Height: 168000, Hash: hashFromString("000000000000099e61ea72015e79632f216fe6cb33d7899acb35b75c8303b763")},
	{Height: 193000, Hash: hashFromString("000000000000059f452a5f7340de6682a977387c17010ff6e6c3bd83ca8b1317")},
	{Height: 210000, Hash: hashFromString("000000000000048b95347e83192f69cf0366076336c639f9b7228e9ba171342e")},
	{Height: 216116, Hash: hashFromString("00000000000001b4f4b433e81ee46494af945cf96014816a4e2370f11b23df4e")},
	{Height: 225430, Hash: hashFromString("00000000000001c108384350f74090433e7fcf79a606b8e797f065b130575932")},
}

var testnetCheckpoints = []Checkpoint{
	{Height: 546, Hash: hashFromString("000000002a936ca763904c3c35fce2f3556c559c0214345d31b1bcebf76acb70")},
}

func (cv *CheckpointVerifier) add(height uint64, hash types.Hash) {
	cv.byHeight[height] = hash
	cv.ordered = append(cv.ordered, Checkpoint{Height: height, Hash: hash})
}

// AddCheckpoint appends a host-configured checkpoint. Heights must arrive
// in ascending order relative to the built-in table.
func (cv *CheckpointVerifier) AddCheckpoint(height uint64, hash types.Hash) {
	cv.add(height, hash)
}

// VerifyCheckpoint returns an error if a checkpoint exists at height and
// hash disagrees with it.
func (cv *CheckpointVerifier) VerifyCheckpoint(height uint64, hash types.Hash) error {
	if !cv.enabled {
		return nil
	}
	want, ok := cv.byHeight[height]
	if !ok {
		return nil
	}
	if hash != want {
		return fmt.Errorf("checkpoint mismatch at height %d: expected %s, got %s", height, want, hash)
	}
	return nil
}

// GetLastCheckpoint returns the highest checkpoint at or below height, or
// nil if none applies yet.
func (cv *CheckpointVerifier) GetLastCheckpoint(height uint64) *Checkpoint {
	var last *Checkpoint
	for i := range cv.ordered {
		if cv.ordered[i].Height <= height {
			if last == nil || cv.ordered[i].Height > last.Height {
				last = &cv.ordered[i]
			}
		}
	}
	return last
}

// hashFromString parses a hex hash literal written in display (big-endian)
// order and returns it in the internal byte order block hashes are compared
// in, panicking on malformed input since the checkpoint tables are
// compiled-in constants.
func hashFromString(s string) types.Hash {
	hash, err := types.NewHashFromString(s)
	if err != nil {
		panic("consensus: malformed checkpoint hash literal: " + err.Error())
	}
	return hash.Reverse()
}
