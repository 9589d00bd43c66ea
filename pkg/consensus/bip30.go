package consensus

import "github.com/pouria-shahmiri/chaincore/pkg/types"

// BIP30Exception is one of the two historical blocks where a coinbase
// transaction hash collided with a still-unspent earlier coinbase. BIP34's
// height-in-coinbase rule makes new collisions impossible, so the check is
// grandfathered rather than removed. Values match the two blocks Bitcoin
// Core itself hard-codes.
type BIP30Exception struct {
	Height uint64
	TxHash types.Hash
}

var bip30ExceptionHeights = map[uint64]string{
	91842: "d5d27987d2a3dfc724e359870c6644b40e497bdc0589a033220fe15429d88599",
	91880: "e3bf3d07d4b0375638d5f1db5255fe07ba2c4cb067cd81b84ee974b6585fb468",
}

// IsBIP30Exception reports whether (height, coinbaseTxHash) is one of the
// two grandfathered historical collisions and should bypass the BIP30
// duplicate-coinbase check.
func IsBIP30Exception(height uint64, coinbaseTxHash types.Hash) bool {
	want, ok := bip30ExceptionHeights[height]
	if !ok {
		return false
	}
	h, err := types.NewHashFromString(want)
	if err != nil {
		return false
	}
	return h == coinbaseTxHash
}
