// Package encoding implements the base58 and base58check encodings
// addresses and WIF keys use.
package encoding

import (
	"errors"
	"math/big"
)

// The bitcoin alphabet: 0, O, I, and l are omitted as visually ambiguous.
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

var (
	base58Base        = big.NewInt(58)
	bigZero           = big.NewInt(0)
	base58AlphabetMap [128]int8
)

func init() {
	for i := range base58AlphabetMap {
		base58AlphabetMap[i] = -1
	}
	for i, c := range base58Alphabet {
		base58AlphabetMap[c] = int8(i)
	}
}

// EncodeBase58 encodes data as base58, preserving leading zero bytes as
// leading '1' characters.
func EncodeBase58(data []byte) string {
	x := new(big.Int).SetBytes(data)

	var result []byte
	for x.Cmp(bigZero) > 0 {
		mod := new(big.Int)
		x.DivMod(x, base58Base, mod)
		result = append(result, base58Alphabet[mod.Int64()])
	}

	for _, b := range data {
		if b != 0 {
			break
		}
		result = append(result, base58Alphabet[0])
	}

	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}

	return string(result)
}

// DecodeBase58 is the inverse of EncodeBase58.
func DecodeBase58(input string) ([]byte, error) {
	if len(input) == 0 {
		return nil, nil
	}

	x := big.NewInt(0)
	for _, c := range input {
		if c > 127 || base58AlphabetMap[c] == -1 {
			return nil, ErrInvalidBase58
		}
		x.Mul(x, base58Base)
		x.Add(x, big.NewInt(int64(base58AlphabetMap[c])))
	}

	decoded := x.Bytes()

	for _, c := range input {
		if c != rune(base58Alphabet[0]) {
			break
		}
		decoded = append([]byte{0}, decoded...)
	}

	return decoded, nil
}

// ErrInvalidBase58 reports a character outside the base58 alphabet.
var ErrInvalidBase58 = errors.New("invalid base58 string")
