package keys

import (
	"bytes"
	"testing"
)

// NewAddress must carry the caller's hash through to String/Hash, and the
// base58check round trip must reproduce both version and hash.
func TestNewAddressRoundTrip(t *testing.T) {
	hash := make([]byte, 20)
	for i := range hash {
		hash[i] = byte(i + 1)
	}

	addr, err := NewAddress(AddressTypeP2PKH, hash)
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	if !bytes.Equal(addr.Hash(), hash) {
		t.Fatalf("Hash() = %x, want %x", addr.Hash(), hash)
	}

	// The returned address owns its copy of the hash.
	hash[0] = 0xff
	if addr.Hash()[0] == 0xff {
		t.Fatalf("address hash aliases the caller's slice")
	}

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("DecodeAddress(%q): %v", addr.String(), err)
	}
	if decoded.Version() != AddressTypeP2PKH {
		t.Fatalf("version = %#x, want %#x", decoded.Version(), AddressTypeP2PKH)
	}
	if !bytes.Equal(decoded.Hash(), addr.Hash()) {
		t.Fatalf("decoded hash = %x, want %x", decoded.Hash(), addr.Hash())
	}
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	if _, err := NewAddress(AddressTypeP2PKH, make([]byte, 19)); err == nil {
		t.Fatalf("19-byte hash accepted")
	}
	if _, err := NewAddress(AddressTypeP2PKH, make([]byte, 21)); err == nil {
		t.Fatalf("21-byte hash accepted")
	}
}

// A key's P2PKH address decodes back to the key's own hash160.
func TestP2PKHAddressDecodesToHash160(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pub := key.PublicKey()

	decoded, err := DecodeAddress(pub.P2PKHAddress())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.IsP2PKH() {
		t.Fatalf("address not recognized as P2PKH")
	}
	if !bytes.Equal(decoded.Hash(), pub.Hash160()) {
		t.Fatalf("decoded hash = %x, want hash160 %x", decoded.Hash(), pub.Hash160())
	}
}
