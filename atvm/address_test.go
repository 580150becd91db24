package atvm

import (
	"testing"

	"github.com/atswap-dev/node/chaintypes"
)

func TestNativeAddressRoundTrip(t *testing.T) {
	var addr chaintypes.Address32
	for i := range addr {
		addr[i] = byte(i)
	}
	encoded := EncodeNativeAddress(addr)
	got, ok := ParseNativeAddress(encoded)
	if !ok {
		t.Fatalf("ParseNativeAddress(%q) failed to parse its own encoding", encoded)
	}
	if got != addr {
		t.Fatalf("round-tripped address mismatch: got %x, want %x", got, addr)
	}
}

func TestParseNativeAddressRejectsGarbage(t *testing.T) {
	if _, ok := ParseNativeAddress("not-a-valid-address"); ok {
		t.Fatal("expected garbage input to fail to parse")
	}
}

func TestDecodeAccountFromBAddressRoute(t *testing.T) {
	var addr chaintypes.Address32
	addr[0] = 0xAB
	addr[31] = 0xCD
	encoded := EncodeNativeAddress(addr)

	var raw [32]byte
	raw[0] = 'Q'
	copy(raw[1:], encoded)
	if len(encoded)+1 > 32 {
		t.Skip("encoded address too long for this test's 32-byte B register fixture")
	}

	got := DecodeAccountFromB(bytesToRegister(raw))
	if got != addr {
		t.Fatalf("expected address-route decode to recover %x, got %x", addr, got)
	}
}

func TestDecodeAccountFromBPublicKeyRoute(t *testing.T) {
	var raw [32]byte
	raw[0] = 'X' // not 'Q', so this must fall through to the raw-key route
	for i := range raw {
		raw[i] = byte(i + 1)
	}

	got := DecodeAccountFromB(bytesToRegister(raw))
	want := addressFromPublicKey(chaintypes.PublicKey(raw))
	if got != want {
		t.Fatalf("expected public-key-route decode, got %x want %x", got, want)
	}
}

func TestDecodeAccountFromBMalformedQPrefixFallsBackToPublicKey(t *testing.T) {
	var raw [32]byte
	raw[0] = 'Q'
	raw[1] = 0 // NUL immediately after 'Q' -> empty string, never a valid address
	for i := 2; i < len(raw); i++ {
		raw[i] = byte(i)
	}

	got := DecodeAccountFromB(bytesToRegister(raw))
	want := addressFromPublicKey(chaintypes.PublicKey(raw))
	if got != want {
		t.Fatalf("expected fallback to public-key route on malformed address, got %x want %x", got, want)
	}
}

func TestDecodeAccountFromBNoNulFallsBackToPublicKey(t *testing.T) {
	var raw [32]byte
	raw[0] = 'Q'
	for i := 1; i < len(raw); i++ {
		raw[i] = byte(i + 1) // never zero, so no NUL terminator exists anywhere in B
	}

	got := DecodeAccountFromB(bytesToRegister(raw))
	want := addressFromPublicKey(chaintypes.PublicKey(raw))
	if got != want {
		t.Fatalf("expected fallback to public-key route when B has no NUL, got %x want %x", got, want)
	}
}

func TestDeriveATAddressIsPureFunctionOfCreatorAndRef(t *testing.T) {
	var creator chaintypes.PublicKey
	creator[0] = 1
	var ref [64]byte
	ref[0] = 2

	a1 := DeriveATAddress(creator, ref)
	a2 := DeriveATAddress(creator, ref)
	if a1 != a2 {
		t.Fatal("DeriveATAddress is not deterministic")
	}

	ref[0] = 3
	a3 := DeriveATAddress(creator, ref)
	if a1 == a3 {
		t.Fatal("different creation references produced the same AT address")
	}
}
