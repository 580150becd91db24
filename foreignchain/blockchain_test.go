package foreignchain

import "testing"

var testBlockchainParams = ForeignNetworkParams{
	P2SHVersionByte:  0xc4,
	P2PKHVersionByte: 0x6f,
	DefaultFeePerKB:  2000,
}

func TestForeignBlockchainIsValidAddress(t *testing.T) {
	fb := NewForeignBlockchain(&stubProvider{params: testBlockchainParams})

	// A well-formed testnet P2PKH address.
	if !fb.IsValidAddress("n2N5VKrzq39nmuefZwp3wBiF4icdXX2B6o") {
		t.Fatal("expected a well-formed P2PKH address to validate")
	}
	// A well-formed testnet P2SH address.
	if !fb.IsValidAddress("2NEZboTLhBDPPQciR7sExBhy3TsDi7wV3Cv") {
		t.Fatal("expected a well-formed P2SH address to validate")
	}
	if fb.IsValidAddress("not-an-address") {
		t.Fatal("expected garbage input to fail validation")
	}
}

func TestForeignBlockchainIsValidWalletKey(t *testing.T) {
	fb := NewForeignBlockchain(&stubProvider{params: testBlockchainParams})

	if !fb.IsValidWalletKey(make([]byte, 32)) {
		t.Fatal("expected a 32-byte key to be valid")
	}
	if !fb.IsValidWalletKey(make([]byte, 37)) {
		t.Fatal("expected a 37-byte WIF-style key to be valid")
	}
	if !fb.IsValidWalletKey(make([]byte, 38)) {
		t.Fatal("expected a 38-byte WIF-style key to be valid")
	}
	if fb.IsValidWalletKey(make([]byte, 31)) {
		t.Fatal("expected a 31-byte key to be invalid")
	}
}

func TestForeignBlockchainGetP2SHFee(t *testing.T) {
	fb := NewForeignBlockchain(&stubProvider{params: testBlockchainParams})

	got := fb.GetP2SHFee(300)
	want := (testBlockchainParams.DefaultFeePerKB / 1000) * 300
	if got != want {
		t.Fatalf("GetP2SHFee(300) = %d, want %d", got, want)
	}
	if fb.FeePerKB() != testBlockchainParams.DefaultFeePerKB {
		t.Fatalf("FeePerKB() = %d, want %d", fb.FeePerKB(), testBlockchainParams.DefaultFeePerKB)
	}
}
