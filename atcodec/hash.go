package atcodec

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // RIPEMD-160 is required by HASH160, not a choice.
)

// SHA256 returns the plain SHA-256 digest of x.
func SHA256(x []byte) [32]byte {
	return sha256.Sum256(x)
}

// Hash256 is SHA256(SHA256(x)), the double hash used by the external chain's
// own block and transaction hashing, and reused here for Base58Check
// checksums and legacy signature hashes.
func Hash256(x []byte) [32]byte {
	first := sha256.Sum256(x)
	return sha256.Sum256(first[:])
}

// Hash160 is RIPEMD160(SHA256(x)), used to derive public-key hashes and
// script hashes for P2PKH/P2SH addresses.
func Hash160(x []byte) [20]byte {
	shaSum := sha256.Sum256(x)
	h := ripemd160.New()
	_, _ = h.Write(shaSum[:])
	var out [20]byte
	copy(out[:], h.Sum(nil))
	return out
}

// SHA192 is the first 24 bytes of SHA-256(x) — the canonical short hash
// used to fingerprint transaction signatures inside AT register lanes.
func SHA192(x []byte) [24]byte {
	full := sha256.Sum256(x)
	var out [24]byte
	copy(out[:], full[:24])
	return out
}

// HMACSHA512 computes HMAC-SHA512(key, data), the primitive BIP32 child-key
// derivation is built from.
func HMACSHA512(key, data []byte) [64]byte {
	mac := hmac.New(sha512.New, key)
	_, _ = mac.Write(data)
	var out [64]byte
	copy(out[:], mac.Sum(nil))
	return out
}
