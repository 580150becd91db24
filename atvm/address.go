package atvm

import (
	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/chaintypes"
)

// NativeAddressVersionByte is the Base58Check version byte for this
// chain's human-readable account addresses, analogous to spec.md §4.4's
// "first byte equals 'Q'" observation about the reference implementation's
// own address alphabet.
const NativeAddressVersionByte byte = 0x3A

// DeriveATAddress computes an AT's address as the pure function of
// (creatorPublicKey, creationReference) required by spec.md §3: the SHA-256
// of their concatenation. Collisions are impossible under the hash
// assumption, matching the invariant verbatim.
func DeriveATAddress(creator chaintypes.PublicKey, creationRef [64]byte) chaintypes.Address32 {
	buf := make([]byte, 0, 32+64)
	buf = append(buf, creator[:]...)
	buf = append(buf, creationRef[:]...)
	return chaintypes.Address32(atcodec.SHA256(buf))
}

// addressFromPublicKey derives a normal account's address from its public
// key the same way: SHA-256 of the raw key. This is the counterpart used
// when the platform API's account-from-B decoding rule falls through to
// the public-key route.
func addressFromPublicKey(pk chaintypes.PublicKey) chaintypes.Address32 {
	return chaintypes.Address32(atcodec.SHA256(pk[:]))
}

// EncodeNativeAddress renders addr as the Base58Check string a human (or
// AT bytecode author) would write literally — version byte plus the raw
// 32-byte address payload.
func EncodeNativeAddress(addr chaintypes.Address32) string {
	return atcodec.Base58CheckEncode(NativeAddressVersionByte, addr[:])
}

// ParseNativeAddress is the inverse of EncodeNativeAddress. ok is false for
// any malformed or wrong-version string — callers use this purely as a
// validity probe, per spec.md §4.4's account-from-B decoding rule.
func ParseNativeAddress(s string) (addr chaintypes.Address32, ok bool) {
	version, payload, err := atcodec.Base58CheckDecode(s)
	if err != nil || version != NativeAddressVersionByte || len(payload) != 32 {
		return chaintypes.Address32{}, false
	}
	copy(addr[:], payload)
	return addr, true
}

// bRegisterBytes reassembles B's four little-endian 64-bit lanes into the
// 32 raw bytes they represent, preserving byte order lane-for-lane — the
// same layout putMessageFromTransactionInAIntoB relies on so that callers
// hashing B locally get byte-identical results.
func bRegisterBytes(b [4]uint64) [32]byte {
	var out [32]byte
	for i, lane := range b {
		copy(out[i*8:i*8+8], atcodec.ToLE64(lane))
	}
	return out
}

func bytesToRegister(b [32]byte) [4]uint64 {
	var out [4]uint64
	for i := range out {
		out[i] = atcodec.FromLE64(b[:], i*8)
	}
	return out
}

// DecodeAccountFromB implements spec.md §4.4's account-from-B decoding
// rule, bit-for-bit: if the first byte is 'Q' and a NUL byte actually
// terminates the prefix and that prefix parses as a valid native address,
// treat B as an address; otherwise treat the full 32 bytes as a raw
// public key. A 'Q'-led B with no NUL anywhere in its 32 bytes falls
// straight to the public-key route without ever attempting the address
// parse, matching the Java reference's `zeroIndex > 0` guard.
func DecodeAccountFromB(b [4]uint64) chaintypes.Address32 {
	raw := bRegisterBytes(b)
	if raw[0] == 'Q' {
		nul := -1
		for i, c := range raw {
			if c == 0 {
				nul = i
				break
			}
		}
		if nul >= 0 {
			if addr, ok := ParseNativeAddress(string(raw[:nul])); ok {
				return addr
			}
		}
	}
	return addressFromPublicKey(chaintypes.PublicKey(raw))
}
