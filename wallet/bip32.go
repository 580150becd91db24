// Package wallet implements the cross-chain wallet (spec.md §4.7): a
// BIP32 key-chain walker over the external receive path "m/.../0/i", UTXO
// discovery and aggregation, unused-address discovery, and legacy P2PKH
// spend construction. It reaches the external chain only through
// foreignchain.BlockchainProvider and signs only with keys derived from a
// caller-supplied extended private key; it never touches the native
// chain's account model.
package wallet

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/swaperr"
)

// extendedPrivateVersions are the BIP32 serialization version bytes this
// wallet recognises on the wire (xprv for mainnet, tprv for testnet).
// Anything else is rejected rather than guessed at.
var extendedPrivateVersions = map[[4]byte]bool{
	{0x04, 0x88, 0xad, 0xe4}: true, // xprv
	{0x04, 0x35, 0x83, 0x94}: true, // tprv
}

// ExtendedKey is a BIP32 extended private key: the 32-byte scalar plus the
// 32-byte chain code needed to derive further children, plus the bookkeeping
// fields (depth, parent fingerprint, child number) BIP32's wire format
// carries but this wallet otherwise ignores.
type ExtendedKey struct {
	Version     [4]byte
	Depth       byte
	ParentFP    [4]byte
	ChildNumber uint32
	ChainCode   [32]byte
	Key         [32]byte
}

// ParseExtendedPrivateKey decodes a Base58Check-encoded xprv/tprv string
// per BIP32's fixed 78-byte payload: version(4) || depth(1) ||
// parentFingerprint(4) || childNumber(4, big-endian) || chainCode(32) ||
// 0x00 || key(32).
func ParseExtendedPrivateKey(s string) (*ExtendedKey, error) {
	versionByte, payload, err := atcodec.Base58CheckDecode(s)
	if err != nil {
		return nil, swaperr.InvalidInput("wallet: malformed extended key: " + err.Error())
	}
	// Base58CheckDecode strips a single leading version byte, but BIP32's
	// version field is 4 bytes; reassemble it before validating.
	raw := append([]byte{versionByte}, payload...)
	if len(raw) != 78 {
		return nil, swaperr.InvalidInput("wallet: extended key has wrong payload length")
	}

	var k ExtendedKey
	copy(k.Version[:], raw[0:4])
	if !extendedPrivateVersions[k.Version] {
		return nil, swaperr.InvalidInput("wallet: unrecognised extended key version")
	}
	k.Depth = raw[4]
	copy(k.ParentFP[:], raw[5:9])
	k.ChildNumber = beU32(raw[9:13])
	copy(k.ChainCode[:], raw[13:45])
	if raw[45] != 0x00 {
		return nil, swaperr.InvalidInput("wallet: extended private key missing 0x00 prefix")
	}
	copy(k.Key[:], raw[46:78])
	return &k, nil
}

// PublicKeyCompressed returns the 33-byte compressed secp256k1 public key
// corresponding to k.Key.
func (k *ExtendedKey) PublicKeyCompressed() []byte {
	_, pub := btcec.PrivKeyFromBytes(k.Key[:])
	return pub.SerializeCompressed()
}

// privFromExtended reconstructs the btcec private key k.Key represents, for
// signing. It is a thin wrapper so call sites outside this file never
// touch k.Key directly.
func privFromExtended(k *ExtendedKey) (*btcec.PrivateKey, *btcec.PublicKey) {
	return btcec.PrivKeyFromBytes(k.Key[:])
}

// PKH returns HASH160 of the compressed public key — the value a legacy
// P2PKH output or address commits to.
func (k *ExtendedKey) PKH() [20]byte {
	return atcodec.Hash160(k.PublicKeyCompressed())
}

// hardenedOffset marks the start of BIP32's hardened derivation range;
// this wallet only ever derives non-hardened children past the caller-
// supplied account key, so DeriveChild rejects indices at or above it.
const hardenedOffset uint32 = 1 << 31

// DeriveChild derives the non-hardened child at index from k, per BIP32's
// CKDpriv for non-hardened indices: I = HMAC-SHA512(chainCode,
// serializedCompressedPubKey(k) || ser32(index)); IL becomes (parent key +
// IL) mod n, IR becomes the child chain code.
func (k *ExtendedKey) DeriveChild(index uint32) (*ExtendedKey, error) {
	if index >= hardenedOffset {
		return nil, swaperr.InvalidInput("wallet: hardened derivation is not supported past the account key")
	}

	data := make([]byte, 0, 37)
	data = append(data, k.PublicKeyCompressed()...)
	data = append(data, beU32Bytes(index)...)

	i := atcodec.HMACSHA512(k.ChainCode[:], data)
	il, ir := i[:32], i[32:]

	var ilScalar, parentScalar btcec.ModNScalar
	if overflow := ilScalar.SetByteSlice(il); overflow {
		return nil, swaperr.InvalidInput("wallet: derived scalar overflow, index not usable")
	}
	parentScalar.SetByteSlice(k.Key[:])
	ilScalar.Add(&parentScalar)
	if ilScalar.IsZero() {
		return nil, swaperr.InvalidInput("wallet: derived child key is zero, index not usable")
	}
	childKeyBytes := ilScalar.Bytes()

	fingerprint := atcodec.Hash160(k.PublicKeyCompressed())

	child := &ExtendedKey{
		Version:     k.Version,
		Depth:       k.Depth + 1,
		ChildNumber: index,
		Key:         childKeyBytes,
	}
	copy(child.ParentFP[:], fingerprint[:4])
	copy(child.ChainCode[:], ir)
	return child, nil
}

// DerivePath walks DeriveChild across every index in path, in order.
func (k *ExtendedKey) DerivePath(path ...uint32) (*ExtendedKey, error) {
	cur := k
	for _, idx := range path {
		next, err := cur.DeriveChild(idx)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

func beU32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func beU32Bytes(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
