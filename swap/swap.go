// Package swap implements the cross-chain orchestrator (spec.md §4.8,
// C9): the refund and redeem flows that combine the HTLC script builder
// (htlc), the raw-transaction layer (btctx), and an external-chain
// BlockchainProvider into the two end-to-end CLI operations the
// standalone swaptool exposes. It performs no BIP32 derivation of its own
// — refund/redeem keys arrive as raw private key bytes, mirroring the
// reference tool's own argument shape, not a wallet xprv.
package swap

import (
	"github.com/btcsuite/btcd/btcec/v2"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/foreignchain"
	"github.com/atswap-dev/node/swaperr"
)

// estimatedHTLCSpendSize is the rough byte size of a single-input,
// single-output P2SH HTLC spend, used only to size a default fee when the
// caller doesn't supply one explicitly.
const estimatedHTLCSpendSize = 300

// TrimPrivateKey normalises a raw private-key byte slice to exactly 32
// bytes. Lengths of 37 or 38 are assumed to be an undecoded WIF payload
// (version byte + 32-byte key + optional compression flag + 4-byte
// checksum) and are trimmed to the middle 32 bytes; any other length but
// 32 is rejected outright.
func TrimPrivateKey(raw []byte) ([32]byte, error) {
	fb := foreignchain.ForeignBlockchain{}
	if !fb.IsValidWalletKey(raw) {
		return [32]byte{}, swaperr.InvalidInput("swap: private key must be 32 bytes, or 37/38 bytes before trimming")
	}
	if len(raw) == 32 {
		var out [32]byte
		copy(out[:], raw)
		return out, nil
	}
	var out [32]byte
	copy(out[:], raw[1:33])
	return out, nil
}

// pkhFromPrivateKey derives the HASH160 of the compressed public key
// corresponding to priv.
func pkhFromPrivateKey(priv [32]byte) [20]byte {
	_, pub := btcec.PrivKeyFromBytes(priv[:])
	return atcodec.Hash160(pub.SerializeCompressed())
}

// pkhFromP2PKHAddress decodes addr and returns its HASH160 payload,
// verifying it was encoded under versionByte.
func pkhFromP2PKHAddress(addr string, versionByte byte) ([20]byte, error) {
	version, payload, err := atcodec.Base58CheckDecode(addr)
	if err != nil {
		return [20]byte{}, swaperr.InvalidInput("swap: malformed P2PKH address: " + err.Error())
	}
	if version != versionByte || len(payload) != 20 {
		return [20]byte{}, swaperr.InvalidInput("swap: address is not a P2PKH address on this network")
	}
	var out [20]byte
	copy(out[:], payload)
	return out, nil
}
