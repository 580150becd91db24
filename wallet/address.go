package wallet

import "github.com/atswap-dev/node/atcodec"

// P2PKHAddress renders pkh as a Base58Check legacy address under the given
// foreign-network version byte — the same construction the HTLC package
// uses for P2SH addresses, just with the P2PKH version byte instead.
func P2PKHAddress(pkh [20]byte, versionByte byte) string {
	return atcodec.Base58CheckEncode(versionByte, pkh[:])
}
