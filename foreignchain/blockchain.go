package foreignchain

import "github.com/atswap-dev/node/atcodec"

// ForeignBlockchain is the trait/struct spec.md §9's "deep inheritance"
// design note calls for: instead of a Bitcoiny base class with
// Bitcoin/Litecoin/... subclasses, one small struct holds a network's
// address-version bytes and fee policy (ForeignNetworkParams) and is
// composed with a BlockchainProvider implementation to get the common
// address-validation and fee behaviour every foreign chain in this family
// needs, without any inheritance hierarchy.
type ForeignBlockchain struct {
	Provider BlockchainProvider
	Params   ForeignNetworkParams
}

// NewForeignBlockchain composes p with the network parameters it reports,
// so callers don't have to re-fetch NetworkParams() at every call site.
func NewForeignBlockchain(p BlockchainProvider) *ForeignBlockchain {
	return &ForeignBlockchain{Provider: p, Params: p.NetworkParams()}
}

// NetworkParams returns the composed network's address-version and fee
// constants.
func (fb *ForeignBlockchain) NetworkParams() ForeignNetworkParams { return fb.Params }

// IsValidAddress reports whether addr is a well-formed Base58Check
// address — P2PKH or P2SH — under this blockchain's network parameters:
// a HASH160-sized (20-byte) payload behind a version byte matching either
// P2PKHVersionByte or P2SHVersionByte.
func (fb *ForeignBlockchain) IsValidAddress(addr string) bool {
	version, payload, err := atcodec.Base58CheckDecode(addr)
	if err != nil || len(payload) != 20 {
		return false
	}
	return version == fb.Params.P2PKHVersionByte || version == fb.Params.P2SHVersionByte
}

// IsValidWalletKey reports whether raw is a byte length this blockchain's
// tooling accepts as a private key: the bare 32-byte scalar, or a
// 37/38-byte WIF-style payload still carrying its version byte and
// trailing checksum (spec.md §4.8 step 1's auto-trim rule).
func (fb *ForeignBlockchain) IsValidWalletKey(raw []byte) bool {
	return len(raw) == 32 || len(raw) == 37 || len(raw) == 38
}

// FeePerKB returns this network's configured default fee rate.
func (fb *ForeignBlockchain) FeePerKB() uint64 { return fb.Params.DefaultFeePerKB }

// GetP2SHFee estimates the fee for a P2SH spend of estimatedSize bytes at
// this network's default fee rate.
func (fb *ForeignBlockchain) GetP2SHFee(estimatedSize int) uint64 {
	ratePerByte := fb.Params.DefaultFeePerKB / 1000
	return uint64(estimatedSize) * ratePerByte
}
