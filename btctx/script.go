package btctx

const (
	opDup         byte = 0x76
	opHash160     byte = 0xa9
	opEqualVerify byte = 0x88
	opCheckSig    byte = 0xac
	opPushdata1   byte = 0x4c
	opPushdata2   byte = 0x4d
)

// pushData encodes data as a minimal script push, mirroring htlc's own
// pushData — duplicated rather than shared because script push encoding
// is a one-line primitive, not a dependency worth taking across package
// boundaries.
func pushData(data []byte) []byte {
	n := len(data)
	switch {
	case n <= 75:
		out := make([]byte, 0, 1+n)
		out = append(out, byte(n))
		return append(out, data...)
	case n <= 0xff:
		out := make([]byte, 0, 2+n)
		out = append(out, opPushdata1, byte(n))
		return append(out, data...)
	default:
		out := make([]byte, 0, 3+n)
		out = append(out, opPushdata2, byte(n), byte(n>>8))
		return append(out, data...)
	}
}

// P2PKHScript renders the standard pay-to-pubkey-hash scriptPubKey:
// OP_DUP OP_HASH160 <pkh> OP_EQUALVERIFY OP_CHECKSIG.
func P2PKHScript(pkh [20]byte) []byte {
	out := make([]byte, 0, 25)
	out = append(out, opDup, opHash160)
	out = append(out, pushData(pkh[:])...)
	out = append(out, opEqualVerify, opCheckSig)
	return out
}

// P2PKHScriptSig renders the scriptSig that spends a P2PKH output:
// <sig> <pubKey>.
func P2PKHScriptSig(sig, pubKey []byte) []byte {
	out := make([]byte, 0, len(sig)+len(pubKey)+4)
	out = append(out, pushData(sig)...)
	out = append(out, pushData(pubKey)...)
	return out
}
