package htlc

import (
	"bytes"

	"github.com/atswap-dev/node/atcodec"
	"github.com/atswap-dev/node/swaperr"
)

// Params is the fully-bound set of values the canonical HTLC redeem script
// commits to, per spec.md §4.6. SecretHash and both PKHs are HASH160
// outputs (20 bytes); LockTime is a Unix-seconds nLockTime value.
type Params struct {
	SecretLen   int
	SecretHash  [20]byte
	RedeemerPKH [20]byte
	LockTime    int64
	RefunderPKH [20]byte
}

// BuildScript renders p as the exact byte sequence spec.md §4.6 pins:
//
//	OP_IF
//	    OP_SIZE <secretLen> OP_EQUALVERIFY
//	    OP_HASH160 <secretHash> OP_EQUALVERIFY
//	    OP_DUP OP_HASH160 <redeemerPKH>
//	OP_ELSE
//	    <lockTime> OP_CHECKLOCKTIMEVERIFY OP_DROP
//	    OP_DUP OP_HASH160 <refunderPKH>
//	OP_ENDIF
//	OP_EQUALVERIFY OP_CHECKSIG
func BuildScript(p Params) []byte {
	var b bytes.Buffer
	b.WriteByte(opIf)
	b.WriteByte(opSize)
	b.Write(pushScriptNum(int64(p.SecretLen)))
	b.WriteByte(opEqualVerify)
	b.WriteByte(opHash160)
	b.Write(pushData(p.SecretHash[:]))
	b.WriteByte(opEqualVerify)
	b.WriteByte(opDup)
	b.WriteByte(opHash160)
	b.Write(pushData(p.RedeemerPKH[:]))
	b.WriteByte(opElse)
	b.Write(pushScriptNum(p.LockTime))
	b.WriteByte(opCheckLockTimeVerify)
	b.WriteByte(opDrop)
	b.WriteByte(opDup)
	b.WriteByte(opHash160)
	b.Write(pushData(p.RefunderPKH[:]))
	b.WriteByte(opEndif)
	b.WriteByte(opEqualVerify)
	b.WriteByte(opCheckSig)
	return b.Bytes()
}

// ParseScript is the strict inverse of BuildScript: it recognises only the
// exact canonical byte layout and rejects any other IF/ELSE HTLC-shaped
// script. A semantically-equivalent but differently-encoded script would
// still hash to a different P2SH address and must never be silently
// accepted as this contract.
func ParseScript(script []byte) (Params, error) {
	r := &cursor{b: script}
	var p Params

	if err := r.expectByte(opIf); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opSize); err != nil {
		return Params{}, err
	}
	secretLen, err := r.readScriptNum()
	if err != nil {
		return Params{}, err
	}
	p.SecretLen = int(secretLen)
	if err := r.expectByte(opEqualVerify); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opHash160); err != nil {
		return Params{}, err
	}
	secretHash, err := r.readPush(20)
	if err != nil {
		return Params{}, err
	}
	copy(p.SecretHash[:], secretHash)
	if err := r.expectByte(opEqualVerify); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opDup); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opHash160); err != nil {
		return Params{}, err
	}
	redeemerPKH, err := r.readPush(20)
	if err != nil {
		return Params{}, err
	}
	copy(p.RedeemerPKH[:], redeemerPKH)
	if err := r.expectByte(opElse); err != nil {
		return Params{}, err
	}
	lockTime, err := r.readScriptNum()
	if err != nil {
		return Params{}, err
	}
	p.LockTime = lockTime
	if err := r.expectByte(opCheckLockTimeVerify); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opDrop); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opDup); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opHash160); err != nil {
		return Params{}, err
	}
	refunderPKH, err := r.readPush(20)
	if err != nil {
		return Params{}, err
	}
	copy(p.RefunderPKH[:], refunderPKH)
	if err := r.expectByte(opEndif); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opEqualVerify); err != nil {
		return Params{}, err
	}
	if err := r.expectByte(opCheckSig); err != nil {
		return Params{}, err
	}
	if !r.atEnd() {
		return Params{}, swaperr.InvalidInput("htlc: trailing bytes after CHECKSIG")
	}
	return p, nil
}

// P2SHAddress derives the Base58Check P2SH address for script under the
// given foreign-network version byte: Base58Check(versionByte ‖
// HASH160(script)).
func P2SHAddress(script []byte, versionByte byte) string {
	h := atcodec.Hash160(script)
	return atcodec.Base58CheckEncode(versionByte, h[:])
}

// RedeemScriptSig builds the spending scriptSig for the secret-revealing
// redeem branch: <sig> <pubKey> <secret> OP_TRUE <redeemScript>.
func RedeemScriptSig(sig, pubKey, secret, redeemScript []byte) []byte {
	var b bytes.Buffer
	b.Write(pushData(sig))
	b.Write(pushData(pubKey))
	b.Write(pushData(secret))
	b.WriteByte(opTrue)
	b.Write(pushData(redeemScript))
	return b.Bytes()
}

// RefundScriptSig builds the spending scriptSig for the time-locked refund
// branch: <sig> OP_FALSE <redeemScript>.
func RefundScriptSig(sig, redeemScript []byte) []byte {
	var b bytes.Buffer
	b.Write(pushData(sig))
	b.WriteByte(opFalse)
	b.Write(pushData(redeemScript))
	return b.Bytes()
}
